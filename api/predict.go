package api

import (
	"context"
	"slices"
	"strings"

	"github.com/levelsai/levels/api/muna"
	"github.com/levelsai/levels/api/value"
	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
)

// Acceleration is the hardware a client asks a prediction to run on
type Acceleration string

const (
	AccelerationAuto       Acceleration = "auto"
	AccelerationCPU        Acceleration = "cpu"
	AccelerationGPU        Acceleration = "gpu"
	AccelerationNPU        Acceleration = "npu"
	AccelerationRemoteAuto Acceleration = "remote_auto"
	AccelerationRemoteCPU  Acceleration = "remote_cpu"
	AccelerationRemoteA40  Acceleration = "remote_a40"
	AccelerationRemoteA100 Acceleration = "remote_a100"
)

// Accelerations lists every accepted acceleration
var Accelerations = []Acceleration{
	AccelerationAuto, AccelerationCPU, AccelerationGPU, AccelerationNPU,
	AccelerationRemoteAuto, AccelerationRemoteCPU, AccelerationRemoteA40, AccelerationRemoteA100,
}

// Valid reports whether a is a known acceleration
func (a Acceleration) Valid() bool {
	return slices.Contains(Accelerations, a)
}

// IsRemote reports whether a names a remote acceleration
func (a Acceleration) IsRemote() bool {
	return strings.HasPrefix(string(a), "remote_")
}

// Remote maps a to the remote acceleration the prediction actually runs on.
// This binary has no on-device runtime, so local accelerations run remotely.
func (a Acceleration) Remote() muna.Acceleration {
	switch a {
	case "", AccelerationAuto, AccelerationGPU, AccelerationNPU:
		return muna.AccelerationRemoteAuto
	case AccelerationCPU:
		return muna.AccelerationRemoteCPU
	default:
		return muna.Acceleration(a)
	}
}

// Predictor runs predictions
type Predictor interface {
	CreateRemotePrediction(ctx context.Context, in muna.CreatePredictionInput) (*muna.Prediction, error)
}

// PredictionRequest holds the arguments of CreatePrediction
type PredictionRequest struct {
	Tag          string
	Inputs       map[string]value.Value
	Acceleration Acceleration
}

// Prediction is an MCP-compatible prediction
type Prediction struct {
	ID      string        `json:"id"`
	Tag     string        `json:"tag"`
	Results []value.Value `json:"results"`
	// Latency in milliseconds
	Latency float64 `json:"latency"`
	// Error is nil if the prediction completed successfully
	Error   *string `json:"error"`
	Logs    *string `json:"logs"`
	Created string  `json:"created"`
}

// CreatePrediction invokes a predictor. Result tensors and images are written with w.
// A failure inside the predictor is reported in Prediction.Error, not as an error.
func CreatePrediction(ctx context.Context, p Predictor, w value.FileWriter, req PredictionRequest) (*Prediction, error) {
	if req.Tag == "" {
		return nil, failure.New(ErrInvalidArgument, failure.Message("Predictor tag is required"))
	}
	if req.Acceleration == "" {
		req.Acceleration = AccelerationAuto
	}
	if !req.Acceleration.Valid() {
		return nil, failure.New(ErrInvalidArgument,
			failure.Messagef("Unknown acceleration %q", req.Acceleration))
	}

	inputs := make(map[string]any, len(req.Inputs))
	for name, v := range req.Inputs {
		plain, err := value.ToPlain(v)
		if err != nil {
			return nil, failure.Wrap(err, failure.Context{"input": name})
		}
		inputs[name] = plain
	}

	accel := req.Acceleration.Remote()
	if !req.Acceleration.IsRemote() {
		log.Info("Running local acceleration remotely", "tag", req.Tag, "requested", req.Acceleration, "acceleration", accel)
	}

	pred, err := p.CreateRemotePrediction(ctx, muna.CreatePredictionInput{
		Tag:          req.Tag,
		Inputs:       inputs,
		Acceleration: accel,
	})
	if err != nil {
		return nil, failure.Wrap(err, failure.Context{"tag": req.Tag})
	}

	out := &Prediction{
		ID:      pred.ID,
		Tag:     pred.Tag,
		Latency: pred.Latency,
		Error:   pred.Error,
		Logs:    pred.Logs,
		Created: pred.Created,
	}
	if pred.Results != nil {
		out.Results = make([]value.Value, 0, len(pred.Results))
		for _, r := range pred.Results {
			v, err := value.FromPlain(r, w)
			if err != nil {
				return nil, failure.Wrap(err, failure.Context{"prediction": pred.ID})
			}
			out.Results = append(out.Results, v)
		}
	}
	return out, nil
}
