package muna

import (
	"context"
	"net/http"
	"sort"

	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

// CreatePredictionInput holds the arguments of a remote prediction
type CreatePredictionInput struct {
	Tag string
	// Inputs maps parameter names to plain values
	Inputs       map[string]any
	Acceleration Acceleration
}

// CreateRemotePrediction runs a predictor on Muna's servers and waits for the result
func (c *Client) CreateRemotePrediction(ctx context.Context, in CreatePredictionInput) (*Prediction, error) {
	if in.Tag == "" {
		return nil, failure.New(ErrInvalidValue, failure.Message("Predictor tag is empty"))
	}
	if in.Acceleration == "" {
		in.Acceleration = AccelerationRemoteAuto
	}

	// sorted so uploads happen in a stable order
	names := lo.Keys(in.Inputs)
	sort.Strings(names)

	inputs := make(map[string]RemoteValue, len(in.Inputs))
	for _, name := range names {
		rv, err := c.toRemoteValue(ctx, name, in.Inputs[name])
		if err != nil {
			return nil, err
		}
		inputs[name] = rv
	}

	var rp remotePrediction
	err := c.do(ctx, http.MethodPost, "/predictions/remote", createRemotePredictionRequest{
		Tag:          in.Tag,
		Inputs:       inputs,
		Acceleration: in.Acceleration,
		ClientID:     c.clientID,
	}, &rp)
	if err != nil {
		return nil, failure.Wrap(err, failure.Context{"tag": in.Tag})
	}

	p := &Prediction{
		ID:      rp.ID,
		Tag:     rp.Tag,
		Created: rp.Created,
		Latency: rp.Latency,
		Error:   rp.Error,
		Logs:    rp.Logs,
	}
	if rp.Results != nil {
		p.Results = make([]any, 0, len(rp.Results))
		for _, rv := range rp.Results {
			v, err := c.fromRemoteValue(ctx, rv)
			if err != nil {
				return nil, failure.Wrap(err, failure.Context{"tag": in.Tag, "prediction": rp.ID})
			}
			p.Results = append(p.Results, v)
		}
	}
	return p, nil
}
