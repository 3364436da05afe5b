package cli

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/levelsai/levels/api"
	"github.com/levelsai/levels/api/muna"
	"github.com/levelsai/levels/api/value"
	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
	"github.com/spf13/cobra"
)

var (
	predictAcceleration = accelerationFlag{Value: api.AccelerationAuto}
	predictTensors      []string
	predictOutputDir    string

	predictCmd = &cobra.Command{
		Use:   "predict <tag> [name=value ...]",
		Short: "Create a prediction",
		Long: `Create a prediction and print it as JSON.

Inputs are given as name=value. Values are parsed as JSON and fall back to
plain strings; name=@path passes an image file. Tensors are passed with
--tensor name=path:dtype:shape, where path holds raw little-endian data and
shape is a comma separated list such as 1,3,224,224.`,
		Example: `  levels predict @fxn/greeting name=Yusuf
  levels predict @cuhk/modnet image=@portrait.jpg --acceleration remote_a40
  levels predict @pytorch/resnet-50 --tensor input=x.bin:float32:1,3,224,224`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPredict,
	}
)

func init() {
	predictCmd.Flags().VarP(&predictAcceleration, "acceleration", "a", "Prediction acceleration: auto, cpu, gpu, npu, remote_auto, remote_cpu, remote_a40 or remote_a100")
	predictCmd.Flags().StringArrayVarP(&predictTensors, "tensor", "t", nil, "Tensor input as name=path:dtype:shape")
	predictCmd.Flags().StringVarP(&predictOutputDir, "output-dir", "o", "", "Directory for tensor and image results")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	inputs, err := parseInputs(args[1:], predictTensors)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir := cfg.OutputDir
	if predictOutputDir != "" {
		dir = predictOutputDir
	}

	prediction, err := api.CreatePrediction(cmd.Context(), newClient(cfg), value.DirWriter{Dir: dir}, api.PredictionRequest{
		Tag:          args[0],
		Inputs:       inputs,
		Acceleration: predictAcceleration.Value,
	})
	if err != nil {
		return err
	}
	if prediction.Error != nil {
		log.Warn("Prediction failed", "tag", prediction.Tag, "error", *prediction.Error)
	}
	return writeJSON(cmd.OutOrStdout(), prediction)
}

// parseInputs builds prediction inputs from name=value arguments and --tensor flags
func parseInputs(args, tensors []string) (map[string]value.Value, error) {
	inputs := make(map[string]value.Value, len(args)+len(tensors))
	add := func(name string, v value.Value) error {
		if _, ok := inputs[name]; ok {
			return failure.New(InvalidArguments, failure.Messagef("Input %q is given twice", name))
		}
		inputs[name] = v
		return nil
	}

	for _, arg := range args {
		name, raw, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		if err := add(name, parseScalarOrImage(raw)); err != nil {
			return nil, err
		}
	}
	for _, arg := range tensors {
		name, raw, err := splitAssignment(arg)
		if err != nil {
			return nil, err
		}
		v, err := parseTensor(raw)
		if err != nil {
			return nil, failure.Wrap(err, failure.Context{"input": name})
		}
		if err := add(name, v); err != nil {
			return nil, err
		}
	}
	return inputs, nil
}

func splitAssignment(arg string) (string, string, error) {
	name, raw, ok := strings.Cut(arg, "=")
	if !ok || name == "" {
		return "", "", failure.New(InvalidArguments,
			failure.Messagef("Invalid input %q, want name=value", arg))
	}
	return name, raw, nil
}

// parseScalarOrImage reads @path as an image and anything else as JSON, falling back to a string
func parseScalarOrImage(raw string) value.Value {
	if path, ok := strings.CutPrefix(raw, "@"); ok && path != "" {
		return value.Value{Kind: value.KindImage, Data: path}
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return value.Scalar(raw)
	}
	return value.Scalar(v)
}

// parseTensor reads path:dtype:shape
func parseTensor(raw string) (value.Value, error) {
	rest, shapeText, ok1 := cutLast(raw, ":")
	path, dtype, ok2 := cutLast(rest, ":")
	if !ok1 || !ok2 || path == "" {
		return value.Value{}, failure.New(InvalidArguments,
			failure.Messagef("Invalid tensor %q, want path:dtype:shape", raw))
	}

	d := muna.Dtype(dtype)
	if !d.IsTensor() {
		return value.Value{}, failure.New(InvalidArguments,
			failure.Messagef("Unknown tensor dtype %q", dtype))
	}

	shape := []int{}
	if shapeText != "" {
		for _, s := range strings.Split(shapeText, ",") {
			n, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || n < 0 {
				return value.Value{}, failure.New(InvalidArguments,
					failure.Messagef("Invalid tensor shape %q", shapeText))
			}
			shape = append(shape, n)
		}
	}
	return value.Value{Kind: value.KindTensor, Data: path, Dtype: d, Shape: shape}, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
