package mcp

import (
	"context"
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/levelsai/levels/api"
	"github.com/levelsai/levels/api/muna"
	"github.com/levelsai/levels/api/value"
	"github.com/levelsai/levels/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
)

var validate = validator.New()

// Deps are the services the tools call into
type Deps struct {
	Predictors  api.PredictorRetriever
	Predictions api.Predictor
	Files       value.FileWriter
	Search      api.SearchOptions
}

func InitTools(d Deps) []server.ServerTool {
	tools := []server.ServerTool{}

	tools = append(tools, newServerTool(SearchPredictors(d)))
	tools = append(tools, newServerTool(CreatePrediction(d)))

	return tools
}

const searchPredictorsDescription = `Search for prediction functions that solve a given task.

These predictors are stateless functions which accept data of common types (scalars, tensors, images, etc.).
The prediction function will provide its detailed signature, including arguments it accepts,
schemas for aforementioned arguments, and output types and schemas.`

func SearchPredictors(d Deps) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	tool = mcp.NewTool(
		"search_predictors",
		mcp.WithDescription(searchPredictorsDescription),
		mcp.WithString("query", mcp.Required(), mcp.Description("Task to solve, in plain words")),
	)
	handler = func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		type ToolArguments struct {
			Query string `json:"query" validate:"required"`
		}
		var args ToolArguments
		if err := decodeArguments(req, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := validate.StructCtx(ctx, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		predictors, err := api.SearchPredictors(ctx, d.Predictors, args.Query, d.Search)
		if err != nil {
			return toolError("search_predictors", err), nil
		}

		b, err := json.Marshal(predictors)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
	return tool, handler
}

const createPredictionDescription = `Create a prediction.

This tool can be used to invoke a prediction function, given its tag along with an input value map.
Each input is a value object: scalars are passed inline in "data", while tensors and images are passed
as paths to files on disk. Never inline encoded image or tensor data.
The prediction function can be invoked with varying kinds of hardware acceleration (auto, cpu, gpu, npu).
The prediction function can also be invoked explicitly on remote servers (remote_auto, remote_cpu, remote_a40, remote_a100).
Tensor and image results are written to files and returned as paths.`

type createPredictionArgs struct {
	Tag          string                 `json:"tag" validate:"required" jsonschema:"Predictor tag, e.g. @fxn/greeting."`
	Inputs       map[string]value.Value `json:"inputs" jsonschema:"Prediction inputs, keyed by input parameter name."`
	Acceleration api.Acceleration       `json:"acceleration,omitempty" validate:"omitempty,acceleration" jsonschema:"Prediction acceleration."`
}

func init() {
	validate.RegisterValidation("acceleration", func(fl validator.FieldLevel) bool {
		return api.Acceleration(fl.Field().String()).Valid()
	})
}

var createPredictionSchema = mustCreatePredictionSchema()

// mustCreatePredictionSchema derives the input schema from createPredictionArgs
func mustCreatePredictionSchema() json.RawMessage {
	s, err := jsonschema.For[createPredictionArgs](nil)
	if err != nil {
		panic(err)
	}

	if accel := s.Properties["acceleration"]; accel != nil {
		accel.Enum = lo.Map(api.Accelerations, func(a api.Acceleration, _ int) any { return string(a) })
		accel.Default = json.RawMessage(`"auto"`)
	}
	if inputs := s.Properties["inputs"]; inputs != nil && inputs.AdditionalProperties != nil {
		props := inputs.AdditionalProperties.Properties
		if kind := props["kind"]; kind != nil {
			kind.Enum = []any{string(value.KindScalar), string(value.KindTensor), string(value.KindImage)}
		}
		if dtype := props["dtype"]; dtype != nil {
			dtype.Enum = lo.Map(muna.TensorDtypes, func(d muna.Dtype, _ int) any { return string(d) })
		}
	}

	b, err := json.Marshal(s)
	if err != nil {
		panic(err)
	}
	return b
}

func CreatePrediction(d Deps) (tool mcp.Tool, handler server.ToolHandlerFunc) {
	tool = mcp.NewToolWithRawSchema("create_prediction", createPredictionDescription, createPredictionSchema)
	handler = func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args createPredictionArgs
		if err := decodeArguments(req, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := validate.StructCtx(ctx, args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		prediction, err := api.CreatePrediction(ctx, d.Predictions, d.Files, api.PredictionRequest{
			Tag:          args.Tag,
			Inputs:       args.Inputs,
			Acceleration: args.Acceleration,
		})
		if err != nil {
			return toolError("create_prediction", err), nil
		}

		b, err := json.Marshal(prediction)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(b)), nil
	}
	return tool, handler
}

func decodeArguments(req mcp.CallToolRequest, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    "json",
		Result:     out,
		DecodeHook: wholeNumberHook,
	})
	if err != nil {
		return err
	}
	return dec.Decode(req.Params.Arguments)
}

// maxExactFloat is the largest magnitude below which every float64 integer is exact
const maxExactFloat = 1 << 53

// wholeNumberHook restores integers that JSON decoding turned into float64.
// It only touches untyped targets such as Value.Data; typed fields convert as usual.
func wholeNumberHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.Float64 || to.Kind() != reflect.Interface {
		return data, nil
	}
	f := data.(float64)
	if f != math.Trunc(f) || math.Abs(f) > maxExactFloat {
		return data, nil
	}
	return json.Number(strconv.FormatInt(int64(f), 10)), nil
}

// toolError reports err to the client as a failed tool call
func toolError(tool string, err error) *mcp.CallToolResult {
	msg := err.Error()
	if fmsg := failure.MessageOf(err); fmsg != "" {
		msg = fmsg.String()
	}
	log.Warn("Tool call failed", "tool", tool, "error", err)
	return mcp.NewToolResultError(msg)
}
