package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/levelsai/levels/api"
	"github.com/levelsai/levels/api/muna"
	"github.com/levelsai/levels/api/value"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/morikuni/failure/v2"
)

type fakeRetriever map[string]*muna.Predictor

func (f fakeRetriever) RetrievePredictor(ctx context.Context, tag string) (*muna.Predictor, error) {
	return f[tag], nil
}

type fakePredictor struct {
	got  muna.CreatePredictionInput
	pred *muna.Prediction
	err  error
}

func (f *fakePredictor) CreateRemotePrediction(ctx context.Context, in muna.CreatePredictionInput) (*muna.Prediction, error) {
	f.got = in
	return f.pred, f.err
}

func callTool(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]interface{}) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if len(res.Content) != 1 {
		t.Fatalf("len(Content) = %d, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("Content[0] is %T, want mcp.TextContent", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestSearchPredictors(t *testing.T) {
	d := Deps{
		Predictors: fakeRetriever{
			"@fxn/greeting":       {Tag: "@fxn/greeting", Name: "greeting", Description: "Say hello."},
			"@yusuf/yolo-v8-nano": {Tag: "@yusuf/yolo-v8-nano", Name: "yolo-v8-nano", Description: "Detect objects in an image."},
		},
		Search: api.SearchOptions{
			Tags:    []string{"@fxn/greeting", "@yusuf/yolo-v8-nano", "@gone/predictor"},
			NoCache: true,
		},
	}

	tool, handler := SearchPredictors(d)
	if tool.Name != "search_predictors" {
		t.Errorf("tool.Name = %q", tool.Name)
	}

	text, isError := callTool(t, handler, map[string]interface{}{"query": "detect objects"})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	var got []muna.Predictor
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	tags := make([]string, 0, len(got))
	for _, p := range got {
		tags = append(tags, p.Tag)
	}
	if diff := cmp.Diff([]string{"@yusuf/yolo-v8-nano", "@fxn/greeting"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchPredictorsMissingQuery(t *testing.T) {
	_, handler := SearchPredictors(Deps{Predictors: fakeRetriever{}, Search: api.SearchOptions{NoCache: true}})
	if _, isError := callTool(t, handler, map[string]interface{}{}); !isError {
		t.Error("IsError = false, want true")
	}
}

func TestCreatePrediction(t *testing.T) {
	p := &fakePredictor{pred: &muna.Prediction{
		ID:      "pred_1",
		Tag:     "@fxn/greeting",
		Created: "2025-01-01T00:00:00Z",
		Latency: 12.5,
		Results: []any{"Hello, Ada"},
	}}
	d := Deps{Predictions: p, Files: value.DirWriter{Dir: t.TempDir()}}

	_, handler := CreatePrediction(d)
	text, isError := callTool(t, handler, map[string]interface{}{
		"tag": "@fxn/greeting",
		"inputs": map[string]interface{}{
			"name": map[string]interface{}{"kind": "scalar", "data": "Ada"},
		},
		"acceleration": "remote_cpu",
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}

	want := muna.CreatePredictionInput{
		Tag:          "@fxn/greeting",
		Inputs:       map[string]any{"name": "Ada"},
		Acceleration: muna.AccelerationRemoteCPU,
	}
	if diff := cmp.Diff(want, p.got); diff != "" {
		t.Errorf("prediction input mismatch (-want +got):\n%s", diff)
	}

	var got api.Prediction
	if err := json.Unmarshal([]byte(text), &got); err != nil {
		t.Fatalf("result is not JSON: %v", err)
	}
	wantPred := api.Prediction{
		ID:      "pred_1",
		Tag:     "@fxn/greeting",
		Created: "2025-01-01T00:00:00Z",
		Latency: 12.5,
		Results: []value.Value{{Kind: value.KindScalar, Data: "Hello, Ada"}},
	}
	if diff := cmp.Diff(wantPred, got); diff != "" {
		t.Errorf("prediction mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePredictionDefaultAcceleration(t *testing.T) {
	p := &fakePredictor{pred: &muna.Prediction{ID: "pred_2", Tag: "@fxn/greeting"}}
	_, handler := CreatePrediction(Deps{Predictions: p, Files: value.DirWriter{Dir: t.TempDir()}})

	if text, isError := callTool(t, handler, map[string]interface{}{"tag": "@fxn/greeting"}); isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if p.got.Acceleration != muna.AccelerationRemoteAuto {
		t.Errorf("Acceleration = %q, want %q", p.got.Acceleration, muna.AccelerationRemoteAuto)
	}
}

func TestCreatePredictionErrors(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		err  error
	}{
		{
			name: "missing tag",
			args: map[string]interface{}{"inputs": map[string]interface{}{}},
		},
		{
			name: "unknown acceleration",
			args: map[string]interface{}{"tag": "@fxn/greeting", "acceleration": "tpu"},
		},
		{
			name: "tensor without dtype",
			args: map[string]interface{}{
				"tag": "@fxn/greeting",
				"inputs": map[string]interface{}{
					"x": map[string]interface{}{"kind": "tensor", "data": "/tmp/x.bin", "shape": []interface{}{1.0}},
				},
			},
		},
		{
			name: "upstream failure",
			args: map[string]interface{}{"tag": "@fxn/greeting"},
			err:  failure.New(muna.ErrUnauthorized, failure.Message("Muna rejected the access key")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakePredictor{pred: &muna.Prediction{ID: "pred_3"}, err: tt.err}
			_, handler := CreatePrediction(Deps{Predictions: p, Files: value.DirWriter{Dir: t.TempDir()}})
			text, isError := callTool(t, handler, tt.args)
			if !isError {
				t.Fatalf("IsError = false, result %s", text)
			}
			if tt.err != nil && text != "Muna rejected the access key" {
				t.Errorf("text = %q", text)
			}
		})
	}
}

func TestCreatePredictionSchema(t *testing.T) {
	var schema struct {
		Type       string   `json:"type"`
		Required   []string `json:"required"`
		Properties map[string]struct {
			Enum    []string `json:"enum"`
			Default string   `json:"default"`
		} `json:"properties"`
	}
	if err := json.Unmarshal(createPredictionSchema, &schema); err != nil {
		t.Fatalf("schema is not JSON: %v", err)
	}
	if schema.Type != "object" {
		t.Errorf("type = %q, want object", schema.Type)
	}
	if diff := cmp.Diff([]string{"tag", "inputs"}, schema.Required); diff != "" {
		t.Errorf("required mismatch (-want +got):\n%s", diff)
	}
	accel := schema.Properties["acceleration"]
	if len(accel.Enum) != len(api.Accelerations) || accel.Default != "auto" {
		t.Errorf("acceleration = %+v", accel)
	}
}

func TestNewServer(t *testing.T) {
	s := NewServer(Deps{Predictors: fakeRetriever{}, Predictions: &fakePredictor{}})
	if s.server == nil {
		t.Fatal("server is nil")
	}
}

func TestCreatePredictionKeepsIntegers(t *testing.T) {
	p := &fakePredictor{pred: &muna.Prediction{ID: "pred_4", Tag: "@fxn/greeting"}}
	_, handler := CreatePrediction(Deps{Predictions: p, Files: value.DirWriter{Dir: t.TempDir()}})

	text, isError := callTool(t, handler, map[string]interface{}{
		"tag": "@fxn/greeting",
		"inputs": map[string]interface{}{
			"count": map[string]interface{}{"kind": "scalar", "data": float64(3)},
			"scale": map[string]interface{}{"kind": "scalar", "data": 0.5},
			"tags":  map[string]interface{}{"kind": "scalar", "data": []interface{}{1.0, "a"}},
		},
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	want := map[string]any{
		"count": json.Number("3"),
		"scale": 0.5,
		"tags":  []interface{}{1.0, "a"},
	}
	if diff := cmp.Diff(want, p.got.Inputs); diff != "" {
		t.Errorf("inputs mismatch (-want +got):\n%s", diff)
	}
}

func TestCreatePredictionSendsIntegerScalarsAsInt32(t *testing.T) {
	var sent struct {
		Inputs map[string]muna.RemoteValue `json:"inputs"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&sent); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Write([]byte(`{"id":"pred_5","tag":"@a/b","results":[]}`))
	}))
	defer srv.Close()

	client := muna.NewClient("test-key",
		muna.WithBaseURL(srv.URL),
		muna.WithHTTPClient(srv.Client()),
		muna.WithRateLimit(muna.RateLimitConfig{}),
	)
	_, handler := CreatePrediction(Deps{Predictions: client, Files: value.DirWriter{Dir: t.TempDir()}})

	text, isError := callTool(t, handler, map[string]interface{}{
		"tag": "@a/b",
		"inputs": map[string]interface{}{
			"n": map[string]interface{}{"kind": "scalar", "data": float64(3)},
			"x": map[string]interface{}{"kind": "scalar", "data": 1.5},
		},
	})
	if isError {
		t.Fatalf("unexpected tool error: %s", text)
	}
	if got := sent.Inputs["n"].Type; got != muna.DtypeInt32 {
		t.Errorf("n type = %q, want %q", got, muna.DtypeInt32)
	}
	if got := sent.Inputs["x"].Type; got != muna.DtypeFloat32 {
		t.Errorf("x type = %q, want %q", got, muna.DtypeFloat32)
	}
}

func TestWholeNumberHook(t *testing.T) {
	anyType := reflect.TypeOf((*any)(nil)).Elem()
	floatType := reflect.TypeOf(float64(0))
	tests := []struct {
		name string
		to   reflect.Type
		in   any
		want any
	}{
		{name: "integer", to: anyType, in: float64(3), want: json.Number("3")},
		{name: "negative", to: anyType, in: float64(-40), want: json.Number("-40")},
		{name: "fraction", to: anyType, in: 0.25, want: 0.25},
		{name: "beyond exact range", to: anyType, in: 1e20, want: 1e20},
		{name: "typed target", to: reflect.TypeOf(0), in: float64(3), want: float64(3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := wholeNumberHook(floatType, tt.to, tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("wholeNumberHook() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
