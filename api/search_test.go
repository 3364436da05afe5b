package api

import (
	"context"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/levelsai/levels/api/cache"
	"github.com/levelsai/levels/api/muna"
	"github.com/morikuni/failure/v2"
)

type fakeRetriever struct {
	mu         sync.Mutex
	predictors map[string]*muna.Predictor
	calls      map[string]int
	err        error
}

func (f *fakeRetriever) RetrievePredictor(ctx context.Context, tag string) (*muna.Predictor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[tag]++
	if f.err != nil {
		return nil, f.err
	}
	return f.predictors[tag], nil
}

func newFakeRetriever() *fakeRetriever {
	return &fakeRetriever{predictors: map[string]*muna.Predictor{
		"@fxn/greeting":      {Tag: "@fxn/greeting", Name: "greeting", Description: "Say hello to someone."},
		"@cuhk/modnet":       {Tag: "@cuhk/modnet", Name: "modnet", Description: "Portrait matting to remove image backgrounds."},
		"@pytorch/resnet-50": {Tag: "@pytorch/resnet-50", Name: "resnet-50", Description: "Image classification."},
	}}
}

func tagsOf(ps []muna.Predictor) []string {
	tags := make([]string, len(ps))
	for i, p := range ps {
		tags[i] = p.Tag
	}
	return tags
}

func TestSearchPredictors(t *testing.T) {
	tags := []string{"@fxn/greeting", "@cuhk/modnet", "@missing/predictor", "@pytorch/resnet-50", "@fxn/greeting", ""}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{
			name:  "empty query keeps configured order",
			query: "",
			want:  []string{"@fxn/greeting", "@cuhk/modnet", "@pytorch/resnet-50"},
		},
		{
			name:  "relevant predictors first",
			query: "remove image background",
			want:  []string{"@cuhk/modnet", "@pytorch/resnet-50", "@fxn/greeting"},
		},
		{
			name:  "unrelated query still returns everything",
			query: "speech to text",
			want:  []string{"@fxn/greeting", "@cuhk/modnet", "@pytorch/resnet-50"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SearchPredictors(context.Background(), newFakeRetriever(), tt.query, SearchOptions{Tags: tags, NoCache: true})
			if err != nil {
				t.Fatalf("SearchPredictors() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, tagsOf(got)); diff != "" {
				t.Errorf("SearchPredictors() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSearchPredictorsError(t *testing.T) {
	r := newFakeRetriever()
	r.err = failure.New(muna.ErrUnauthorized, failure.Message("Invalid access key"))

	_, err := SearchPredictors(context.Background(), r, "hello", SearchOptions{Tags: []string{"@fxn/greeting"}, NoCache: true})
	if !failure.Is(err, muna.ErrUnauthorized) {
		t.Errorf("SearchPredictors() error = %v, want %v", err, muna.ErrUnauthorized)
	}
}

func TestSearchPredictorsCache(t *testing.T) {
	if err := cache.SetDir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	r := newFakeRetriever()
	opts := SearchOptions{Tags: []string{"@fxn/greeting", "@cuhk/modnet"}}

	for i := 0; i < 2; i++ {
		got, err := SearchPredictors(context.Background(), r, "", opts)
		if err != nil {
			t.Fatalf("SearchPredictors() error = %v", err)
		}
		if len(got) != 2 {
			t.Fatalf("SearchPredictors() returned %d predictors, want 2", len(got))
		}
	}
	if n := r.calls["@fxn/greeting"]; n != 1 {
		t.Errorf("retrieved @fxn/greeting %d times, want 1", n)
	}

	opts.ForceUpdate = true
	if _, err := SearchPredictors(context.Background(), r, "", opts); err != nil {
		t.Fatal(err)
	}
	if n := r.calls["@fxn/greeting"]; n != 2 {
		t.Errorf("retrieved @fxn/greeting %d times after force update, want 2", n)
	}
}

func TestSearchPredictorsDoesNotCacheMissing(t *testing.T) {
	if err := cache.SetDir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	r := newFakeRetriever()
	opts := SearchOptions{Tags: []string{"@fxn/greeting", "@yusuf/yolo-v8-nano"}}

	got, err := SearchPredictors(context.Background(), r, "", opts)
	if err != nil {
		t.Fatalf("SearchPredictors() error = %v", err)
	}
	if diff := cmp.Diff([]string{"@fxn/greeting"}, tagsOf(got)); diff != "" {
		t.Fatalf("SearchPredictors() mismatch (-want +got):\n%s", diff)
	}

	r.mu.Lock()
	r.predictors["@yusuf/yolo-v8-nano"] = &muna.Predictor{Tag: "@yusuf/yolo-v8-nano", Name: "yolo-v8-nano"}
	r.mu.Unlock()

	got, err = SearchPredictors(context.Background(), r, "", opts)
	if err != nil {
		t.Fatalf("SearchPredictors() error = %v", err)
	}
	if diff := cmp.Diff([]string{"@fxn/greeting", "@yusuf/yolo-v8-nano"}, tagsOf(got)); diff != "" {
		t.Errorf("published predictor not found (-want +got):\n%s", diff)
	}
	if n := r.calls["@fxn/greeting"]; n != 1 {
		t.Errorf("retrieved @fxn/greeting %d times, want 1", n)
	}
}
