package muna

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/morikuni/failure/v2"
)

// RetrievePredictor fetches a predictor by tag.
// It returns nil without error when the predictor does not exist.
func (c *Client) RetrievePredictor(ctx context.Context, tag string) (*Predictor, error) {
	if tag == "" {
		return nil, failure.New(ErrInvalidValue, failure.Message("Predictor tag is empty"))
	}

	var p Predictor
	err := c.do(ctx, http.MethodGet, "/predictors/"+escapeTag(tag), nil, &p)
	if failure.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, failure.Wrap(err, failure.Context{"tag": tag})
	}
	return &p, nil
}

// escapeTag escapes each path segment of a tag like "@owner/name"
func escapeTag(tag string) string {
	parts := strings.Split(tag, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
