package api

import (
	"context"
	"sort"
	"strings"

	"github.com/levelsai/levels/api/cache"
	"github.com/levelsai/levels/api/muna"
	"github.com/levelsai/levels/log"
	"github.com/morikuni/failure/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// errPredictorMissing marks a lookup that found nothing; it is never cached
const errPredictorMissing ErrorCode = "PredictorMissing"

// maxConcurrentRetrievals bounds in-flight predictor lookups
const maxConcurrentRetrievals = 4

// PredictorRetriever looks up predictors by tag
type PredictorRetriever interface {
	RetrievePredictor(ctx context.Context, tag string) (*muna.Predictor, error)
}

// SearchOptions controls SearchPredictors
type SearchOptions struct {
	// Tags are the predictors that can be found
	Tags []string
	// NoCache disables the predictor metadata cache
	NoCache bool
	// ForceUpdate refreshes cached predictors
	ForceUpdate bool
}

// SearchPredictors returns every searchable predictor that still exists,
// the ones most relevant to query first.
func SearchPredictors(ctx context.Context, r PredictorRetriever, query string, opts SearchOptions) ([]muna.Predictor, error) {
	tags := lo.Uniq(lo.Compact(opts.Tags))
	found := make([]*muna.Predictor, len(tags))

	var c *cache.Cache[*muna.Predictor]
	if !opts.NoCache {
		c = cache.New[*muna.Predictor]("predictors")
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentRetrievals)
	for i, tag := range tags {
		g.Go(func() error {
			p, err := retrievePredictor(ctx, r, c, tag, opts.ForceUpdate)
			if err != nil {
				return err
			}
			found[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failure.Wrap(err, failure.Context{"query": query})
	}

	predictors := make([]muna.Predictor, 0, len(found))
	for i, p := range found {
		if p == nil {
			log.Debug("Searchable predictor not found", "tag", tags[i])
			continue
		}
		predictors = append(predictors, *p)
	}

	rank(predictors, query)
	return predictors, nil
}

func retrievePredictor(ctx context.Context, r PredictorRetriever, c *cache.Cache[*muna.Predictor], tag string, force bool) (*muna.Predictor, error) {
	if c == nil {
		return r.RetrievePredictor(ctx, tag)
	}

	var fetchErr error
	p, err := c.GetOrSet(tag, func() (*muna.Predictor, error) {
		p, err := r.RetrievePredictor(ctx, tag)
		if err != nil {
			fetchErr = err
			return nil, err
		}
		if p == nil {
			return nil, failure.New(errPredictorMissing)
		}
		return p, nil
	}, force)
	if fetchErr != nil {
		return nil, fetchErr
	}
	if failure.Is(err, errPredictorMissing) {
		return nil, nil
	}
	if err != nil {
		log.Warn("Failed to cache predictor", "tag", tag, "error", err)
	}
	return p, nil
}

// rank orders predictors by how many query terms they mention, stable otherwise
func rank(predictors []muna.Predictor, query string) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return
	}

	scores := make(map[string]int, len(predictors))
	for _, p := range predictors {
		text := strings.ToLower(strings.Join([]string{p.Tag, p.Name, p.Description}, " "))
		scores[p.Tag] = lo.CountBy(terms, func(term string) bool {
			return strings.Contains(text, term)
		})
	}

	sort.SliceStable(predictors, func(i, j int) bool {
		return scores[predictors[i].Tag] > scores[predictors[j].Tag]
	})
}
