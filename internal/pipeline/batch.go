package pipeline

import (
	"context"

	"github.com/ironsheep/chart-signals-mcp/internal/imaging"
	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the batch concurrency used when none is given.
const DefaultWorkers = 4

// Result is the outcome of extracting one file in a batch.
type Result struct {
	Path     string    `json:"path"`
	Features *Features `json:"features,omitempty"`
	Error    string    `json:"error,omitempty"`

	// Err is the error behind Error, for callers that test with errors.Is.
	Err error `json:"-"`
}

// ExtractAll extracts features from every path using at most workers
// concurrent extractions.
//
// Results are returned in the order of paths. A file that cannot be loaded
// or processed records its error in its Result and does not stop the rest.
// Once ctx is done no further files are started; their results carry
// ctx.Err(), which is also returned.
func (e *Extractor) ExtractAll(ctx context.Context, loader imaging.Loader, paths []string, topK, workers int) ([]Result, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}

	results := make([]Result, len(paths))
	for i, path := range paths {
		results[i].Path = path
	}

	var g errgroup.Group
	g.SetLimit(workers)

	for i := range paths {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				results[j].setErr(err)
			}
			break
		}

		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].setErr(err)
				return nil
			}
			features, err := e.extractFile(loader, paths[i], topK)
			if err != nil {
				e.logger.Warn().
					Err(err).
					Str("path", paths[i]).
					Msg("Chart extraction failed")
				results[i].setErr(err)
				return nil
			}
			results[i].Features = features
			return nil
		})
	}

	_ = g.Wait()

	e.logger.Debug().
		Int("files", len(paths)).
		Int("workers", workers).
		Msg("Batch extraction finished")

	return results, ctx.Err()
}

func (e *Extractor) extractFile(loader imaging.Loader, path string, topK int) (*Features, error) {
	img, err := loader.Load(path)
	if err != nil {
		return nil, err
	}
	return e.Extract(img, topK)
}

func (r *Result) setErr(err error) {
	r.Err = err
	r.Error = err.Error()
}
