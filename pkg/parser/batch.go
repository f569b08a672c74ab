package parser

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParseFiles parses each path on a bounded pool of workers. Transcripts are
// independent, so results come back in the order of paths regardless of
// completion order. The first error cancels the remaining work. workers <= 0
// uses GOMAXPROCS.
func (p *Parser) ParseFiles(ctx context.Context, paths []string, workers int) ([]*Result, error) {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]*Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, path := range paths {
		g.Go(func() error {
			res, err := p.ParseFile(gctx, path)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
