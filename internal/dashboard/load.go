package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
)

// maxParallelLoads bounds how many sources a dashboard fetches at once.
const maxParallelLoads = 4

// source is one independently loaded part of a dashboard.
type source struct {
	name string
	load func(ctx context.Context) error
}

// loadSources runs every source on a bounded errgroup. A failing source does not cancel the
// others; the result joins every failure, each prefixed with its source name.
func loadSources(ctx context.Context, logPrefix string, sources ...source) error {
	errs := make([]error, len(sources))
	var g errgroup.Group
	g.SetLimit(maxParallelLoads)
	for i, s := range sources {
		g.Go(func() error {
			err := s.load(ctx)
			if err == nil {
				return nil
			}
			log.Printf("%s%s: %v", logPrefix, s.name, err)
			errs[i] = fmt.Errorf("%s: %w", s.name, err)
			return errs[i]
		})
	}
	if g.Wait() == nil {
		return nil
	}
	return errors.Join(errs...)
}
