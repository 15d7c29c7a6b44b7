package driver

import (
	"context"
	"runtime"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ExportUnits exports independent units concurrently, at most jobs at a
// time (jobs <= 0 means one per CPU). A unit's failures stay in its own bag;
// the group only errors on context cancellation.
func ExportUnits(ctx context.Context, units []*Unit, jobs int, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for _, u := range units {
		u := u
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			ok := ExportUnit(u)
			log.Debug("unit exported",
				zap.String("unit", u.Name),
				zap.Bool("ok", ok),
				zap.Int("types", len(u.Registry.ExportedTypes())),
				zap.Int("kept", len(u.Registry.KeptTypes())),
				zap.Duration("elapsed", time.Since(start)),
			)
			return nil
		})
	}
	return g.Wait()
}
