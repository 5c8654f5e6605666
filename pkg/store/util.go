package store

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// RemoveAll removes the records matching f from every collection in
// parallel. All failures are collected, a failing collection does not stop
// the others.
func RemoveAll(ctx context.Context, s LayerStore, collections []string, f Filter) (int64, error) {
	if len(collections) == 0 {
		return 0, nil
	}

	var (
		mu    sync.Mutex
		total int64
		errs  *multierror.Error
	)
	eg, ctx2 := errgroup.WithContext(ctx)
	for _, coll := range collections {
		eg.Go(func() error {
			n, err := s.Remove(ctx2, coll, f)
			mu.Lock()
			defer mu.Unlock()
			total += n
			if err != nil {
				errs = multierror.Append(errs, err)
			}
			return nil
		})
	}
	_ = eg.Wait()

	return total, errs.ErrorOrNil()
}
