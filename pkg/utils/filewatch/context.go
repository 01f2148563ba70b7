package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext returns a context that is canceled
// when one of target paths is modified (= written, created, removed, or renamed).
//
// Watching a directory covers the files directly inside it.
//
// # Args
//
// - ctx: context.Context
//
// - targetPath ...string: paths to be watched.
// When any of them is modified, the context is canceled.
//
// # Returns
//
// - context.Context: context that is canceled when one of target paths is modified.
// context.Cause of it tells which path has changed.
//
// - func(): cancel function.
//
// - error: error caused when it fails to start watching.
//
// If error is not nil, both of the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, targetPath ...string) (context.Context, func(), error) {
	cctx, cancel := context.WithCancelCause(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		cancel(err)
		return nil, nil, err
	}

	go func() {
		defer w.Close()

		for {
			select {
			case <-cctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				cancel(fmt.Errorf("%s is updated (%s)", event.Name, event.Op.String()))
			}
		}
	}()

	for _, f := range targetPath {
		if err = w.Add(f); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}
	return cctx, func() { cancel(nil) }, nil
}
