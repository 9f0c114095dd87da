package filewatch

import (
	"context"
	"fmt"

	"github.com/fsnotify/fsnotify"
)

// UntilModifyContext derives a context from ctx that is canceled as soon as
// any of targets (files or directories) is touched on disk: written, created,
// removed, renamed or chmod-ed.
//
// The cause of the cancellation names the touched path. The returned func()
// stops watching and releases the watcher; call it when the context is no
// longer needed. On error both returned values are nil.
func UntilModifyContext(ctx context.Context, targets ...string) (context.Context, func(), error) {
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

	for _, target := range targets {
		if err := w.Add(target); err != nil {
			cancel(err)
			return nil, nil, err
		}
	}
	return cctx, func() { cancel(nil) }, nil
}
