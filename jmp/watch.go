package jmp

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// settleDelay lets a burst of writes finish before the file is read.
const settleDelay = 100 * time.Millisecond

// Watch expands the file at path once, then again every time it is
// written, until ctx is done. Each outcome is passed to onResult.
//
// The directory is watched rather than the file so that editors which
// replace the file on save are followed too.
func Watch(
	ctx context.Context,
	logger *zap.Logger,
	exp Expander,
	path string,
	onResult func(output string, err error),
) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("error resolving %s: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("error creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("error adding directory to watcher: %w", err)
	}

	onResult(ProcessFile(ctx, exp, path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			// wait for a while after file change to consider multiple changes as one
			time.Sleep(settleDelay)
			drain(watcher.Events)

			logger.Debug("input changed", zap.String("path", path), zap.Stringer("op", event.Op))
			onResult(ProcessFile(ctx, exp, path))

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Error("watch error", zap.String("path", path), zap.Error(err))
		}
	}
}

// drain discards the events already queued.
func drain(events <-chan fsnotify.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}
