// Package capture turns a located chat attachment into the bounded JPEG
// payload used for extraction.
package capture

import (
	"context"
	"errors"
	"fmt"
	"time"

	"posteragent/internal/convert"
	appLog "posteragent/internal/log"
	"posteragent/internal/model"
	"posteragent/internal/workdir"
)

// Viewer opens, photographs and closes the full-size image overlay.
type Viewer interface {
	Expand(ctx context.Context, h model.ImageHandle) error
	Screenshot(ctx context.Context) ([]byte, error)
	Dismiss(ctx context.Context) error
}

// Capturer screenshots an expanded attachment and stores both the raw frame
// and its optimized derivative in the working directory.
type Capturer struct {
	viewer  Viewer
	store   *workdir.Store
	settle  time.Duration
	maxEdge int
	quality int
	sleep   func(time.Duration)
}

// New returns a Capturer. settle is the pause between expanding the image
// and taking the screenshot.
func New(v Viewer, store *workdir.Store, settle time.Duration, maxEdge, quality int) *Capturer {
	return &Capturer{
		viewer:  v,
		store:   store,
		settle:  settle,
		maxEdge: maxEdge,
		quality: quality,
		sleep:   time.Sleep,
	}
}

// Capture returns the optimized JPEG of h. The overlay is dismissed on every
// path once Expand has been attempted, including when capture fails.
func (c *Capturer) Capture(ctx context.Context, h model.ImageHandle) (img []byte, err error) {
	defer func() {
		// Cleanup still runs after the run's context is cancelled.
		if derr := c.viewer.Dismiss(context.WithoutCancel(ctx)); derr != nil {
			appLog.Warn("overlay dismiss failed", "err", derr)
			if err == nil {
				img, err = nil, fmt.Errorf("capture: %w", derr)
			}
		}
	}()

	if err := c.viewer.Expand(ctx, h); err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	c.sleep(c.settle)

	png, err := c.viewer.Screenshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	if len(png) == 0 {
		return nil, errors.New("capture: empty screenshot")
	}
	rawPath, err := c.store.SaveRaw(png)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	jpg, err := convert.Bound(png, c.maxEdge, c.quality)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	optPath, err := c.store.SaveOptimized(jpg)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}

	appLog.Info("poster captured", "raw", rawPath, "optimized", optPath, "raw_bytes", len(png), "bytes", len(jpg))
	return jpg, nil
}
