package chat

import (
	"context"
	"fmt"

	appLog "posteragent/internal/log"
	"posteragent/internal/model"
)

// AttachmentLister enumerates image attachments in transcript order.
type AttachmentLister interface {
	Attachments(ctx context.Context) ([]model.ImageHandle, error)
}

// LatestPoster picks the chronologically last attachment. Rendering order is
// taken as chronological order; nothing checks that the image is a poster.
func LatestPoster(ctx context.Context, l AttachmentLister) (model.ImageHandle, error) {
	all, err := l.Attachments(ctx)
	if err != nil {
		return model.ImageHandle{}, err
	}
	if len(all) == 0 {
		return model.ImageHandle{}, fmt.Errorf("chat: %w", model.ErrPosterNotFound)
	}
	latest := all[len(all)-1]
	appLog.Info("poster located", "index", latest.Index, "candidates", len(all), "src", latest.Source)
	return latest, nil
}

// shortSource trims data: and long blob URLs for logging.
func shortSource(src string) string {
	const max = 64
	if len(src) <= max {
		return src
	}
	return src[:max] + "..."
}
