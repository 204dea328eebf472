package media

import (
	"context"

	"go.uber.org/zap"

	"blog/internal/observability"
)

// Janitor removes image files that no stored row references any more. The
// store calls it after a write commits; failures are logged and swallowed.
type Janitor struct {
	Storage *Storage
	Log     *zap.Logger
}

// ImageReplaced drops prior when a row's image changed from prior to next.
func (j *Janitor) ImageReplaced(ctx context.Context, prior, next string) {
	if prior == "" || prior == next {
		return
	}
	j.remove(ctx, prior)
}

// ImageOrphaned drops the image of a deleted row.
func (j *Janitor) ImageOrphaned(ctx context.Context, rel string) {
	if rel == "" {
		return
	}
	j.remove(ctx, rel)
}

func (j *Janitor) remove(_ context.Context, rel string) {
	if !j.Storage.Exists(rel) {
		observability.MediaFilesRemoved.WithLabelValues("missing").Inc()
		return
	}
	if err := j.Storage.Delete(rel); err != nil {
		observability.MediaFilesRemoved.WithLabelValues("failed").Inc()
		if j.Log != nil {
			j.Log.Warn("media_remove_failed", zap.String("path", rel), zap.Error(err))
		}
		return
	}
	observability.MediaFilesRemoved.WithLabelValues("removed").Inc()
}
