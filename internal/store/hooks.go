package store

import (
	"context"

	"blog/internal/models"
)

// ImageHooks receives explicit lifecycle callbacks for image-bearing rows.
// The store calls them after the surrounding transaction has committed.
type ImageHooks interface {
	ImageReplaced(ctx context.Context, prior, next string)
	ImageOrphaned(ctx context.Context, path string)
}

// Guard is checked inside a write transaction against the row as currently
// stored, before anything is changed. A non-nil error aborts the write.
type Guard func(prior *models.Post) error

type nopHooks struct{}

func (nopHooks) ImageReplaced(context.Context, string, string) {}
func (nopHooks) ImageOrphaned(context.Context, string)         {}

func hooksOrNop(h ImageHooks) ImageHooks {
	if h == nil {
		return nopHooks{}
	}
	return h
}
