package handlers

import (
	"errors"

	"blog/internal/media"
	"blog/internal/store"
)

const msgInvalidImage = "Upload a valid image. The file you uploaded was either not an image or a corrupted image."

// imageInput resolves the "image" field of b: nil keeps the stored image, ""
// clears it, otherwise the returned path names a freshly saved upload that
// the caller must discard if its write fails.
func (h *Handler) imageInput(b *requestBody, dir string) (*string, error) {
	if fh, ok := b.files["image"]; ok {
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		defer f.Close()

		rel, err := h.media.Save(dir, fh.Filename, f)
		if errors.Is(err, media.ErrNotImage) {
			return nil, store.ValidationError{"image": {msgInvalidImage}}
		}
		if err != nil {
			return nil, err
		}
		return &rel, nil
	}

	if b.nulls["image"] {
		return new(string), nil
	}
	if v, ok := b.values["image"]; ok {
		if v == "" {
			return new(string), nil
		}
		return nil, store.ValidationError{"image": {"The submitted data was not a file. Check the encoding type on the form."}}
	}
	return nil, nil
}

// discardUpload removes an upload whose row was never written.
func (h *Handler) discardUpload(image *string) {
	if image == nil || *image == "" {
		return
	}
	_ = h.media.Delete(*image)
}
