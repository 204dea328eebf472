package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
)

var errMalformedBody = errors.New("malformed request body")

// requestBody is the decoded payload of a JSON, urlencoded or multipart
// request. Absent fields are missing from values; JSON nulls land in nulls.
type requestBody struct {
	values map[string]string
	nulls  map[string]bool
	files  map[string]*multipart.FileHeader
}

func (b *requestBody) str(name string) *string {
	v, ok := b.values[name]
	if !ok {
		return nil
	}
	return &v
}

func (h *Handler) parseBody(w http.ResponseWriter, r *http.Request) (*requestBody, error) {
	b := &requestBody{
		values: map[string]string{},
		nulls:  map[string]bool{},
		files:  map[string]*multipart.FileHeader{},
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes)

	ctype, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ctype {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(h.cfg.MaxUploadBytes); err != nil {
			return nil, bodyError(err)
		}
		for k, vs := range r.MultipartForm.Value {
			if len(vs) > 0 {
				b.values[k] = vs[0]
			}
		}
		for k, fs := range r.MultipartForm.File {
			if len(fs) > 0 {
				b.files[k] = fs[0]
			}
		}
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, bodyError(err)
		}
		for k, vs := range r.PostForm {
			if len(vs) > 0 {
				b.values[k] = vs[0]
			}
		}
	default:
		var raw map[string]any
		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return b, nil
			}
			return nil, bodyError(err)
		}
		for k, v := range raw {
			switch t := v.(type) {
			case nil:
				b.nulls[k] = true
			case string:
				b.values[k] = t
			case json.Number:
				b.values[k] = t.String()
			case bool:
				b.values[k] = strconv.FormatBool(t)
			default:
				b.values[k] = fmt.Sprint(t)
			}
		}
	}
	return b, nil
}

func bodyError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return err
	}
	return fmt.Errorf("%w: %v", errMalformedBody, err)
}
