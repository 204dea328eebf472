package store

import (
	"errors"
	"sort"
	"strings"
)

var ErrNotFound = errors.New("not found")

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
)

// ValidationError collects field-level messages. It is returned as an error
// only when at least one field failed.
type ValidationError map[string][]string

func (v ValidationError) Add(field, msg string) {
	v[field] = append(v[field], msg)
}

func (v ValidationError) Err() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

func (v ValidationError) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+strings.Join(v[f], " "))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}
