package media

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	PostImagesDir    = "post_images"
	ProfileImagesDir = "profile_images"
)

var (
	ErrNotImage    = errors.New("upload a valid image")
	ErrInvalidPath = errors.New("invalid media path")
)

var imageExts = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
}

// Storage is a filesystem-backed media root. Stored files are addressed by
// slash-separated paths relative to the root, e.g. "post_images/<uuid>.png".
type Storage struct {
	root    string
	baseURL string
}

func NewStorage(root, baseURL string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Storage{root: abs, baseURL: baseURL}, nil
}

func (s *Storage) Root() string    { return s.root }
func (s *Storage) BaseURL() string { return s.baseURL }

// Save stores r under dir with a fresh uuid name and returns its relative
// path. The content is sniffed and rejected with ErrNotImage unless it is a
// known image format.
func (s *Storage) Save(dir, filename string, r io.Reader) (string, error) {
	br := bufio.NewReaderSize(r, 512)
	head, err := br.Peek(512)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(head) == 0 {
		return "", ErrNotImage
	}
	ctype := http.DetectContentType(head)
	ext, ok := imageExts[ctype]
	if !ok {
		return "", ErrNotImage
	}
	if ext == ".jpg" && strings.EqualFold(filepath.Ext(filename), ".jpeg") {
		ext = ".jpeg"
	}

	rel := path.Join(dir, uuid.New().String()+ext)
	full, err := s.resolve(rel)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create media dir: %w", err)
	}

	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create media file: %w", err)
	}
	if _, err := io.Copy(f, br); err != nil {
		f.Close()
		os.Remove(full)
		return "", fmt.Errorf("write media file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(full)
		return "", fmt.Errorf("close media file: %w", err)
	}
	return rel, nil
}

func (s *Storage) Exists(rel string) bool {
	full, err := s.resolve(rel)
	if err != nil {
		return false
	}
	info, err := os.Stat(full)
	return err == nil && !info.IsDir()
}

// Delete removes the file at rel. A missing file is not an error.
func (s *Storage) Delete(rel string) error {
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// URL returns the public path of rel, "" for an unset image.
func (s *Storage) URL(rel string) string {
	if rel == "" {
		return ""
	}
	return s.baseURL + rel
}

func (s *Storage) resolve(rel string) (string, error) {
	if rel == "" || strings.HasPrefix(rel, "/") || strings.Contains(rel, "\\") {
		return "", ErrInvalidPath
	}
	clean := path.Clean(rel)
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// FileSystem serves stored files by relative path. Directories are reported
// as missing so the root can't be listed.
func (s *Storage) FileSystem() http.FileSystem {
	return filesOnly{http.Dir(s.root)}
}

type filesOnly struct{ http.FileSystem }

func (fs filesOnly) Open(name string) (http.File, error) {
	f, err := fs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}
