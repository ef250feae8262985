// Package video stores uploaded videos on local disk, keyed by id. The
// comparison core treats a video as an opaque byte blob plus a MIME hint
// derived from the filename extension.
package video

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("video not found")
	ErrTooLarge = errors.New("video exceeds maximum upload size")
)

var mimeTypes = map[string]string{
	".mp4":  "video/mp4",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
}

// Metadata describes one stored video.
type Metadata struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	Path        string `json:"path"`
}

// Storage saves videos under a single directory as <id><ext>. Lookups fall
// back to globbing the directory, so stored videos survive a restart even
// though the metadata index is in memory.
type Storage struct {
	dir     string
	maxSize int64

	mu   sync.RWMutex
	meta map[string]Metadata
}

// NewStorage creates the upload directory if needed.
func NewStorage(dir string, maxSize int64) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Storage{dir: dir, maxSize: maxSize, meta: make(map[string]Metadata)}, nil
}

// Save streams r to disk under a fresh id. The original filename only
// contributes its extension. Exceeding the size cap aborts the upload and
// removes the partial file.
func (s *Storage) Save(filename, contentType string, r io.Reader) (Metadata, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".mp4"
	}

	id := uuid.NewString()
	path := filepath.Join(s.dir, id+ext)

	f, err := os.Create(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("create video file: %w", err)
	}

	// LimitReader one byte past the cap so we can tell "at cap" from "over".
	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return Metadata{}, fmt.Errorf("write video file: %w", err)
	}
	if n > s.maxSize {
		os.Remove(path)
		return Metadata{}, ErrTooLarge
	}

	if contentType == "" {
		contentType = MimeType(path)
	}
	meta := Metadata{
		ID:          id,
		Filename:    filename,
		Size:        n,
		ContentType: contentType,
		Path:        path,
	}

	s.mu.Lock()
	s.meta[id] = meta
	s.mu.Unlock()
	return meta, nil
}

// Resolve returns the on-disk path for a video id, or ErrNotFound.
func (s *Storage) Resolve(id string) (string, error) {
	s.mu.RLock()
	meta, ok := s.meta[id]
	s.mu.RUnlock()
	if ok {
		if _, err := os.Stat(meta.Path); err == nil {
			return meta.Path, nil
		}
		return "", ErrNotFound
	}

	// fall back to disk for videos uploaded before a restart
	matches, err := filepath.Glob(filepath.Join(s.dir, glob(id)))
	if err != nil || len(matches) == 0 {
		return "", ErrNotFound
	}
	return matches[0], nil
}

// Get returns stored metadata for a video id. Videos recovered from disk
// after a restart get reconstructed metadata.
func (s *Storage) Get(id string) (Metadata, error) {
	s.mu.RLock()
	meta, ok := s.meta[id]
	s.mu.RUnlock()
	if ok {
		return meta, nil
	}

	path, err := s.Resolve(id)
	if err != nil {
		return Metadata{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return Metadata{}, ErrNotFound
	}
	return Metadata{
		ID:          id,
		Filename:    filepath.Base(path),
		Size:        info.Size(),
		ContentType: MimeType(path),
		Path:        path,
	}, nil
}

// Exists reports whether the file at path is present.
func (s *Storage) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Read loads the full video into memory for inline submission to a model.
func (s *Storage) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MimeType derives the MIME hint from the file extension, defaulting to
// video/mp4.
func MimeType(path string) string {
	if mt, ok := mimeTypes[strings.ToLower(filepath.Ext(path))]; ok {
		return mt
	}
	return "video/mp4"
}

// glob escapes nothing: ids are uuids, which contain no glob metacharacters.
func glob(id string) string {
	return id + ".*"
}
