package media

import (
	"context"
	"errors"
	"io"
	"mime"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound    = errors.New("media object not found")
	ErrInvalidName = errors.New("invalid media object name")
)

// Object describes a stored blob. Name is a slash-separated path relative to the store root.
type Object struct {
	Name        string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"-"`
	ModTime     time.Time `json:"uploadedAt"`
}

// Store holds public media blobs (avatar video, voice samples).
type Store interface {
	Put(ctx context.Context, name, contentType string, r io.Reader) (Object, error)
	// Open returns the blob body. The reader is an io.ReadSeeker when the backend supports it.
	Open(ctx context.Context, name string) (io.ReadCloser, Object, error)
	// List returns objects whose name starts with prefix, sorted by name.
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, name string) error
	Close() error
}

// CleanName validates a blob name and returns its canonical form.
func CleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, `\`) {
		return "", ErrInvalidName
	}
	cleaned := path.Clean(name)
	if cleaned != name || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidName
	}
	for _, part := range strings.Split(cleaned, "/") {
		if strings.HasPrefix(part, ".") {
			return "", ErrInvalidName
		}
	}
	return cleaned, nil
}

// Types the platform mime table may not know about.
var mediaTypes = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".avi":  "video/x-msvideo",
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
}

func contentTypeFor(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if ct, ok := mediaTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
