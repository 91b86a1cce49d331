package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	AvatarVideoBase     = "avatar-video"
	SamplePrefix        = "voice-samples/"
	MaxSamplesPerUpload = 5
)

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")
)

var videoTypes = map[string]string{
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"video/x-msvideo": ".avi",
}

var safeExt = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

// Upload is a file received from a client.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Library implements the avatar video and voice sample rules on top of a Store.
type Library struct {
	store          Store
	maxVideoBytes  int64
	maxSampleBytes int64
}

func NewLibrary(store Store, maxVideoBytes, maxSampleBytes int64) *Library {
	return &Library{store: store, maxVideoBytes: maxVideoBytes, maxSampleBytes: maxSampleBytes}
}

// Store returns the underlying blob store.
func (l *Library) Store() Store { return l.store }

// PublicURL is the path a stored object is served under.
func PublicURL(name string) string {
	return "/uploads/" + name
}

// AvatarVideo returns the current avatar video, or ok=false when none is stored.
func (l *Library) AvatarVideo(ctx context.Context) (Object, bool, error) {
	objs, err := l.store.List(ctx, AvatarVideoBase)
	if err != nil {
		return Object{}, false, err
	}
	for _, obj := range objs {
		if !strings.Contains(obj.Name, "/") {
			return obj, true, nil
		}
	}
	return Object{}, false, nil
}

// ReplaceAvatarVideo stores up as avatar-video<ext> and removes any previous avatar video
// stored under a different extension.
func (l *Library) ReplaceAvatarVideo(ctx context.Context, up Upload) (Object, error) {
	mimeExt, ok := videoTypes[baseMediaType(up.ContentType)]
	if !ok {
		return Object{}, fmt.Errorf("%w: only video files are allowed", ErrUnsupportedType)
	}
	if l.maxVideoBytes > 0 && up.Size > l.maxVideoBytes {
		return Object{}, ErrTooLarge
	}

	ext := strings.ToLower(path.Ext(up.Filename))
	if !safeExt.MatchString(ext) {
		ext = mimeExt
	}
	name := AvatarVideoBase + ext

	obj, err := l.store.Put(ctx, name, baseMediaType(up.ContentType), limitReader(up.Body, l.maxVideoBytes))
	if err != nil {
		return Object{}, err
	}
	if l.maxVideoBytes > 0 && obj.Size > l.maxVideoBytes {
		_ = l.store.Delete(ctx, name)
		return Object{}, ErrTooLarge
	}

	previous, err := l.store.List(ctx, AvatarVideoBase)
	if err != nil {
		return obj, nil
	}
	for _, old := range previous {
		if old.Name != name && !strings.Contains(old.Name, "/") {
			_ = l.store.Delete(ctx, old.Name)
		}
	}
	return obj, nil
}

// Samples lists stored voice samples with names relative to the sample folder.
func (l *Library) Samples(ctx context.Context) ([]Object, error) {
	objs, err := l.store.List(ctx, SamplePrefix)
	if err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(objs))
	for _, obj := range objs {
		obj.Name = strings.TrimPrefix(obj.Name, SamplePrefix)
		out = append(out, obj)
	}
	return out, nil
}

// HasSamples reports whether at least one voice sample is stored.
func (l *Library) HasSamples(ctx context.Context) (bool, error) {
	objs, err := l.store.List(ctx, SamplePrefix)
	if err != nil {
		return false, err
	}
	return len(objs) > 0, nil
}

// AddSamples validates every upload before storing any of them.
func (l *Library) AddSamples(ctx context.Context, uploads []Upload) ([]Object, error) {
	if len(uploads) > MaxSamplesPerUpload {
		return nil, fmt.Errorf("%w: at most %d samples per upload", ErrTooManyFiles, MaxSamplesPerUpload)
	}
	for _, up := range uploads {
		if !strings.HasPrefix(baseMediaType(up.ContentType), "audio/") {
			return nil, fmt.Errorf("%w: only audio files are allowed", ErrUnsupportedType)
		}
		if l.maxSampleBytes > 0 && up.Size > l.maxSampleBytes {
			return nil, ErrTooLarge
		}
	}

	out := make([]Object, 0, len(uploads))
	for _, up := range uploads {
		filename := uuid.NewString()[:8] + "-" + sanitizeFilename(up.Filename)
		obj, err := l.store.Put(ctx, SamplePrefix+filename, baseMediaType(up.ContentType), limitReader(up.Body, l.maxSampleBytes))
		if err != nil {
			return out, err
		}
		if l.maxSampleBytes > 0 && obj.Size > l.maxSampleBytes {
			_ = l.store.Delete(ctx, obj.Name)
			return out, ErrTooLarge
		}
		obj.Name = filename
		out = append(out, obj)
	}
	return out, nil
}

// DeleteSample removes one voice sample by its relative filename.
func (l *Library) DeleteSample(ctx context.Context, filename string) error {
	if filename == "" || strings.Contains(filename, "/") {
		return ErrInvalidName
	}
	return l.store.Delete(ctx, SamplePrefix+filename)
}

// Open streams a stored object by its public name.
func (l *Library) Open(ctx context.Context, name string) (io.ReadCloser, Object, error) {
	return l.store.Open(ctx, name)
}

func baseMediaType(ct string) string {
	ct = strings.ToLower(strings.TrimSpace(ct))
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func sanitizeFilename(name string) string {
	name = path.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeFilenameChars.ReplaceAllString(name, "_")
	if len(name) > 100 {
		name = name[len(name)-100:]
	}
	name = strings.TrimLeft(name, ".")
	if name == "" || name == "_" {
		name = "sample"
	}
	return name
}

// limitReader lets one byte past max through so an oversized body is detectable.
func limitReader(r io.Reader, max int64) io.Reader {
	if max <= 0 {
		return r
	}
	return io.LimitReader(r, max+1)
}
