package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sahilchouksey/dars-api/config"
)

// LessonVideoPrefix is where lesson video uploads are stored
const LessonVideoPrefix = "lesson/videos"

var (
	ErrInvalidKey = errors.New("storage: invalid key")
	ErrNotFound   = errors.New("storage: object not found")

	unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)
)

// FileStorage stores uploaded files under slash separated keys
type FileStorage interface {
	Save(ctx context.Context, key string, data io.Reader, contentType string) error
	Delete(ctx context.Context, key string) error
	URL(key string) string
}

// New builds the storage backend selected by STORAGE_BACKEND
func New(cfg *config.EnviornmentVariable) (FileStorage, error) {
	switch strings.ToLower(cfg.STORAGE_BACKEND) {
	case "", "local":
		return NewLocalStorage(cfg.MEDIA_ROOT, cfg.MEDIA_URL)
	case "spaces":
		return NewSpacesStorage(SpacesConfig{
			AccessKey: cfg.DO_SPACES_ACCESS_KEY,
			SecretKey: cfg.DO_SPACES_SECRET_KEY,
			Bucket:    cfg.DO_SPACES_BUCKET,
			Region:    cfg.DO_SPACES_REGION,
			Endpoint:  cfg.DO_SPACES_ENDPOINT,
			CDNURL:    cfg.DO_SPACES_CDN_ENDPOINT,
		})
	default:
		return nil, fmt.Errorf("unknown STORAGE_BACKEND %q", cfg.STORAGE_BACKEND)
	}
}

// GenerateKey builds a unique key "<prefix>/<uuid>_<base>.<ext>" for an
// uploaded file name. The extension is lower-cased.
func GenerateKey(prefix, filename string) string {
	filename = filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	ext := strings.ToLower(filepath.Ext(filename))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = strings.Trim(unsafeNameChars.ReplaceAllString(base, "_"), "_")
	if base == "" {
		base = "file"
	}
	if len(base) > 100 {
		base = base[:100]
	}

	return path.Join(prefix, fmt.Sprintf("%s_%s%s", uuid.New().String(), base, ext))
}

// CleanKey validates a storage key and returns its canonical form
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

// DetectContentType sniffs the content type from the first bytes of r and
// returns a reader that still yields the full content
func DetectContentType(r io.Reader) (string, io.Reader, error) {
	header := make([]byte, 3072)
	n, err := io.ReadFull(r, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	header = header[:n]
	contentType := mimetype.Detect(header).String()

	// Seekable uploads are rewound so backends can still seek them
	if rs, ok := r.(io.ReadSeeker); ok {
		if _, err := rs.Seek(0, io.SeekStart); err != nil {
			return "", nil, fmt.Errorf("failed to rewind upload: %w", err)
		}
		return contentType, rs, nil
	}
	return contentType, io.MultiReader(bytes.NewReader(header), r), nil
}

// RemoveAll deletes the given keys best-effort. Failures are logged, missing
// objects are ignored.
func RemoveAll(ctx context.Context, files FileStorage, keys []string) {
	if files == nil {
		return
	}
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := files.Delete(ctx, key); err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("failed to remove stored file")
		}
	}
}
