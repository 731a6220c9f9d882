package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

type PutInput struct {
	Filename    string
	ContentType string
	Size        int64
	// Folder is a relative "a/b" path placed before the generated name.
	Folder   string
	Metadata map[string]string
}

type PutResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Storage holds archived documents (receipts) by key.
type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// objectKey keeps a readable stem of the original name and appends a random
// suffix so repeated archives never overwrite each other.
func objectKey(folder, filename string) string {
	ext := safeExt(filename)
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	stem = strings.Trim(unsafeChars.ReplaceAllString(stem, "-"), "-")

	name := uuid.NewString() + ext
	if stem != "" {
		name = stem + "-" + uuid.NewString()[:8] + ext
	}

	var parts []string
	for _, seg := range strings.Split(folder, "/") {
		seg = strings.Trim(unsafeChars.ReplaceAllString(seg, "-"), "-")
		if seg != "" {
			parts = append(parts, seg)
		}
	}
	return path.Join(append(parts, name)...)
}

// cleanKey rejects absolute keys and keys that climb out of the root.
func cleanKey(key string) (string, error) {
	k := path.Clean(strings.TrimSpace(key))
	if k == "." || k == "" || strings.HasPrefix(k, "/") || k == ".." || strings.HasPrefix(k, "../") {
		return "", ErrInvalidKey
	}
	return k, nil
}

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json", ".pdf", ".csv":
		return ext
	default:
		return ""
	}
}
