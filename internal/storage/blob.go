// Package storage keeps uploaded lesson material (notebooks, slides, notes
// attachments) behind a small blob interface.
package storage

import (
	"context"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/mind-engage/classwork/internal/apperr"
)

type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (string, error) // returns canonical key
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	URL(key string) string
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// MaterialKey builds a fresh key for an upload under the course's prefix, or
// under shared/ when no course is given.
func MaterialKey(courseID, filename string) string {
	name := unsafeName.ReplaceAllString(path.Base(filename), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		name = "file"
	}
	file := uuid.NewString() + "-" + name
	course := unsafeName.ReplaceAllString(courseID, "_")
	if course == "" {
		return path.Join("shared", file)
	}
	return path.Join("courses", course, file)
}

// CourseOf returns the course a material key was filed under by MaterialKey.
func CourseOf(key string) (string, bool) {
	k, err := CleanKey(key)
	if err != nil {
		return "", false
	}
	parts := strings.SplitN(k, "/", 3)
	if len(parts) < 3 || parts[0] != "courses" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// CleanKey normalizes a key to a relative slash path and rejects anything
// that would leave the store's root.
func CleanKey(key string) (string, error) {
	k := strings.ReplaceAll(strings.TrimSpace(key), "\\", "/")
	k = strings.TrimPrefix(k, "/")
	if k == "" {
		return "", apperr.Validation("empty key", map[string]string{"key": "required"})
	}
	for _, part := range strings.Split(k, "/") {
		if part == ".." {
			return "", apperr.Validation("invalid key", map[string]string{"key": "must stay inside the store"})
		}
	}
	k = path.Clean(k)
	if k == "." {
		return "", apperr.Validation("invalid key", map[string]string{"key": "required"})
	}
	return k, nil
}
