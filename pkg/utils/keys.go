package utils

import (
	"path"
	"path/filepath"
	"slices"
	"strings"

	"drivemanager/internal/models"
)

// Key helpers for object stores that model folders as "/"-separated key
// prefixes. A folder's ID is its prefix with a trailing slash, the bucket root
// is "", and a file's ID is its key.

func BaseName(key string) string {
	return path.Base(strings.TrimSuffix(key, "/"))
}

func ObjectFromKey(key string) models.Object {
	return models.Object{
		ID:       key,
		Title:    BaseName(key),
		MimeType: DetectContentType(key),
	}
}

func FolderFromPrefix(prefix string) models.Object {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return models.Object{
		ID:       prefix,
		Title:    BaseName(prefix),
		MimeType: models.FolderMimeType,
	}
}

// IsFolderKey reports whether key is a folder marker object ("dir/").
func IsFolderKey(key string) bool {
	return strings.HasSuffix(key, "/")
}

// FolderPrefixes returns every folder prefix implied by keys, shallowest
// first and lexically within a depth.
func FolderPrefixes(keys []string) []string {
	seen := map[string]struct{}{}
	for _, key := range keys {
		parts := strings.Split(strings.TrimSuffix(key, "/"), "/")
		limit := len(parts) - 1
		if IsFolderKey(key) {
			limit = len(parts)
		}
		for i := 1; i <= limit; i++ {
			seen[strings.Join(parts[:i], "/")+"/"] = struct{}{}
		}
	}

	prefixes := make([]string, 0, len(seen))
	for p := range seen {
		prefixes = append(prefixes, p)
	}
	slices.SortFunc(prefixes, func(a, b string) int {
		if da, db := strings.Count(a, "/"), strings.Count(b, "/"); da != db {
			return da - db
		}
		return strings.Compare(a, b)
	})
	return prefixes
}

// SearchCandidates returns the objects a search by title considers: every
// file key in listing order, then every implied folder.
func SearchCandidates(keys []string) []models.Object {
	objects := make([]models.Object, 0, len(keys))
	for _, key := range keys {
		if !IsFolderKey(key) {
			objects = append(objects, ObjectFromKey(key))
		}
	}
	for _, prefix := range FolderPrefixes(keys) {
		objects = append(objects, FolderFromPrefix(prefix))
	}
	return objects
}

// TitleMatches reports whether obj's title contains name and, when mimeType
// is set, whether obj has that type.
func TitleMatches(obj models.Object, name, mimeType string) bool {
	if !strings.Contains(obj.Title, name) {
		return false
	}
	return mimeType == "" || obj.MimeType == mimeType
}

func DetectContentType(filename string) string {
	if IsFolderKey(filename) {
		return models.FolderMimeType
	}

	ext := strings.ToLower(filepath.Ext(filename))

	contentTypes := map[string]string{
		".txt":  "text/plain",
		".csv":  "text/csv",
		".html": "text/html",
		".css":  "text/css",
		".js":   "application/javascript",
		".json": "application/json",
		".xml":  "application/xml",
		".pdf":  "application/pdf",
		".zip":  "application/zip",
		".tar":  "application/x-tar",
		".gz":   "application/gzip",
		".jpg":  "image/jpeg",
		".jpeg": "image/jpeg",
		".png":  "image/png",
		".gif":  "image/gif",
		".svg":  "image/svg+xml",
		".mp3":  "audio/mpeg",
		".mp4":  "video/mp4",
		".avi":  "video/x-msvideo",
		".mov":  "video/quicktime",
	}

	if contentType, exists := contentTypes[ext]; exists {
		return contentType
	}

	return "application/octet-stream"
}
