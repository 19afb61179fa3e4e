package domain

import (
	"path"
	"strings"
)

// NormalizeDocumentKey expands a bare filename into its canonical storage
// key. Keys that already carry a path are left untouched.
func NormalizeDocumentKey(key string) string {
	if !strings.ContainsAny(key, `/\`) {
		return "pdfs/" + key
	}
	return key
}

// DocumentIDFromKey derives the document identifier from a storage key:
// the base name with its extension removed.
func DocumentIDFromKey(key string) string {
	base := path.Base(strings.ReplaceAll(key, `\`, "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}
