package safety

import (
	"path"
	"strings"
)

// secretlessExceptions names files that look like they match the
// secretless policy but are conventionally safe templates.
var secretlessExceptions = map[string]bool{
	".env.example":  true,
	".env.template": true,
}

// IsForbiddenSecretFilename reports whether file's basename matches the
// secretless filename policy: .env, .env.*, *.pem, *.key are never
// allowed among files an executor creates, with .env.example and
// .env.template carved out as conventional non-secret templates.
func IsForbiddenSecretFilename(file string) bool {
	base := path.Base(file)
	if secretlessExceptions[base] {
		return false
	}
	if base == ".env" || strings.HasPrefix(base, ".env.") {
		return true
	}
	if strings.HasSuffix(base, ".pem") || strings.HasSuffix(base, ".key") {
		return true
	}
	return false
}

// FilterForbiddenFilenames returns the subset of files that violate the
// secretless filename policy.
func FilterForbiddenFilenames(files []string) []string {
	var hits []string
	for _, f := range files {
		if IsForbiddenSecretFilename(f) {
			hits = append(hits, f)
		}
	}
	return hits
}
