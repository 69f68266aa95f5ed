package safety

import "strings"

// InScope reports whether file is permitted by scope entry s, per the
// three matching rules: exact match, directory-prefix match (s/), or a
// trailing /* wildcard matching anything under that directory.
func InScope(s, file string) bool {
	if s == file {
		return true
	}
	if strings.HasPrefix(file, s+"/") {
		return true
	}
	if strings.HasSuffix(s, "/*") {
		dir := strings.TrimSuffix(s, "/*")
		return file == dir || strings.HasPrefix(file, dir+"/")
	}
	return false
}

// CheckScope verifies that every entry of changed is permitted by at
// least one entry of scope. It returns the subset of changed that is
// NOT covered by scope; an empty result means the task stayed in scope.
func CheckScope(scope, changed []string) []string {
	var violations []string
	for _, file := range changed {
		allowed := false
		for _, s := range scope {
			if InScope(s, file) {
				allowed = true
				break
			}
		}
		if !allowed {
			violations = append(violations, file)
		}
	}
	return violations
}
