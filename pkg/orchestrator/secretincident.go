package orchestrator

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/cuemby/taskforge/pkg/scanner"
	"github.com/cuemby/taskforge/pkg/tasktype"
)

// incidentFromMatches collapses a set of scanner matches into a
// SecretIncident: the distinct pattern names, a total match count, and a
// non-reversible hash correlating duplicate incidents for the same task
// without revealing any matched text.
func incidentFromMatches(taskID string, matches []scanner.Match) *tasktype.SecretIncident {
	if len(matches) == 0 {
		return nil
	}

	seen := map[string]bool{}
	var patterns []string
	for _, m := range matches {
		if !seen[m.PatternName] {
			seen[m.PatternName] = true
			patterns = append(patterns, m.PatternName)
		}
	}
	sort.Strings(patterns)

	return &tasktype.SecretIncident{
		Patterns:     patterns,
		MatchCount:   len(matches),
		IncidentHash: incidentHash(taskID, patterns),
	}
}

func incidentHash(taskID string, sortedPatterns []string) string {
	sum := sha256.Sum256([]byte(taskID + "," + strings.Join(sortedPatterns, ",")))
	return hex.EncodeToString(sum[:])[:16]
}
