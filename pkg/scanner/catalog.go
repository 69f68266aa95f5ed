package scanner

import "regexp"

// Pattern is one row of the secret-pattern catalog: a stable name paired
// with the regular expression it matches.
type Pattern struct {
	Name string
	Re   *regexp.Regexp
}

// Catalog is the fixed set of patterns every Scanner checks. It is part of
// the external contract: test vectors built against these exact names and
// expressions must keep matching.
var Catalog = []Pattern{
	{Name: "BEARER_TOKEN", Re: regexp.MustCompile(`Bearer\s+[A-Za-z0-9\-_.]+`)},
	{Name: "OPENAI_KEY", Re: regexp.MustCompile(`sk-[A-Za-z0-9]{10,}`)},
	{Name: "GOOGLE_API_KEY", Re: regexp.MustCompile(`AIza[0-9A-Za-z\-_]{20,}`)},
	{Name: "GITHUB_PAT", Re: regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`)},
	{Name: "GITHUB_PAT_FINE", Re: regexp.MustCompile(`github_pat_[A-Za-z0-9_]{22,}`)},
	{Name: "AWS_ACCESS_KEY", Re: regexp.MustCompile(`AKIA[A-Z0-9]{16}`)},
	{Name: "PRIVATE_KEY", Re: regexp.MustCompile(`-----BEGIN.*PRIVATE KEY-----`)},
	{Name: "URL_WITH_CREDS", Re: regexp.MustCompile(`https?://[^:\s]+:[^@\s]+@`)},
}

// tailWindow is the amount of trailing data a Scanner carries between
// Scan calls. No catalog pattern exceeds this length in practical usage,
// so any legitimate match split across a chunk boundary is guaranteed to
// be fully contained in tail‖chunk.
const tailWindow = 8 * 1024
