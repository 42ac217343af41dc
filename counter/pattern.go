package counter

import "regexp"

// BuildPatterns compiles one search expression per configured filename or
// extension: the literal request prefix "GET <pathPrefix>", any characters,
// then the literal suffix. Both literals are escaped so regex metacharacters
// in paths and names match themselves. An empty files list yields no
// patterns, and a run with no patterns counts nothing.
func BuildPatterns(pathPrefix string, files []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(files))
	for _, f := range files {
		patterns = append(patterns, regexp.MustCompile(
			"GET "+regexp.QuoteMeta(pathPrefix)+".*"+regexp.QuoteMeta(f)))
	}
	return patterns
}
