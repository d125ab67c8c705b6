package meta

import (
	"os"
	"strings"
	"unicode"
)

const envPrefix = "${env."

// expandEnvExpr replaces every ${env.KEY} with the value of the environment
// variable KEY ("" when unset). An expression without a closing brace is
// kept literally; a key with characters other than letters, digits or '_'
// leaves the prefix in place and scanning resumes right after it.
func expandEnvExpr(value string) string {
	if !strings.Contains(value, envPrefix) {
		return value
	}
	var b strings.Builder
	rest := value
	for {
		idx := strings.Index(rest, envPrefix)
		if idx < 0 {
			b.WriteString(rest)
			return b.String()
		}
		b.WriteString(rest[:idx])
		tail := rest[idx+len(envPrefix):]
		end := strings.IndexByte(tail, '}')
		if end < 0 {
			b.WriteString(rest[idx:])
			return b.String()
		}
		key := tail[:end]
		if !isEnvKey(key) {
			b.WriteString(envPrefix)
			rest = tail
			continue
		}
		b.WriteString(os.Getenv(key))
		rest = tail[end+1:]
	}
}

func isEnvKey(key string) bool {
	for _, r := range key {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
