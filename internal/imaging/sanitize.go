package imaging

import (
	"path/filepath"
	"strings"
)

// SanitizeFilename reduces an uploaded filename to a safe base name: only
// ASCII letters, digits, dot, dash and underscore survive, runs of anything
// else collapse into an underscore. Directory components are dropped.
func SanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)

	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			b.WriteByte('_')
			lastUnderscore = true
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.TrimLeft(b.String(), "._")
	out = strings.TrimRight(out, "_")
	if out == "" {
		return "image"
	}
	return out
}
