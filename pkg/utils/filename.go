package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

const storedTimeLayout = "20060102_150405"

// SanitizeFilename strips directories and keeps letters, digits, '_', '-' and '.'.
// Spaces become underscores and the result always ends with .json
func SanitizeFilename(name string) string {
	base := strings.TrimSpace(filepath.Base(strings.ReplaceAll(name, "\\", "/")))
	base = strings.ReplaceAll(base, " ", "_")
	var sb strings.Builder
	for _, r := range base {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			sb.WriteRune(r)
		}
	}
	out := sb.String()
	if out == "" || out == "." || out == ".." {
		out = "file.json"
	}
	if !strings.HasSuffix(strings.ToLower(out), ".json") {
		out += ".json"
	}
	return out
}

// StoredFilename composes the name a payload is stored under.
func StoredFilename(ts time.Time, name string) string {
	return fmt.Sprintf("%s_%s", ts.Format(storedTimeLayout), SanitizeFilename(name))
}
