package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		arg  string
		want string
	}{
		{"plain", "race.json", "race.json"},
		{"spaces", "my race.json", "my_race.json"},
		{"directories", "../../etc/passwd", "passwd.json"},
		{"windows path", `C:\tmp\result.json`, "result.json"},
		{"special chars", "r@ce#1!.json", "rce1.json"},
		{"missing suffix", "result", "result.json"},
		{"upper suffix", "RESULT.JSON", "RESULT.JSON"},
		{"empty", "", "file.json"},
		{"only junk", "$$$", "file.json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.arg))
		})
	}
}

func TestStoredFilename(t *testing.T) {
	ts := time.Date(2024, 4, 28, 11, 10, 12, 0, time.UTC)
	assert.Equal(t, "20240428_111012_week_1.json", StoredFilename(ts, "week 1.json"))
}

func TestHashContent(t *testing.T) {
	// sha256 of the empty input
	assert.Equal(t,
		"e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		HashContent([]byte{}))
	assert.NotEqual(t, HashContent([]byte("a")), HashContent([]byte("b")))
	assert.Len(t, HashContent([]byte("a")), 64)
}
