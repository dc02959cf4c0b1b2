// Package names correlates an external driver name with the display names
// stored in driver records.
package names

import (
	"strings"
	"unicode"
)

// Strategy is one rule of name comparison. Strategies are tried in the
// order they are declared.
type Strategy int

const (
	Exact Strategy = iota
	CaseInsensitive
	SpaceInsensitive
	Substring
	LettersOnly
	Reversed
)

var strategies = []Strategy{
	Exact, CaseInsensitive, SpaceInsensitive, Substring, LettersOnly, Reversed,
}

func (s Strategy) String() string {
	switch s {
	case Exact:
		return "exact"
	case CaseInsensitive:
		return "case-insensitive"
	case SpaceInsensitive:
		return "space-insensitive"
	case Substring:
		return "substring"
	case LettersOnly:
		return "letters-only"
	case Reversed:
		return "reversed"
	}
	return "unknown"
}

// Normalize trims and lower cases a name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func noSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func lettersOnly(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

// reversed moves the last name part to the front ("john van doe" -> "doe john van")
func reversed(s string) string {
	parts := strings.Fields(s)
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-1] + " " + strings.Join(parts[:len(parts)-1], " ")
}

// Matches reports whether candidate matches target using strategy s.
func Matches(s Strategy, target, candidate string) bool {
	if s == Exact {
		return strings.TrimSpace(target) == strings.TrimSpace(candidate)
	}
	t, c := Normalize(target), Normalize(candidate)
	if t == "" || c == "" {
		return false
	}
	switch s {
	case CaseInsensitive:
		return t == c
	case SpaceInsensitive:
		return noSpaces(t) == noSpaces(c)
	case Substring:
		return strings.Contains(c, t) || strings.Contains(t, c)
	case LettersOnly:
		lt := lettersOnly(t)
		return lt != "" && lt == lettersOnly(c)
	case Reversed:
		rt := reversed(t)
		return rt != "" && rt == strings.Join(strings.Fields(c), " ")
	}
	return false
}

// Match returns the index of the first candidate matching target.
// All candidates are checked with one strategy before the next one is tried,
// so an exact match always wins over an earlier fuzzy one.
func Match(target string, candidates []string) (idx int, used Strategy, ok bool) {
	for _, s := range strategies {
		for i, c := range candidates {
			if Matches(s, target, c) {
				return i, s, true
			}
		}
	}
	return -1, Exact, false
}

// Find splits candidates into names equal to target (ignoring case) and
// names matching one of the fuzzy strategies.
func Find(target string, candidates []string) (exact, similar []string) {
	exact = []string{}
	similar = []string{}
	for _, c := range candidates {
		if Matches(Exact, target, c) || Matches(CaseInsensitive, target, c) {
			exact = append(exact, c)
			continue
		}
		for _, s := range strategies[2:] {
			if Matches(s, target, c) {
				similar = append(similar, c)
				break
			}
		}
	}
	return exact, similar
}
