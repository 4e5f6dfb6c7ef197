package checks

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/curiolabs/wondergate/internal/domain"
)

// MaxContentBytes caps accepted payloads. Oversized content is treated as a
// form defect, not truncated.
const MaxContentBytes = 64 * 1024

// StructuralCheck verifies that the arrangement of the content is internally
// consistent without interpreting what it says: valid UTF-8, no NUL bytes,
// paired brackets and braces, valid JSON when the content is JSON-shaped,
// and numbered-list ordinals that do not skip or scramble.
type StructuralCheck struct{}

func (StructuralCheck) Name() string { return "structural_coherence" }

func (StructuralCheck) Fails(obs domain.Observation, _ domain.SourceReliability) bool {
	content := strings.TrimSpace(obs.Content)
	if content == "" {
		return true
	}
	if len(content) > MaxContentBytes {
		return true
	}
	if !utf8.ValidString(content) {
		return true
	}
	if strings.ContainsRune(content, '\x00') {
		return true
	}
	if !balancedBrackets(content) {
		return true
	}
	if looksLikeJSON(content) && !json.Valid([]byte(content)) {
		return true
	}
	return !ordinalsCoherent(content)
}

// balancedBrackets verifies {} and [] pairing. Parentheses are deliberately
// excluded: prose uses them asymmetrically ("a) first, b) second").
func balancedBrackets(s string) bool {
	var stack []rune
	for _, r := range s {
		switch r {
		case '{', '[':
			stack = append(stack, r)
		case '}':
			if len(stack) == 0 || stack[len(stack)-1] != '{' {
				return false
			}
			stack = stack[:len(stack)-1]
		case ']':
			if len(stack) == 0 || stack[len(stack)-1] != '[' {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

func looksLikeJSON(s string) bool {
	return strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
}

// ordinalsCoherent scans lines beginning with "N." or "N)" and requires each
// ordinal to either continue the previous one or restart a list at 1.
// "1. 2. 3." and "1. 2. 1. 2." pass; "1. 3." and "2. 1. 3." fail.
func ordinalsCoherent(s string) bool {
	prev := 0
	seen := false
	for _, line := range strings.Split(s, "\n") {
		n, ok := leadingOrdinal(line)
		if !ok {
			continue
		}
		if seen && n != prev+1 && n != 1 {
			return false
		}
		if !seen && n > 1 {
			return false
		}
		prev = n
		seen = true
	}
	return true
}

func leadingOrdinal(line string) (int, bool) {
	line = strings.TrimLeftFunc(line, unicode.IsSpace)
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 || i > 6 {
		return 0, false
	}
	if i >= len(line) || (line[i] != '.' && line[i] != ')') {
		return 0, false
	}
	// Require a space or end of line after the marker so "3.14" and
	// "2023)" in prose do not count as list items.
	if i+1 < len(line) && line[i+1] != ' ' && line[i+1] != '\t' {
		return 0, false
	}
	n := 0
	for _, c := range line[:i] {
		n = n*10 + int(c-'0')
	}
	return n, true
}
