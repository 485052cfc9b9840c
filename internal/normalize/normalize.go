// Package normalize turns raw shell command text into the canonical forms
// used for comparison.
//
// Command produces the generalized form stored with every error record and
// compared by the matcher: lower-cased, whitespace-collapsed, with variable
// arguments replaced by typed slots (<path>, <url>, <num>). Canonical keeps
// the arguments intact and only folds case and whitespace. PolicyForm goes
// one step further for the prevention policy: it removes shell quoting and
// reduces the program to its base name, but keeps the exact target because
// `/` vs `/tmp/x` decides whether a command is dangerous.
//
// Both functions are pure and deterministic, and Command is idempotent.
package normalize

import (
	"regexp"
	"strings"

	"github.com/google/shlex"
)

// Slot placeholders.
const (
	SlotPath = "<path>"
	SlotURL  = "<url>"
	SlotNum  = "<num>"
)

var (
	urlPattern    = regexp.MustCompile(`^(?:[a-z][a-z0-9+.-]*://|git@[^:\s]+:)`)
	numPattern    = regexp.MustCompile(`^\d+$`)
	assignPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*=`)
)

// stripRunes are removed from every fragment so the joined output re-tokenizes
// to the same fragments.
const stripRunes = "'\"\\`"

// Command normalizes a raw command for storage and similarity comparison.
// Returns "" for blank input.
func Command(raw string) string {
	fragments := fragments(raw)
	if len(fragments) == 0 {
		return ""
	}

	out := make([]string, 0, len(fragments))
	for _, frag := range fragments {
		if len(out) == 0 {
			// The program is kept verbatim.
			out = append(out, frag)
			continue
		}
		out = append(out, generalize(frag))
	}
	return strings.Join(out, " ")
}

// Canonical lower-cases raw and collapses runs of whitespace to one space.
func Canonical(raw string) string {
	return strings.Join(strings.Fields(strings.ToLower(raw)), " ")
}

// Tokens splits an already-normalized command into its tokens.
func Tokens(normalized string) []string {
	return strings.Fields(normalized)
}

// Program returns the executable of a token list, skipping `sudo`, `env`,
// `command`, `exec` wrappers and leading VAR=value assignments. Returns "" if
// nothing remains.
func Program(tokens []string) string {
	for _, tok := range tokens {
		if isWrapperWord(tok) {
			continue
		}
		return tok
	}
	return ""
}

func fragments(raw string) []string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return nil
	}

	tokens, err := shlex.Split(raw)
	if err != nil || len(tokens) == 0 {
		tokens = strings.Fields(raw)
	}

	var out []string
	for _, tok := range tokens {
		for _, frag := range strings.Fields(tok) {
			frag = strings.Map(func(r rune) rune {
				if strings.ContainsRune(stripRunes, r) {
					return -1
				}
				return r
			}, frag)
			// A leading '#' would start a comment on re-tokenization.
			frag = strings.TrimLeft(frag, "#")
			if frag == "" {
				continue
			}
			out = append(out, frag)
		}
	}
	return out
}

func generalize(tok string) string {
	if strings.HasPrefix(tok, "-") {
		// --file=/tmp/x keeps the flag and generalizes its value.
		if name, value, ok := strings.Cut(tok, "="); ok && value != "" {
			return name + "=" + generalizeValue(value)
		}
		return tok
	}
	return generalizeValue(tok)
}

func generalizeValue(tok string) string {
	switch {
	case urlPattern.MatchString(tok):
		return SlotURL
	case isPathLike(tok):
		return SlotPath
	case numPattern.MatchString(tok):
		return SlotNum
	default:
		return tok
	}
}

func isPathLike(tok string) bool {
	if tok == SlotPath || tok == SlotURL || tok == SlotNum {
		return false
	}
	return strings.HasPrefix(tok, "/") ||
		strings.HasPrefix(tok, "~") ||
		strings.HasPrefix(tok, ".") ||
		strings.Contains(tok, "/")
}
