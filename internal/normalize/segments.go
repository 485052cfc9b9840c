package normalize

import (
	"path"
	"strings"

	"github.com/google/shlex"
)

// Segments splits a compound command on `&&`, `||`, `;` and `|` outside of
// quotes. Each segment is returned in Canonical form; empty segments are
// dropped.
func Segments(raw string) []string {
	var (
		segments []string
		current  strings.Builder
		inSingle bool
		inDouble bool
		escaped  bool
	)

	flush := func() {
		if seg := Canonical(current.String()); seg != "" {
			segments = append(segments, seg)
		}
		current.Reset()
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]

		if escaped {
			escaped = false
			current.WriteRune(ch)
			continue
		}

		switch {
		case ch == '\\' && !inSingle:
			escaped = true
			current.WriteRune(ch)
			continue
		case ch == '\'' && !inDouble:
			inSingle = !inSingle
			current.WriteRune(ch)
			continue
		case ch == '"' && !inSingle:
			inDouble = !inDouble
			current.WriteRune(ch)
			continue
		}

		if inSingle || inDouble {
			current.WriteRune(ch)
			continue
		}

		switch {
		case ch == '&' && i+1 < len(runes) && runes[i+1] == '&':
			flush()
			i++
		case ch == '|' && i+1 < len(runes) && runes[i+1] == '|':
			flush()
			i++
		case ch == '|' || ch == ';' || ch == '\n':
			flush()
		default:
			current.WriteRune(ch)
		}
	}
	flush()

	return segments
}

// PolicyForm returns the form of one segment that prevention rules match
// against: the words the shell would see after quote and escape removal,
// lower-cased and joined by single spaces, with the program reduced to its
// base name (`/bin/rm` and `\rm` both become `rm`). Subshell and group
// wrappers are trimmed first. A word that still contains whitespace is
// wrapped in single quotes so its contents are not read as separate words.
// Unbalanced quoting falls back to the Canonical form.
func PolicyForm(segment string) string {
	segment = strings.TrimSpace(strings.Trim(Canonical(segment), "(){} "))
	if segment == "" {
		return ""
	}

	words, err := shlex.Split(segment)
	if err != nil || len(words) == 0 {
		return segment
	}

	programSeen := false
	out := make([]string, 0, len(words))
	for _, w := range words {
		if w == "" {
			continue
		}
		if !programSeen && !isWrapperWord(w) {
			w = path.Base(w)
			programSeen = true
		}
		if strings.ContainsAny(w, " \t\n") {
			w = "'" + w + "'"
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

// isWrapperWord reports whether w precedes the program rather than naming it.
func isWrapperWord(w string) bool {
	switch {
	case w == "sudo" || w == "env" || w == "command" || w == "exec":
		return true
	case strings.HasPrefix(w, "-"):
		// flags of a wrapper, e.g. `sudo -E`
		return true
	}
	return assignPattern.MatchString(w)
}
