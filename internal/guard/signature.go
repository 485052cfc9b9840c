package guard

import (
	"fmt"
	"regexp"
	"strings"
)

// maxSignatureRunes caps the stored signature.
const maxSignatureRunes = 200

// builtinSignatures mark output lines that indicate failure even when the
// exit status is zero. Earlier patterns are preferred when choosing the
// signature line.
var builtinSignatures = []*regexp.Regexp{
	// error: ..., fatal: ..., error[E0308]: ..., ModuleNotFoundError: ...
	regexp.MustCompile(`(?i)^\s*[a-z_.]*(?:error|exception)(?:\[[^\]]*\])?:`),
	regexp.MustCompile(`(?i)^\s*(?:fatal|panic):`),
	regexp.MustCompile(`(?i)\bnpm err!`),
	regexp.MustCompile(`(?i)command not found`),
	regexp.MustCompile(`(?i)no such file or directory`),
	regexp.MustCompile(`(?i)permission denied`),
	regexp.MustCompile(`(?i)segmentation fault`),
	regexp.MustCompile(`(?i)^traceback \(most recent call last\)`),
}

// compileSignatures returns the configured patterns followed by the
// built-in ones.
func compileSignatures(extra []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(extra)+len(builtinSignatures))
	for i, raw := range extra {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("error signature %d %q: %w", i+1, raw, err)
		}
		out = append(out, re)
	}
	return append(out, builtinSignatures...), nil
}

// findSignature returns the output line matched by the highest-priority
// signature, or false when no signature matches.
func findSignature(output string, signatures []*regexp.Regexp) (string, bool) {
	if strings.TrimSpace(output) == "" {
		return "", false
	}
	lines := strings.Split(output, "\n")
	for _, re := range signatures {
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line != "" && re.MatchString(line) {
				return line, true
			}
		}
	}
	return "", false
}

// firstLine returns the first non-blank line of output.
func firstLine(output string) string {
	for line := range strings.SplitSeq(output, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

// truncateRunes cuts s to at most n runes, marking the cut with "...".
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}
