// Package policy holds the static prevention rules: destructive command
// shapes that are blocked regardless of any recorded history.
package policy

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dotcommander/cmdguard/internal/normalize"
)

// Rule is one prevention rule. Pattern is matched against the policy form of
// each segment of a command (unquoted, lower-cased, program base-named; see
// normalize.PolicyForm), or against the canonical form of the whole command
// when WholeCommand is set.
type Rule struct {
	ID           string         `json:"id"`
	Description  string         `json:"description"`
	Pattern      *regexp.Regexp `json:"-"`
	WholeCommand bool           `json:"whole_command,omitempty"`
	Builtin      bool           `json:"builtin"`
}

// Source returns the regular expression text of the rule.
func (r Rule) Source() string {
	if r.Pattern == nil {
		return ""
	}
	return r.Pattern.String()
}

// Spec is a configured rule before compilation. ID and Description are
// optional; Pattern is a case-insensitive regular expression.
type Spec struct {
	ID          string `yaml:"id" json:"id,omitempty"`
	Description string `yaml:"description" json:"description,omitempty"`
	Pattern     string `yaml:"pattern" json:"pattern"`
}

// Policy is an ordered rule list. The zero value blocks nothing.
type Policy struct {
	rules []Rule
}

// Default returns the built-in policy.
func Default() *Policy {
	p, _ := New(nil)
	return p
}

// New returns the built-in rules followed by one rule per extra spec.
// Extra patterns are compiled case-insensitively and matched against every
// segment. Specs with an empty pattern are skipped.
func New(extra []Spec) (*Policy, error) {
	rules := defaultRules()
	for i := range rules {
		rules[i].Builtin = true
	}

	for i, spec := range extra {
		raw := strings.TrimSpace(spec.Pattern)
		if raw == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + raw)
		if err != nil {
			return nil, fmt.Errorf("blocked pattern %d %q: %w", i+1, raw, err)
		}
		rule := Rule{
			ID:          strings.TrimSpace(spec.ID),
			Description: strings.TrimSpace(spec.Description),
			Pattern:     re,
		}
		if rule.ID == "" {
			rule.ID = fmt.Sprintf("custom-%d", i+1)
		}
		if rule.Description == "" {
			rule.Description = "Matches configured blocked pattern " + raw
		}
		rules = append(rules, rule)
	}
	return &Policy{rules: rules}, nil
}

// Check returns the first rule the command violates, or nil.
func (p *Policy) Check(command string) *Rule {
	if p == nil || len(p.rules) == 0 {
		return nil
	}
	whole := normalize.Canonical(command)
	if whole == "" {
		return nil
	}
	var segments []string
	for _, seg := range normalize.Segments(command) {
		if form := normalize.PolicyForm(seg); form != "" {
			segments = append(segments, form)
		}
	}

	for i := range p.rules {
		rule := &p.rules[i]
		if rule.Pattern == nil {
			continue
		}
		if rule.WholeCommand {
			if rule.Pattern.MatchString(whole) {
				return rule
			}
			continue
		}
		for _, seg := range segments {
			if rule.Pattern.MatchString(seg) {
				return rule
			}
		}
	}
	return nil
}

// Rules returns a copy of the rule list in evaluation order.
func (p *Policy) Rules() []Rule {
	if p == nil {
		return nil
	}
	out := make([]Rule, len(p.rules))
	copy(out, p.rules)
	return out
}
