// Package pattern compiles ordered inclusion/exclusion glob rules and decides
// which root-relative paths a cleanup run should target.
package pattern

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/unicode/norm"

	"git.home.luguber.info/inful/wscleanup/internal/errors"
)

// Rule is a single glob pattern with include/exclude polarity. Globs use
// doublestar syntax: `*` stays within one path segment, `**` spans segments,
// `?` matches a single rune.
type Rule struct {
	Glob            string `yaml:"glob"`
	Exclude         bool   `yaml:"exclude,omitempty"`
	CaseInsensitive bool   `yaml:"case_insensitive,omitempty"`
}

type compiledRule struct {
	glob    string
	exclude bool
	folded  bool
}

// RuleSet is an ordered, immutable sequence of compiled rules. Later rules
// take precedence over earlier ones for overlapping paths.
type RuleSet struct {
	rules []compiledRule
}

// Compile validates every rule's glob and returns an immutable RuleSet.
// A glob that does not compile is a configuration error and aborts the
// invocation before any deletion is attempted.
func Compile(rules []Rule) (*RuleSet, error) {
	compiled := make([]compiledRule, 0, len(rules))
	for _, r := range rules {
		glob := normalize(r.Glob)
		if r.CaseInsensitive {
			glob = strings.ToLower(glob)
		}
		if !doublestar.ValidatePattern(glob) {
			return nil, errors.ConfigError("invalid cleanup pattern").WithContext("pattern", r.Glob)
		}
		compiled = append(compiled, compiledRule{glob: glob, exclude: r.Exclude, folded: r.CaseInsensitive})
	}
	return &RuleSet{rules: compiled}, nil
}

// Empty reports whether the set contains no rules. An empty set selects
// nothing; whole-wipeout mode bypasses the matcher entirely.
func (rs *RuleSet) Empty() bool {
	return rs == nil || len(rs.rules) == 0
}

// Verdict is the per-path outcome of rule evaluation.
type Verdict int

const (
	VerdictNone    Verdict = iota // no rule matched
	VerdictInclude                // last matching rule is an inclusion
	VerdictExclude                // last matching rule is an exclusion
)

// Decide evaluates relPath against the rules in order: the last rule whose
// glob matches decides. Unmatched paths yield VerdictNone.
func (rs *RuleSet) Decide(relPath string) Verdict {
	if rs.Empty() {
		return VerdictNone
	}
	subject := normalize(relPath)
	folded := strings.ToLower(subject)

	verdict := VerdictNone
	for _, r := range rs.rules {
		s := subject
		if r.folded {
			s = folded
		}
		ok, err := doublestar.Match(r.glob, s)
		if err != nil {
			// validated in Compile; cannot happen
			continue
		}
		if ok {
			if r.exclude {
				verdict = VerdictExclude
			} else {
				verdict = VerdictInclude
			}
		}
	}
	return verdict
}

// Matches reports whether relPath is selected for deletion: the last rule
// whose glob matches decides, and it decides "delete" iff it is an include.
// Unmatched paths are not selected.
func (rs *RuleSet) Matches(relPath string) bool {
	return rs.Decide(relPath) == VerdictInclude
}

// HasExclusions reports whether any rule in the set is an exclusion. When
// none is, an included directory can be removed whole: no rule can protect
// a descendant.
func (rs *RuleSet) HasExclusions() bool {
	if rs == nil {
		return false
	}
	for _, r := range rs.rules {
		if r.exclude {
			return true
		}
	}
	return false
}

// normalize produces the canonical match subject: slash-separated, relative,
// NFC-normalized so decomposed filenames (NFD, as produced by some
// filesystems) still match composed patterns.
func normalize(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, "./")
	p = strings.TrimPrefix(p, "/")
	return norm.NFC.String(p)
}
