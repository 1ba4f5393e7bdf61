// Package rules maps transaction descriptions to accounts via an ordered
// table of keyword rules.
package rules

import "strings"

// Rule binds a keyword to a ledger account. Matching is case-insensitive
// substring containment on the description.
type Rule struct {
	Keyword   string `mapstructure:"keyword"`
	AccountID string `mapstructure:"account"`
}

// Matcher evaluates keyword rules in insertion order. First match wins;
// ties are broken by input order, not match quality.
type Matcher struct {
	rules    []Rule
	keywords []string // lowercased, parallel to rules
}

// NewMatcher creates a matcher over the given ordered rules. Rules with an
// empty keyword never match.
func NewMatcher(rules []Rule) *Matcher {
	keywords := make([]string, len(rules))
	for i, rule := range rules {
		keywords[i] = strings.ToLower(strings.TrimSpace(rule.Keyword))
	}

	return &Matcher{rules: rules, keywords: keywords}
}

// Match returns the first rule whose keyword appears in the description.
// No network or persistence side effects; a miss is (Rule{}, false).
func (m *Matcher) Match(description string) (Rule, bool) {
	desc := strings.ToLower(description)

	for i, keyword := range m.keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(desc, keyword) {
			return m.rules[i], true
		}
	}

	return Rule{}, false
}
