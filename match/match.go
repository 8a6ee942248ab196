// Package match evaluates resource tag sets against declarative
// include/exclude rule sets. Include rules default to exact value
// matching (categorical filters like Environment=Production); exclude
// rules default to substring matching (naming-pattern filters like any
// value containing "nef2"). The asymmetry is deliberate and encodes
// the common case for rule authors.
package match

import "strings"

// MatchType selects the value comparison for a rule.
type MatchType string

const (
	MatchExact    MatchType = "exact"
	MatchContains MatchType = "contains"
)

// Rule matches resources carrying a tag with the given key. When
// Values is empty the key's presence alone matches. MatchType left
// empty falls back to the direction default.
type Rule struct {
	Key       string    `yaml:"key" json:"key"`
	Values    []string  `yaml:"values,omitempty" json:"values,omitempty"`
	MatchType MatchType `yaml:"match_type,omitempty" json:"match_type,omitempty"`
}

// Policy is the include/exclude rule configuration governing
// selection. Rules within a direction combine with OR.
type Policy struct {
	Includes []Rule `yaml:"include,omitempty" json:"include,omitempty"`
	Excludes []Rule `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// IsSelected reports whether a resource's tags satisfy the policy:
// matched by includes and not matched by excludes. An empty include
// set matches everything, so exclude-only policies need no trivial
// include rule.
func IsSelected(tags map[string]string, p Policy) bool {
	return MatchesIncludes(tags, p.Includes) && !MatchesExcludes(tags, p.Excludes)
}

// MatchesIncludes reports whether any include rule matches. An empty
// rule set is vacuously true.
func MatchesIncludes(tags map[string]string, rules []Rule) bool {
	if len(rules) == 0 {
		return true
	}
	return anyMatches(tags, rules, MatchExact)
}

// MatchesExcludes reports whether any exclude rule matches. An empty
// rule set matches nothing.
func MatchesExcludes(tags map[string]string, rules []Rule) bool {
	return anyMatches(tags, rules, MatchContains)
}

func anyMatches(tags map[string]string, rules []Rule, defaultType MatchType) bool {
	lowered := lowerTags(tags)
	for _, rule := range rules {
		if ruleMatches(lowered, rule, defaultType) {
			return true
		}
	}
	return false
}

// ruleMatches evaluates one rule against a lowered tag map. A missing
// key never matches, whatever the rule's values say.
func ruleMatches(lowered map[string]string, rule Rule, defaultType MatchType) bool {
	value, ok := lowered[strings.ToLower(rule.Key)]
	if !ok {
		return false
	}
	if len(rule.Values) == 0 {
		return true
	}

	matchType := rule.MatchType
	if matchType == "" {
		matchType = defaultType
	}
	for _, want := range rule.Values {
		want = strings.ToLower(want)
		switch matchType {
		case MatchContains:
			if strings.Contains(value, want) {
				return true
			}
		default:
			if value == want {
				return true
			}
		}
	}
	return false
}

// lowerTags normalizes keys and values for case-insensitive matching.
// Tag keys are case-preserved everywhere else; only matching lowers.
func lowerTags(tags map[string]string) map[string]string {
	lowered := make(map[string]string, len(tags))
	for k, v := range tags {
		lowered[strings.ToLower(k)] = strings.ToLower(v)
	}
	return lowered
}
