// Package rule implements the board+keyword predicate that decides which
// topics trigger a notification.
package rule

import (
	"strings"

	"cc98-notifier/pkg/forum"
)

// Rule matches topics in one board whose title contains any of the keywords.
// Matching is plain substring containment on the lowercased title; there is
// no word-boundary logic.
type Rule struct {
	BoardID  int      `yaml:"board"`
	Keywords []string `yaml:"keywords"`
}

// Matches reports whether the topic satisfies this rule.
func (r Rule) Matches(t forum.Topic) bool {
	if t.BoardID != r.BoardID {
		return false
	}
	title := strings.ToLower(t.Title)
	for _, keyword := range r.Keywords {
		if strings.Contains(title, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// Set is the full rule configuration, fixed for the process lifetime.
type Set []Rule

// Match reports whether any rule matches the topic.
func (s Set) Match(t forum.Topic) bool {
	for _, r := range s {
		if r.Matches(t) {
			return true
		}
	}
	return false
}
