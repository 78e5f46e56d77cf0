package rule

import (
	"testing"

	"cc98-notifier/pkg/forum"
)

func TestRuleMatches(t *testing.T) {
	r := Rule{
		BoardID:  459,
		Keywords: []string{"前端", "后端", "web", "javascript"},
	}

	tests := []struct {
		name  string
		topic forum.Topic
		want  bool
	}{
		{
			name:  "chinese keyword in title",
			topic: forum.Topic{BoardID: 459, Title: "急招前端开发"},
			want:  true,
		},
		{
			name:  "no keyword in title",
			topic: forum.Topic{BoardID: 459, Title: "考试周求自习室"},
			want:  false,
		},
		{
			name:  "keyword but wrong board",
			topic: forum.Topic{BoardID: 141, Title: "急招前端开发"},
			want:  false,
		},
		{
			name:  "case-insensitive ascii keyword",
			topic: forum.Topic{BoardID: 459, Title: "Hiring JavaScript interns"},
			want:  true,
		},
		{
			name:  "substring inside a longer word still matches",
			topic: forum.Topic{BoardID: 459, Title: "webpack 配置求助"},
			want:  true, // pure containment, no word boundaries
		},
		{
			name:  "empty title",
			topic: forum.Topic{BoardID: 459, Title: ""},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Matches(tt.topic); got != tt.want {
				t.Errorf("Matches(%q on board %d) = %v, want %v", tt.topic.Title, tt.topic.BoardID, got, tt.want)
			}
		})
	}
}

func TestSetMatchesAnyRule(t *testing.T) {
	set := Set{
		{BoardID: 459, Keywords: []string{"前端"}},
		{BoardID: 141, Keywords: []string{"golang"}},
	}

	if !set.Match(forum.Topic{BoardID: 141, Title: "Golang 招聘"}) {
		t.Error("Match() = false, want second rule to fire")
	}
	if set.Match(forum.Topic{BoardID: 141, Title: "前端招聘"}) {
		t.Error("Match() = true, keywords must not leak across rules")
	}
	if (Set{}).Match(forum.Topic{BoardID: 459, Title: "前端"}) {
		t.Error("Match() on empty set = true, want false")
	}
}
