package ingest

import (
	"strings"
	"testing"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/labels"
)

func TestNormalizer_Normalize(t *testing.T) {
	n := NewNormalizer(labels.Dictionary{"1": "Go", "2": "SQL"}, "", 0)

	tests := []struct {
		name string
		p    domain.Profile
		want string
	}{
		{
			name: "all parts",
			p:    domain.Profile{Position: " Go dev ", About: "About me", SkillContent: "5 years", Skills: "1, x ,2"},
			want: "Go dev. About me. 5 years. Kỹ năng: Go, x, SQL",
		},
		{
			name: "empty parts dropped",
			p:    domain.Profile{Position: "Tester", About: "   ", Skills: ""},
			want: "Tester",
		},
		{
			name: "blank skill tokens dropped",
			p:    domain.Profile{Skills: " , 2,"},
			want: "Kỹ năng: SQL",
		},
		{
			name: "nothing",
			p:    domain.Profile{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := n.Normalize(tt.p); got != tt.want {
				t.Errorf("Normalize = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizer_CustomClause(t *testing.T) {
	n := NewNormalizer(nil, "Skills: ", 0)
	got := n.Normalize(domain.Profile{Skills: "7"})
	if got != "Skills: 7" {
		t.Errorf("Normalize = %q, want %q", got, "Skills: 7")
	}
}

func TestNormalizer_TruncatesRunes(t *testing.T) {
	n := NewNormalizer(nil, "", 5)
	got := n.Normalize(domain.Profile{Position: "Kỹ sư phần mềm"})
	if got != "Kỹ sư" {
		t.Errorf("Normalize = %q, want %q", got, "Kỹ sư")
	}
	if TextLen(got) != 5 {
		t.Errorf("TextLen = %d, want 5", TextLen(got))
	}
}

func TestNormalizer_PositionText(t *testing.T) {
	n := NewNormalizer(nil, "", 0)
	if got := n.PositionText(domain.Profile{Position: "  Designer ", About: "x"}); got != "Designer" {
		t.Errorf("PositionText = %q, want Designer", got)
	}
	if got := n.PositionText(domain.Profile{About: "Writes docs"}); got != "Writes docs" {
		t.Errorf("PositionText fallback = %q, want normalized content", got)
	}
}

func TestTruncateRunes(t *testing.T) {
	s := strings.Repeat("ă", 10)
	if got := truncateRunes(s, 3); got != "ăăă" {
		t.Errorf("truncateRunes = %q", got)
	}
	if got := truncateRunes("abc", 10); got != "abc" {
		t.Errorf("truncateRunes short = %q", got)
	}
}
