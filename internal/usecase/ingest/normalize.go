package ingest

import (
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/labels"
)

// Normalization defaults.
const (
	DefaultSkillsClause = "Kỹ năng: "
	DefaultMaxTextChars = 1000
	DefaultMinTextChars = 5
)

// Normalizer turns a profile into the text blob that gets embedded and stored for lexical match.
type Normalizer struct {
	skills   labels.Dictionary
	clause   string
	maxChars int
}

// NewNormalizer creates a normalizer. Empty clause and non-positive maxChars use the defaults.
func NewNormalizer(skills labels.Dictionary, clause string, maxChars int) *Normalizer {
	if clause == "" {
		clause = DefaultSkillsClause
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	return &Normalizer{skills: skills, clause: clause, maxChars: maxChars}
}

// Normalize joins position, about, skill content and the labelled skills clause with ". ",
// dropping empty parts, and truncates the result to maxChars runes.
func (n *Normalizer) Normalize(p domain.Profile) string {
	parts := make([]string, 0, 4)
	for _, s := range []string{p.Position, p.About, p.SkillContent} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	if skills := strings.Join(n.skills.MapList(p.Skills), ", "); skills != "" {
		parts = append(parts, n.clause+skills)
	}
	return truncateRunes(strings.Join(parts, ". "), n.maxChars)
}

// PositionText returns the trimmed position, or the normalized content when the position is empty.
func (n *Normalizer) PositionText(p domain.Profile) string {
	if pos := strings.TrimSpace(p.Position); pos != "" {
		return truncateRunes(pos, n.maxChars)
	}
	return n.Normalize(p)
}

// TextLen returns the length of s in runes.
func TextLen(s string) int {
	return utf8.RuneCountInString(s)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
