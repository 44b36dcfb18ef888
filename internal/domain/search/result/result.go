package result

import "github.com/kailas-cloud/candex/internal/domain"

// Hit is a single ranked point returned by the vector store.
type Hit struct {
	id      int64
	score   float64
	payload domain.Payload
}

// NewHit creates a search hit.
func NewHit(id int64, score float64, payload domain.Payload) Hit {
	return Hit{id: id, score: score, payload: payload}
}

// ID returns the point identifier (the profile id).
func (h Hit) ID() int64 { return h.id }

// Score returns the relevance score.
func (h Hit) Score() float64 { return h.score }

// Payload returns the point payload.
func (h Hit) Payload() domain.Payload { return h.payload }

// WithScore returns a copy of the hit carrying a new score.
func (h Hit) WithScore(score float64) Hit {
	h.score = score
	return h
}

// Enriched is a hit joined with the fresh display fields of its source row.
type Enriched struct {
	hit         Hit
	display     domain.DisplayFields
	skillLabels []string
}

// NewEnriched joins a hit with its source row.
func NewEnriched(hit Hit, display domain.DisplayFields, skillLabels []string) Enriched {
	return Enriched{hit: hit, display: display, skillLabels: skillLabels}
}

// Hit returns the underlying vector store hit.
func (e Enriched) Hit() Hit { return e.hit }

// Display returns the source row display fields.
func (e Enriched) Display() domain.DisplayFields { return e.display }

// SkillLabels returns the human readable skill names.
func (e Enriched) SkillLabels() []string { return e.skillLabels }
