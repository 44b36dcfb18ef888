package chi

import (
	"time"

	"github.com/kailas-cloud/candex/internal/domain"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
	"github.com/kailas-cloud/candex/internal/usecase/ingest"
	searchuc "github.com/kailas-cloud/candex/internal/usecase/search"
)

// ErrorCode is the machine readable error code of an API error.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest             ErrorCode = "bad_request"
	ErrorCodeUnauthorized           ErrorCode = "unauthorized"
	ErrorCodeInvalidFacet           ErrorCode = "invalid_facet"
	ErrorCodeNotFound               ErrorCode = "not_found"
	ErrorCodeSyncInProgress         ErrorCode = "sync_in_progress"
	ErrorCodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	ErrorCodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchResponse is the body of GET /search.
type SearchResponse struct {
	Query    string         `json:"query"`
	Expanded bool           `json:"expanded"`
	Results  []SearchResult `json:"results"`
}

// SearchResult is one ranked profile.
type SearchResult struct {
	ID           int64         `json:"id"`
	Score        float64       `json:"score"`
	Name         string        `json:"name"`
	Photo        string        `json:"photo"`
	About        string        `json:"about"`
	Position     string        `json:"position"`
	Skills       string        `json:"skills"`
	SkillLabels  []string      `json:"skill_labels"`
	SkillContent string        `json:"skill_content"`
	Payload      PayloadFields `json:"payload"`
}

// PayloadFields are the filterable fields stored with the point.
type PayloadFields struct {
	UserID      int64   `json:"user_id"`
	CityIDs     []int64 `json:"city_id"`
	Professions []int64 `json:"professions"`
	WorkTypes   []int64 `json:"work_type"`
	Salary      *int64  `json:"salary,omitempty"`
	Experience  *int64  `json:"experience,omitempty"`
	Gender      *int64  `json:"gender,omitempty"`
	Level       *int64  `json:"level,omitempty"`
	Address     string  `json:"address,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// SyncStartResponse is the body of POST /admin/sync.
type SyncStartResponse struct {
	Status string `json:"status"`
}

// SyncStatusResponse is the body of GET /admin/sync.
type SyncStatusResponse struct {
	Running   bool        `json:"running"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	Last      *SyncReport `json:"last,omitempty"`
	Error     string      `json:"error,omitempty"`
}

// SyncReport describes a finished sync run.
type SyncReport struct {
	State      string         `json:"state"`
	Start      int64          `json:"start"`
	Target     int64          `json:"target"`
	Cursor     int64          `json:"cursor"`
	Batches    int            `json:"batches"`
	Fetched    int            `json:"fetched"`
	Written    int            `json:"written"`
	Skipped    map[string]int `json:"skipped"`
	DurationMs int64          `json:"duration_ms"`
}

func searchResponse(out searchuc.Outcome) SearchResponse {
	items := make([]SearchResult, len(out.Results))
	for i, e := range out.Results {
		items[i] = searchResult(e)
	}
	return SearchResponse{Query: out.Query, Expanded: out.Expanded, Results: items}
}

func searchResult(e result.Enriched) SearchResult {
	d := e.Display()
	labels := e.SkillLabels()
	if labels == nil {
		labels = []string{}
	}
	return SearchResult{
		ID:           e.Hit().ID(),
		Score:        e.Hit().Score(),
		Name:         d.Name,
		Photo:        d.Photo,
		About:        d.About,
		Position:     d.Position,
		Skills:       d.Skills,
		SkillLabels:  labels,
		SkillContent: d.SkillContent,
		Payload:      payloadFields(e.Hit().Payload()),
	}
}

func payloadFields(p domain.Payload) PayloadFields {
	return PayloadFields{
		UserID:      p.UserID,
		CityIDs:     orEmpty(p.CityIDs),
		Professions: orEmpty(p.Professions),
		WorkTypes:   orEmpty(p.WorkTypes),
		Salary:      p.Salary,
		Experience:  p.Experience,
		Gender:      p.Gender,
		Level:       p.Level,
		Address:     p.Address,
	}
}

func orEmpty(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func syncStatusResponse(st ingest.Status) SyncStatusResponse {
	resp := SyncStatusResponse{Running: st.Running}
	if !st.StartedAt.IsZero() {
		t := st.StartedAt.UTC()
		resp.StartedAt = &t
	}
	if st.Last != nil {
		r := st.Last
		resp.Last = &SyncReport{
			State:      r.State.String(),
			Start:      r.Start,
			Target:     r.Target,
			Cursor:     r.Cursor,
			Batches:    r.Batches,
			Fetched:    r.Fetched,
			Written:    r.Written,
			Skipped:    r.Skipped,
			DurationMs: r.Duration.Milliseconds(),
		}
	}
	if st.LastErr != nil {
		resp.Error = safeDomainMessage(st.LastErr)
	}
	return resp
}
