package ingest

import "github.com/kailas-cloud/candex/internal/domain"

// BuildPoint assembles the index point of a profile from its normalized content and vectors.
// Comma lists are parsed into integers; absent preferences leave their fields empty.
func BuildPoint(p domain.Profile, content string, vectors map[string][]float32) domain.IndexPoint {
	payload := domain.Payload{
		UserID:     p.ID,
		Experience: p.Experience,
		Gender:     p.Gender,
		Content:    content,
		Name:       p.Name,
		Photo:      p.Photo,
		Address:    p.Address,
	}
	if pr := p.Preferences; pr != nil {
		payload.CityIDs = domain.ParseIDList(pr.CityIDs)
		payload.Professions = domain.ParseIDList(pr.Professions)
		payload.WorkTypes = domain.ParseIDList(pr.WorkTypes)
		payload.Salary = pr.Salary
		payload.Level = pr.Level
	}
	return domain.IndexPoint{ID: p.ID, Vectors: vectors, Payload: payload}
}
