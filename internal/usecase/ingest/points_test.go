package ingest

import (
	"slices"
	"testing"

	"github.com/kailas-cloud/candex/internal/domain"
)

func TestBuildPoint(t *testing.T) {
	salary, level, gender := int64(2), int64(3), int64(1)
	p := domain.Profile{
		ID:     9,
		Name:   "An",
		Gender: &gender,
		Preferences: &domain.Preferences{
			CityIDs:     "5, 7",
			Professions: "12,abc,14",
			WorkTypes:   "",
			Salary:      &salary,
			Level:       &level,
		},
	}
	vectors := map[string][]float32{domain.VectorDefault: {1, 0}}

	pt := BuildPoint(p, "text", vectors)

	if pt.ID != 9 || pt.Payload.UserID != 9 {
		t.Errorf("id = %d, user_id = %d", pt.ID, pt.Payload.UserID)
	}
	if !slices.Equal(pt.Payload.CityIDs, []int64{5, 7}) {
		t.Errorf("city ids = %v", pt.Payload.CityIDs)
	}
	if !slices.Equal(pt.Payload.Professions, []int64{12, 14}) {
		t.Errorf("professions = %v", pt.Payload.Professions)
	}
	if len(pt.Payload.WorkTypes) != 0 {
		t.Errorf("work types = %v, want empty", pt.Payload.WorkTypes)
	}
	if got := pt.Payload.Ints(domain.FieldSalary); !slices.Equal(got, []int64{2}) {
		t.Errorf("salary = %v", got)
	}
	if got := pt.Payload.Ints(domain.FieldGender); !slices.Equal(got, []int64{1}) {
		t.Errorf("gender = %v", got)
	}
	if pt.Payload.Content != "text" || pt.Payload.Name != "An" {
		t.Errorf("payload = %+v", pt.Payload)
	}
}

func TestBuildPoint_NoPreferences(t *testing.T) {
	pt := BuildPoint(domain.Profile{ID: 1}, "text", nil)
	if pt.Payload.CityIDs != nil || pt.Payload.Salary != nil || pt.Payload.Level != nil {
		t.Errorf("payload = %+v, want empty preference fields", pt.Payload)
	}
}
