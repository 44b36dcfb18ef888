package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Named vector spaces.
const (
	VectorPosition = "position"
	VectorContent  = "content"
	// VectorDefault names the single unnamed vector.
	VectorDefault = ""
)

// Payload keys stored with every point.
const (
	FieldUserID      = "user_id"
	FieldCityID      = "city_id"
	FieldProfessions = "professions"
	FieldWorkType    = "work_type"
	FieldSalary      = "salary"
	FieldExperience  = "experience"
	FieldGender      = "gender"
	FieldLevel       = "level"
	FieldContent     = "content"
	FieldName        = "name"
	FieldPhoto       = "photo"
	FieldAddress     = "address"
)

// FilterableFields lists the integer payload keys that carry a payload index.
var FilterableFields = []string{
	FieldCityID, FieldProfessions, FieldWorkType,
	FieldSalary, FieldExperience, FieldGender, FieldLevel,
}

// VectorLayout is the deployment choice between one unnamed vector and named spaces.
type VectorLayout string

// Supported layouts.
const (
	LayoutSingle VectorLayout = "single"
	LayoutNamed  VectorLayout = "named"
)

// IsValid reports whether the layout is supported.
func (l VectorLayout) IsValid() bool {
	return l == LayoutSingle || l == LayoutNamed
}

// Spaces returns the vector names of the layout; the content space comes last.
func (l VectorLayout) Spaces() []string {
	if l == LayoutNamed {
		return []string{VectorPosition, VectorContent}
	}
	return []string{VectorDefault}
}

// ContentSpace returns the vector name that embeds the full normalized text.
func (l VectorLayout) ContentSpace() string {
	if l == LayoutNamed {
		return VectorContent
	}
	return VectorDefault
}

// IndexPoint is one vector-store entry keyed by the profile id.
type IndexPoint struct {
	ID      int64
	Vectors map[string][]float32
	Payload Payload
}

// Payload holds the denormalized filterable fields of a point.
type Payload struct {
	UserID      int64
	CityIDs     []int64
	Professions []int64
	WorkTypes   []int64
	Salary      *int64
	Experience  *int64
	Gender      *int64
	Level       *int64
	Content     string
	Name        string
	Photo       string
	Address     string
}

// Ints returns the integer values stored under a filterable key.
func (p *Payload) Ints(key string) []int64 {
	switch key {
	case FieldCityID:
		return p.CityIDs
	case FieldProfessions:
		return p.Professions
	case FieldWorkType:
		return p.WorkTypes
	case FieldSalary:
		return optional(p.Salary)
	case FieldExperience:
		return optional(p.Experience)
	case FieldGender:
		return optional(p.Gender)
	case FieldLevel:
		return optional(p.Level)
	}
	return nil
}

// SetInts stores integer values under a filterable key. Scalars keep the first value.
func (p *Payload) SetInts(key string, vals []int64) {
	var first *int64
	if len(vals) > 0 {
		v := vals[0]
		first = &v
	}
	switch key {
	case FieldCityID:
		p.CityIDs = vals
	case FieldProfessions:
		p.Professions = vals
	case FieldWorkType:
		p.WorkTypes = vals
	case FieldSalary:
		p.Salary = first
	case FieldExperience:
		p.Experience = first
	case FieldGender:
		p.Gender = first
	case FieldLevel:
		p.Level = first
	}
}

func optional(v *int64) []int64 {
	if v == nil {
		return nil
	}
	return []int64{*v}
}

// ParseIDList splits a comma separated list into integers, dropping non-numeric tokens.
func ParseIDList(csv string) []int64 {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]int64, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// FormatIDList joins integers with commas.
func FormatIDList(ids []int64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, ",")
}

// Validate checks that the point has an id and at least one vector.
func (p *IndexPoint) Validate(dims int) error {
	if p.ID <= 0 {
		return fmt.Errorf("point id must be positive, got %d", p.ID)
	}
	if len(p.Vectors) == 0 {
		return fmt.Errorf("point %d has no vectors", p.ID)
	}
	for name, v := range p.Vectors {
		if dims > 0 && len(v) != dims {
			return fmt.Errorf("point %d vector %q: expected %d dims, got %d", p.ID, name, dims, len(v))
		}
	}
	return nil
}
