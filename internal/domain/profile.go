package domain

// Profile is one candidate record as read from the source store.
// Preferences is nil when the profile has no preferences row.
type Profile struct {
	ID           int64
	Name         string
	Photo        string
	About        string
	Address      string
	Position     string
	Skills       string // comma separated skill ids
	SkillContent string
	Gender       *int64
	Experience   *int64
	Preferences  *Preferences
}

// Preferences holds the job-search preferences of a profile.
type Preferences struct {
	CityIDs     string // comma separated
	Professions string // comma separated
	WorkTypes   string // comma separated
	Salary      *int64
	Level       *int64
}

// DisplayFields is the fresh subset of a profile shown next to a search hit.
type DisplayFields struct {
	ID           int64
	Name         string
	Photo        string
	About        string
	Position     string
	Skills       string
	SkillContent string
}
