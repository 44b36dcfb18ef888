package postgres

import (
	"fmt"

	"github.com/kailas-cloud/candex/internal/db"
)

type queries struct {
	maxID      string
	fetchPage  string
	fetchPrefs string
	fetchByIDs string
}

func buildQueries(t Tables) (queries, error) {
	def := DefaultTables()
	if t.Users == "" {
		t.Users = def.Users
	}
	if t.Candidates == "" {
		t.Candidates = def.Candidates
	}
	if t.Findworks == "" {
		t.Findworks = def.Findworks
	}
	for _, name := range []string{t.Users, t.Candidates, t.Findworks} {
		if !db.IsValidIdentifier(name) {
			return queries{}, fmt.Errorf("invalid table name %q", name)
		}
	}

	return queries{
		maxID: fmt.Sprintf(`
		SELECT COALESCE(MAX(uc.user_id), 0)
		FROM %s uc
		INNER JOIN %s u ON u.id = uc.user_id
		WHERE u.deleted_at IS NULL
	`, t.Candidates, t.Users),

		fetchPage: fmt.Sprintf(`
		SELECT
			u.id, COALESCE(u.name, ''), COALESCE(u.photo, ''), COALESCE(u.about, ''),
			COALESCE(uc.address, ''), u.gender_id,
			COALESCE(uc.position, ''), COALESCE(uc.skills, ''), COALESCE(uc.skill_content, ''),
			uc.experience
		FROM %s u
		INNER JOIN %s uc ON u.id = uc.user_id
		WHERE u.deleted_at IS NULL AND u.id > $1
		ORDER BY u.id ASC
		LIMIT $2
	`, t.Users, t.Candidates),

		fetchPrefs: fmt.Sprintf(`
		SELECT
			user_id, COALESCE(address, ''), salary,
			COALESCE(professions, ''), COALESCE(work_types, ''), rank
		FROM %s
		WHERE user_id = ANY($1)
		ORDER BY user_id, id
	`, t.Findworks),

		fetchByIDs: fmt.Sprintf(`
		SELECT
			u.id, COALESCE(u.name, ''), COALESCE(u.photo, ''), COALESCE(u.about, ''),
			COALESCE(uc.position, ''), COALESCE(uc.skills, ''), COALESCE(uc.skill_content, '')
		FROM %s u
		INNER JOIN %s uc ON u.id = uc.user_id
		WHERE u.deleted_at IS NULL AND u.id = ANY($1)
	`, t.Users, t.Candidates),
	}, nil
}
