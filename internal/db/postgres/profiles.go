package postgres

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
)

// MaxID returns the highest candidate id among non-deleted users, 0 when empty.
func (s *Store) MaxID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRow(ctx, s.queries.maxID).Scan(&id); err != nil {
		return 0, &db.Error{Op: db.OpPgMaxID, Err: err}
	}
	return id, nil
}

// FetchPage returns up to limit non-deleted profiles with id > cursor in ascending id
// order, each joined with its preferences row when one exists.
func (s *Store) FetchPage(ctx context.Context, cursor int64, limit int) ([]domain.Profile, error) {
	rows, err := s.db.Query(ctx, s.queries.fetchPage, cursor, limit)
	if err != nil {
		return nil, &db.Error{Op: db.OpPgFetchPage, Err: err}
	}
	defer rows.Close()

	var profiles []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Photo, &p.About,
			&p.Address, &p.Gender,
			&p.Position, &p.Skills, &p.SkillContent,
			&p.Experience,
		); err != nil {
			return nil, &db.Error{Op: db.OpPgFetchPage, Err: fmt.Errorf("scan: %w", err)}
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpPgFetchPage, Err: err}
	}
	if len(profiles) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(profiles))
	for i := range profiles {
		ids[i] = profiles[i].ID
	}
	prefs, err := s.fetchPreferences(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if pr, ok := prefs[profiles[i].ID]; ok {
			profiles[i].Preferences = pr
		}
	}
	return profiles, nil
}

func (s *Store) fetchPreferences(ctx context.Context, ids []int64) (map[int64]*domain.Preferences, error) {
	rows, err := s.db.Query(ctx, s.queries.fetchPrefs, ids)
	if err != nil {
		return nil, &db.Error{Op: db.OpPgFetchPrefs, Err: err}
	}
	defer rows.Close()

	out := make(map[int64]*domain.Preferences, len(ids))
	for rows.Next() {
		var (
			userID int64
			pr     domain.Preferences
		)
		if err := rows.Scan(&userID, &pr.CityIDs, &pr.Salary, &pr.Professions, &pr.WorkTypes, &pr.Level); err != nil {
			return nil, &db.Error{Op: db.OpPgFetchPrefs, Err: fmt.Errorf("scan: %w", err)}
		}
		// rows arrive ordered by id, so the newest row of a user wins
		out[userID] = &pr
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpPgFetchPrefs, Err: err}
	}
	return out, nil
}

// FetchByIDs returns display fields of non-deleted profiles keyed by id in one query.
func (s *Store) FetchByIDs(ctx context.Context, ids []int64) (map[int64]domain.DisplayFields, error) {
	if len(ids) == 0 {
		return map[int64]domain.DisplayFields{}, nil
	}
	rows, err := s.db.Query(ctx, s.queries.fetchByIDs, ids)
	if err != nil {
		return nil, &db.Error{Op: db.OpPgFetchByIDs, Err: err}
	}
	defer rows.Close()

	out := make(map[int64]domain.DisplayFields, len(ids))
	for rows.Next() {
		var d domain.DisplayFields
		if err := rows.Scan(&d.ID, &d.Name, &d.Photo, &d.About, &d.Position, &d.Skills, &d.SkillContent); err != nil {
			return nil, &db.Error{Op: db.OpPgFetchByIDs, Err: fmt.Errorf("scan: %w", err)}
		}
		out[d.ID] = d
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpPgFetchByIDs, Err: err}
	}
	return out, nil
}
