package redis

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain"
)

const fieldID = "id"

// Upsert overwrites whole points. Each point is deleted and rewritten inside its own
// MULTI/EXEC so readers never see a missing or half-written hash; all transactions
// share one pipeline. Redis acknowledges writes synchronously, so wait has no effect.
func (s *Store) Upsert(ctx context.Context, points []domain.IndexPoint, _ bool) error {
	if len(points) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, 0, txLen*len(points))
	for i := range points {
		key := s.key(points[i].ID)
		hset := s.b().Hset().Key(key).FieldValue()
		for k, v := range encodePoint(&points[i]) {
			hset = hset.FieldValue(k, v)
		}
		cmds = append(cmds,
			s.b().Multi().Build(),
			s.b().Del().Key(key).Build(),
			hset.Build(),
			s.b().Exec().Build(),
		)
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i := range points {
		if err := txError(results[i*txLen : (i+1)*txLen]); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("point %d: %w", points[i].ID, err)}
		}
	}
	return nil
}

// txLen is the number of pipelined commands per point: MULTI, DEL, HSET, EXEC.
const txLen = 4

// txError reports the first failure of one MULTI/EXEC block, including errors of
// commands that failed inside EXEC.
func txError(results []rueidis.RedisResult) error {
	for _, res := range results {
		if err := res.Error(); err != nil {
			return err
		}
	}
	replies, err := results[len(results)-1].ToArray()
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	for _, m := range replies {
		if err := m.Error(); err != nil {
			return err
		}
	}
	return nil
}

// ScrollIDs returns ids >= offset in ascending order via FT.SEARCH over the numeric id field.
func (s *Store) ScrollIDs(ctx context.Context, offset int64, limit int) ([]int64, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive")
	}
	query := fmt.Sprintf("@%s:[%d +inf]", fieldID, max(offset, 0))
	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		s.index, query,
		"SORTBY", fieldID, "ASC",
		"LIMIT", "0", strconv.Itoa(limit),
		"RETURN", "1", fieldID,
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	entries, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(entries))
	for _, e := range entries {
		id, ok := s.entryID(e)
		if !ok {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *Store) key(id int64) string {
	return s.prefix + strconv.FormatInt(id, 10)
}

func (s *Store) entryID(e entry) (int64, bool) {
	raw, ok := e.fields[fieldID]
	if !ok {
		raw = strings.TrimPrefix(e.key, s.prefix)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func vectorField(space string) string {
	if space == domain.VectorDefault {
		return "vec"
	}
	return "vec_" + space
}

func encodePoint(p *domain.IndexPoint) map[string]string {
	pl := &p.Payload
	fields := map[string]string{
		fieldID:             strconv.FormatInt(p.ID, 10),
		domain.FieldUserID:  strconv.FormatInt(pl.UserID, 10),
		domain.FieldContent: pl.Content,
		domain.FieldName:    pl.Name,
		domain.FieldPhoto:   pl.Photo,
		domain.FieldAddress: pl.Address,
	}
	for _, key := range domain.FilterableFields {
		vals := pl.Ints(key)
		if len(vals) == 0 {
			continue
		}
		fields[key] = domain.FormatIDList(vals)
	}
	for space, vec := range p.Vectors {
		fields[vectorField(space)] = vectorToBytes(vec)
	}
	return fields
}

func decodePayload(fields map[string]string) domain.Payload {
	var pl domain.Payload
	if v, err := strconv.ParseInt(fields[domain.FieldUserID], 10, 64); err == nil {
		pl.UserID = v
	}
	for _, key := range domain.FilterableFields {
		if raw, ok := fields[key]; ok {
			pl.SetInts(key, domain.ParseIDList(raw))
		}
	}
	pl.Content = fields[domain.FieldContent]
	pl.Name = fields[domain.FieldName]
	pl.Photo = fields[domain.FieldPhoto]
	pl.Address = fields[domain.FieldAddress]
	return pl
}

// returnFields lists the hash fields read back with every hit.
var returnFields = append([]string{
	fieldID, domain.FieldUserID, domain.FieldContent,
	domain.FieldName, domain.FieldPhoto, domain.FieldAddress,
}, domain.FilterableFields...)

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
