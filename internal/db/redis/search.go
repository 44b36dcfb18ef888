package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/candex/internal/db"
	"github.com/kailas-cloud/candex/internal/domain/search/filter"
	"github.com/kailas-cloud/candex/internal/domain/search/fusion"
	"github.com/kailas-cloud/candex/internal/domain/search/request"
	"github.com/kailas-cloud/candex/internal/domain/search/result"
)

// scoreAlias names the KNN distance in FT.SEARCH replies.
const scoreAlias = "vector_score"

type entry struct {
	key    string
	score  float64
	fields map[string]string
}

// Query runs every probe concurrently and fuses the ranked lists in process.
func (s *Store) Query(ctx context.Context, q *db.Query) ([]result.Hit, error) {
	if len(q.Vector) == 0 {
		return nil, fmt.Errorf("vector is required")
	}
	if len(q.Probes) == 0 {
		return nil, fmt.Errorf("at least one probe is required")
	}

	probes := q.Probes
	k := q.PrefetchLimit
	if q.Fusion == fusion.None {
		probes = probes[:1]
		k = q.Limit
	}
	if k <= 0 {
		k = request.DefaultPrefetchLimit
	}

	lists := make([][]result.Hit, len(probes))
	g, gctx := errgroup.WithContext(ctx)
	for i, p := range probes {
		g.Go(func() error {
			var (
				entries []entry
				err     error
			)
			if p.Kind() == request.KindLexical {
				entries, err = s.searchText(gctx, p, k)
			} else {
				entries, err = s.searchKNN(gctx, p, q.Vector, k)
			}
			if err != nil {
				return err
			}
			lists[i] = s.toHits(entries)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return fusion.Fuse(q.Fusion, lists, q.Limit), nil
}

func (s *Store) searchKNN(ctx context.Context, p request.Probe, vec []float32, k int) ([]entry, error) {
	filterStr := s.buildFilter(p.Must())

	knnPart := fmt.Sprintf("[KNN %d @%s $BLOB AS %s]", k, vectorField(p.Using()), scoreAlias)
	var queryStr string
	if filterStr != "" {
		queryStr = fmt.Sprintf("(%s)=>%s", filterStr, knnPart)
	} else {
		queryStr = fmt.Sprintf("*=>%s", knnPart)
	}

	args := []string{s.index, queryStr, "RETURN", strconv.Itoa(len(returnFields) + 1)}
	args = append(args, returnFields...)
	args = append(args, scoreAlias,
		"SORTBY", scoreAlias, "ASC",
		"LIMIT", "0", strconv.Itoa(k),
		"PARAMS", "2", "BLOB", vectorToBytes(vec),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseKNNResult(raw)
}

func (s *Store) searchText(ctx context.Context, p request.Probe, k int) ([]entry, error) {
	if strings.TrimSpace(p.Text()) == "" {
		return nil, nil
	}
	textPart := fmt.Sprintf("@%s:(%s)", s.schema.TextField, escapeQuery(p.Text()))
	queryStr := textPart
	if filterStr := s.buildFilter(p.Must()); filterStr != "" {
		queryStr = fmt.Sprintf("%s %s", filterStr, textPart)
	}

	args := []string{s.index, queryStr, "RETURN", strconv.Itoa(len(returnFields))}
	args = append(args, returnFields...)
	args = append(args,
		"WITHSCORES",
		"LIMIT", "0", strconv.Itoa(k),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return parseBM25Result(raw)
}

func (s *Store) toHits(entries []entry) []result.Hit {
	hits := make([]result.Hit, 0, len(entries))
	for _, e := range entries {
		id, ok := s.entryID(e)
		if !ok {
			continue
		}
		hits = append(hits, result.NewHit(id, e.score, decodePayload(e.fields)))
	}
	return hits
}

// --- Result parsing ---

func parseKNNResult(raw []rueidis.RedisMessage) ([]entry, error) {
	entries, err := parseListResult(raw)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if scoreStr, ok := entries[i].fields[scoreAlias]; ok {
			if d, err := strconv.ParseFloat(scoreStr, 64); err == nil {
				entries[i].score = max(0, 1.0-d) // cosine distance → similarity
			}
			delete(entries[i].fields, scoreAlias)
		}
	}
	return entries, nil
}

func parseBM25Result(raw []rueidis.RedisMessage) ([]entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	entries := make([]entry, 0, total)
	// 3-stride: [total, key1, score1, fields1, key2, score2, fields2, ...]
	for i := 1; i+2 < len(raw); i += 3 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		scoreStr, err := raw[i+1].ToString()
		if err != nil {
			continue
		}
		score, err := strconv.ParseFloat(scoreStr, 64)
		if err != nil {
			continue
		}

		fields, err := raw[i+2].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, entry{key: key, score: score, fields: parseFieldPairs(fields)})
	}

	return entries, nil
}

func parseListResult(raw []rueidis.RedisMessage) ([]entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return nil, nil
	}

	entries := make([]entry, 0, min(int(total), (len(raw)-1)/2))
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, entry{key: key, fields: parseFieldPairs(fields)})
	}

	return entries, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Filter building ---

// buildFilter translates must predicates into an FT.SEARCH pre-filter query string.
// List fields are TAG fields, scalar fields are NUMERIC.
func (s *Store) buildFilter(preds []filter.Predicate) string {
	if len(preds) == 0 {
		return ""
	}
	parts := make([]string, 0, len(preds))
	for _, p := range preds {
		if s.schema.IsList(p.Key()) {
			parts = append(parts, buildTagFilter(p.Key(), p.Values()))
			continue
		}
		parts = append(parts, buildNumericFilter(p.Key(), p.Values()))
	}
	return strings.Join(parts, " ")
}

func buildTagFilter(key string, values []int64) string {
	tags := make([]string, len(values))
	for i, v := range values {
		tags[i] = tagEscaper.Replace(strconv.FormatInt(v, 10))
	}
	return fmt.Sprintf("@%s:{%s}", key, strings.Join(tags, " | "))
}

func buildNumericFilter(key string, values []int64) string {
	if len(values) == 1 {
		return fmt.Sprintf("@%s:[%d %d]", key, values[0], values[0])
	}
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("@%s:[%d %d]", key, v, v)
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

// --- Query helpers ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"-", "\\-",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
)
