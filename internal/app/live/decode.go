package live

import (
	"sort"
	"strconv"
	"time"

	"github.com/tidwall/gjson"

	"github.com/okian/scorekeep/internal/adapters/repository"
	"github.com/okian/scorekeep/internal/domain/model"
)

// decode turns stored documents into records, keeping store key order.
// Documents that are not objects, lack a string game, or whose score is not
// an integer within [model.MinScore, model.MaxScore] are returned as skipped
// keys instead.
func decode(snap repository.Snapshot) (records []model.ScoreRecord, skipped []string) {
	records = make([]model.ScoreRecord, 0, len(snap))
	for _, e := range snap {
		if !gjson.ValidBytes(e.Raw) {
			skipped = append(skipped, e.Key)
			continue
		}
		doc := gjson.ParseBytes(e.Raw)
		score, game := doc.Get("score"), doc.Get("game")
		if !doc.IsObject() || score.Type != gjson.Number || game.Type != gjson.String {
			skipped = append(skipped, e.Key)
			continue
		}
		n, err := strconv.ParseInt(score.Raw, 10, 64)
		if err != nil || n < model.MinScore || n > model.MaxScore {
			skipped = append(skipped, e.Key)
			continue
		}
		records = append(records, model.ScoreRecord{
			ID:        e.Key,
			Game:      game.String(),
			Score:     int(n),
			Date:      doc.Get("date").String(),
			UserID:    doc.Get("userId").String(),
			GameImage: doc.Get("gameImage").String(),
		})
	}
	return records, skipped
}

// sortByDateDesc orders records latest date first. Records with the same
// date, and records whose date does not parse, keep their relative order;
// unparseable dates go last.
func sortByDateDesc(records []model.ScoreRecord) {
	keys := make([]time.Time, len(records))
	valid := make([]bool, len(records))
	for i, r := range records {
		keys[i], valid[i] = parseDate(r.Date)
	}
	idx := make([]int, len(records))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if valid[i] != valid[j] {
			return valid[i]
		}
		return valid[i] && keys[i].After(keys[j])
	})
	sorted := make([]model.ScoreRecord, len(records))
	for n, i := range idx {
		sorted[n] = records[i]
	}
	copy(records, sorted)
}

func parseDate(raw string) (time.Time, bool) {
	if t, err := time.Parse(model.DateLayout, raw); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	return time.Time{}, false
}
