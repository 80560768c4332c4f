package livesync

import (
	"strings"

	"github.com/RelayEats/sync_layer/domain"
)

// StatusFilterAll matches every status in a presentation query.
const StatusFilterAll = domain.Status("all")

// Query is a presentation filter over an already-synchronized list.
type Query struct {
	Status domain.Status
	Search string
}

// Present filters records for display. Status and search apply conjunctively:
// a record is shown only if it passes both. Input order is preserved and the
// input slice is never mutated.
func Present[R domain.Record](records []R, q Query) []R {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]R, 0, len(records))
	for _, rec := range records {
		if !matchStatus(rec, q.Status) {
			continue
		}
		if !matchSearch(rec, search) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchStatus[R domain.Record](rec R, status domain.Status) bool {
	if status == "" || status == StatusFilterAll {
		return true
	}
	return rec.GetStatus() == status
}

func matchSearch[R domain.Record](rec R, search string) bool {
	if search == "" {
		return true
	}
	for _, field := range rec.SearchIndex() {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}
