package lotto

import (
	"strings"

	"lotto-market/internal/model"
)

// Match classifies tickets against one rank's winning value: exact equality
// for ranks 1-3, trailing-digit suffix for ranks 4-5. The same ticket may
// match several ranks in one draw; each rank's match set is independent and
// no deduplication happens across ranks.
func Match(tickets []model.Ticket, rank int, value string) []model.Ticket {
	var matched []model.Ticket
	for _, t := range tickets {
		if matches(t.Number, rank, value) {
			matched = append(matched, t)
		}
	}
	return matched
}

func matches(number string, rank int, value string) bool {
	if rank <= RankThird {
		return number == value
	}
	return strings.HasSuffix(number, value)
}
