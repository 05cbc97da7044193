package lotto

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"lotto-market/internal/model"
)

func ticketsFor(numbers ...string) []model.Ticket {
	tickets := make([]model.Ticket, len(numbers))
	for i, n := range numbers {
		tickets[i] = model.Ticket{ID: int64(i + 1), Number: n}
	}
	return tickets
}

func matchedNumbers(tickets []model.Ticket) []string {
	var numbers []string
	for _, t := range tickets {
		numbers = append(numbers, t.Number)
	}
	return numbers
}

// TestMatch tests tier matching: exact for ranks 1-3, suffix for ranks 4-5.
func TestMatch(t *testing.T) {
	pool := ticketsFor("111222", "333111", "444555")

	tests := []struct {
		name    string
		rank    int
		value   string
		matched []string
	}{
		{"rank 1 exact match", RankFirst, "111222", []string{"111222"}},
		{"rank 2 exact match", RankSecond, "333111", []string{"333111"}},
		{"rank 3 no match", RankThird, "999999", nil},
		{"rank 3 no partial match", RankThird, "111", nil},
		{"rank 4 suffix match", RankLast3, "222", []string{"111222"}},
		{"rank 4 suffix matches full set", RankLast3, "111", []string{"333111"}},
		{"rank 5 suffix match", RankLast2, "55", []string{"444555"}},
		{"rank 5 suffix multiple", RankLast2, "22", []string{"111222"}},
		{"rank 5 no match", RankLast2, "77", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched := Match(pool, tt.rank, tt.value)
			assert.Equal(t, tt.matched, matchedNumbers(matched))
		})
	}
}

// TestMatchMultipleRanks verifies that one ticket can appear in several
// ranks' match sets: rank sets are independent and never deduplicated.
func TestMatchMultipleRanks(t *testing.T) {
	pool := ticketsFor("444555", "123455")

	rank4 := Match(pool, RankLast3, "555")
	rank5 := Match(pool, RankLast2, "55")

	assert.Equal(t, []string{"444555"}, matchedNumbers(rank4))
	assert.Equal(t, []string{"444555", "123455"}, matchedNumbers(rank5))
}

// TestMatchEmptyPool verifies matching an empty snapshot yields no winners.
func TestMatchEmptyPool(t *testing.T) {
	assert.Empty(t, Match(nil, RankFirst, "123456"))
}

// TestAmounts verifies the fixed prize table.
func TestAmounts(t *testing.T) {
	expected := map[int]int64{1: 10000, 2: 5000, 3: 3000, 4: 500, 5: 200}
	assert.Equal(t, expected, Amounts)

	for rank, want := range expected {
		amount, ok := Amount(rank)
		assert.True(t, ok)
		assert.Equal(t, want, amount)
	}

	_, ok := Amount(6)
	assert.False(t, ok)
}
