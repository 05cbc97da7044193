// Package lotto implements the pure draw logic of the lottery marketplace:
// ticket number generation, winning-number sampling, and tier matching.
// Nothing in this package touches storage.
package lotto

import (
	"errors"
	"math/rand"
	"time"
)

// Prize ranks. Ranks 1-3 match on the full number, rank 4 on the last three
// digits, rank 5 on the last two.
const (
	RankFirst  = 1
	RankSecond = 2
	RankThird  = 3
	RankLast3  = 4
	RankLast2  = 5
)

// Ticket number space: 6-digit strings.
const (
	NumberMin  = 100000
	NumberSpan = 900000
)

// Errors for number generation and sampling.
var (
	ErrInvalidCount   = errors.New("count must be positive")
	ErrSpaceExhausted = errors.New("count exceeds the 6-digit number space")
	ErrEmptyPool      = errors.New("no numbers to draw from")
)

// Amounts is the fixed prize table, keyed by rank.
var Amounts = map[int]int64{
	RankFirst:  10000,
	RankSecond: 5000,
	RankThird:  3000,
	RankLast3:  500,
	RankLast2:  200,
}

// Ranks returns all prize ranks in ascending order.
func Ranks() []int {
	return []int{RankFirst, RankSecond, RankThird, RankLast3, RankLast2}
}

// Amount returns the fixed prize amount for a rank.
func Amount(rank int) (int64, bool) {
	amount, ok := Amounts[rank]
	return amount, ok
}

// Source is the randomness a draw consumes. Tests substitute a deterministic
// implementation to pin down exact winner sets.
type Source interface {
	// Intn returns a non-negative value below n. Panics if n <= 0.
	Intn(n int) int
}

// NewSource returns a time-seeded Source backed by math/rand.
func NewSource() Source {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}
