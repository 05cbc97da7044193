package lotto

// SampleResults draws the winning values for every rank from the given pool
// of ticket numbers.
//
// Ranks 1, 2 and 3 are sampled without replacement against each other, and a
// fourth distinct number is sampled whose last two digits become the rank-5
// suffix. Rank 4 is not sampled at all: it is the last three digits of the
// rank-1 number. Distinctness only applies among this draw's picks; the
// derived suffixes may still coincide with other tickets, which is what
// drives suffix matching.
//
// When the pool holds fewer numbers than the four picks, sampling degrades
// to with-replacement so small pools can still be drawn.
func SampleResults(src Source, numbers []string) (map[int]string, error) {
	if len(numbers) == 0 {
		return nil, ErrEmptyPool
	}

	picks := samplePicks(src, numbers, 4)

	return map[int]string{
		RankFirst:  picks[0],
		RankSecond: picks[1],
		RankThird:  picks[2],
		RankLast3:  picks[0][len(picks[0])-3:],
		RankLast2:  picks[3][len(picks[3])-2:],
	}, nil
}

// samplePicks selects n values from pool, without replacement when the pool
// is large enough.
func samplePicks(src Source, pool []string, n int) []string {
	if len(pool) < n {
		picks := make([]string, n)
		for i := range picks {
			picks[i] = pool[src.Intn(len(pool))]
		}
		return picks
	}

	remaining := make([]string, len(pool))
	copy(remaining, pool)
	picks := make([]string, 0, n)
	for len(picks) < n {
		i := src.Intn(len(remaining))
		picks = append(picks, remaining[i])
		remaining[i] = remaining[len(remaining)-1]
		remaining = remaining[:len(remaining)-1]
	}
	return picks
}
