package lotto

import "strconv"

// GenerateNumbers produces count distinct 6-digit numbers drawn uniformly
// from [100000, 999999]. Uniqueness holds within the returned batch only;
// callers that need global uniqueness must check against existing tickets.
func GenerateNumbers(src Source, count int) ([]string, error) {
	if count <= 0 {
		return nil, ErrInvalidCount
	}
	if count > NumberSpan {
		return nil, ErrSpaceExhausted
	}

	seen := make(map[string]struct{}, count)
	numbers := make([]string, 0, count)
	for len(numbers) < count {
		n := strconv.Itoa(NumberMin + src.Intn(NumberSpan))
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		numbers = append(numbers, n)
	}
	return numbers, nil
}
