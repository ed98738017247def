package dataset

// Levenshtein returns the edit distance between two strings.
func Levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) > len(rb) {
		ra, rb = rb, ra
	}

	current := make([]int, len(ra)+1)
	for j := range current {
		current[j] = j
	}
	for i := 1; i <= len(rb); i++ {
		previous := current
		current = make([]int, len(ra)+1)
		current[0] = i
		for j := 1; j <= len(ra); j++ {
			add, del, change := previous[j]+1, current[j-1]+1, previous[j-1]
			if ra[j-1] != rb[i-1] {
				change++
			}
			current[j] = min(add, del, change)
		}
	}
	return current[len(ra)]
}

// Similarity converts edit distance to a 0..1 ratio over the longer string.
func Similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}
	la, lb := len([]rune(a)), len([]rune(b))
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// TypoVariants returns deterministic misspellings of a phrase: an adjacent
// transposition, a dropped character and a doubled character, all applied
// near the middle so the phrase stays recognizable.
func TypoVariants(s string) []string {
	runes := []rune(s)
	if len(runes) < 3 {
		return []string{s}
	}

	mid := len(runes) / 2
	if runes[mid] == ' ' {
		mid++
	}

	swap := make([]rune, len(runes))
	copy(swap, runes)
	i := swapIndex(swap)
	swap[i], swap[i+1] = swap[i+1], swap[i]

	drop := make([]rune, 0, len(runes)-1)
	drop = append(drop, runes[:mid]...)
	drop = append(drop, runes[mid+1:]...)

	double := make([]rune, 0, len(runes)+1)
	double = append(double, runes[:mid+1]...)
	double = append(double, runes[mid:]...)

	return []string{string(swap), string(drop), string(double)}
}

// swapIndex finds the first adjacent letter pair past the start.
func swapIndex(runes []rune) int {
	for i := 1; i < len(runes)-1; i++ {
		if runes[i] != ' ' && runes[i+1] != ' ' {
			return i
		}
	}
	return 0
}
