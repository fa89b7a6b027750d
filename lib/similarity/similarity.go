// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package similarity scores how alike two short strings are, for
// "did you mean" recovery on mistyped command names.
//
// The score is the Ratcliff/Obershelp gestalt ratio: find the longest
// common substring, recurse on the unmatched text to its left and right,
// and report 2*M/T where M is the total matched length and T the sum of
// both lengths. Results match Python's difflib.SequenceMatcher.ratio()
// with no junk heuristic, so thresholds tuned against that
// implementation carry over unchanged.
package similarity

// Ratio returns the similarity of a and b in [0, 1]. Two empty strings
// are identical (1.0). Comparison is by rune and case-sensitive.
func Ratio(a, b string) float64 {
	left, right := []rune(a), []rune(b)
	total := len(left) + len(right)
	if total == 0 {
		return 1
	}
	return 2 * float64(matched(left, right)) / float64(total)
}

// Closest returns the candidate with the highest Ratio against input
// and that ratio. On equal scores the earlier candidate wins. ok is
// false when candidates is empty.
func Closest(input string, candidates []string) (best string, score float64, ok bool) {
	for _, candidate := range candidates {
		ratio := Ratio(input, candidate)
		if !ok || ratio > score {
			best, score, ok = candidate, ratio, true
		}
	}
	return best, score, ok
}

// matched returns the total length of the matching blocks of a and b.
func matched(a, b []rune) int {
	type span struct{ alo, ahi, blo, bhi int }

	total := 0
	pending := []span{{0, len(a), 0, len(b)}}
	for len(pending) > 0 {
		current := pending[len(pending)-1]
		pending = pending[:len(pending)-1]

		i, j, size := longestMatch(a, b, current.alo, current.ahi, current.blo, current.bhi)
		if size == 0 {
			continue
		}
		total += size
		if current.alo < i && current.blo < j {
			pending = append(pending, span{current.alo, i, current.blo, j})
		}
		if i+size < current.ahi && j+size < current.bhi {
			pending = append(pending, span{i + size, current.ahi, j + size, current.bhi})
		}
	}
	return total
}

// longestMatch finds the longest block a[i:i+size] == b[j:j+size]
// within the given bounds. Among blocks of maximal size it returns the
// one that ends earliest in a, then earliest in b.
func longestMatch(a, b []rune, alo, ahi, blo, bhi int) (bestI, bestJ, bestSize int) {
	bestI, bestJ = alo, blo

	// lengths[j+1] is the length of the common suffix ending at
	// a[i-1], b[j] from the previous row.
	lengths := make([]int, bhi-blo+1)
	next := make([]int, bhi-blo+1)
	for i := alo; i < ahi; i++ {
		for j := blo; j < bhi; j++ {
			offset := j - blo + 1
			if a[i] != b[j] {
				next[offset] = 0
				continue
			}
			k := lengths[offset-1] + 1
			next[offset] = k
			if k > bestSize {
				bestI, bestJ, bestSize = i-k+1, j-k+1, k
			}
		}
		lengths, next = next, lengths
	}
	return bestI, bestJ, bestSize
}
