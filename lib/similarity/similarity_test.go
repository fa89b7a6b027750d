// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package similarity

import (
	"math"
	"testing"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"abc", "abc", 1},
		{"abc", "xyz", 0},
		{"whitlist", "whitelist", 16.0 / 17},
		{"whitlist", "unwhitelist", 16.0 / 19},
		// difflib reference values.
		{"abcd", "bcde", 0.75},
		{"qabxcd", "abycdf", 2.0 * 4 / 12},
		{"private", "pirate", 2.0 * 5 / 13},
	}
	for _, test := range tests {
		t.Run(test.a+"/"+test.b, func(t *testing.T) {
			got := Ratio(test.a, test.b)
			if math.Abs(got-test.want) > 1e-9 {
				t.Errorf("Ratio(%q, %q) = %v, want %v", test.a, test.b, got, test.want)
			}
		})
	}
}

func TestClosest(t *testing.T) {
	commands := []string{"whitelist", "unwhitelist", "playerinfo"}

	best, score, ok := Closest("whitlist", commands)
	if !ok || best != "whitelist" {
		t.Fatalf("Closest(whitlist) = %q, %v, %v; want whitelist", best, score, ok)
	}
	if score < 0.55 {
		t.Errorf("score %v below suggestion threshold", score)
	}

	_, score, _ = Closest("xyz123", commands)
	if score >= 0.55 {
		t.Errorf("Closest(xyz123) score = %v, want < 0.55", score)
	}

	if _, _, ok := Closest("anything", nil); ok {
		t.Error("Closest with no candidates reported ok")
	}
}

func TestClosestTieGoesToFirst(t *testing.T) {
	best, _, _ := Closest("ab", []string{"abxx", "xxab", "zzzz"})
	if best != "abxx" {
		t.Errorf("tie resolved to %q, want first candidate abxx", best)
	}
}
