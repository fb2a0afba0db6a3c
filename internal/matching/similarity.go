package matching

import (
	"sort"
	"strings"
	"unicode"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// TokenSetSimilarity compares two strings by their word sets, so token order
// and repetition do not matter: "ACME Corp Ltd" vs "Ltd ACME Corp" scores 1.
// It follows the token-set scheme: score the shared-token core against each
// side's full token string and take the best, using normalized Levenshtein
// as the base ratio.
func TokenSetSimilarity(a, b string) float64 {
	ta := tokenize(a)
	tb := tokenize(b)

	if len(ta) == 0 && len(tb) == 0 {
		return 1
	}

	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared, onlyA, onlyB := splitTokens(ta, tb)

	core := strings.Join(shared, " ")
	full1 := strings.TrimSpace(core + " " + strings.Join(onlyA, " "))
	full2 := strings.TrimSpace(core + " " + strings.Join(onlyB, " "))

	lev := metrics.NewLevenshtein()

	best := strutil.Similarity(full1, full2, lev)

	if core != "" {
		if s := strutil.Similarity(core, full1, lev); s > best {
			best = s
		}

		if s := strutil.Similarity(core, full2, lev); s > best {
			best = s
		}
	}

	return best
}

// tokenize lowercases, strips punctuation and returns the sorted unique
// tokens of s.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})

	seen := make(map[string]struct{}, len(fields))

	var out []string

	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}

		seen[f] = struct{}{}

		out = append(out, f)
	}

	sort.Strings(out)

	return out
}

// splitTokens partitions two sorted token slices into shared and exclusive
// parts.
func splitTokens(a, b []string) (shared, onlyA, onlyB []string) {
	inB := make(map[string]struct{}, len(b))
	for _, t := range b {
		inB[t] = struct{}{}
	}

	inA := make(map[string]struct{}, len(a))
	for _, t := range a {
		inA[t] = struct{}{}
	}

	for _, t := range a {
		if _, ok := inB[t]; ok {
			shared = append(shared, t)
		} else {
			onlyA = append(onlyA, t)
		}
	}

	for _, t := range b {
		if _, ok := inA[t]; !ok {
			onlyB = append(onlyB, t)
		}
	}

	return shared, onlyA, onlyB
}
