// Package scoring rates candidates for relevance and buying intent. A
// heuristic path always runs; a text-generation path refines it when
// available, and Merge combines the two field by field.
package scoring

import (
	"sort"

	"github.com/sells-group/prospect-cli/internal/geo"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/refdata"
	"github.com/sells-group/prospect-cli/internal/textnorm"
)

// noiseMinCandidates is how many candidates must share a noise word before
// it becomes a negative keyword.
const noiseMinCandidates = 3

// BuildNegatives returns the run's negative keywords, sorted: the intent's
// declared negatives, the vendor negatives unless the run looks for
// vendors, and noise-vocabulary words that at least three candidates share.
// The result is shared read-only for the rest of the run.
func BuildNegatives(in model.Intent, cands []model.Candidate, objective model.Objective, data *refdata.Data) []string {
	set := make(map[string]struct{})
	add := func(items []string) {
		for _, it := range textnorm.DedupeList(items, 0, 0) {
			set[it] = struct{}{}
		}
	}

	add(in.NegativeLexicon.All())
	if objective == model.ObjectiveBuyers || objective == "" {
		add(data.AllLanguages().VendorNegatives)
	}

	counts := make(map[string]int)
	for _, c := range cands {
		for _, w := range geo.Matches(c.Text(), data.Noise.Vocabulary) {
			counts[w]++
		}
	}
	for w, n := range counts {
		if n >= noiseMinCandidates {
			set[w] = struct{}{}
		}
	}

	out := make([]string, 0, len(set))
	for w := range set {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}
