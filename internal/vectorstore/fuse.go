package vectorstore

import "sort"

// DefaultRRFK is the reciprocal-rank-fusion constant used when callers
// don't specify one. The spec's open questions name k=60 as the
// implementation default.
const DefaultRRFK = 60

// FuseRRF combines multiple per-query result lists into a single ranked
// list using reciprocal rank fusion: each item's fused score is the sum,
// across every list it appears in, of 1/(k+rank), rank being its 1-based
// position in that list. Items are deduplicated by ID; the first
// occurrence's Text/Metadata/Citation are kept.
func FuseRRF(resultLists [][]Result, k int) []Result {
	if k <= 0 {
		k = DefaultRRFK
	}

	type fused struct {
		result Result
		score  float64
		first  int
	}

	byID := make(map[string]*fused)
	var order int
	for _, list := range resultLists {
		for rank, r := range list {
			f, ok := byID[r.ID]
			if !ok {
				f = &fused{result: r, first: order}
				byID[r.ID] = f
				order++
			}
			f.score += 1.0 / float64(k+rank+1)
		}
	}

	out := make([]fused, 0, len(byID))
	for _, f := range byID {
		out = append(out, *f)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].first < out[j].first
	})

	results := make([]Result, len(out))
	for i, f := range out {
		r := f.result
		r.Score = float32(f.score)
		results[i] = r
	}
	return results
}
