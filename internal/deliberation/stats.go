package deliberation

import (
	"sort"

	"github.com/boundou-sig/deliblist/internal/columns"
	"github.com/boundou-sig/deliblist/internal/normalize"
	"github.com/boundou-sig/deliblist/internal/validation"
)

// Count is a labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats are the summary figures printed after a run.
type Stats struct {
	Records   int `json:"records"`
	Claimants int `json:"claimants"`

	// TotalArea sums the area cells that parse as numbers; AreaCells is how
	// many did.
	TotalArea float64 `json:"total_area"`
	AreaCells int     `json:"area_cells"`

	Villages     []Count `json:"villages"`
	LandUseTypes []Count `json:"land_use_types"`

	// ClaimantsPerParcel maps a claimant count to the number of parcels
	// with that many claimants. Collective runs only.
	ClaimantsPerParcel map[int]int `json:"claimants_per_parcel,omitempty"`
}

// Summarize computes Stats over the records of a result.
func Summarize(result *Result) Stats {
	stats := Stats{}
	if result == nil {
		return stats
	}

	villages := make(map[string]int)
	useTypes := make(map[string]int)

	for _, record := range result.Records() {
		stats.Records++

		if v := record.Value(columns.Village); !normalize.IsMissing(v) {
			villages[v]++
		}
		if v := record.Value(columns.LandUseType); !normalize.IsMissing(v) {
			useTypes[v]++
		}
		if area, ok := validation.ParseDecimal(record.Value(columns.Area)); ok {
			stats.TotalArea += area
			stats.AreaCells++
		}
	}

	if len(result.Parcels) > 0 {
		stats.ClaimantsPerParcel = make(map[int]int)
		for _, p := range result.Parcels {
			stats.Claimants += p.Claimants
			stats.ClaimantsPerParcel[p.Claimants]++
		}
	} else {
		stats.Claimants = len(result.Individuals)
	}

	stats.Villages = sortedCounts(villages)
	stats.LandUseTypes = sortedCounts(useTypes)
	return stats
}

// sortedCounts orders by count descending, then label.
func sortedCounts(m map[string]int) []Count {
	out := make([]Count, 0, len(m))
	for label, n := range m {
		out = append(out, Count{Label: label, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	return out
}
