package search

import "github.com/matst80/killu-finder/pkg/types"

// ReorderForDisplay places the best result in the center slot and the
// runners-up to its left and right. Results past the third are ignored.
func ReorderForDisplay(results types.ResultSet) types.Slots {
	var slots types.Slots
	at := func(i int) types.Slot {
		if i < len(results) {
			p := results[i]
			return &p
		}
		return nil
	}
	slots[0] = at(1)
	slots[1] = at(0)
	slots[2] = at(2)
	return slots
}
