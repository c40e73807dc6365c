// Copyright (c) 2025 Hextract
// Licensed under the MIT License. See LICENSE file in the project root for details.

package scheduler

import (
	"sort"

	"hextract/cli/internal/model"
)

// SortByPriority returns a copy of specs ordered high, medium, low. Catalog
// order is kept within a tier.
func SortByPriority(specs []model.CommandSpec) []model.CommandSpec {
	out := make([]model.CommandSpec, len(specs))
	copy(out, specs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority.Rank() > out[j].Priority.Rank()
	})
	return out
}

// Plan sorts specs by priority and cuts them into consecutive batches of size.
func Plan(specs []model.CommandSpec, size int) [][]model.CommandSpec {
	if size <= 0 {
		size = DefaultBatchSize
	}
	sorted := SortByPriority(specs)
	batches := make([][]model.CommandSpec, 0, (len(sorted)+size-1)/size)
	for start := 0; start < len(sorted); start += size {
		end := start + size
		if end > len(sorted) {
			end = len(sorted)
		}
		batches = append(batches, sorted[start:end])
	}
	return batches
}
