// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pathindex

import (
	"github.com/RoaringBitmap/roaring"
	"golang.org/x/exp/constraints"
)

func newNeighborSets(n int) []*roaring.Bitmap {
	sets := make([]*roaring.Bitmap, n)
	for i := range sets {
		sets[i] = roaring.NewBitmap()
	}
	return sets
}

func neighborSet(pi PathIndex, elem int) *roaring.Bitmap {
	set := roaring.NewBitmap()
	for nbr := range pi.Neighbors(elem) {
		set.Add(uint32(nbr))
	}
	return set
}

// pack converts per-element neighbor sets into a segmented index.
// Bitmaps iterate in ascending order, so every segment is sorted and unique.
func pack(sets []*roaring.Bitmap) *SegmentedIndex {
	start := make([]int, len(sets)+1)
	total := 0
	for i, set := range sets {
		total += int(set.GetCardinality())
		start[i+1] = total
	}
	nbrs := make([]int, 0, total)
	for _, set := range sets {
		nbrs = append(nbrs, widen(set.ToArray())...)
	}
	return &SegmentedIndex{neighborStart: start, neighbors: nbrs}
}

func widen[T constraints.Integer](vals []T) []int {
	ints := make([]int, len(vals))
	for i, v := range vals {
		ints[i] = int(v)
	}
	return ints
}

// intersect keeps the neighbors shared by both indices.
func intersect(lhs, rhs PathIndex, numElements int) []*roaring.Bitmap {
	sets := make([]*roaring.Bitmap, numElements)
	for elem := range sets {
		sets[elem] = roaring.And(neighborSet(lhs, elem), neighborSet(rhs, elem))
	}
	return sets
}

// union keeps the neighbors of either index.
func union(lhs, rhs PathIndex, numElements int) []*roaring.Bitmap {
	sets := make([]*roaring.Bitmap, numElements)
	for elem := range sets {
		sets[elem] = roaring.Or(neighborSet(lhs, elem), neighborSet(rhs, elem))
	}
	return sets
}

// join relates a source element to a sink element when both are
// related to a common element of the quantified variable.
func join(sourceToQuantified, quantifiedToSink PathIndex, numSinks int) []*roaring.Bitmap {
	sets := newNeighborSets(sourceToQuantified.NumElements())
	for src, set := range sets {
		for q := range sourceToQuantified.Neighbors(src) {
			for sink := range quantifiedToSink.Neighbors(q) {
				set.Add(uint32(sink))
			}
		}
	}
	return sets
}

// closure relates every source element with at least one quantified neighbor
// to every sink element. All source elements are also related to every sink
// element reachable from the quantified variable.
func closure(sourceToQuantified, quantifiedToSink PathIndex, numSinks int) []*roaring.Bitmap {
	reachable := roaring.NewBitmap()
	for q := 0; q < quantifiedToSink.NumElements(); q++ {
		for sink := range quantifiedToSink.Neighbors(q) {
			reachable.Add(uint32(sink))
		}
	}
	sets := newNeighborSets(sourceToQuantified.NumElements())
	for src, set := range sets {
		if sourceToQuantified.NumNeighborsOf(src) > 0 {
			set.AddRange(0, uint64(numSinks))
		}
		set.Or(reachable)
	}
	return sets
}
