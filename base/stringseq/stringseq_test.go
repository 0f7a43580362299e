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


package stringseq_test

import (
	"slices"
	"testing"

	"github.com/gx-org/meshc/base/stringseq"
	"github.com/gx-org/meshc/build/graph"
)

func TestJoin(t *testing.T) {
	points := graph.NewSet("points", 2)
	cells := graph.NewSet("cells", 1)
	tests := []struct {
		got, want string
	}{
		{got: stringseq.Join(slices.Values([]string{"a", "b"}), ", "), want: "a, b"},
		{got: stringseq.Join(slices.Values([]string{}), ", "), want: ""},
		{got: stringseq.JoinInts(slices.Values([]int{0, 1, 2}), " "), want: "0 1 2"},
		{got: stringseq.JoinStringer(slices.Values([]*graph.Set{points, cells}), "*"), want: "points{2}*cells{1}"},
	}
	for i, test := range tests {
		if test.got != test.want {
			t.Errorf("test %d: got %q but want %q", i, test.got, test.want)
		}
	}
}
