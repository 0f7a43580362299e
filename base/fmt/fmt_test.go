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

package fmt_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	meshfmt "github.com/gx-org/meshc/base/fmt"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		txt  string
		want string
	}{
		{
			txt: `
for i in 0:4
y[i] = x[i]
`,
			want: `
1 for i in 0:4
2 y[i] = x[i]
`,
		},
		{
			txt: `
l1
l2
l3
l4
l5
l6
l7
l8
l9
l10
`,
			want: `
01 l1
02 l2
03 l3
04 l4
05 l5
06 l6
07 l7
08 l8
09 l9
10 l10
`,
		},
	}
	for _, test := range tests {
		got := meshfmt.Number(strings.TrimSpace(test.txt))
		want := strings.TrimSpace(test.want)
		if got != want {
			t.Errorf("got:\n%s\nbut want:\n%s\ndiff:\n%s", got, want, cmp.Diff(got, want))
		}
	}
}

func TestIndent(t *testing.T) {
	got := meshfmt.IndentSkip(1, "for i in 0:2\ny = x\n\nz = y\n")
	want := "for i in 0:2\n\ty = x\n\n\tz = y\n"
	if got != want {
		t.Errorf("got:\n%q\nbut want:\n%q", got, want)
	}
}
