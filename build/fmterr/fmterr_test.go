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

package fmterr_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gx-org/meshc/build/fmterr"
)

func TestClasses(t *testing.T) {
	internal := fmterr.Internalf("path expression %s is not bound", "ve(v,e)")
	unsupported := fmterr.Unsupported("tensor of order %d", 3)
	tests := []struct {
		err                   error
		internal, unsupported bool
	}{
		{err: internal, internal: true},
		{err: unsupported, unsupported: true},
		{err: fmterr.PrefixWith("lowering %s: ", "f")(internal), internal: true},
		{err: fmterr.PrefixWith("lowering %s: ", "f")(unsupported), unsupported: true},
		{err: fmt.Errorf("plain error")},
	}
	for i, test := range tests {
		if got := fmterr.IsInternal(test.err); got != test.internal {
			t.Errorf("test %d: IsInternal(%v) = %v but want %v", i, test.err, got, test.internal)
		}
		if got := fmterr.IsUnsupported(test.err); got != test.unsupported {
			t.Errorf("test %d: IsUnsupported(%v) = %v but want %v", i, test.err, got, test.unsupported)
		}
	}
}

func TestInternalStackTrace(t *testing.T) {
	err := fmterr.Internalf("malformed statement")
	verbose := fmt.Sprintf("%+v", err)
	if !strings.Contains(verbose, "Error generated at:") {
		t.Errorf("verbose formatting does not include a stack trace:\n%s", verbose)
	}
	if short := fmt.Sprintf("%v", err); strings.Contains(short, "Error generated at:") {
		t.Errorf("short formatting includes a stack trace:\n%s", short)
	}
	if got := fmterr.Internal(nil); got != nil {
		t.Errorf("Internal(nil) = %v but want nil", got)
	}
}
