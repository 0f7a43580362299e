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
	"sync"

	"github.com/gx-org/meshc/build/pathexpr"
)

// SyncBuilder is a builder safe for concurrent use.
type SyncBuilder struct {
	mut     sync.Mutex
	builder *Builder
}

var _ Source = (*SyncBuilder)(nil)

// NewSyncBuilder returns a builder that can be shared between goroutines.
func NewSyncBuilder(opts ...Option) *SyncBuilder {
	return &SyncBuilder{builder: NewBuilder(opts...)}
}

// BuildSegmented builds the index of a path expression.
func (b *SyncBuilder) BuildSegmented(pe pathexpr.Expr, sourceEndpoint int) (PathIndex, error) {
	b.mut.Lock()
	defer b.mut.Unlock()
	return b.builder.BuildSegmented(pe, sourceEndpoint)
}

// Len returns the number of memoized indices.
func (b *SyncBuilder) Len() int {
	b.mut.Lock()
	defer b.mut.Unlock()
	return b.builder.Len()
}
