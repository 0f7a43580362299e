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
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/pathexpr"
	"go.uber.org/zap"
)

type (
	// Source builds path indices.
	Source interface {
		BuildSegmented(pe pathexpr.Expr, sourceEndpoint int) (PathIndex, error)
	}

	cacheKey struct {
		hash     uint64
		endpoint int
	}

	cacheEntry struct {
		expr  pathexpr.Expr
		index PathIndex
	}

	// Builder evaluates path expressions into path indices.
	// Indices are memoized for the lifetime of the builder:
	// building the same expression from the same endpoint twice
	// returns the same index.
	//
	// A builder must not be used by more than one goroutine at a time.
	// See SyncBuilder.
	Builder struct {
		log   *zap.Logger
		cache map[cacheKey][]cacheEntry
		size  int
	}

	// Option configures a builder.
	Option func(*Builder)
)

var _ Source = (*Builder)(nil)

// WithLogger sets the logger of the builder.
func WithLogger(log *zap.Logger) Option {
	return func(b *Builder) {
		b.log = log.With(zap.String("service", "pathindex"))
	}
}

// NewBuilder returns a builder with an empty cache.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		log:   zap.NewNop(),
		cache: make(map[cacheKey][]cacheEntry),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Len returns the number of indices memoized by the builder.
func (b *Builder) Len() int {
	return b.size
}

func (b *Builder) lookup(key cacheKey, pe pathexpr.Expr) (PathIndex, bool) {
	for _, entry := range b.cache[key] {
		if pathexpr.Equal(entry.expr, pe) {
			return entry.index, true
		}
	}
	return nil, false
}

// BuildSegmented builds the index of a path expression. The index relates
// the elements of the free variable at position sourceEndpoint to the
// elements of the other free variable.
//
// All the variables of the expression must be bound.
func (b *Builder) BuildSegmented(pe pathexpr.Expr, sourceEndpoint int) (PathIndex, error) {
	if !pathexpr.IsBound(pe) {
		return nil, fmterr.Internalf("attempting to build an index from a path expression (%s) that is not bound to sets", pe)
	}
	if sourceEndpoint < 0 || sourceEndpoint >= len(pe.Endpoints()) {
		return nil, fmterr.Internalf("source endpoint %d out of range for path expression %s with %d endpoints", sourceEndpoint, pe, len(pe.Endpoints()))
	}
	key := cacheKey{hash: pathexpr.Hash(pe), endpoint: sourceEndpoint}
	if pi, ok := b.lookup(key, pe); ok {
		b.log.Debug("path index cache hit", zap.Stringer("expr", pe), zap.Int("endpoint", sourceEndpoint))
		return pi, nil
	}
	pi, err := b.build(pe, sourceEndpoint)
	if err != nil {
		return nil, err
	}
	b.cache[key] = append(b.cache[key], cacheEntry{expr: pe, index: pi})
	b.size++
	b.log.Debug("path index built",
		zap.Stringer("expr", pe),
		zap.Int("endpoint", sourceEndpoint),
		zap.Int("elements", pi.NumElements()),
		zap.Int("neighbors", pi.NumNeighbors()))
	return pi, nil
}

func (b *Builder) build(pe pathexpr.Expr, sourceEndpoint int) (PathIndex, error) {
	switch peT := pe.(type) {
	case *pathexpr.Link:
		return b.buildLink(peT, sourceEndpoint)
	case *pathexpr.And:
		return b.buildBinary(peT, peT.Lhs(), peT.Rhs(), sourceEndpoint, intersect, join)
	case *pathexpr.Or:
		return b.buildBinary(peT, peT.Lhs(), peT.Rhs(), sourceEndpoint, union, closure)
	}
	return nil, fmterr.Internalf("path expression type %T not supported", pe)
}

func (b *Builder) buildLink(link *pathexpr.Link, sourceEndpoint int) (PathIndex, error) {
	edges := link.EdgeBinding()
	if !edges.IsEdgeSet() {
		return nil, fmterr.Internalf("%s is not an edge set in %s", edges.Name(), link)
	}
	vertices := link.VertexBinding()
	sourceIsEdge := (link.Type() == pathexpr.EV) == (sourceEndpoint == 0)
	if !sourceIsEdge {
		return incidence(vertices, edges)
	}
	if edges.EndpointSets()[0] != vertices {
		return nil, fmterr.Internalf("edge set %s does not reference %s in %s", edges, vertices.Name(), link)
	}
	ei, err := NewEndpointIndex(edges)
	if err != nil {
		return nil, fmterr.Internal(err)
	}
	return ei, nil
}

// incidence builds, for every vertex, the list of edges referencing the vertex.
func incidence(vertices, edges *graph.Set) (PathIndex, error) {
	var slots []int
	for slot, epSet := range edges.EndpointSets() {
		if epSet == vertices {
			slots = append(slots, slot)
		}
	}
	if len(slots) == 0 {
		return nil, fmterr.Internalf("edge set %s does not reference %s", edges, vertices.Name())
	}
	nbrs := newNeighborSets(vertices.Size())
	for e := range edges.Elements() {
		for _, slot := range slots {
			nbrs[edges.Endpoint(e, slot)].Add(uint32(e))
		}
	}
	return pack(nbrs), nil
}

type (
	// combineFunc combines the neighbors of two indices relating the same pair of variables.
	combineFunc func(lhs, rhs PathIndex, numElements int) []*roaring.Bitmap
	// composeFunc composes an index from a source to a quantified variable
	// with an index from the quantified variable to a sink.
	composeFunc func(sourceToQuantified, quantifiedToSink PathIndex, numSinks int) []*roaring.Bitmap
)

type binaryExpr interface {
	pathexpr.Expr
	IsQuantified() bool
}

func (b *Builder) buildBinary(pe binaryExpr, lhs, rhs pathexpr.Expr, sourceEndpoint int, combine combineFunc, compose composeFunc) (PathIndex, error) {
	free := pe.Endpoints()
	if len(free) != 2 {
		return nil, fmterr.Unsupported("path expression %s has %d free variables: only matrix path expressions (2 free variables) are supported", pe, len(free))
	}
	if quantified := pe.Quantified(); len(quantified) > 1 {
		return nil, fmterr.Unsupported("path expression %s quantifies %d variables: only one quantified variable is supported", pe, len(quantified))
	}
	for _, operand := range []pathexpr.Expr{lhs, rhs} {
		if n := len(operand.Endpoints()); n != 2 {
			return nil, fmterr.Unsupported("operand %s of %s has %d free variables: only binary operands are supported", operand, pe, n)
		}
	}
	source, sink := free[sourceEndpoint], free[1-sourceEndpoint]
	numElements := pathexpr.Binding(pe, source).Size()
	if !pe.IsQuantified() {
		lhsIndex, err := b.buildOperand(lhs, source, sink)
		if err != nil {
			return nil, err
		}
		rhsIndex, err := b.buildOperand(rhs, source, sink)
		if err != nil {
			return nil, err
		}
		return pack(combine(lhsIndex, rhsIndex, numElements)), nil
	}
	sourceToQuantified, quantifiedToSink, err := b.buildQuantified(pe, lhs, rhs, source, sink)
	if err != nil {
		return nil, err
	}
	numSinks := pathexpr.Binding(pe, sink).Size()
	return pack(compose(sourceToQuantified, quantifiedToSink, numSinks)), nil
}

// buildOperand builds the index of an operand from the source to the sink variable.
func (b *Builder) buildOperand(operand pathexpr.Expr, source, sink pathexpr.Var) (PathIndex, error) {
	ep := pathexpr.EndpointOf(operand, source)
	if ep < 0 {
		return nil, fmterr.Internalf("source variable %s is not in the path expression %s", source, operand)
	}
	if pathexpr.EndpointOf(operand, sink) < 0 {
		return nil, fmterr.Internalf("sink variable %s is not in the path expression %s", sink, operand)
	}
	return b.BuildSegmented(operand, ep)
}

// buildQuantified builds the indices from the source to the quantified variable
// and from the quantified variable to the sink.
func (b *Builder) buildQuantified(pe pathexpr.Expr, lhs, rhs pathexpr.Expr, source, sink pathexpr.Var) (PathIndex, PathIndex, error) {
	qvar := pe.Quantified()[0]
	locs := pathexpr.Locations(lhs, rhs)
	if n := len(locs[qvar.Name]); n != 2 {
		return nil, nil, fmterr.Unsupported("quantified variable %s appears %d times in %s: it must be used once by each operand", qvar.Name, n, pe)
	}
	sourceLocs, sinkLocs := locs[source.Name], locs[sink.Name]
	if len(sourceLocs) != 1 || len(sinkLocs) != 1 || sourceLocs[0].Expr == sinkLocs[0].Expr {
		return nil, nil, fmterr.Unsupported("each operand of %s must link one free variable to the quantified variable %s", pe, qvar.Name)
	}
	sourceLoc, sinkLoc := sourceLocs[0], sinkLocs[0]
	sourceToQuantified, err := b.BuildSegmented(sourceLoc.Expr, sourceLoc.Endpoint)
	if err != nil {
		return nil, nil, err
	}
	quantifiedToSink, err := b.BuildSegmented(sinkLoc.Expr, 1-sinkLoc.Endpoint)
	if err != nil {
		return nil, nil, err
	}
	return sourceToQuantified, quantifiedToSink, nil
}
