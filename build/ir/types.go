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

package ir

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/meshc/base/stringseq"
	"github.com/gx-org/meshc/build/graph"
	"github.com/pkg/errors"
)

// ----------------------------------------------------------------------------
// Index sets and domains.
type (
	// IndexSet is a set of integers an index variable iterates over.
	// It is either a contiguous range [0, Range) or the elements of a graph set.
	IndexSet struct {
		Range int
		Set   *graph.Set
	}

	// IndexDomain is the domain of a tensor dimension or of an index variable.
	// A domain with more than one index set is a blocked dimension and
	// its size is the product of the size of its sets.
	IndexDomain struct {
		Sets []IndexSet
	}
)

// RangeSet returns the index set [0, n).
func RangeSet(n int) IndexSet {
	return IndexSet{Range: n}
}

// ElementSet returns the index set of the elements of a graph set.
func ElementSet(s *graph.Set) IndexSet {
	return IndexSet{Set: s}
}

// IsRange returns true if the set is a contiguous range.
func (s IndexSet) IsRange() bool {
	return s.Set == nil
}

// Size returns the number of integers in the set.
func (s IndexSet) Size() int {
	if s.Set != nil {
		return s.Set.Size()
	}
	return s.Range
}

// String representation of the set.
func (s IndexSet) String() string {
	if s.Set != nil {
		return s.Set.Name()
	}
	return "0:" + strconv.Itoa(s.Range)
}

// Domain returns a domain given its index sets.
func Domain(sets ...IndexSet) IndexDomain {
	return IndexDomain{Sets: sets}
}

// Size returns the number of integers in the domain.
func (d IndexDomain) Size() int {
	size := 1
	for _, s := range d.Sets {
		size *= s.Size()
	}
	return size
}

// IsRange returns true if the domain is a single contiguous range.
func (d IndexDomain) IsRange() bool {
	return len(d.Sets) == 1 && d.Sets[0].IsRange()
}

// Equal returns true if two domains have the same index sets.
func (d IndexDomain) Equal(o IndexDomain) bool {
	if len(d.Sets) != len(o.Sets) {
		return false
	}
	for i, s := range d.Sets {
		if s != o.Sets[i] {
			return false
		}
	}
	return true
}

// String representation of the domain.
func (d IndexDomain) String() string {
	return stringseq.JoinStringer(slices.Values(d.Sets), "*")
}

func (IndexDomain) forDomain() {}

// ----------------------------------------------------------------------------
// Index variables.

// ReductionOperator combines values across the domain of a reduction variable.
type ReductionOperator int

const (
	// Sum adds values.
	Sum ReductionOperator = iota
	// Product multiplies values.
	Product
	// Min keeps the smallest value.
	Min
	// Max keeps the largest value.
	Max
)

func (op ReductionOperator) String() string {
	switch op {
	case Sum:
		return "sum"
	case Product:
		return "product"
	case Min:
		return "min"
	case Max:
		return "max"
	}
	return fmt.Sprintf("ReductionOperator(%d)", int(op))
}

// IndexVarKind is the kind of an index variable.
type IndexVarKind int

const (
	// Free variables shape the result of an index expression.
	Free IndexVarKind = iota
	// Reduction variables are combined out of the result.
	Reduction
)

// IndexVar is a variable ranging over an index domain.
type IndexVar struct {
	Name   string
	Domain IndexDomain
	Kind   IndexVarKind
	// Operator of a reduction variable.
	Operator ReductionOperator
}

// NewFree returns a free index variable.
func NewFree(name string, domain IndexDomain) *IndexVar {
	return &IndexVar{Name: name, Domain: domain, Kind: Free}
}

// NewReduction returns a reduction index variable.
func NewReduction(name string, domain IndexDomain, op ReductionOperator) *IndexVar {
	return &IndexVar{Name: name, Domain: domain, Kind: Reduction, Operator: op}
}

// IsFree returns true if the variable is a free variable.
func (v *IndexVar) IsFree() bool { return v.Kind == Free }

// IsReduction returns true if the variable is a reduction variable.
func (v *IndexVar) IsReduction() bool { return v.Kind == Reduction }

// String representation of the variable.
func (v *IndexVar) String() string {
	if v.IsReduction() {
		return v.Operator.String() + " " + v.Name
	}
	return v.Name
}

// ----------------------------------------------------------------------------
// Types.
type (
	// Type of a value.
	Type interface {
		Node
		typeNode()
		String() string
	}

	// TensorType is the type of a dense tensor.
	// A tensor with no dimension is a scalar.
	TensorType struct {
		Component dtype.DataType
		Dims      []IndexDomain
	}

	// SetType is the type of a graph set.
	SetType struct {
		Set *graph.Set
	}

	// ElementType is the type of an element of a graph set.
	ElementType struct {
		Set *graph.Set
	}
)

var (
	_ Type = (*TensorType)(nil)
	_ Type = (*SetType)(nil)
	_ Type = (*ElementType)(nil)
)

// Scalar returns the type of a scalar.
func Scalar(dt dtype.DataType) *TensorType {
	return &TensorType{Component: dt}
}

// Tensor returns the type of a tensor given its dimensions.
func Tensor(dt dtype.DataType, dims ...IndexDomain) *TensorType {
	return &TensorType{Component: dt, Dims: dims}
}

func (*TensorType) node()     {}
func (*TensorType) typeNode() {}

// Order returns the number of dimensions of the tensor.
func (t *TensorType) Order() int { return len(t.Dims) }

// IsScalar returns true if the tensor has no dimension.
func (t *TensorType) IsScalar() bool { return len(t.Dims) == 0 }

// Size returns the number of components of the tensor.
func (t *TensorType) Size() int {
	size := 1
	for _, dim := range t.Dims {
		size *= dim.Size()
	}
	return size
}

// Shape returns the dense shape of the tensor.
func (t *TensorType) Shape() *shape.Shape {
	axes := make([]int, len(t.Dims))
	for i, dim := range t.Dims {
		axes[i] = dim.Size()
	}
	return &shape.Shape{DType: t.Component, AxisLengths: axes}
}

// ElementOf returns the type of one component of the tensor.
func (t *TensorType) ElementOf() *TensorType {
	return Scalar(t.Component)
}

func (t *TensorType) String() string {
	if t.IsScalar() {
		return t.Component.String()
	}
	return "tensor[" + stringseq.JoinStringer(slices.Values(t.Dims), ",") + "](" + t.Component.String() + ")"
}

func (*SetType) node()     {}
func (*SetType) typeNode() {}

func (t *SetType) String() string {
	return "set{" + t.Set.Name() + "}"
}

func (*ElementType) node()     {}
func (*ElementType) typeNode() {}

func (t *ElementType) String() string {
	return t.Set.Name()
}

// FieldType returns the type of a field read from a set or an element.
func FieldType(typ Type, name string) (*TensorType, error) {
	var set *graph.Set
	var perElement bool
	switch typT := typ.(type) {
	case *SetType:
		set = typT.Set
	case *ElementType:
		set, perElement = typT.Set, true
	default:
		return nil, errors.Errorf("type %s has no field", typ)
	}
	field, ok := set.Field(name)
	if !ok {
		return nil, errors.Errorf("set %s has no field %s", set.Name(), name)
	}
	var dims []IndexDomain
	if !perElement {
		dims = append(dims, Domain(ElementSet(set)))
	}
	if field.Components > 1 {
		dims = append(dims, Domain(RangeSet(field.Components)))
	}
	return Tensor(field.DType, dims...), nil
}

// IsFloat returns true if the data type is a floating point type.
func IsFloat(dt dtype.DataType) bool {
	switch dt {
	case dtype.Float32, dtype.Float64, dtype.Bfloat16:
		return true
	}
	return false
}
