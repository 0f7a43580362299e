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


// Package layout describes how lowered functions exchange values with
// a native backend.
//
// Scalars are passed by value. Tensors and sets are passed by address.
// A set is passed as a struct:
//
//	{size int32, [endpoints *int32, rowStart *int32, colIdx *int32,] fields...}
//
// where the bracketed slots are only present for edge sets.
package layout

import (
	"fmt"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/ir"
)

// SlotKind is the role of a slot in a set struct.
type SlotKind int

const (
	// SizeSlot stores the number of elements in the set.
	SizeSlot SlotKind = iota
	// EndpointsSlot points to the flattened endpoints of the edges.
	EndpointsSlot
	// RowStartSlot points to the row starts of the neighbor index.
	RowStartSlot
	// ColIdxSlot points to the column indices of the neighbor index.
	ColIdxSlot
	// FieldSlot points to the values of a field.
	FieldSlot
)

func (k SlotKind) String() string {
	switch k {
	case SizeSlot:
		return "size"
	case EndpointsSlot:
		return "endpoints"
	case RowStartSlot:
		return "rowStart"
	case ColIdxSlot:
		return "colIdx"
	case FieldSlot:
		return "field"
	}
	return fmt.Sprintf("SlotKind(%d)", int(k))
}

// NumEdgeIndexSlots is the number of slots edge sets have in addition to
// the slots of vertex sets: one for the endpoints, two for the neighbor index.
const NumEdgeIndexSlots = 3

// Slot of a set struct.
type Slot struct {
	Name string
	Kind SlotKind
	// DType of the slot value or of the values the slot points to.
	DType dtype.DataType
	// Pointer is true if the slot stores the address of a buffer.
	Pointer bool
}

func (s Slot) String() string {
	if s.Pointer {
		return s.Name + " *" + s.DType.String()
	}
	return s.Name + " " + s.DType.String()
}

// SetFields returns the slots of the struct passed to the backend for a set.
func SetFields(set *graph.Set) []Slot {
	slots := []Slot{{Name: "size", Kind: SizeSlot, DType: dtype.Int32}}
	if set.IsEdgeSet() {
		slots = append(slots,
			Slot{Name: "endpoints", Kind: EndpointsSlot, DType: dtype.Int32, Pointer: true},
			Slot{Name: "rowStart", Kind: RowStartSlot, DType: dtype.Int32, Pointer: true},
			Slot{Name: "colIdx", Kind: ColIdxSlot, DType: dtype.Int32, Pointer: true},
		)
	}
	for _, field := range set.Fields() {
		slots = append(slots, Slot{Name: field.Name, Kind: FieldSlot, DType: field.DType, Pointer: true})
	}
	return slots
}

// FieldSlotIndex returns the position of a field in the struct of a set.
func FieldSlotIndex(set *graph.Set, name string) (int, error) {
	for i, slot := range SetFields(set) {
		if slot.Kind == FieldSlot && slot.Name == name {
			return i, nil
		}
	}
	return -1, fmterr.Internalf("set %s has no field %s", set.Name(), name)
}

// Passing specifies how a value is passed to the backend.
type Passing int

const (
	// ByValue passes a copy of the value.
	ByValue Passing = iota
	// ByAddress passes the address of the value.
	ByAddress
)

func (p Passing) String() string {
	if p == ByValue {
		return "value"
	}
	return "address"
}

// Param is a parameter of a backend function.
type Param struct {
	Var     *ir.Var
	Passing Passing
	// Result is true if the parameter receives a result of the function.
	Result bool
}

func (p Param) String() string {
	s := p.Var.Name + " by " + p.Passing.String()
	if p.Result {
		s += " (result)"
	}
	return s
}

// Params returns the parameters of the backend function of a lowered function.
// Arguments come first. Results follow, except results having the name of
// an argument: these share the argument parameter.
// Scalar arguments are passed by value if scalarsByValue is true.
// Results are always passed by address.
func Params(fn *ir.Func, scalarsByValue bool) ([]Param, error) {
	params := make([]Param, 0, len(fn.Params)+len(fn.Results))
	names := make(map[string]bool)
	for _, arg := range fn.Params {
		passing, err := argPassing(arg, scalarsByValue)
		if err != nil {
			return nil, err
		}
		names[arg.Name] = true
		params = append(params, Param{Var: arg, Passing: passing})
	}
	for _, res := range fn.Results {
		if names[res.Name] {
			continue
		}
		if _, err := argPassing(res, false); err != nil {
			return nil, err
		}
		params = append(params, Param{Var: res, Passing: ByAddress, Result: true})
	}
	return params, nil
}

func argPassing(v *ir.Var, scalarsByValue bool) (Passing, error) {
	switch typT := v.Type.(type) {
	case *ir.TensorType:
		if typT.IsScalar() && scalarsByValue {
			return ByValue, nil
		}
		return ByAddress, nil
	case *ir.SetType:
		return ByAddress, nil
	case *ir.ElementType:
		return ByValue, fmterr.Unsupported("element %s of type %s passed to the backend", v.Name, typT)
	}
	return ByValue, fmterr.Internalf("variable %s has an invalid type %T", v.Name, v.Type)
}
