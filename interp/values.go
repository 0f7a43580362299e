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

package interp

import (
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/ir"
	"github.com/pkg/errors"
)

type (
	// Tensor is a dense tensor stored in a flat buffer in row-major order.
	// Floating point tensors are stored as float64, other tensors as int64.
	Tensor struct {
		shape  *shape.Shape
		floats []float64
		ints   []int64
	}

	// SetValue is a graph set with the values of its fields.
	SetValue struct {
		Set    *graph.Set
		Fields map[string]*Tensor
	}
)

// NewTensor returns a tensor of zeros given its type.
func NewTensor(typ *ir.TensorType) *Tensor {
	sh := typ.Shape()
	t := &Tensor{shape: sh}
	if ir.IsFloat(typ.Component) {
		t.floats = make([]float64, sh.Size())
	} else {
		t.ints = make([]int64, sh.Size())
	}
	return t
}

// FloatTensor returns a floating point tensor given its values.
func FloatTensor(typ *ir.TensorType, vals []float64) (*Tensor, error) {
	if !ir.IsFloat(typ.Component) {
		return nil, errors.Errorf("type %s is not a floating point tensor type", typ)
	}
	if size := typ.Size(); size != len(vals) {
		return nil, errors.Errorf("tensor of type %s requires %d values but got %d", typ, size, len(vals))
	}
	return &Tensor{shape: typ.Shape(), floats: vals}, nil
}

// IntTensor returns an integer tensor given its values.
func IntTensor(typ *ir.TensorType, vals []int64) (*Tensor, error) {
	if ir.IsFloat(typ.Component) {
		return nil, errors.Errorf("type %s is not an integer tensor type", typ)
	}
	if size := typ.Size(); size != len(vals) {
		return nil, errors.Errorf("tensor of type %s requires %d values but got %d", typ, size, len(vals))
	}
	return &Tensor{shape: typ.Shape(), ints: vals}, nil
}

// Shape of the tensor.
func (t *Tensor) Shape() *shape.Shape { return t.shape }

// Floats returns the buffer of a floating point tensor.
func (t *Tensor) Floats() []float64 { return t.floats }

// Ints returns the buffer of an integer tensor.
func (t *Tensor) Ints() []int64 { return t.ints }

// Size returns the number of components of the tensor.
func (t *Tensor) Size() int { return t.shape.Size() }

func (t *Tensor) checkBounds(i int) error {
	if i < 0 || i >= t.Size() {
		return errors.Errorf("index %d out of bounds [0,%d)", i, t.Size())
	}
	return nil
}

// At returns the component at a position in the buffer.
func (t *Tensor) At(i int) (float64, error) {
	if err := t.checkBounds(i); err != nil {
		return 0, err
	}
	if t.floats != nil {
		return t.floats[i], nil
	}
	return float64(t.ints[i]), nil
}

// SetAt sets the component at a position in the buffer.
func (t *Tensor) SetAt(i int, val float64) error {
	if err := t.checkBounds(i); err != nil {
		return err
	}
	if t.floats != nil {
		t.floats[i] = val
	} else {
		t.ints[i] = int64(val)
	}
	return nil
}

// NewSetValue returns a set with all its fields set to zero.
func NewSetValue(s *graph.Set) *SetValue {
	sv := &SetValue{Set: s, Fields: make(map[string]*Tensor)}
	for _, field := range s.Fields() {
		typ, err := ir.FieldType(&ir.SetType{Set: s}, field.Name)
		if err != nil {
			continue
		}
		sv.Fields[field.Name] = NewTensor(typ)
	}
	return sv
}
