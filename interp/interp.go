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

// Package interp evaluates lowered functions on the host.
//
// The interpreter is the reference semantic of lowered code: tensors are
// flat buffers, loops over neighbor domains iterate path indices built by
// a [pathindex.Source].
package interp

import (
	"github.com/gx-org/meshc/build/ir"
	"github.com/gx-org/meshc/build/pathindex"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type (
	// Interpreter evaluates lowered functions.
	Interpreter struct {
		log     *zap.Logger
		indices pathindex.Source
	}

	// Option configures an interpreter.
	Option func(*Interpreter)
)

// WithLogger sets the logger of the interpreter.
func WithLogger(log *zap.Logger) Option {
	return func(itp *Interpreter) {
		itp.log = log.With(zap.String("service", "interp"))
	}
}

// WithIndices sets the source of the path indices used by neighbor loops.
func WithIndices(src pathindex.Source) Option {
	return func(itp *Interpreter) {
		itp.indices = src
	}
}

// New returns a new interpreter.
func New(opts ...Option) *Interpreter {
	itp := &Interpreter{log: zap.NewNop()}
	for _, opt := range opts {
		opt(itp)
	}
	if itp.indices == nil {
		itp.indices = pathindex.NewBuilder(pathindex.WithLogger(itp.log))
	}
	return itp
}

// Run evaluates a function given its arguments.
// Scalars are passed as float64, tensors as *Tensor, and sets as *SetValue.
// Results which are not also parameters are allocated and set to zero
// before the evaluation.
func (itp *Interpreter) Run(fn *ir.Func, args ...any) ([]any, error) {
	if len(args) != len(fn.Params) {
		return nil, errors.Errorf("function %s requires %d arguments but got %d", fn.Name, len(fn.Params), len(args))
	}
	fr := newFrame(nil)
	for i, param := range fn.Params {
		if err := checkArg(param, args[i]); err != nil {
			return nil, errors.Wrapf(err, "argument %d of %s", i, fn.Name)
		}
		fr.define(param, args[i])
	}
	for _, res := range fn.Results {
		if _, ok := fr.find(res); ok {
			continue
		}
		val, err := zero(res.Type)
		if err != nil {
			return nil, err
		}
		fr.define(res, val)
	}
	ctx := &context{itp: itp}
	if err := ctx.evalStmt(fr, fn.Body); err != nil {
		return nil, errors.WithMessagef(err, "cannot evaluate %s", fn.Name)
	}
	results := make([]any, len(fn.Results))
	for i, res := range fn.Results {
		results[i], _ = fr.find(res)
	}
	return results, nil
}

func checkArg(param *ir.Var, arg any) error {
	switch typT := param.Type.(type) {
	case *ir.TensorType:
		if typT.IsScalar() {
			if _, ok := arg.(float64); !ok {
				return errors.Errorf("%s requires a float64 scalar but got %T", param.Name, arg)
			}
			return nil
		}
		tensor, ok := arg.(*Tensor)
		if !ok {
			return errors.Errorf("%s requires a tensor but got %T", param.Name, arg)
		}
		if tensor.Size() != typT.Size() {
			return errors.Errorf("%s requires a tensor of %d components but got %d", param.Name, typT.Size(), tensor.Size())
		}
	case *ir.SetType:
		sv, ok := arg.(*SetValue)
		if !ok || sv.Set != typT.Set {
			return errors.Errorf("%s requires the set %s", param.Name, typT.Set.Name())
		}
	case *ir.ElementType:
		if _, ok := arg.(float64); !ok {
			return errors.Errorf("%s requires an element id but got %T", param.Name, arg)
		}
	}
	return nil
}

func zero(typ ir.Type) (any, error) {
	switch typT := typ.(type) {
	case *ir.TensorType:
		if typT.IsScalar() {
			return 0.0, nil
		}
		return NewTensor(typT), nil
	case *ir.SetType:
		return NewSetValue(typT.Set), nil
	}
	return nil, errors.Errorf("cannot allocate a value of type %s", typ)
}

type frame struct {
	parent *frame
	vars   map[*ir.Var]any
}

func newFrame(parent *frame) *frame {
	return &frame{parent: parent, vars: make(map[*ir.Var]any)}
}

func (fr *frame) define(v *ir.Var, val any) {
	fr.vars[v] = val
}

func (fr *frame) find(v *ir.Var) (any, bool) {
	for f := fr; f != nil; f = f.parent {
		if val, ok := f.vars[v]; ok {
			return val, true
		}
	}
	return nil, false
}

// assign sets the value of a variable in the frame defining it
// or defines the variable in the current frame.
func (fr *frame) assign(v *ir.Var, val any) {
	for f := fr; f != nil; f = f.parent {
		if _, ok := f.vars[v]; ok {
			f.vars[v] = val
			return
		}
	}
	fr.define(v, val)
}
