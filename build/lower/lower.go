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

// Package lower rewrites index expressions into loop nests over flat buffers.
//
// Lowering runs two passes on every function:
//  1. IndexExpressions replaces assignments of index expressions by loop
//     nests. The order of the loops is given by the sparse iteration graph
//     of the expression.
//  2. TensorAccesses replaces symbolic tensor reads and writes by loads
//     and stores.
package lower

import (
	meshfmt "github.com/gx-org/meshc/base/fmt"
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/ir"
	"github.com/gx-org/meshc/build/usedef"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

type (
	// Option configures the lowering pipeline.
	Option func(*pipeline)

	pipeline struct {
		log *zap.Logger
		ud  usedef.UseDef
	}
)

// WithLogger sets the logger of the pipeline.
func WithLogger(log *zap.Logger) Option {
	return func(p *pipeline) {
		p.log = log.With(zap.String("service", "lower"))
	}
}

func newPipeline(ud usedef.UseDef, opts []Option) *pipeline {
	p := &pipeline{log: zap.NewNop(), ud: ud}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Func lowers a function.
func Func(fn *ir.Func, ud usedef.UseDef, opts ...Option) (*ir.Func, error) {
	return newPipeline(ud, opts).lowerFunc(fn)
}

// Module lowers all the functions of a module.
// Errors of all the functions are reported and no module is returned
// if any function fails to lower.
func Module(m *ir.Module, ud usedef.UseDef, opts ...Option) (*ir.Module, error) {
	p := newPipeline(ud, opts)
	var errs error
	funcs := make([]*ir.Func, len(m.Funcs))
	for i, fn := range m.Funcs {
		lowered, err := p.lowerFunc(fn)
		if err != nil {
			errs = multierr.Append(errs, fmterr.PrefixWith("func %s: ", fn.Name)(err))
			continue
		}
		funcs[i] = lowered
	}
	if errs != nil {
		return nil, errs
	}
	return &ir.Module{Funcs: funcs}, nil
}

func (p *pipeline) lowerFunc(fn *ir.Func) (*ir.Func, error) {
	log := p.log.With(zap.String("func", fn.Name))
	loops, err := IndexExpressions(fn, p.ud)
	if err != nil {
		log.Debug("index expression lowering failed", zap.Error(err))
		return nil, err
	}
	log.Debug("index expressions lowered", zap.String("ir", meshfmt.Number(ir.String(loops))))
	flat, err := TensorAccesses(loops)
	if err != nil {
		log.Debug("tensor access lowering failed", zap.Error(err))
		return nil, err
	}
	log.Debug("tensor accesses lowered", zap.String("ir", meshfmt.Number(ir.String(flat))))
	return flat, nil
}
