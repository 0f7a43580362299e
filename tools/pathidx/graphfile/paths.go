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


package graphfile

import (
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// names is a list of names written either as a scalar or as a sequence.
type names []string

func (n *names) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*n = names{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return err
	}
	*n = list
	return nil
}

type pathDesc struct {
	VE     []string   `yaml:"ve"`
	EV     []string   `yaml:"ev"`
	And    []pathDesc `yaml:"and"`
	Or     []pathDesc `yaml:"or"`
	Exists names      `yaml:"exists"`
}

func (g *Graph) loadPaths(node *yaml.Node, bindings map[string]*graph.Set) error {
	if node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: paths must be a mapping from names to path expressions", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		var desc pathDesc
		if err := value.Decode(&desc); err != nil {
			return errors.Wrapf(err, "path %s", key.Value)
		}
		pe, err := desc.expr()
		if err != nil {
			return errors.Wrapf(err, "path %s (line %d)", key.Value, key.Line)
		}
		pe = pathexpr.Bind(pe, bindings)
		for v := range pathexpr.Vars(pe) {
			if !v.Bound() {
				return errors.Errorf("path %s (line %d): variable %s is not declared", key.Value, key.Line, v.Name)
			}
		}
		if g.Paths.Has(key.Value) {
			return errors.Errorf("path %s declared twice", key.Value)
		}
		g.Paths.Store(key.Value, pe)
	}
	return nil
}

func (d *pathDesc) expr() (pathexpr.Expr, error) {
	kinds := 0
	for _, set := range []bool{d.VE != nil, d.EV != nil, d.And != nil, d.Or != nil} {
		if set {
			kinds++
		}
	}
	if kinds != 1 {
		return nil, errors.Errorf("a path expression needs exactly one of ve, ev, and, or")
	}
	if d.Exists != nil && (d.VE != nil || d.EV != nil) {
		return nil, errors.Errorf("links cannot be quantified")
	}
	switch {
	case d.VE != nil:
		if len(d.VE) != 2 {
			return nil, errors.Errorf("ve link needs a vertex and an edge but got %v", d.VE)
		}
		return pathexpr.NewVE(pathexpr.NewVar(d.VE[0]), pathexpr.NewVar(d.VE[1])), nil
	case d.EV != nil:
		if len(d.EV) != 2 {
			return nil, errors.Errorf("ev link needs an edge and a vertex but got %v", d.EV)
		}
		return pathexpr.NewEV(pathexpr.NewVar(d.EV[0]), pathexpr.NewVar(d.EV[1])), nil
	case d.And != nil:
		lhs, rhs, err := operands("and", d.And)
		if err != nil {
			return nil, err
		}
		return pathexpr.NewAnd(lhs, rhs, d.quantified()...), nil
	default:
		lhs, rhs, err := operands("or", d.Or)
		if err != nil {
			return nil, err
		}
		return pathexpr.NewOr(lhs, rhs, d.quantified()...), nil
	}
}

func (d *pathDesc) quantified() []pathexpr.Var {
	vars := make([]pathexpr.Var, len(d.Exists))
	for i, name := range d.Exists {
		vars[i] = pathexpr.NewVar(name)
	}
	return vars
}

func operands(op string, descs []pathDesc) (lhs, rhs pathexpr.Expr, err error) {
	if len(descs) != 2 {
		return nil, nil, errors.Errorf("%s needs 2 operands but got %d", op, len(descs))
	}
	if lhs, err = descs[0].expr(); err != nil {
		return nil, nil, err
	}
	if rhs, err = descs[1].expr(); err != nil {
		return nil, nil, err
	}
	return lhs, rhs, nil
}
