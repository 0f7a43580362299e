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


// Package graphfile loads graph descriptions and path expressions from YAML.
//
// A description declares vertex sets, edge sets, path variables bound to
// these sets and named path expressions:
//
//	sets:  [{name: points, size: 3}]
//	edges: [{name: springs, endpoints: [points, points], elements: [[0,1],[1,2]]}]
//	vars:  {u: points, v: points, e: springs}
//	paths:
//	  incident: {ve: [u, e]}
//	  adjacency: {exists: e, and: [{ve: [u, e]}, {ev: [e, v]}]}
package graphfile

import (
	"io"
	"os"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/base/ordered"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type (
	fieldDesc struct {
		Name       string `yaml:"name"`
		DType      string `yaml:"dtype"`
		Components int    `yaml:"components"`
	}

	setDesc struct {
		Name   string      `yaml:"name"`
		Size   int         `yaml:"size"`
		Fields []fieldDesc `yaml:"fields"`
	}

	edgeDesc struct {
		Name      string      `yaml:"name"`
		Endpoints []string    `yaml:"endpoints"`
		Elements  [][]int     `yaml:"elements"`
		Fields    []fieldDesc `yaml:"fields"`
	}

	fileDesc struct {
		Sets  []setDesc         `yaml:"sets"`
		Edges []edgeDesc        `yaml:"edges"`
		Vars  map[string]string `yaml:"vars"`
		Paths yaml.Node         `yaml:"paths"`
	}
)

// Graph is a loaded graph description.
type Graph struct {
	// Sets in declaration order, vertex sets first.
	Sets *ordered.Map[string, *graph.Set]
	// Paths in declaration order, bound to the sets of their variables.
	Paths *ordered.Map[string, pathexpr.Expr]
}

// Set returns a set given its name.
func (g *Graph) Set(name string) (*graph.Set, error) {
	set, ok := g.Sets.Load(name)
	if !ok {
		return nil, errors.Errorf("set %q not declared", name)
	}
	return set, nil
}

// Path returns a path expression given its name.
func (g *Graph) Path(name string) (pathexpr.Expr, error) {
	pe, ok := g.Paths.Load(name)
	if !ok {
		return nil, errors.Errorf("path %q not declared", name)
	}
	return pe, nil
}

// ReadFile loads a graph description from a file.
func ReadFile(path string) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open graph description")
	}
	defer f.Close()
	g, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return g, nil
}

// Load reads a graph description.
func Load(r io.Reader) (*Graph, error) {
	var desc fileDesc
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&desc); err != nil {
		return nil, errors.Wrapf(err, "cannot decode graph description")
	}
	g := &Graph{
		Sets:  ordered.NewMap[string, *graph.Set](),
		Paths: ordered.NewMap[string, pathexpr.Expr](),
	}
	if err := g.loadSets(&desc); err != nil {
		return nil, err
	}
	bindings := make(map[string]*graph.Set, len(desc.Vars))
	for name, setName := range desc.Vars {
		set, err := g.Set(setName)
		if err != nil {
			return nil, errors.Wrapf(err, "variable %s", name)
		}
		bindings[name] = set
	}
	if err := g.loadPaths(&desc.Paths, bindings); err != nil {
		return nil, err
	}
	return g, nil
}

func (g *Graph) declare(set *graph.Set) error {
	if g.Sets.Has(set.Name()) {
		return errors.Errorf("set %q declared twice", set.Name())
	}
	g.Sets.Store(set.Name(), set)
	return nil
}

func (g *Graph) loadSets(desc *fileDesc) error {
	for _, sd := range desc.Sets {
		if sd.Size < 0 {
			return errors.Errorf("set %s has a negative size %d", sd.Name, sd.Size)
		}
		fields, err := toFields(sd.Name, sd.Fields)
		if err != nil {
			return err
		}
		if err := g.declare(graph.NewSet(sd.Name, sd.Size, fields...)); err != nil {
			return err
		}
	}
	for _, ed := range desc.Edges {
		endpointSets := make([]*graph.Set, len(ed.Endpoints))
		for i, name := range ed.Endpoints {
			var err error
			if endpointSets[i], err = g.Set(name); err != nil {
				return errors.Wrapf(err, "edge set %s", ed.Name)
			}
		}
		fields, err := toFields(ed.Name, ed.Fields)
		if err != nil {
			return err
		}
		edges, err := graph.NewEdgeSet(ed.Name, endpointSets, ed.Elements, fields...)
		if err != nil {
			return err
		}
		if err := g.declare(edges); err != nil {
			return err
		}
	}
	return nil
}

var dtypes = func() map[string]dtype.DataType {
	m := make(map[string]dtype.DataType)
	for _, dt := range []dtype.DataType{dtype.Bfloat16, dtype.Float32, dtype.Float64, dtype.Int32, dtype.Int64} {
		m[strings.ToLower(dt.String())] = dt
	}
	return m
}()

func toFields(set string, descs []fieldDesc) ([]graph.Field, error) {
	fields := make([]graph.Field, len(descs))
	for i, fd := range descs {
		dt, ok := dtypes[strings.ToLower(fd.DType)]
		if !ok {
			return nil, errors.Errorf("field %s.%s: unknown data type %q", set, fd.Name, fd.DType)
		}
		comps := fd.Components
		if comps == 0 {
			comps = 1
		}
		fields[i] = graph.Field{Name: fd.Name, DType: dt, Components: comps}
	}
	return fields, nil
}
