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

package lower_test

import (
	"strings"
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/build/fmterr"
	"github.com/gx-org/meshc/build/graph"
	"github.com/gx-org/meshc/build/ir"
	irh "github.com/gx-org/meshc/build/ir/irhelper"
	"github.com/gx-org/meshc/build/lower"
	"github.com/gx-org/meshc/build/pathexpr"
	"github.com/gx-org/meshc/build/usedef"
	"github.com/sebdah/goldie/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap/zaptest"
)

type mesh struct {
	points  *graph.Set
	springs *graph.Set
	adj     pathexpr.Expr
}

func newMesh(t *testing.T) mesh {
	points := graph.NewSet("points", 3)
	springs, err := graph.NewEdgeSet("springs", []*graph.Set{points, points}, [][]int{{0, 1}, {1, 2}})
	if err != nil {
		t.Fatal(err)
	}
	u, v, e := pathexpr.NewVar("u"), pathexpr.NewVar("v"), pathexpr.NewVar("e")
	adj := pathexpr.Bind(
		pathexpr.NewAnd(pathexpr.NewVE(u, e), pathexpr.NewEV(e, v), e),
		map[string]*graph.Set{"u": points, "v": points, "e": springs},
	)
	return mesh{points: points, springs: springs, adj: adj}
}

func add1() *ir.Func {
	vec := irh.Vector(irh.Range(4))
	i := ir.NewFree("i", irh.Range(4))
	x, y := irh.Var("x", vec), irh.Var("y", vec)
	return irh.Func("add1", irh.Vars(x), irh.Vars(y),
		irh.Assign(y, irh.IndexExpr([]*ir.IndexVar{i}, irh.Add(irh.Indexed(x, i), irh.Float(1)))),
	)
}

func sum() *ir.Func {
	i := ir.NewReduction("i", irh.Range(5), ir.Sum)
	a, c := irh.Var("a", irh.Vector(irh.Range(5))), irh.Var("c", irh.Float64())
	return irh.Func("sum", irh.Vars(a), irh.Vars(c),
		irh.Assign(c, irh.IndexExpr(nil, irh.Indexed(a, i))),
	)
}

func matvec() *ir.Func {
	rows, cols := irh.Range(4), irh.Range(3)
	i := ir.NewFree("i", rows)
	j := ir.NewReduction("j", cols, ir.Sum)
	a := irh.Var("A", irh.Matrix(rows, cols))
	x, y := irh.Var("x", irh.Vector(cols)), irh.Var("y", irh.Vector(rows))
	return irh.Func("matvec", irh.Vars(a, x), irh.Vars(y),
		irh.Assign(y, irh.IndexExpr([]*ir.IndexVar{i}, irh.Mul(irh.Indexed(a, i, j), irh.Indexed(x, j)))),
	)
}

func matmul() *ir.Func {
	d0, d1, d2 := irh.Range(2), irh.Range(3), irh.Range(2)
	i, k := ir.NewFree("i", d0), ir.NewFree("k", d2)
	j := ir.NewReduction("j", d1, ir.Sum)
	a, b := irh.Var("A", irh.Matrix(d0, d1)), irh.Var("B", irh.Matrix(d1, d2))
	c := irh.Var("C", irh.Matrix(d0, d2))
	return irh.Func("matmul", irh.Vars(a, b), irh.Vars(c),
		irh.Assign(c, irh.IndexExpr([]*ir.IndexVar{i, k}, irh.Mul(irh.Indexed(a, i, j), irh.Indexed(b, j, k)))),
	)
}

func (m mesh) spmv() (*ir.Func, usedef.UseDef) {
	dom := irh.Set(m.points)
	i := ir.NewFree("i", dom)
	j := ir.NewReduction("j", dom, ir.Sum)
	a := irh.Var("A", irh.Matrix(dom, dom))
	x, y := irh.Var("x", irh.Vector(dom)), irh.Var("y", irh.Vector(dom))
	fn := irh.Func("spmv", irh.Vars(a, x), irh.Vars(y),
		irh.Assign(y, irh.IndexExpr([]*ir.IndexVar{i}, irh.Mul(irh.Indexed(a, i, j), irh.Indexed(x, j)))),
	)
	return fn, usedef.NewMap().BindPath(a, m.adj)
}

func TestGolden(t *testing.T) {
	m := newMesh(t)
	spmv, spmvUD := m.spmv()
	tests := []struct {
		name string
		fn   *ir.Func
		ud   usedef.UseDef
		// sparse functions cannot be lowered to dense accesses.
		sparse bool
	}{
		{name: "add1", fn: add1()},
		{name: "sum", fn: sum()},
		{name: "matvec", fn: matvec()},
		{name: "matmul", fn: matmul()},
		{name: "spmv", fn: spmv, ud: spmvUD, sparse: true},
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ud := test.ud
			if ud == nil {
				ud = usedef.NewMap()
			}
			loops, err := lower.IndexExpressions(test.fn, ud)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			var out strings.Builder
			out.WriteString(ir.String(loops))
			flat, err := lower.TensorAccesses(loops)
			if test.sparse {
				if !fmterr.IsUnsupported(err) {
					t.Errorf("expected an unsupported error but got %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("%+v", err)
				}
				out.WriteString("\n")
				out.WriteString(ir.String(flat))
			}
			g.Assert(t, test.name, []byte(out.String()))
		})
	}
}

func TestElementwiseLoop(t *testing.T) {
	fn, err := lower.IndexExpressions(add1(), usedef.NewMap())
	if err != nil {
		t.Fatal(err)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("got %d statements but want 1:\n%s", len(fn.Body.Stmts), ir.String(fn))
	}
	loop, ok := fn.Body.Stmts[0].(*ir.For)
	if !ok {
		t.Fatalf("got statement %T but want a loop", fn.Body.Stmts[0])
	}
	dom, ok := loop.Domain.(ir.IndexDomain)
	if !ok || dom.Size() != 4 {
		t.Errorf("got loop domain %s but want a domain of 4 elements", loop.Domain)
	}
	write, ok := loop.Body.(*ir.TensorWrite)
	if !ok {
		t.Fatalf("got loop body %T but want a tensor write", loop.Body)
	}
	if _, ok := write.Value.(*ir.BinaryExpr); !ok {
		t.Errorf("got value %s but want an addition", ir.String(write.Value))
	}
}

func TestUniqueTmpName(t *testing.T) {
	fn := matvec()
	taken := irh.Var("yi", irh.Float64())
	fn.Body.Stmts = append(fn.Body.Stmts, irh.Assign(taken, irh.Float(1)))
	lowered, err := lower.IndexExpressions(fn, usedef.NewMap())
	if err != nil {
		t.Fatal(err)
	}
	got := ir.String(lowered)
	if !strings.Contains(got, "yi1 = 0.0") {
		t.Errorf("temporary does not have a unique name:\n%s", got)
	}
}

func TestIndexExprErrors(t *testing.T) {
	m := newMesh(t)
	dom := irh.Range(3)
	i, k := ir.NewFree("i", dom), ir.NewFree("k", dom)
	prod := ir.NewReduction("p", dom, ir.Product)
	x, y := irh.Var("x", irh.Vector(dom)), irh.Var("y", irh.Vector(dom))
	c := irh.Var("c", irh.Float64())
	sparse := irh.Set(m.points)
	si, sk := ir.NewFree("i", sparse), ir.NewFree("k", sparse)
	sj := ir.NewReduction("j", sparse, ir.Sum)
	a, b := irh.Var("A", irh.Matrix(sparse, sparse)), irh.Var("B", irh.Matrix(sparse, sparse))
	sparseC := irh.Var("C", irh.Matrix(sparse, sparse))
	ud := usedef.NewMap().BindPath(a, m.adj).BindPath(b, m.adj)
	vecOf := func(v *ir.IndexVar) *ir.IndexExpr {
		return irh.IndexExpr([]*ir.IndexVar{v}, irh.Indexed(x, v))
	}
	tests := []struct {
		name        string
		stmt        ir.Stmt
		internal    bool
		unsupported bool
	}{
		{
			name:     "nested",
			stmt:     irh.Assign(y, irh.IndexExpr([]*ir.IndexVar{i}, irh.Add(irh.Indexed(x, i), vecOf(k)))),
			internal: true,
		},
		{
			name:     "operand",
			stmt:     irh.Assign(c, irh.Add(irh.Float(1), vecOf(i))),
			internal: true,
		},
		{
			name:        "tensor write",
			stmt:        irh.Write(y, vecOf(i), irh.Int(0)),
			unsupported: true,
		},
		{
			name:        "field write",
			stmt:        &ir.FieldWrite{Target: irh.Ref(y), Field: "f", Value: vecOf(i)},
			unsupported: true,
		},
		{
			name:        "product",
			stmt:        irh.Assign(c, irh.IndexExpr(nil, irh.Indexed(x, prod))),
			unsupported: true,
		},
		{
			name:        "indexed expression",
			stmt:        irh.Assign(y, irh.IndexExpr([]*ir.IndexVar{i}, &ir.IndexedTensor{Tensor: irh.Float(2), IndexVars: []*ir.IndexVar{i}})),
			unsupported: true,
		},
		{
			name: "reduction outside free variable",
			stmt: irh.Assign(sparseC, irh.IndexExpr([]*ir.IndexVar{si, sk},
				irh.Mul(irh.Indexed(a, si, sj), irh.Indexed(b, sj, sk)))),
			unsupported: true,
		},
	}
	for _, test := range tests {
		fn := irh.Func(test.name, irh.Vars(x), irh.Vars(y), test.stmt)
		_, err := lower.IndexExpressions(fn, ud)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
			continue
		}
		if got := fmterr.IsInternal(err); got != test.internal {
			t.Errorf("%s: IsInternal(%v) = %t but want %t", test.name, err, got, test.internal)
		}
		if got := fmterr.IsUnsupported(err); got != test.unsupported {
			t.Errorf("%s: IsUnsupported(%v) = %t but want %t", test.name, err, got, test.unsupported)
		}
	}
}

func TestIndexExprStatement(t *testing.T) {
	x, y := irh.Var("x", irh.Vector(irh.Range(2))), irh.Var("y", irh.Vector(irh.Range(2)))
	i := ir.NewFree("i", irh.Range(2))
	ie := irh.IndexExpr([]*ir.IndexVar{i}, irh.Indexed(x, i))
	if _, err := lower.IndexExpr(ie, irh.Write(y, ie, irh.Int(0)), usedef.NewMap()); !fmterr.IsInternal(err) {
		t.Errorf("expected an internal error but got %v", err)
	}
	stmt, err := lower.IndexExpr(ie, irh.Assign(y, ie), usedef.NewMap())
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ir.String(stmt), "for i in 0:2:\n\ty(i) = x(i)\n"; got != want {
		t.Errorf("got\n%s\nbut want\n%s", got, want)
	}
}

func TestTensorAccessErrors(t *testing.T) {
	m := newMesh(t)
	r := irh.Range(2)
	k := irh.Var("k", irh.Float64())
	vec := irh.Var("v", irh.Vector(r))
	sparse := irh.Var("S", irh.Matrix(r, irh.Set(m.points)))
	order3 := irh.Var("T", ir.Tensor(dtype.Float64, r, r, r))
	scalar := irh.Var("s", irh.Float64())
	tests := []struct {
		name        string
		expr        ir.Expr
		internal    bool
		unsupported bool
	}{
		{name: "order 3", expr: irh.Read(order3, irh.Ref(k), irh.Ref(k), irh.Ref(k)), unsupported: true},
		{name: "order 0", expr: irh.Read(scalar), unsupported: true},
		{name: "set dimension", expr: irh.Read(sparse, irh.Ref(k), irh.Ref(k)), unsupported: true},
		{name: "blocked dimension", expr: irh.Read(irh.Var("B", irh.Matrix(r, ir.Domain(ir.RangeSet(2), ir.RangeSet(2)))), irh.Ref(k), irh.Ref(k)), unsupported: true},
		{name: "index count", expr: irh.Read(vec, irh.Ref(k), irh.Ref(k)), internal: true},
		{name: "index expression", expr: irh.Indexed(vec), internal: true},
	}
	for _, test := range tests {
		_, err := lower.AccessExpr(test.expr)
		if err == nil {
			t.Errorf("%s: expected an error", test.name)
			continue
		}
		if got := fmterr.IsInternal(err); got != test.internal {
			t.Errorf("%s: IsInternal(%v) = %t but want %t", test.name, err, got, test.internal)
		}
		if got := fmterr.IsUnsupported(err); got != test.unsupported {
			t.Errorf("%s: IsUnsupported(%v) = %t but want %t", test.name, err, got, test.unsupported)
		}
	}
}

func TestModule(t *testing.T) {
	m := newMesh(t)
	spmv, ud := m.spmv()
	bad := &ir.Module{Funcs: []*ir.Func{add1(), spmv, sum()}}
	_, err := lower.Module(bad, ud, lower.WithLogger(zaptest.NewLogger(t)))
	if err == nil {
		t.Fatal("expected an error")
	}
	if errs := multierr.Errors(err); len(errs) != 1 {
		t.Errorf("got %d errors but want 1: %v", len(errs), err)
	}
	if !strings.HasPrefix(err.Error(), "func spmv: ") || !fmterr.IsUnsupported(err) {
		t.Errorf("unexpected error: %v", err)
	}

	good := &ir.Module{Funcs: []*ir.Func{add1(), sum(), matvec()}}
	lowered, err := lower.Module(good, usedef.NewMap(), lower.WithLogger(zaptest.NewLogger(t)))
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if got := len(lowered.Funcs); got != 3 {
		t.Fatalf("got %d functions but want 3", got)
	}
	for _, fn := range lowered.Funcs {
		ir.Walk(fn, func(n ir.Node) bool {
			switch n.(type) {
			case *ir.TensorRead, *ir.TensorWrite, *ir.IndexExpr, *ir.IndexedTensor:
				t.Errorf("%s: %T left after lowering:\n%s", fn.Name, n, ir.String(fn))
			}
			return true
		})
	}
}
