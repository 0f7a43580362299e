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

// Package ir is the intermediate representation of graph tensor programs.
//
// Front ends produce functions made of assignments of index expressions,
// that is tensor index notation over dense and sparse tensors.
// Compiler passes in [github.com/gx-org/meshc/build/lower] rewrite
// index expressions into loop nests and symbolic tensor accesses into
// loads and stores over flat buffers.
//
// Nodes are never modified by the compiler passes: a pass returns new nodes.
package ir

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/meshc/build/pathexpr"
)

// Node in the tree.
type Node interface {
	// node marks a structure as a node structure.
	// It prevents external implementations of the interface.
	node()
}

// ----------------------------------------------------------------------------
// Variables.

// Var is a named value.
type Var struct {
	Name string
	Type Type
}

// NewVar returns a new variable.
func NewVar(name string, typ Type) *Var {
	return &Var{Name: name, Type: typ}
}

func (*Var) node() {}

// String returns the name of the variable.
func (v *Var) String() string { return v.Name }

// ----------------------------------------------------------------------------
// Expressions.
type (
	// Expr is an expression computing a value.
	Expr interface {
		Node
		// exprNode marks a structure as an expression structure.
		exprNode()
		// Type returns the type of the value computed by the expression.
		Type() Type
	}

	// VarExpr reads a variable.
	VarExpr struct {
		Var *Var
	}

	// Literal is a scalar constant.
	Literal struct {
		DType dtype.DataType
		Value float64
	}

	// BinaryExpr applies an arithmetic operator to two operands.
	BinaryExpr struct {
		Op   BinaryOp
		X, Y Expr
	}

	// NegExpr negates its operand.
	NegExpr struct {
		X Expr
	}

	// Call calls an intrinsic function.
	Call struct {
		Func Intrinsic
		Args []Expr
	}

	// FieldRead reads the field of a set or of an element.
	FieldRead struct {
		Target Expr
		Field  string
		Typ    *TensorType
	}

	// IndexedTensor is a tensor operand of an index expression
	// addressed by index variables.
	IndexedTensor struct {
		Tensor    Expr
		IndexVars []*IndexVar
	}

	// IndexExpr is a tensor expression in index notation.
	// Value is computed for every point of the result variables.
	IndexExpr struct {
		ResultVars []*IndexVar
		Value      Expr
	}

	// TensorRead reads a component of a tensor given one index per dimension.
	TensorRead struct {
		Tensor  Expr
		Indices []Expr
	}

	// Load reads a value from a flat buffer.
	Load struct {
		Buffer Expr
		Index  Expr
	}
)

var (
	_ Expr = (*VarExpr)(nil)
	_ Expr = (*Literal)(nil)
	_ Expr = (*BinaryExpr)(nil)
	_ Expr = (*NegExpr)(nil)
	_ Expr = (*Call)(nil)
	_ Expr = (*FieldRead)(nil)
	_ Expr = (*IndexedTensor)(nil)
	_ Expr = (*IndexExpr)(nil)
	_ Expr = (*TensorRead)(nil)
	_ Expr = (*Load)(nil)
)

func (*VarExpr) node()     {}
func (*VarExpr) exprNode() {}

// Type of the variable.
func (x *VarExpr) Type() Type { return x.Var.Type }

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// Type of the literal.
func (x *Literal) Type() Type { return Scalar(x.DType) }

// BinaryOp is an arithmetic operator.
type BinaryOp int

const (
	// Add adds the two operands.
	Add BinaryOp = iota
	// Sub subtracts the second operand from the first.
	Sub
	// Mul multiplies the two operands.
	Mul
	// Div divides the first operand by the second.
	Div
)

func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "+"
	case Sub:
		return "-"
	case Mul:
		return "*"
	case Div:
		return "/"
	}
	return "?"
}

func (op BinaryOp) precedence() int {
	if op == Mul || op == Div {
		return 2
	}
	return 1
}

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// Type returns the type of the first operand.
func (x *BinaryExpr) Type() Type { return x.X.Type() }

func (*NegExpr) node()     {}
func (*NegExpr) exprNode() {}

// Type of the operand.
func (x *NegExpr) Type() Type { return x.X.Type() }

// Intrinsic is a function provided by the runtime.
type Intrinsic int

const (
	// Sin is the sine function.
	Sin Intrinsic = iota
	// Cos is the cosine function.
	Cos
	// Sqrt is the square root function.
	Sqrt
	// Log is the natural logarithm.
	Log
	// Exp is the exponential function.
	Exp
	// Atan2 is the arc tangent of y/x.
	Atan2
	// Pow raises its first argument to the power of the second.
	Pow
)

var intrinsicNames = map[Intrinsic]string{
	Sin:   "sin",
	Cos:   "cos",
	Sqrt:  "sqrt",
	Log:   "log",
	Exp:   "exp",
	Atan2: "atan2",
	Pow:   "pow",
}

func (f Intrinsic) String() string {
	if name, ok := intrinsicNames[f]; ok {
		return name
	}
	return "unknown"
}

// NumArgs returns the number of arguments of the intrinsic.
func (f Intrinsic) NumArgs() int {
	if f == Atan2 || f == Pow {
		return 2
	}
	return 1
}

// IntrinsicByName returns an intrinsic given its name.
func IntrinsicByName(name string) (Intrinsic, bool) {
	for f, n := range intrinsicNames {
		if n == name {
			return f, true
		}
	}
	return 0, false
}

func (*Call) node()     {}
func (*Call) exprNode() {}

// Type returns the type of the first argument.
func (x *Call) Type() Type { return x.Args[0].Type() }

// NewFieldRead returns an expression reading the field of a set or of an element.
func NewFieldRead(target Expr, field string) (*FieldRead, error) {
	typ, err := FieldType(target.Type(), field)
	if err != nil {
		return nil, err
	}
	return &FieldRead{Target: target, Field: field, Typ: typ}, nil
}

func (*FieldRead) node()     {}
func (*FieldRead) exprNode() {}

// Type of the field.
func (x *FieldRead) Type() Type { return x.Typ }

func (*IndexedTensor) node()     {}
func (*IndexedTensor) exprNode() {}

// Type returns the type of the tensor if it is not indexed
// or the type of one of its components otherwise.
func (x *IndexedTensor) Type() Type {
	if len(x.IndexVars) == 0 {
		return x.Tensor.Type()
	}
	return componentOf(x.Tensor.Type())
}

func (*IndexExpr) node()     {}
func (*IndexExpr) exprNode() {}

// Type returns a tensor type with one dimension per result variable.
func (x *IndexExpr) Type() Type {
	comp := componentType(x.Value.Type())
	if comp == nil {
		return nil
	}
	dims := make([]IndexDomain, len(x.ResultVars))
	for i, v := range x.ResultVars {
		dims[i] = v.Domain
	}
	return Tensor(comp.Component, dims...)
}

func (*TensorRead) node()     {}
func (*TensorRead) exprNode() {}

// Type of a component of the tensor.
func (x *TensorRead) Type() Type { return componentOf(x.Tensor.Type()) }

func (*Load) node()     {}
func (*Load) exprNode() {}

// Type of a component of the buffer.
func (x *Load) Type() Type { return componentOf(x.Buffer.Type()) }

func componentType(typ Type) *TensorType {
	tensor, ok := typ.(*TensorType)
	if !ok || tensor == nil {
		return nil
	}
	return tensor.ElementOf()
}

func componentOf(typ Type) Type {
	comp := componentType(typ)
	if comp == nil {
		return nil
	}
	return comp
}

// ----------------------------------------------------------------------------
// Statements.
type (
	// Stmt is a statement performing an action.
	Stmt interface {
		Node
		// stmtNode marks a structure as a statement structure.
		stmtNode()
	}

	// AssignStmt assigns a value to a variable.
	AssignStmt struct {
		Var   *Var
		Value Expr
	}

	// TensorWrite writes a value in a tensor component given one index per dimension.
	TensorWrite struct {
		Tensor  Expr
		Indices []Expr
		Value   Expr
	}

	// FieldWrite writes a value in the field of a set or of an element.
	FieldWrite struct {
		Target Expr
		Field  string
		Value  Expr
	}

	// Store writes a value in a flat buffer.
	Store struct {
		Buffer Expr
		Index  Expr
		Value  Expr
	}

	// For executes its body for every integer of its domain.
	For struct {
		Var    *Var
		Domain ForDomain
		Body   Stmt
	}

	// Block is a list of statements.
	Block struct {
		Stmts []Stmt
	}
)

var (
	_ Stmt = (*AssignStmt)(nil)
	_ Stmt = (*TensorWrite)(nil)
	_ Stmt = (*FieldWrite)(nil)
	_ Stmt = (*Store)(nil)
	_ Stmt = (*For)(nil)
	_ Stmt = (*Block)(nil)
)

func (*AssignStmt) node()      {}
func (*AssignStmt) stmtNode()  {}
func (*TensorWrite) node()     {}
func (*TensorWrite) stmtNode() {}
func (*FieldWrite) node()      {}
func (*FieldWrite) stmtNode()  {}
func (*Store) node()           {}
func (*Store) stmtNode()       {}
func (*For) node()             {}
func (*For) stmtNode()         {}
func (*Block) node()           {}
func (*Block) stmtNode()       {}

// ----------------------------------------------------------------------------
// Loop domains.
type (
	// ForDomain is the set of integers a loop iterates over.
	ForDomain interface {
		// forDomain marks a structure as a loop domain.
		forDomain()
		String() string
	}

	// NeighborDomain iterates over the neighbors of the current value
	// of the loop variable Source through a path expression.
	NeighborDomain struct {
		Path pathexpr.Expr
		// SourceEndpoint is the endpoint of the path expression Source ranges over.
		SourceEndpoint int
		Source         *Var
	}
)

var (
	_ ForDomain = IndexDomain{}
	_ ForDomain = (*NeighborDomain)(nil)
)

func (*NeighborDomain) forDomain() {}

func (d *NeighborDomain) String() string {
	return "neighbors(" + d.Source.Name + ", " + d.Path.String() + ")"
}

// ----------------------------------------------------------------------------
// Functions.

// Func is a function.
type Func struct {
	Name    string
	Params  []*Var
	Results []*Var
	Body    *Block
}

func (*Func) node() {}

// WithBody returns a copy of the function with a new body.
func (f *Func) WithBody(body *Block) *Func {
	return &Func{Name: f.Name, Params: f.Params, Results: f.Results, Body: body}
}

// Module is a list of functions.
type Module struct {
	Funcs []*Func
}

func (*Module) node() {}
