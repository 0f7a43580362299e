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
	"strings"

	meshfmt "github.com/gx-org/meshc/base/fmt"
	"github.com/gx-org/meshc/base/stringseq"
)

// String returns a readable representation of a node.
func String(node Node) string {
	switch nodeT := node.(type) {
	case Expr:
		return exprString(nodeT)
	case Stmt:
		return stmtString(nodeT)
	case *Func:
		return funcString(nodeT)
	case *Module:
		funcs := make([]string, len(nodeT.Funcs))
		for i, fn := range nodeT.Funcs {
			funcs[i] = funcString(fn)
		}
		return strings.Join(funcs, "\n")
	case *Var:
		return nodeT.Name
	case Type:
		return nodeT.String()
	}
	return fmt.Sprintf("%T", node)
}

func varNames(vars []*Var) string {
	return stringseq.JoinStringer(slices.Values(vars), ", ")
}

func funcString(fn *Func) string {
	var b strings.Builder
	b.WriteString("func " + fn.Name + "(" + varNames(fn.Params) + ")")
	if len(fn.Results) > 0 {
		b.WriteString(" -> (" + varNames(fn.Results) + ")")
	}
	b.WriteString(":\n")
	b.WriteString(meshfmt.Indent(stmtString(fn.Body)))
	return b.String()
}

func stmtString(stmt Stmt) string {
	switch stmtT := stmt.(type) {
	case *AssignStmt:
		return stmtT.Var.Name + " = " + exprString(stmtT.Value) + "\n"
	case *TensorWrite:
		return accessString(stmtT.Tensor, stmtT.Indices) + " = " + exprString(stmtT.Value) + "\n"
	case *FieldWrite:
		return operandString(stmtT.Target) + "." + stmtT.Field + " = " + exprString(stmtT.Value) + "\n"
	case *Store:
		return operandString(stmtT.Buffer) + "[" + exprString(stmtT.Index) + "] = " + exprString(stmtT.Value) + "\n"
	case *For:
		return "for " + stmtT.Var.Name + " in " + stmtT.Domain.String() + ":\n" + meshfmt.Indent(stmtString(stmtT.Body))
	case *Block:
		var b strings.Builder
		for _, s := range stmtT.Stmts {
			b.WriteString(stmtString(s))
		}
		return b.String()
	case nil:
		return "<nil>\n"
	}
	return fmt.Sprintf("<%T>\n", stmt)
}

func accessString(tensor Expr, indices []Expr) string {
	return operandString(tensor) + "(" + exprList(indices, ",") + ")"
}

func exprList(exprs []Expr, sep string) string {
	ss := make([]string, len(exprs))
	for i, x := range exprs {
		ss[i] = exprString(x)
	}
	return strings.Join(ss, sep)
}

func literalString(x *Literal) string {
	if !IsFloat(x.DType) {
		return strconv.FormatInt(int64(x.Value), 10)
	}
	s := strconv.FormatFloat(x.Value, 'f', -1, 64)
	if !strings.ContainsAny(s, ".IN") {
		s += ".0"
	}
	return s
}

// operandString parenthesizes compound expressions.
func operandString(x Expr) string {
	switch x.(type) {
	case *BinaryExpr, *NegExpr, *IndexExpr:
		return "(" + exprString(x) + ")"
	}
	return exprString(x)
}

func binaryOperandString(parent BinaryOp, x Expr, right bool) string {
	bin, ok := x.(*BinaryExpr)
	if !ok {
		return exprString(x)
	}
	prec, parentPrec := bin.Op.precedence(), parent.precedence()
	if prec < parentPrec || (right && prec == parentPrec && (parent == Sub || parent == Div)) {
		return "(" + exprString(x) + ")"
	}
	return exprString(x)
}

func exprString(x Expr) string {
	switch xT := x.(type) {
	case *VarExpr:
		return xT.Var.Name
	case *Literal:
		return literalString(xT)
	case *BinaryExpr:
		return binaryOperandString(xT.Op, xT.X, false) + " " + xT.Op.String() + " " + binaryOperandString(xT.Op, xT.Y, true)
	case *NegExpr:
		return "-" + operandString(xT.X)
	case *Call:
		return xT.Func.String() + "(" + exprList(xT.Args, ", ") + ")"
	case *FieldRead:
		return operandString(xT.Target) + "." + xT.Field
	case *IndexedTensor:
		if len(xT.IndexVars) == 0 {
			return operandString(xT.Tensor)
		}
		names := make([]string, len(xT.IndexVars))
		for i, v := range xT.IndexVars {
			names[i] = v.Name
		}
		return operandString(xT.Tensor) + "(" + strings.Join(names, ",") + ")"
	case *IndexExpr:
		return "(" + stringseq.JoinStringer(slices.Values(xT.ResultVars), ",") + ") " + exprString(xT.Value)
	case *TensorRead:
		return accessString(xT.Tensor, xT.Indices)
	case *Load:
		return operandString(xT.Buffer) + "[" + exprString(xT.Index) + "]"
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("<%T>", x)
}
