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

package pathexpr

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Hash returns a hash of an expression consistent with Equal:
// two equal expressions have the same hash.
func Hash(e Expr) uint64 {
	d := xxhash.New()
	writeExpr(d, e)
	return d.Sum64()
}

func writeVar(d *xxhash.Digest, v Var) {
	d.WriteString(v.Name)
	// Sets are compared by identity.
	d.WriteString(fmt.Sprintf("@%p;", v.Set))
}

func writeBinary(d *xxhash.Digest, op string, b *binary) {
	d.WriteString(op)
	for _, q := range b.quantified {
		writeVar(d, q)
	}
	d.WriteString("(")
	writeExpr(d, b.lhs)
	d.WriteString(",")
	writeExpr(d, b.rhs)
	d.WriteString(")")
}

func writeExpr(d *xxhash.Digest, e Expr) {
	switch eT := e.(type) {
	case *Link:
		d.WriteString(eT.typ.String())
		writeVar(d, eT.edge)
		writeVar(d, eT.vertex)
	case *And:
		writeBinary(d, "and", &eT.binary)
	case *Or:
		writeBinary(d, "or", &eT.binary)
	}
}
