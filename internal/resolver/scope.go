package resolver

import (
	"github.com/nomad-lang/nomadc/internal/ast"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// scopeEntry is what a name binds to inside one lexical scope: its type and
// whether it was declared const (spec §3.4 scope invariant: a name binds at
// most one entity per scope).
type scopeEntry struct {
	Typ   ast.Type
	Const bool
}

func (r *Resolver) pushScope() {
	r.scopes = append(r.scopes, map[string]scopeEntry{})
}

func (r *Resolver) popScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// declare binds name in the innermost scope, failing on redefinition within
// that same scope (spec §3.4: "within any lexical scope, a name binds at
// most one entity").
func (r *Resolver) declare(name string, typ ast.Type, isConst bool, span lexer.Span) error {
	top := r.scopes[len(r.scopes)-1]
	if _, exists := top[name]; exists {
		return &Error{Code: diag.CodeRedefinitionOfVariable, Message: "redefinition of variable " + name, Span: span}
	}
	top[name] = scopeEntry{Typ: typ, Const: isConst}
	return nil
}

// lookup searches the scope stack innermost-first.
func (r *Resolver) lookup(name string) (scopeEntry, bool) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if e, ok := r.scopes[i][name]; ok {
			return e, true
		}
	}
	return scopeEntry{}, false
}
