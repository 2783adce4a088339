// Package resolver implements the Type Resolution Layer (spec §4.4): it
// walks a parsed *ast.Module with a mutable scope stack, fills every
// Type::Unknown, binds names to their declarations, and materializes the
// self-type of struct/union methods.
package resolver

import (
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/lexer"
)

// Error is a terminal resolver error, following the one-Go-type-per-phase
// convention already used by parser.Error and tokenqueue.Error.
type Error struct {
	Code    diag.Code
	Message string
	Span    lexer.Span
}

func (e *Error) Error() string { return e.Message }

// ToDiagnostic converts a resolver error into the shared diagnostic type.
func (e *Error) ToDiagnostic() diag.Diagnostic {
	return diag.Diagnostic{
		Stage:    diag.StageResolver,
		Severity: diag.SeverityError,
		Code:     e.Code,
		Message:  e.Message,
		Span:     e.Span.ToDiag(),
	}
}
