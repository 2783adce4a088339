package diag_test

import (
	"testing"

	"github.com/nomad-lang/nomadc/internal/diag"
)

func TestMerge(t *testing.T) {
	a := diag.Span{Line: 1, Column: 1, Start: 0, End: 3}
	b := diag.Span{Line: 1, Column: 5, Start: 4, End: 9}

	got := diag.Merge(a, b)
	want := diag.Span{Line: 1, Column: 1, Start: 0, End: 9}
	if got != want {
		t.Fatalf("Merge(%+v, %+v) = %+v, want %+v", a, b, got, want)
	}
}

func TestMergeWithInvalidSpan(t *testing.T) {
	valid := diag.Span{Line: 2, Column: 3, Start: 5, End: 8}
	var zero diag.Span

	if got := diag.Merge(zero, valid); got != valid {
		t.Fatalf("Merge(zero, valid) = %+v, want %+v", got, valid)
	}
	if got := diag.Merge(valid, zero); got != valid {
		t.Fatalf("Merge(valid, zero) = %+v, want %+v", got, valid)
	}
}

func TestDiagnosticError(t *testing.T) {
	d := diag.Diagnostic{
		Stage:   diag.StageParser,
		Code:    diag.CodeParserUnexpectedEOF,
		Message: "unexpected end of file",
	}
	want := "PARSER_UNEXPECTED_EOF: unexpected end of file"
	if got := d.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
