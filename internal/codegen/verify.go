package codegen

import (
	"fmt"
	"regexp"
	"strings"
)

// Verify is a structural stand-in for llvm.VerifyModule (spec §4.6.5): since
// this package never links the real LLVM library, there is no IR parser to
// hand the output to, so verification instead re-scans the emitted text one
// function at a time, checking that every `%rN` register was defined earlier
// in that same function and that every block label used by a branch/phi is
// defined somewhere in that same function (a branch may jump forward to a
// block emitted later). It cannot catch type mismatches the way the real verifier does,
// but it does catch the class of bug this package's own bugs have been:
// a reference to a register or label that was never emitted.
func Verify(ir string) []string {
	var problems []string
	lines := strings.Split(ir, "\n")

	type labelUse struct {
		line int
		name string
	}

	defined := map[string]bool{}
	labels := map[string]bool{}
	var labelUses []labelUse
	inFunc := false

	flushFunc := func() {
		defined = map[string]bool{}
		labels = map[string]bool{}
		labelUses = nil
	}
	checkLabels := func() {
		for _, u := range labelUses {
			if !labels[u.name] {
				problems = append(problems, fmt.Sprintf("line %d: label %%%s is not defined in this function", u.line, u.name))
			}
		}
	}

	for lineNo, raw := range lines {
		line := strings.TrimRight(raw, "\r")
		trimmed := strings.TrimSpace(line)

		if strings.HasPrefix(trimmed, "define ") {
			inFunc = true
			flushFunc()
			for _, name := range argNamesIn(trimmed) {
				defined[name] = true
			}
			continue
		}
		if trimmed == "}" {
			if inFunc {
				checkLabels()
			}
			inFunc = false
			continue
		}
		if !inFunc {
			continue
		}

		if label := labelDefIn(trimmed); label != "" {
			labels[label] = true
			continue
		}

		if dst := assignDestIn(trimmed); dst != "" {
			for _, ref := range regRefsIn(trimmed) {
				if ref != dst && !defined[ref] {
					problems = append(problems, fmt.Sprintf("line %d: %s used before definition", lineNo+1, ref))
				}
			}
			defined[dst] = true
			for _, lbl := range labelRefsIn(trimmed) {
				labelUses = append(labelUses, labelUse{lineNo + 1, lbl})
			}
			continue
		}

		for _, ref := range regRefsIn(trimmed) {
			if !defined[ref] {
				problems = append(problems, fmt.Sprintf("line %d: %s used before definition", lineNo+1, ref))
			}
		}
		for _, lbl := range labelRefsIn(trimmed) {
			labelUses = append(labelUses, labelUse{lineNo + 1, lbl})
		}
	}
	if inFunc {
		checkLabels()
	}

	return problems
}

var (
	regDefRE   = regexp.MustCompile(`^(%r\d+)\s*=`)
	regRefRE   = regexp.MustCompile(`%r\d+`)
	labelDefRE = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_.]*)\s*:$`)
	labelRefRE = regexp.MustCompile(`label\s+%([A-Za-z0-9_.]+)`)
	argNameRE  = regexp.MustCompile(`%[A-Za-z_][A-Za-z0-9_.]*\.in`)
)

func assignDestIn(line string) string {
	m := regDefRE.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

func regRefsIn(line string) []string {
	return regRefRE.FindAllString(line, -1)
}

func labelDefIn(line string) string {
	m := labelDefRE.FindStringSubmatch(line)
	if m == nil {
		return ""
	}
	return m[1]
}

func labelRefsIn(line string) []string {
	matches := labelRefRE.FindAllStringSubmatch(line, -1)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m[1]
	}
	return out
}

// argNamesIn extracts a function definition's incoming `%name.in` parameter
// registers, which genFunction always stores to an alloca before any other
// instruction references them.
func argNamesIn(line string) []string {
	return argNameRE.FindAllString(line, -1)
}
