// Command nomadc is an ahead-of-time compiler for Nomad: it parses a source
// file, resolves and type-checks it, lowers it to LLVM IR, runs a
// structural verification pass, and links the result against the ARC
// runtime into a native executable (spec §6).
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/maloquacious/semver"
	"github.com/spf13/cobra"

	"github.com/nomad-lang/nomadc/internal/codegen"
	"github.com/nomad-lang/nomadc/internal/diag"
	"github.com/nomad-lang/nomadc/internal/parser"
	"github.com/nomad-lang/nomadc/internal/resolver"
)

var version = semver.Version{
	Major: 0,
	Minor: 1,
	Patch: 0,
	Build: semver.Commit(),
}

// Exit codes (spec §6.2): 0 success, 1 compile error, 2 linker failure,
// 3 I/O failure.
const (
	exitOK         = 0
	exitCompileErr = 1
	exitLinkErr    = 2
	exitIOErr      = 3
)

var args struct {
	buildDir string
	runtime  string
	dumpIR   bool
	optimize bool
	output   string
}

func main() {
	for _, arg := range os.Args {
		if arg == "-version" || arg == "--version" {
			fmt.Println(version.Short())
			return
		}
		if arg == "-build-info" || arg == "--build-info" {
			fmt.Println(version.String())
			return
		}
	}
	log.SetFlags(0)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCompileErr)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nomadc <source-file>",
	Short: "Compile a Nomad source file to a native executable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, positional []string) error {
		compile(positional[0])
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(&args.buildDir, "build-dir", ".build", "scratch directory for intermediate build artifacts")
	rootCmd.Flags().StringVar(&args.runtime, "runtime", "", "library search root for the ARC runtime (-lcobraruntime)")
	rootCmd.Flags().BoolVar(&args.dumpIR, "dump-ir", false, "print the verified LLVM IR to stdout")
	rootCmd.Flags().BoolVar(&args.optimize, "optimize", false, "run the LLVM optimizer pipeline over the generated IR")
	rootCmd.Flags().StringVarP(&args.output, "output", "o", "", "output executable name (default: source file stem)")
}

// compile drives the read -> parse -> resolve -> codegen -> verify ->
// (optimize) -> llc -> link pipeline for a single source file, exiting the
// process with the exit code appropriate to whichever phase failed.
func compile(sourcePath string) {
	formatter := diag.NewFormatter()

	src, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nomadc: %s: %v\n", sourcePath, err)
		os.Exit(exitIOErr)
	}

	moduleName := strings.TrimSuffix(filepath.Base(sourcePath), filepath.Ext(sourcePath))

	mod, err := parser.ParseModule(string(src), moduleName)
	if err != nil {
		reportCompileError(formatter, sourcePath, err)
		os.Exit(exitCompileErr)
	}

	if err := resolver.Resolve(mod); err != nil {
		reportCompileError(formatter, sourcePath, err)
		os.Exit(exitCompileErr)
	}

	ir, err := codegen.Generate(mod)
	if err != nil {
		fmt.Fprintf(os.Stderr, "nomadc: codegen: %v\n", err)
		os.Exit(exitCompileErr)
	}

	if problems := codegen.Verify(ir); len(problems) > 0 {
		for _, p := range problems {
			fmt.Fprintf(os.Stderr, "nomadc: verify: %s\n", p)
		}
		os.Exit(exitCompileErr)
	}

	if args.dumpIR {
		fmt.Println(ir)
	}

	scratchDir := filepath.Join(args.buildDir, uuid.NewString())
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "nomadc: %v\n", err)
		os.Exit(exitIOErr)
	}

	irFile := filepath.Join(scratchDir, moduleName+".ll")
	if err := os.WriteFile(irFile, []byte(ir), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "nomadc: %v\n", err)
		os.Exit(exitIOErr)
	}

	if args.optimize {
		optimized, err := optimizeLLVM(irFile)
		if err != nil {
			log.Printf("nomadc: optimization skipped: %v", err)
		} else {
			irFile = optimized
		}
	}

	objFile := filepath.Join(scratchDir, moduleName+".o")
	if err := runLLC(irFile, objFile); err != nil {
		fmt.Fprintf(os.Stderr, "nomadc: llc: %v\n", err)
		os.Exit(exitLinkErr)
	}

	outName := args.output
	if outName == "" {
		outName = moduleName
	}
	if err := link(objFile, outName); err != nil {
		fmt.Fprintf(os.Stderr, "nomadc: link: %v\n", err)
		os.Exit(exitLinkErr)
	}

	log.Printf("nomadc: wrote %s", outName)
}

// diagnosticError is satisfied by parser.Error and resolver.Error, the two
// phases that carry a reportable span.
type diagnosticError interface {
	error
	ToDiagnostic() diag.Diagnostic
}

func reportCompileError(formatter *diag.Formatter, sourcePath string, err error) {
	de, ok := err.(diagnosticError)
	if !ok {
		fmt.Fprintf(os.Stderr, "nomadc: %v\n", err)
		return
	}
	d := de.ToDiagnostic()
	if d.Span.Filename == "" {
		d.Span.Filename = sourcePath
	}
	for i := range d.LabeledSpans {
		if d.LabeledSpans[i].Span.Filename == "" {
			d.LabeledSpans[i].Span.Filename = sourcePath
		}
	}
	formatter.Format(d)
}

func findLLVMTool(name string) (string, error) {
	if path, err := exec.LookPath(name); err == nil {
		return path, nil
	}
	for _, prefix := range []string{"/opt/homebrew", "/usr/local"} {
		path := filepath.Join(prefix, "opt/llvm/bin", name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("%s not found in PATH or common installation locations", name)
}

// optimizeLLVM runs the LLVM optimizer over irFile, returning the path to
// the optimized output. Missing opt is non-fatal: the caller falls back to
// the unoptimized IR.
func optimizeLLVM(irFile string) (string, error) {
	optPath, err := findLLVMTool("opt")
	if err != nil {
		return "", err
	}
	optFile := irFile + ".opt"

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, optPath, "-S", "-o", optFile, "-passes=default<O2>", irFile)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%v: %s", err, stderr.String())
	}
	return optFile, nil
}

func runLLC(irFile, objFile string) error {
	llcPath, err := findLLVMTool("llc")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, llcPath, "-filetype=obj", "-o", objFile, irFile)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v: %s", err, stderr.String())
	}
	return nil
}

// link invokes the system linker against the ARC runtime (spec §6.4):
// `gcc -o <exe> <obj> -lcobraruntime`, with an extra `-L<runtime>` search
// path when --runtime is given.
func link(objFile, outName string) error {
	linkArgs := []string{"-o", outName, objFile}
	if args.runtime != "" {
		linkArgs = append(linkArgs, "-L"+args.runtime)
	}
	linkArgs = append(linkArgs, "-lcobraruntime")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gcc", linkArgs...)
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%v: %s", err, stderr.String())
	}
	return nil
}
