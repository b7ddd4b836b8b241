package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rill-lang/rill/compiler"
	"github.com/rill-lang/rill/lexer"
	"github.com/rill-lang/rill/parser"
	"tinygo.org/x/go-llvm"
)

var RL_SUFFIX = ".rl"
var IR_SUFFIX = ".ll"

var OPT_LEVEL = "-O2" // Can be configured via flag

func usage() {
	fmt.Println("usage: rill [-ir] [-version] file" + RL_SUFFIX)
}

// compileFile parses and lowers one source file, returning textual IR.
// Diagnostics are printed; ok is false when any stage failed.
func compileFile(srcFile string) (ir string, ok bool) {
	source, err := os.ReadFile(srcFile)
	if err != nil {
		fmt.Printf("Error reading %s: %v\n", srcFile, err)
		return "", false
	}

	name := strings.TrimSuffix(filepath.Base(srcFile), RL_SUFFIX)
	l := lexer.New(filepath.Base(srcFile), string(source))
	p := parser.New(l)
	program := p.ParseProgram()
	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Printf("%s: %s\n", srcFile, e)
		}
		return "", false
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	c := compiler.NewCompiler(ctx, name)
	if errs := c.Compile(program); len(errs) > 0 {
		for _, e := range errs {
			fmt.Println(e.Error())
		}
		return "", false
	}

	return c.GenerateIR(), true
}

func main() {
	emitIR := false
	srcFile := ""
	for _, arg := range os.Args[1:] {
		switch arg {
		case "-ir":
			emitIR = true
		case "-version", "--version":
			printVersion()
			return
		default:
			if srcFile != "" {
				usage()
				os.Exit(2)
			}
			srcFile = arg
		}
	}
	if srcFile == "" || !strings.HasSuffix(srcFile, RL_SUFFIX) {
		usage()
		os.Exit(2)
	}

	ir, ok := compileFile(srcFile)
	if !ok {
		os.Exit(1)
	}

	name := strings.TrimSuffix(filepath.Base(srcFile), RL_SUFFIX)
	if emitIR {
		outPath := strings.TrimSuffix(srcFile, RL_SUFFIX) + IR_SUFFIX
		if err := os.WriteFile(outPath, []byte(ir), 0644); err != nil {
			fmt.Printf("Error writing IR to %s: %v\n", outPath, err)
			os.Exit(1)
		}
		fmt.Printf("Wrote IR to %s\n", outPath)
		return
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Printf("Error getting current working directory: %v\n", err)
		os.Exit(1)
	}
	binPath, err := buildBinary(name, ir, cwd)
	if err != nil {
		fmt.Printf("⚠️ Binary generation failed for %s: %v\n", name, err)
		os.Exit(1)
	}
	fmt.Printf("✅ Successfully built binary: %s\n", binPath)
}
