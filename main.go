package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xyproto/env/v2"
)

// main.go - CLI entry point.
//
// Short and long forms for the same flag, plus BFC_* environment overrides
// read through xyproto/env/v2.
const version = "0.1.0"

var verboseMode bool

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("bfc", flag.ContinueOnError)

	var (
		target    = fs.String("target", "", "output container: pe, elf64, or elf32 (default: host)")
		output    = fs.String("o", "", "output path")
		outputLng = fs.String("output", "", "output path (long form of -o)")
		verbose   = fs.Bool("v", false, "verbose logging")
		verboseLn = fs.Bool("verbose", false, "verbose logging (long form of -v)")
		showVer   = fs.Bool("V", false, "print version and exit")
		showVerLn = fs.Bool("version", false, "print version and exit (long form of -V)")
		keep      = fs.Bool("keep", false, "keep the compiled executable instead of deleting it after it runs")
		noExec    = fs.Bool("no-exec", false, "compile only, do not run the result")
	)

	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *showVer || *showVerLn {
		fmt.Println("bfc", version)
		return 0
	}

	verboseMode = *verbose || *verboseLn || env.Bool("BFC_VERBOSE")

	source := fs.Arg(0)
	if source == "" {
		source = env.Str("BFC_SOURCE")
	}
	if source == "" {
		source = "source.bf"
	}

	out := *output
	if out == "" {
		out = *outputLng
	}
	if out == "" {
		out = env.Str("BFC_OUTPUT")
	}

	targetStr := *target
	if targetStr == "" {
		targetStr = env.Str("BFC_TARGET")
	}

	var t Target
	var err error
	if targetStr == "" {
		t = GetDefaultTarget()
	} else {
		t, err = ParseTarget(targetStr)
		if err != nil {
			fmt.Fprintln(os.Stderr, "bfc:", err)
			return 1
		}
	}

	opts := CompileOptions{
		Source:  source,
		Output:  out,
		Target:  t,
		Verbose: verboseMode,
		Keep:    *keep,
		NoExec:  *noExec,
	}

	code, err := Compile(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return code
}
