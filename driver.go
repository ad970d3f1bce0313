package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// driver.go - end-to-end compilation pipeline: read source, normalize,
// run the shared code generator against the chosen target's backend,
// finalize the container, write it to disk, mark it executable, and
// (unless suppressed) run it.
//
// The actual child-process launch is pulled behind a package-level var so
// tests can substitute it, keeping the rest of the pipeline unit-testable
// without actually executing a freshly compiled binary.
type CompileOptions struct {
	Source string
	Output string
	Target Target
	Verbose bool
	Keep    bool
	NoExec  bool
}

// execChild launches the freshly written executable. Replaced in tests.
var execChild = func(path string, verbose bool) error {
	cmd := exec.Command(path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if verbose {
		fmt.Fprintf(os.Stderr, "bfc: running %s\n", path)
	}
	return cmd.Run()
}

// Compile reads opts.Source, assembles an executable for opts.Target, and
// writes it to opts.Output (or the target's default name). Unless
// opts.NoExec is set, it then runs the result and returns the child's exit
// code: the compiler's own exit status is whatever the child returned, not
// a flat 1 on a nonzero child exit.
func Compile(opts CompileOptions) (int, error) {
	src, err := os.ReadFile(opts.Source)
	if err != nil {
		return 0, fmt.Errorf("bfc: reading source: %w", err)
	}

	tokens := normalizeSource(src)

	image, err := assemble(tokens, opts.Target)
	if err != nil {
		return 0, fmt.Errorf("bfc: %s: %w", opts.Source, err)
	}

	out := opts.Output
	if out == "" {
		out = opts.Target.defaultOutputName()
	}

	if err := os.WriteFile(out, image, 0o644); err != nil {
		return 0, fmt.Errorf("bfc: writing %s: %w", out, err)
	}

	if opts.Target.IsELF() {
		if err := chmodExecutable(out); err != nil {
			return 0, fmt.Errorf("bfc: chmod %s: %w", out, err)
		}
	}

	if opts.Verbose {
		fmt.Fprintf(os.Stderr, "bfc: wrote %s (%s, %d bytes)\n", out, opts.Target.FullString(), len(image))
	}

	if opts.NoExec {
		return 0, nil
	}

	exitCode := 0
	if err := execChild(out, opts.Verbose); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return 0, fmt.Errorf("bfc: running %s: %w", out, err)
		}
	}

	if !opts.Keep {
		_ = os.Remove(out)
	}
	return exitCode, nil
}

// assemble runs the single-pass code generator for t's backend and
// returns the finished container image bytes.
func assemble(tokens []byte, t Target) ([]byte, error) {
	switch t {
	case TargetPE:
		out := &codeBuffer{}
		out.writeN(0, peHeaderRegion)
		codeStart := out.pos()

		be := &peX64Backend{}
		if err := compile(tokens, be, out); err != nil {
			return nil, err
		}
		rawCodeSize := out.pos() - codeStart
		out.writeN(0, alignUp(rawCodeSize, peSectionAlign)-rawCodeSize)

		writePE(out, be, rawCodeSize)
		return out.bytes(), nil

	case TargetELF64:
		code := &codeBuffer{}
		be := &elfX64Backend{}
		if err := compile(tokens, be, code); err != nil {
			return nil, err
		}
		return buildELF(t.Bits(), elfMachineX8664, code.bytes()), nil

	case TargetELF32:
		code := &codeBuffer{}
		be := &elfX86Backend{}
		if err := compile(tokens, be, code); err != nil {
			return nil, err
		}
		return buildELF(t.Bits(), elfMachine386, code.bytes()), nil

	default:
		return nil, fmt.Errorf("unsupported target %v", t)
	}
}
