package main

// codegen.go - the single-pass streaming code generator shared by all
// three targets.
//
// Only instruction encoding varies by target; run-length folding, the
// zero-store peephole, and loop bracket matching are implemented exactly
// once here, driven through a small per-target instruction-encoding
// interface so all three targets share the run-length and loop-matching
// logic unchanged.

// backend lowers normalized Brainfuck tokens into machine code for one
// target. Each method appends to buf and returns nothing except
// emitLoopOpen, which returns an opaque site id that emitLoopClose later
// consumes to resolve the matching backward/forward jump.
type backend interface {
	// prologue emits the fixed function entry sequence. hasInput is the
	// result of hasInputOp against the whole token stream; only the
	// ELF-32 backend uses it, to hoist write-syscall setup when the
	// program never reads input.
	prologue(buf *codeBuffer, hasInput bool)

	// epilogue emits the process-exit sequence.
	epilogue(buf *codeBuffer)

	// emitPointerAdd emits pointer-register arithmetic for '>' (delta>0)
	// or '<' (delta<0), already reduced to a single run.
	emitPointerAdd(buf *codeBuffer, delta int32)

	// emitCellAdd emits *ptr += n (op=='+') or *ptr -= n (op=='-'), with n
	// already reduced modulo 256 and guaranteed nonzero by the caller.
	emitCellAdd(buf *codeBuffer, op byte, n int)

	// emitZeroStore emits the "[-]"/"[+]" peephole: store zero at *ptr.
	emitZeroStore(buf *codeBuffer)

	// emitOutput emits '.'.
	emitOutput(buf *codeBuffer)

	// emitInput emits ','.
	emitInput(buf *codeBuffer)

	// emitLoopOpen emits "cmp byte [ptr], 0; je rel32=0" and returns the
	// site id emitLoopClose needs to patch the forward branch.
	emitLoopOpen(buf *codeBuffer) int

	// emitLoopClose emits the backward jump (short or near, whichever
	// fits) back to openSite, then patches openSite's je rel32 to land
	// immediately after the jump just emitted.
	emitLoopClose(buf *codeBuffer, openSite int)
}

// compile lowers the normalized token stream into buf using be. It performs
// the two allowed peepholes (run-length folding of `+ - > <`, and
// `[-]`/`[+]` -> zero-store) and maintains the LIFO loop stack invariant:
// empty at the end, or the source is ill-formed.
func compile(tokens []byte, be backend, buf *codeBuffer) error {
	hasInput := hasInputOp(tokens)
	be.prologue(buf, hasInput)

	var loopStack []int

	for i := 0; i < len(tokens); {
		op := tokens[i]

		// Zero-store peephole: the exact 3-byte window "[-]" or "[+]"
		// lowers to one store and must not touch the loop stack.
		if op == '[' && i+2 < len(tokens) &&
			(tokens[i+1] == '+' || tokens[i+1] == '-') &&
			tokens[i+2] == ']' {
			be.emitZeroStore(buf)
			i += 3
			continue
		}

		switch op {
		case '>', '<':
			n := countRun(tokens, i, op)
			delta := int32(n)
			if op == '<' {
				delta = -delta
			}
			be.emitPointerAdd(buf, delta)
			i += n

		case '+', '-':
			n := countRun(tokens, i, op)
			reduced := n % 256
			if reduced != 0 {
				be.emitCellAdd(buf, op, reduced)
			}
			i += n

		case '.':
			be.emitOutput(buf)
			i++

		case ',':
			be.emitInput(buf)
			i++

		case '[':
			site := be.emitLoopOpen(buf)
			loopStack = append(loopStack, site)
			i++

		case ']':
			if len(loopStack) == 0 {
				return errUnmatchedClose
			}
			open := loopStack[len(loopStack)-1]
			loopStack = loopStack[:len(loopStack)-1]
			be.emitLoopClose(buf, open)
			i++

		default:
			// normalizeSource guarantees this cannot happen.
			i++
		}
	}

	if len(loopStack) != 0 {
		return errUnmatchedOpen
	}

	be.epilogue(buf)
	return nil
}
