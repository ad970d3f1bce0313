package main

import "strings"

// token.go - source normalization and the run-length scanner used by the
// single-pass code generator.
//
// Brainfuck has no grammar beyond eight single-character operators, so
// there is no token struct, no AST, and no separate tokenize pass:
// normalization produces a plain []byte of operators, and the code
// generator folds runs directly out of that slice.

// bfOps is the set of the eight Brainfuck command bytes. Anything else in
// the source is a comment and is discarded by normalizeSource.
const bfOps = "><+-.,[]"

func isBFOp(b byte) bool {
	return strings.IndexByte(bfOps, b) >= 0
}

// normalizeSource strips every byte that is not one of the eight Brainfuck
// operators, preserving order. It is idempotent: normalizing its own output
// returns the same bytes unchanged.
func normalizeSource(src []byte) []byte {
	out := make([]byte, 0, len(src))
	for _, b := range src {
		if isBFOp(b) {
			out = append(out, b)
		}
	}
	return out
}

// countRun returns the largest k >= 0 such that buf[pos:pos+k] are all equal
// to ch.
func countRun(buf []byte, pos int, ch byte) int {
	k := 0
	for pos+k < len(buf) && buf[pos+k] == ch {
		k++
	}
	return k
}

// hasInputOp reports whether any ',' appears in the normalized token
// stream. The ELF-32 backend needs to know this before emitting its
// prologue, so this is a plain, explicit, side-effect-free scan rather
// than a flag computed as a side effect buried inside normalizeSource.
func hasInputOp(tokens []byte) bool {
	for _, b := range tokens {
		if b == ',' {
			return true
		}
	}
	return false
}
