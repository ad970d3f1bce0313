package main

import (
	"bytes"
	"testing"
)

func TestCompileUnmatchedOpen(t *testing.T) {
	buf := &codeBuffer{}
	if err := compile([]byte("[[+]"), &elfX64Backend{}, buf); err != errUnmatchedOpen {
		t.Fatalf("err = %v, want errUnmatchedOpen", err)
	}
}

func TestCompileUnmatchedClose(t *testing.T) {
	buf := &codeBuffer{}
	if err := compile([]byte("[+]]"), &elfX64Backend{}, buf); err != errUnmatchedClose {
		t.Fatalf("err = %v, want errUnmatchedClose", err)
	}
}

func TestCompileEmptyProgram(t *testing.T) {
	buf := &codeBuffer{}
	if err := compile(nil, &elfX64Backend{}, buf); err != nil {
		t.Fatalf("compile(empty) error = %v", err)
	}
	if buf.pos() == 0 {
		t.Fatalf("empty program produced no bytes, want at least prologue+epilogue")
	}
}

func TestCompileZeroStorePeepholeShorterThanLoop(t *testing.T) {
	peephole := &codeBuffer{}
	if err := compile([]byte("[-]"), &elfX64Backend{}, peephole); err != nil {
		t.Fatalf("compile([-]) error = %v", err)
	}

	baseline := &codeBuffer{}
	if err := compile(nil, &elfX64Backend{}, baseline); err != nil {
		t.Fatalf("compile(nil) error = %v", err)
	}

	delta := peephole.pos() - baseline.pos()
	if delta != 2 {
		t.Fatalf("zero-store peephole added %d bytes, want 2 (mov byte [rsi], dh)", delta)
	}

	// The peephole must not have emitted a conditional jump: je rel32 is
	// 0x0F 0x84, which never appears in a correctly-folded "[-]".
	if bytes.Contains(peephole.bytes(), []byte{0x0F, 0x84}) {
		t.Fatalf("zero-store peephole emitted a conditional jump, peephole not applied")
	}
}

func TestCompileRunLengthFolding(t *testing.T) {
	// Ten '+' in a row must fold to one emitCellAdd call, not ten.
	one := &codeBuffer{}
	if err := compile([]byte("+"), &elfX64Backend{}, one); err != nil {
		t.Fatal(err)
	}
	ten := &codeBuffer{}
	if err := compile([]byte("++++++++++"), &elfX64Backend{}, ten); err != nil {
		t.Fatal(err)
	}
	// "+" with n=1 uses the 2-byte inc form; "++++++++++" (n=10) uses the
	// 3-byte add-imm8 form. Both are single instructions, so the delta is
	// small and constant regardless of run length.
	if ten.pos()-one.pos() != 1 {
		t.Fatalf("10x '+' vs 1x '+' delta = %d, want 1 (inc -> add imm8)", ten.pos()-one.pos())
	}

	hundred := &codeBuffer{}
	if err := compile([]byte(repeat('+', 100)), &elfX64Backend{}, hundred); err != nil {
		t.Fatal(err)
	}
	if hundred.pos() != ten.pos() {
		t.Fatalf("100x '+' vs 10x '+' sizes differ (%d vs %d), run-length folding not applied",
			hundred.pos(), ten.pos())
	}
}

func TestCompileCellAddWrapsModulo256(t *testing.T) {
	// 256 consecutive '+' must cancel out entirely: net effect is +0.
	buf := &codeBuffer{}
	if err := compile([]byte(repeat('+', 256)), &elfX64Backend{}, buf); err != nil {
		t.Fatal(err)
	}
	baseline := &codeBuffer{}
	if err := compile(nil, &elfX64Backend{}, baseline); err != nil {
		t.Fatal(err)
	}
	if buf.pos() != baseline.pos() {
		t.Fatalf("256x '+' emitted %d bytes beyond prologue+epilogue, want 0 (mod-256 reduction to zero)",
			buf.pos()-baseline.pos())
	}
}

func TestCompileLoopChoosesShortJumpForSmallBody(t *testing.T) {
	buf := &codeBuffer{}
	if err := compile([]byte("[>]"), &elfX64Backend{}, buf); err != nil {
		t.Fatal(err)
	}
	// A backward jump over a single instruction must use the 2-byte short
	// form (0xEB), never the 5-byte near form (0xE9).
	if bytes.Contains(buf.bytes(), []byte{0xE9}) {
		t.Fatalf("small loop body used near jmp (0xE9), want short jmp (0xEB)")
	}
}

func TestCompileLoopChoosesNearJumpForLargeBody(t *testing.T) {
	// A body of 200 individual cell increments (deliberately not folded:
	// mixed with pointer moves to defeat run-length folding) is long
	// enough in emitted bytes to force a near jump.
	var body bytes.Buffer
	for i := 0; i < 200; i++ {
		body.WriteString("+>")
	}
	src := "[" + body.String() + "]"

	buf := &codeBuffer{}
	if err := compile([]byte(src), &elfX64Backend{}, buf); err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(buf.bytes(), []byte{0xE9}) {
		t.Fatalf("large loop body did not use a near jmp (0xE9)")
	}
}

func repeat(b byte, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}
