package main

import (
	"bytes"
	"testing"
)

func TestELFx64PrologueSetsUpPointerAndConstantOne(t *testing.T) {
	buf := &codeBuffer{}
	be := &elfX64Backend{}
	be.prologue(buf, false)
	want := []byte{0x48, 0xBE, 0x00, 0x80, 0x24, 0x04, 0x00, 0x00, 0x00, 0x00, 0xBA, 0x01, 0x00, 0x00, 0x00}
	if !bytes.Equal(buf.bytes(), want) {
		t.Fatalf("prologue = % x, want % x", buf.bytes(), want)
	}
}

func TestELFx64EpilogueIsExitZero(t *testing.T) {
	buf := &codeBuffer{}
	be := &elfX64Backend{}
	be.epilogue(buf)
	want := []byte{0xB8, 60, 0, 0, 0, 0x31, 0xFF, 0x0F, 0x05}
	if !bytes.Equal(buf.bytes(), want) {
		t.Fatalf("epilogue = % x, want % x", buf.bytes(), want)
	}
}

func TestELFx64ZeroStoreUsesDhTrick(t *testing.T) {
	buf := &codeBuffer{}
	be := &elfX64Backend{}
	be.emitZeroStore(buf)
	want := []byte{0x88, 0x36} // mov byte [rsi], dh
	if !bytes.Equal(buf.bytes(), want) {
		t.Fatalf("emitZeroStore = % x, want % x", buf.bytes(), want)
	}
}

func TestELFx64PointerAddPicksShortestEncoding(t *testing.T) {
	cases := []struct {
		delta int32
		want  []byte
	}{
		{1, []byte{0x48, 0xFF, 0xC6}},
		{-1, []byte{0x48, 0xFF, 0xCE}},
		{5, []byte{0x48, 0x83, 0xC6, 5}},
		{-5, []byte{0x48, 0x83, 0xEE, 5}},
		{1000, []byte{0x48, 0x81, 0xC6, 0xE8, 0x03, 0x00, 0x00}},
	}
	for _, c := range cases {
		buf := &codeBuffer{}
		(&elfX64Backend{}).emitPointerAdd(buf, c.delta)
		if !bytes.Equal(buf.bytes(), c.want) {
			t.Fatalf("emitPointerAdd(%d) = % x, want % x", c.delta, buf.bytes(), c.want)
		}
	}
}

func TestELFx64LoopOpenCloseShortJump(t *testing.T) {
	buf := &codeBuffer{}
	be := &elfX64Backend{}
	open := be.emitLoopOpen(buf)
	be.emitInput(buf) // arbitrary 3-instruction filler body
	be.emitLoopClose(buf, open)

	raw := buf.bytes()
	if raw[open] != 0x38 || raw[open+1] != 0x36 {
		t.Fatalf("cmp encoding = % x, want 38 36", raw[open:open+2])
	}
	if raw[open+2] != 0x0F || raw[open+3] != 0x84 {
		t.Fatalf("je opcode = % x, want 0f 84", raw[open+2:open+4])
	}
	// Short body: backward jump must use the 2-byte short form.
	last := raw[len(raw)-2:]
	if last[0] != 0xEB {
		t.Fatalf("backward jump = % x, want eb xx (short jmp)", last)
	}
}
