package main

// codegen_elf_x64.go - x86-64 Linux ELF code generation.
//
// The data pointer lives in rsi for the whole program; edx is loaded with
// 1 once in the prologue and never touched again, which lets every
// syscall reuse it as the read/write length argument and lets every
// byte-compare/byte-store against the tape use the one-byte-shorter
// "reg8, dh" encoding instead of a 3-byte immediate form, since dh is
// always zero whenever edx holds a value below 256. That invariant is
// fragile: nothing in this file may write edx or its 8/16-bit sub-registers
// after the prologue runs.
type elfX64Backend struct{}

// elfBSSBase64 is the fixed virtual address of the 64 KiB zero tape.
const elfBSSBase64 = 0x04248000

func (be *elfX64Backend) prologue(buf *codeBuffer, hasInput bool) {
	buf.writeByte(0x48) // REX.W
	buf.writeByte(0xBE) // movabs rsi, imm64
	buf.writeU64(elfBSSBase64)

	buf.writeByte(0xBA) // mov edx, 1
	buf.writeU32(1)
}

func (be *elfX64Backend) epilogue(buf *codeBuffer) {
	buf.writeByte(0xB8) // mov eax, 60 (exit)
	buf.writeU32(60)
	buf.writeBytes([]byte{0x31, 0xFF}) // xor edi, edi
	buf.writeBytes([]byte{0x0F, 0x05}) // syscall
}

func (be *elfX64Backend) emitPointerAdd(buf *codeBuffer, delta int32) {
	n := delta
	forward := true
	if n < 0 {
		forward = false
		n = -n
	}
	switch {
	case n == 1 && forward:
		buf.writeBytes([]byte{0x48, 0xFF, 0xC6}) // inc rsi
	case n == 1 && !forward:
		buf.writeBytes([]byte{0x48, 0xFF, 0xCE}) // dec rsi
	case n <= 127 && forward:
		buf.writeBytes([]byte{0x48, 0x83, 0xC6, byte(n)}) // add rsi, imm8
	case n <= 127 && !forward:
		buf.writeBytes([]byte{0x48, 0x83, 0xEE, byte(n)}) // sub rsi, imm8
	case forward:
		buf.writeBytes([]byte{0x48, 0x81, 0xC6}) // add rsi, imm32
		buf.writeU32(uint32(n))
	default:
		buf.writeBytes([]byte{0x48, 0x81, 0xEE}) // sub rsi, imm32
		buf.writeU32(uint32(n))
	}
}

func (be *elfX64Backend) emitCellAdd(buf *codeBuffer, op byte, n int) {
	switch {
	case n == 1 && op == '+':
		buf.writeBytes([]byte{0xFE, 0x06}) // inc byte [rsi]
	case n == 1 && op == '-':
		buf.writeBytes([]byte{0xFE, 0x0E}) // dec byte [rsi]
	case op == '+':
		buf.writeBytes([]byte{0x80, 0x06, byte(n)}) // add byte [rsi], imm8
	default:
		buf.writeBytes([]byte{0x80, 0x2E, byte(n)}) // sub byte [rsi], imm8
	}
}

func (be *elfX64Backend) emitZeroStore(buf *codeBuffer) {
	buf.writeBytes([]byte{0x88, 0x36}) // mov byte [rsi], dh  (dh==0, edx==1)
}

func (be *elfX64Backend) emitOutput(buf *codeBuffer) {
	buf.writeBytes([]byte{0x89, 0xD0}) // mov eax, edx  (syscall number 1 = write)
	buf.writeBytes([]byte{0x89, 0xD7}) // mov edi, edx  (fd 1 = stdout)
	buf.writeBytes([]byte{0x0F, 0x05}) // syscall
}

func (be *elfX64Backend) emitInput(buf *codeBuffer) {
	buf.writeBytes([]byte{0x31, 0xC0}) // xor eax, eax  (syscall number 0 = read)
	buf.writeBytes([]byte{0x31, 0xFF}) // xor edi, edi  (fd 0 = stdin)
	buf.writeBytes([]byte{0x0F, 0x05}) // syscall
}

// elfCondJumpSlotOffset is the distance from the start of the 2-byte
// "cmp byte [rsi], dh" to its paired je's rel32 slot.
const elfCondJumpSlotOffset = 4

func (be *elfX64Backend) emitLoopOpen(buf *codeBuffer) int {
	open := buf.pos()
	buf.writeBytes([]byte{0x38, 0x36}) // cmp byte [rsi], dh
	buf.writeBytes([]byte{0x0F, 0x84}) // je rel32
	buf.writeU32(0)                    // placeholder
	return open
}

func (be *elfX64Backend) emitLoopClose(buf *codeBuffer, open int) {
	jmpStart := buf.pos()
	var jmpEnd int
	if disp := open - (jmpStart + 2); disp >= -128 && disp <= 127 {
		buf.writeByte(0xEB)
		buf.writeByte(byte(int8(disp)))
		jmpEnd = jmpStart + 2
	} else {
		buf.writeByte(0xE9)
		buf.writeI32(int32(open - (jmpStart + 5)))
		jmpEnd = jmpStart + 5
	}

	jeSlot := open + elfCondJumpSlotOffset
	buf.patchU32At(jeSlot, uint32(int32(jmpEnd-(jeSlot+4))))
}
