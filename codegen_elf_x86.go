package main

// codegen_elf_x86.go - i386 Linux ELF code generation.
//
// Same shape as codegen_elf_x64.go scaled to 32-bit registers and the
// int 0x80 syscall gate instead of SYSCALL. ecx is the data pointer; edx
// holds 1 for the same reason as the x64 backend (syscall length and the
// dh==0 short-encoding trick). When the program never reads input,
// hasInputOp lets the prologue additionally hoist eax=4 (write) and
// ebx=edx (fd 1) once, so each '.' shrinks to a bare `int 0x80`.
type elfX86Backend struct {
	outputOnly bool
}

const elfBSSBase32 = 0x04248000

func (be *elfX86Backend) prologue(buf *codeBuffer, hasInput bool) {
	be.outputOnly = !hasInput

	buf.writeByte(0xB9) // mov ecx, imm32 (bss base)
	buf.writeU32(elfBSSBase32)

	buf.writeByte(0xBA) // mov edx, 1
	buf.writeU32(1)

	if be.outputOnly {
		buf.writeByte(0xB8) // mov eax, 4 (write)
		buf.writeU32(4)
		buf.writeBytes([]byte{0x89, 0xD3}) // mov ebx, edx (fd 1)
	}
}

func (be *elfX86Backend) epilogue(buf *codeBuffer) {
	buf.writeBytes([]byte{0x89, 0xD0}) // mov eax, edx (exit syscall number 1)
	buf.writeBytes([]byte{0x31, 0xDB}) // xor ebx, ebx (exit code 0)
	buf.writeBytes([]byte{0xCD, 0x80}) // int 0x80
}

func (be *elfX86Backend) emitPointerAdd(buf *codeBuffer, delta int32) {
	n := delta
	forward := true
	if n < 0 {
		forward = false
		n = -n
	}
	switch {
	case n == 1 && forward:
		buf.writeByte(0x41) // inc ecx
	case n == 1 && !forward:
		buf.writeByte(0x49) // dec ecx
	case n <= 127 && forward:
		buf.writeBytes([]byte{0x83, 0xC1, byte(n)}) // add ecx, imm8
	case n <= 127 && !forward:
		buf.writeBytes([]byte{0x83, 0xE9, byte(n)}) // sub ecx, imm8
	case forward:
		buf.writeBytes([]byte{0x81, 0xC1}) // add ecx, imm32
		buf.writeU32(uint32(n))
	default:
		buf.writeBytes([]byte{0x81, 0xE9}) // sub ecx, imm32
		buf.writeU32(uint32(n))
	}
}

func (be *elfX86Backend) emitCellAdd(buf *codeBuffer, op byte, n int) {
	switch {
	case n == 1 && op == '+':
		buf.writeBytes([]byte{0xFE, 0x01}) // inc byte [ecx]
	case n == 1 && op == '-':
		buf.writeBytes([]byte{0xFE, 0x09}) // dec byte [ecx]
	case op == '+':
		buf.writeBytes([]byte{0x80, 0x01, byte(n)}) // add byte [ecx], imm8
	default:
		buf.writeBytes([]byte{0x80, 0x29, byte(n)}) // sub byte [ecx], imm8
	}
}

func (be *elfX86Backend) emitZeroStore(buf *codeBuffer) {
	buf.writeBytes([]byte{0x88, 0x31}) // mov byte [ecx], dh
}

func (be *elfX86Backend) emitOutput(buf *codeBuffer) {
	if be.outputOnly {
		buf.writeBytes([]byte{0xCD, 0x80}) // int 0x80 (eax/ebx hoisted in prologue)
		return
	}
	buf.writeByte(0xB8) // mov eax, 4 (write)
	buf.writeU32(4)
	buf.writeBytes([]byte{0x89, 0xD3}) // mov ebx, edx (fd 1)
	buf.writeBytes([]byte{0xCD, 0x80}) // int 0x80
}

func (be *elfX86Backend) emitInput(buf *codeBuffer) {
	buf.writeByte(0xB8) // mov eax, 3 (read)
	buf.writeU32(3)
	buf.writeBytes([]byte{0x31, 0xDB}) // xor ebx, ebx (fd 0)
	buf.writeBytes([]byte{0xCD, 0x80}) // int 0x80
}

const elfCondJumpSlotOffset32 = 4

func (be *elfX86Backend) emitLoopOpen(buf *codeBuffer) int {
	open := buf.pos()
	buf.writeBytes([]byte{0x38, 0x31}) // cmp byte [ecx], dh
	buf.writeBytes([]byte{0x0F, 0x84}) // je rel32
	buf.writeU32(0)
	return open
}

func (be *elfX86Backend) emitLoopClose(buf *codeBuffer, open int) {
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

	jeSlot := open + elfCondJumpSlotOffset32
	buf.patchU32At(jeSlot, uint32(int32(jmpEnd-(jeSlot+4))))
}
