package main

// codegen_pe_x64.go - x86-64 Windows PE code generation.
//
// The data pointer lives in rbx for the whole program. rsi/rdi hold the
// *addresses* of the putchar/getchar IAT slots (not the resolved function
// pointers themselves, which only exist once the Windows loader has bound
// the import table at process start) - so '.' and ',' call indirectly
// through memory, `call qword ptr [rsi]` / `call qword ptr [rdi]`.
type peX64Backend struct {
	putcharSlot int // position of the 4-byte ImageBase+IAT[putchar] patch site
	getcharSlot int // position of the 4-byte ImageBase+IAT[getchar] patch site
	bssSlot     int // position of the 4-byte ImageBase+.bss-RVA patch site
}

func (be *peX64Backend) prologue(buf *codeBuffer, hasInput bool) {
	buf.writeByte(0x56) // push rsi
	buf.writeByte(0x57) // push rdi
	buf.writeByte(0x55) // push rbp

	buf.writeByte(0xBE) // mov esi, imm32
	be.putcharSlot = buf.pos()
	buf.writeU32(0)

	buf.writeByte(0xBF) // mov edi, imm32
	be.getcharSlot = buf.pos()
	buf.writeU32(0)

	buf.writeByte(0xBB) // mov ebx, imm32
	be.bssSlot = buf.pos()
	buf.writeU32(0)
}

func (be *peX64Backend) epilogue(buf *codeBuffer) {
	// Pop order mirrors push order (see DESIGN.md Open Question decisions).
	buf.writeByte(0x5D) // pop rbp
	buf.writeByte(0x5F) // pop rdi
	buf.writeByte(0x5E) // pop rsi
	buf.writeBytes([]byte{0x31, 0xC0}) // xor eax, eax
	buf.writeByte(0xC3)                // ret
}

func (be *peX64Backend) emitPointerAdd(buf *codeBuffer, delta int32) {
	n := delta
	op := byte('>')
	if n < 0 {
		op = '<'
		n = -n
	}
	switch {
	case n == 1 && op == '>':
		buf.writeBytes([]byte{0x48, 0xFF, 0xC3}) // inc rbx
	case n == 1 && op == '<':
		buf.writeBytes([]byte{0x48, 0xFF, 0xCB}) // dec rbx
	case n <= 127 && op == '>':
		buf.writeBytes([]byte{0x48, 0x83, 0xC3, byte(n)}) // add rbx, imm8
	case n <= 127 && op == '<':
		buf.writeBytes([]byte{0x48, 0x83, 0xEB, byte(n)}) // sub rbx, imm8
	case op == '>':
		buf.writeBytes([]byte{0x48, 0x81, 0xC3}) // add rbx, imm32
		buf.writeU32(uint32(n))
	default:
		buf.writeBytes([]byte{0x48, 0x81, 0xEB}) // sub rbx, imm32
		buf.writeU32(uint32(n))
	}
}

func (be *peX64Backend) emitCellAdd(buf *codeBuffer, op byte, n int) {
	switch {
	case n == 1 && op == '+':
		buf.writeBytes([]byte{0xFE, 0x03}) // inc byte [rbx]
	case n == 1 && op == '-':
		buf.writeBytes([]byte{0xFE, 0x0B}) // dec byte [rbx]
	case op == '+':
		buf.writeBytes([]byte{0x80, 0x03, byte(n)}) // add byte [rbx], imm8
	default:
		buf.writeBytes([]byte{0x80, 0x2B, byte(n)}) // sub byte [rbx], imm8
	}
}

func (be *peX64Backend) emitZeroStore(buf *codeBuffer) {
	buf.writeBytes([]byte{0xC6, 0x03, 0x00}) // mov byte [rbx], 0
}

func (be *peX64Backend) emitOutput(buf *codeBuffer) {
	buf.writeBytes([]byte{0x0F, 0xB6, 0x0B})       // movzx ecx, byte [rbx]
	buf.writeBytes([]byte{0x48, 0x83, 0xEC, 0x20}) // sub rsp, 0x20 (shadow space)
	buf.writeBytes([]byte{0xFF, 0x16})             // call qword [rsi]  (putchar)
	buf.writeBytes([]byte{0x48, 0x83, 0xC4, 0x20}) // add rsp, 0x20
}

func (be *peX64Backend) emitInput(buf *codeBuffer) {
	buf.writeBytes([]byte{0x48, 0x83, 0xEC, 0x20}) // sub rsp, 0x20
	buf.writeBytes([]byte{0xFF, 0x17})             // call qword [rdi]  (getchar)
	buf.writeBytes([]byte{0x48, 0x83, 0xC4, 0x20}) // add rsp, 0x20
	buf.writeBytes([]byte{0x88, 0x03})             // mov [rbx], al
}

// peCondJumpSlotOffset is the distance from the start of "cmp byte [rbx],0"
// to its paired je's rel32 slot: 3 bytes of cmp + 2 bytes of je opcode.
const peCondJumpSlotOffset = 5

func (be *peX64Backend) emitLoopOpen(buf *codeBuffer) int {
	open := buf.pos()
	buf.writeBytes([]byte{0x80, 0x3B, 0x00}) // cmp byte [rbx], 0
	buf.writeBytes([]byte{0x0F, 0x84})       // je rel32
	buf.writeU32(0)                          // placeholder, patched in emitLoopClose
	return open
}

func (be *peX64Backend) emitLoopClose(buf *codeBuffer, open int) {
	jmpStart := buf.pos()
	target := open
	var jmpEnd int
	if disp := target - (jmpStart + 2); disp >= -128 && disp <= 127 {
		buf.writeByte(0xEB) // jmp rel8
		buf.writeByte(byte(int8(disp)))
		jmpEnd = jmpStart + 2
	} else {
		buf.writeByte(0xE9) // jmp rel32
		disp32 := int32(target - (jmpStart + 5))
		buf.writeI32(disp32)
		jmpEnd = jmpStart + 5
	}

	jeSlot := open + peCondJumpSlotOffset
	jeValue := int32(jmpEnd - (jeSlot + 4))
	buf.patchU32At(jeSlot, uint32(jeValue))
}
