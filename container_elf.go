package main

// container_elf.go - ELF container assembly shared by the x86-64 and i386
// Linux targets.
//
// Header assembly is parameterized over bit width (64 vs 32) so one code
// path serves both. No dynamic section, no PT_DYNAMIC, no PT_INTERP:
// these are pure static, syscall-only executables, so the program header
// table carries exactly two PT_LOAD segments (text+headers RX, bss RW)
// and nothing else.
const (
	elfTextBase = 0x04048000
	elfBSSBase  = 0x04248000 // also elfBSSBase64/elfBSSBase32 in the backends
	elfBSSSize  = 0x10000

	elfPTLoad = 1
	elfPFX    = 1
	elfPFW    = 2
	elfPFR    = 4

	elfSHTNull   = 0
	elfSHTProgX  = 1 // SHT_PROGBITS
	elfSHTNobits = 8 // SHT_NOBITS
	elfSHTStrtab = 3
)

// elfLayout captures the bit-width-dependent sizes needed before any bytes
// are written.
type elfLayout struct {
	bits        int
	ehdrSize    int
	phentSize   int
	shentSize   int
	headerTotal int // Ehdr + 2*Phdr, i.e. where code begins in the file
}

func newELFLayout(bits int) elfLayout {
	if bits == 64 {
		return elfLayout{bits: 64, ehdrSize: 64, phentSize: 56, shentSize: 64, headerTotal: 64 + 2*56}
	}
	return elfLayout{bits: 32, ehdrSize: 52, phentSize: 32, shentSize: 40, headerTotal: 52 + 2*32}
}

func (l elfLayout) writeWord(buf *codeBuffer, v uint64) {
	if l.bits == 64 {
		buf.writeU64(v)
	} else {
		buf.writeU32(uint32(v))
	}
}

// buildELF assembles a complete static ELF executable: header, two program
// headers, the already-generated code, and a trailing section header table
// (inside the RX segment, see fileSizeRX) with a minimal .text/.bss/.shstrtab set for readelf/objdump
// friendliness. rawCode is the code codegen produced; it is embedded
// directly, with no container-side padding: unlike PE, these ELF targets
// have no file-alignment requirement on the code region.
func buildELF(bits int, machine uint16, rawCode []byte) []byte {
	l := newELFLayout(bits)
	entry := uint64(elfTextBase + l.headerTotal)
	codeOff := l.headerTotal

	shstrtab := []byte("\x00.text\x00.bss\x00.shstrtab\x00")
	shOff := codeOff + len(rawCode)
	// Section header string table content directly follows the code, then
	// the section header table itself, starting at the next 8-byte boundary
	// (for both widths).
	shstrOff := shOff
	shdrTableOff := alignUp(shstrOff+len(shstrtab), 8)
	// The RX segment covers the entire file - headers, code, the section
	// string table, and the section header table footer - so it loads as
	// one contiguous mapping with no gap a loader could fault on.
	fileSizeRX := uint64(shdrTableOff + 4*l.shentSize)

	out := &codeBuffer{}

	// --- ELF identification + header ---
	out.writeBytes([]byte{0x7F, 'E', 'L', 'F'})
	if bits == 64 {
		out.writeByte(2)
	} else {
		out.writeByte(1)
	}
	out.writeByte(1) // EI_DATA: little-endian
	out.writeByte(1) // EI_VERSION: current
	out.writeByte(0) // EI_OSABI: System V
	out.writeByte(0) // EI_ABIVERSION
	out.writeN(0, 7) // EI_PAD

	out.writeU16(2)       // e_type: ET_EXEC
	out.writeU16(machine) // e_machine
	out.writeU32(1)       // e_version

	l.writeWord(out, entry)
	l.writeWord(out, uint64(l.ehdrSize)) // e_phoff
	l.writeWord(out, uint64(shdrTableOff))

	out.writeU32(0) // e_flags
	out.writeU16(uint16(l.ehdrSize))
	out.writeU16(uint16(l.phentSize))
	out.writeU16(2) // e_phnum
	out.writeU16(uint16(l.shentSize))
	out.writeU16(4) // e_shnum: null, .text, .bss, .shstrtab
	out.writeU16(3) // e_shstrndx

	// --- Program header 0: RX, headers + code ---
	writePhdr := func(flags uint32, offset, vaddr, filesz, memsz uint64) {
		if l.bits == 64 {
			out.writeU32(elfPTLoad)
			out.writeU32(flags)
			out.writeU64(offset)
			out.writeU64(vaddr)
			out.writeU64(vaddr) // p_paddr
			out.writeU64(filesz)
			out.writeU64(memsz)
			out.writeU64(0x1000) // p_align
		} else {
			out.writeU32(elfPTLoad)
			out.writeU32(uint32(offset))
			out.writeU32(uint32(vaddr))
			out.writeU32(uint32(vaddr))
			out.writeU32(uint32(filesz))
			out.writeU32(uint32(memsz))
			out.writeU32(flags)
			out.writeU32(0x1000)
		}
	}
	writePhdr(elfPFR|elfPFX, 0, elfTextBase, fileSizeRX, fileSizeRX)
	writePhdr(elfPFR|elfPFW, 0, elfBSSBase, 0, elfBSSSize)

	if out.pos() != codeOff {
		panic("bfc: ELF header/program-header size drifted from codeOff")
	}

	out.writeBytes(rawCode)
	out.writeBytes(shstrtab)
	out.align(8, 0)

	if out.pos() != shdrTableOff {
		panic("bfc: ELF shdr table offset drifted")
	}

	// --- Section headers: null, .text, .bss, .shstrtab ---
	writeShdr := func(nameOff int, shType uint32, flags, addr, offset, size uint64, link, info uint32, align, entsize uint64) {
		out.writeU32(uint32(nameOff))
		out.writeU32(shType)
		if l.bits == 64 {
			out.writeU64(flags)
			out.writeU64(addr)
			out.writeU64(offset)
			out.writeU64(size)
			out.writeU32(link)
			out.writeU32(info)
			out.writeU64(align)
			out.writeU64(entsize)
		} else {
			out.writeU32(uint32(flags))
			out.writeU32(uint32(addr))
			out.writeU32(uint32(offset))
			out.writeU32(uint32(size))
			out.writeU32(link)
			out.writeU32(info)
			out.writeU32(uint32(align))
			out.writeU32(uint32(entsize))
		}
	}
	const (
		shfAlloc     = 2
		shfExecInstr = 4
		shfWrite     = 1
	)
	writeShdr(0, elfSHTNull, 0, 0, 0, 0, 0, 0, 0, 0)
	writeShdr(1, elfSHTProgX, shfAlloc|shfExecInstr, uint64(elfTextBase+codeOff), uint64(codeOff), uint64(len(rawCode)), 0, 0, 16, 0)
	writeShdr(7, elfSHTNobits, shfAlloc|shfWrite, elfBSSBase, uint64(shOff), elfBSSSize, 0, 0, 1, 0)
	writeShdr(12, elfSHTStrtab, 0, 0, uint64(shstrOff), uint64(len(shstrtab)), 0, 0, 1, 0)

	return out.bytes()
}

const (
	elfMachineX8664 = 0x3E
	elfMachine386   = 0x03
)
