package main

// container_pe.go - PE/COFF container assembly for the Windows x86-64
// target.
//
// DOS header / DOS stub / COFF header / optional header 64 / section
// header, assembled field by field through codeBuffer's write* methods.
// Memory layout is fixed: ImageBase 0x00400000, 0x1000 section alignment,
// 0x200 file alignment, and exactly two imports from msvcrt.dll (putchar,
// getchar).
const (
	peImageBase      = 0x00400000
	peSectionAlign   = 0x1000
	peFileAlign      = 0x200
	peHeaderRegion   = 0x400 // [headers 0x200][import directory 0x200]
	peImportFileOff  = 0x200
	peOptionalHdrLen = 240 // PE32+ optional header, 16 data directories
	peSectionHdrLen  = 40
)

var peImportFuncs = []string{"putchar", "getchar"}

// peImportLayout holds the byte offsets, relative to the start of the
// import directory blob (file offset peImportFileOff), of every piece the
// import descriptor cross-references. Computed once, not hand-copied.
type peImportLayout struct {
	descriptorsOff int
	intOff         int
	iatOff         int
	dllNameOff     int
	hintNameOff    []int // one per function, parallel to peImportFuncs
	total          int
}

func layoutPEImports() peImportLayout {
	var l peImportLayout
	pos := 0

	l.descriptorsOff = pos
	pos += 20 * 2 // one populated descriptor + one zero sentinel

	l.intOff = pos
	pos += 8 * (len(peImportFuncs) + 1) // one thunk per function + null terminator

	l.iatOff = pos
	pos += 8 * (len(peImportFuncs) + 1)

	l.dllNameOff = pos
	dllName := "msvcrt.dll\x00"
	pos += alignUp(len(dllName), 2)

	l.hintNameOff = make([]int, len(peImportFuncs))
	for i, fn := range peImportFuncs {
		l.hintNameOff[i] = pos
		entryLen := 2 + len(fn) + 1 // hint + name + NUL
		pos += alignUp(entryLen, 2)
	}

	l.total = pos
	return l
}

// buildPEHeaderRegion assembles the first peHeaderRegion bytes of the
// image: DOS header/stub, PE/COFF/optional headers, three section headers,
// and the import directory. rawCodeSize is the code length codegen
// produced before file-alignment padding.
//
// It returns the header region bytes and the three addresses the code
// generator's prologue slots must be patched with.
func buildPEHeaderRegion(rawCodeSize int) (region []byte, putcharAddr, getcharAddr, bssAddr uint32) {
	alignedCodeSize := alignUp(rawCodeSize, peSectionAlign)
	idataRVA := uint32(peSectionAlign + alignedCodeSize)
	bssRVA := idataRVA + peSectionAlign
	imports := layoutPEImports()

	hdr := &codeBuffer{}

	// --- DOS header (64 bytes) ---
	hdr.writeBytes([]byte{'M', 'Z'})
	hdr.writeN(0, 62)
	hdr.patchU32At(0x3C, 0x80) // e_lfanew

	// --- DOS stub, padded out to e_lfanew (0x80) ---
	stub := []byte("This program cannot be run in DOS mode.\r\n$")
	hdr.writeBytes(stub)
	hdr.writeN(0, 0x80-hdr.pos())

	// --- PE signature ---
	hdr.writeU32(0x00004550) // "PE\0\0"

	// --- COFF file header (20 bytes) ---
	hdr.writeU16(0x8664) // Machine: AMD64
	hdr.writeU16(3)      // NumberOfSections: .text, .idata, .bss
	hdr.writeU32(0)       // TimeDateStamp (0 for reproducibility)
	hdr.writeU32(0)       // PointerToSymbolTable
	hdr.writeU32(0)       // NumberOfSymbols
	hdr.writeU16(peOptionalHdrLen)
	hdr.writeU16(0x0023) // RELOCS_STRIPPED | EXECUTABLE_IMAGE | LARGE_ADDRESS_AWARE

	// --- Optional header 64 (PE32+) ---
	optStart := hdr.pos()
	hdr.writeU16(0x020B) // magic: PE32+
	hdr.writeByte(1)     // major linker version
	hdr.writeByte(0)     // minor linker version
	hdr.writeU32(uint32(rawCodeSize)) // SizeOfCode
	hdr.writeU32(0)                   // SizeOfInitializedData (not tracked separately)
	hdr.writeU32(0)                   // SizeOfUninitializedData
	hdr.writeU32(peSectionAlign)      // AddressOfEntryPoint == .text RVA
	hdr.writeU32(peSectionAlign)      // BaseOfCode
	hdr.writeU64(peImageBase)
	hdr.writeU32(peSectionAlign)
	hdr.writeU32(peFileAlign)
	hdr.writeU16(6) // major OS version
	hdr.writeU16(0)
	hdr.writeU16(0) // major image version
	hdr.writeU16(0)
	hdr.writeU16(6) // major subsystem version
	hdr.writeU16(0)
	hdr.writeU32(0) // Win32VersionValue
	sizeOfImage := uint32(0x10000) + uint32(alignedCodeSize) + 2*peSectionAlign
	hdr.writeU32(sizeOfImage)
	hdr.writeU32(peImportFileOff) // SizeOfHeaders: DOS+COFF+optional+section headers end exactly at 0x200, where .idata's raw data begins
	hdr.writeU32(0)              // CheckSum
	hdr.writeU16(3)              // Subsystem: WINDOWS_CUI
	hdr.writeU16(0)              // DllCharacteristics
	hdr.writeU64(0x100000)       // SizeOfStackReserve (1 MiB)
	hdr.writeU64(0x2000)         // SizeOfStackCommit (8 KiB)
	hdr.writeU64(0x100000)       // SizeOfHeapReserve (1 MiB)
	hdr.writeU64(0x1000)         // SizeOfHeapCommit (4 KiB)
	hdr.writeU32(0)              // LoaderFlags
	hdr.writeU32(16)             // NumberOfRvaAndSizes
	for i := 0; i < 16; i++ {
		if i == 1 { // import directory
			hdr.writeU32(idataRVA)
			hdr.writeU32(uint32(imports.total))
		} else {
			hdr.writeU64(0)
		}
	}
	_ = optStart

	// --- Section headers (40 bytes each) ---
	writeSectionHeader := func(name string, virtualSize, virtualAddr, rawSize, rawPtr, characteristics uint32) {
		var nameBytes [8]byte
		copy(nameBytes[:], name)
		hdr.writeBytes(nameBytes[:])
		hdr.writeU32(virtualSize)
		hdr.writeU32(virtualAddr)
		hdr.writeU32(rawSize)
		hdr.writeU32(rawPtr)
		hdr.writeU32(0) // PointerToRelocations
		hdr.writeU32(0) // PointerToLinenumbers
		hdr.writeU16(0) // NumberOfRelocations
		hdr.writeU16(0) // NumberOfLinenumbers
		hdr.writeU32(characteristics)
	}
	const (
		scnCntCode     = 0x00000020
		scnCntInitData = 0x00000040
		scnCntUninit   = 0x00000080
		scnMemExecute  = 0x20000000
		scnMemRead     = 0x40000000
		scnMemWrite    = 0x80000000
	)
	writeSectionHeader(".text", uint32(rawCodeSize), peSectionAlign, uint32(alignedCodeSize), peHeaderRegion,
		scnCntCode|scnMemExecute|scnMemRead)
	writeSectionHeader(".idata", uint32(imports.total), idataRVA, peHeaderRegion-peImportFileOff, peImportFileOff,
		scnCntInitData|scnMemRead)
	writeSectionHeader(".bss", 0x10000, bssRVA, 0, 0,
		scnCntUninit|scnMemRead|scnMemWrite)

	// --- Import directory, at file offset peImportFileOff ---
	if hdr.pos() > peImportFileOff {
		panic("bfc: PE header block overflowed its 0x200 budget")
	}
	hdr.writeN(0, peImportFileOff-hdr.pos())

	descOff := hdr.pos()
	_ = descOff
	// Populated descriptor for msvcrt.dll.
	hdr.writeU32(idataRVA + uint32(imports.intOff)) // OriginalFirstThunk
	hdr.writeU32(0)                                 // TimeDateStamp
	hdr.writeU32(0)                                 // ForwarderChain
	hdr.writeU32(idataRVA + uint32(imports.dllNameOff))
	hdr.writeU32(idataRVA + uint32(imports.iatOff)) // FirstThunk
	// Zero sentinel descriptor.
	hdr.writeN(0, 20)

	writeThunks := func() {
		for _, off := range imports.hintNameOff {
			hdr.writeU64(uint64(idataRVA) + uint64(off))
		}
		hdr.writeU64(0)
	}
	writeThunks() // INT
	writeThunks() // IAT (identical until the loader binds it)

	dllName := "msvcrt.dll\x00"
	hdr.writeBytes([]byte(dllName))
	hdr.writeN(0, alignUp(len(dllName), 2)-len(dllName))

	for _, fn := range peImportFuncs {
		hdr.writeU16(0) // hint
		hdr.writeBytes([]byte(fn))
		hdr.writeByte(0)
		entryLen := 2 + len(fn) + 1
		hdr.writeN(0, alignUp(entryLen, 2)-entryLen)
	}

	hdr.writeN(0, peHeaderRegion-hdr.pos())

	putcharAddr = peImageBase + idataRVA + uint32(imports.iatOff)
	getcharAddr = peImageBase + idataRVA + uint32(imports.iatOff) + 8
	bssAddr = peImageBase + bssRVA

	return hdr.bytes(), putcharAddr, getcharAddr, bssAddr
}

// writePE assembles the complete PE image: the 0x400-byte header region
// (patched in once rawCodeSize and the import layout are known), the code
// codegen already appended to out starting at offset peHeaderRegion, and
// patches the three address slots the PE backend's prologue reserved.
func writePE(out *codeBuffer, be *peX64Backend, rawCodeSize int) {
	region, putcharAddr, getcharAddr, bssAddr := buildPEHeaderRegion(rawCodeSize)
	out.patchBytesAt(0, region)
	out.patchU32At(be.putcharSlot, putcharAddr)
	out.patchU32At(be.getcharSlot, getcharAddr)
	out.patchU32At(be.bssSlot, bssAddr)
}
