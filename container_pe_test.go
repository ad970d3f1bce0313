package main

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestBuildPEHeaderRegionMagicAndSize(t *testing.T) {
	region, _, _, _ := buildPEHeaderRegion(64)
	if len(region) != peHeaderRegion {
		t.Fatalf("header region len = %d, want %d", len(region), peHeaderRegion)
	}
	if !bytes.Equal(region[:2], []byte("MZ")) {
		t.Fatalf("DOS magic = % x, want MZ", region[:2])
	}
	if got := binary.LittleEndian.Uint32(region[0x3C:0x40]); got != 0x80 {
		t.Fatalf("e_lfanew = %#x, want 0x80", got)
	}
	if !bytes.Equal(region[0x80:0x84], []byte{'P', 'E', 0, 0}) {
		t.Fatalf("PE signature = % x, want 50 45 00 00", region[0x80:0x84])
	}
}

func TestBuildPEHeaderRegionSizeOfImageFormula(t *testing.T) {
	rawCodeSize := 300
	region, _, _, _ := buildPEHeaderRegion(rawCodeSize)

	// SizeOfImage lives in the optional header: e_lfanew(0x80) + sig(4) +
	// COFF(20) + offset 56 into the optional header.
	optStart := 0x80 + 4 + 20
	sizeOfImageOff := optStart + 56
	got := binary.LittleEndian.Uint32(region[sizeOfImageOff : sizeOfImageOff+4])

	want := uint32(0x10000) + uint32(alignUp(rawCodeSize, peSectionAlign)) + 2*peSectionAlign
	if got != want {
		t.Fatalf("SizeOfImage = %#x, want %#x", got, want)
	}
}

func TestBuildPEHeaderRegionImportSlotsAreWithinIdata(t *testing.T) {
	rawCodeSize := 4096
	region, putcharAddr, getcharAddr, bssAddr := buildPEHeaderRegion(rawCodeSize)
	_ = region

	idataRVA := uint32(peSectionAlign + alignUp(rawCodeSize, peSectionAlign))
	bssRVA := idataRVA + peSectionAlign

	if putcharAddr <= peImageBase+idataRVA || putcharAddr >= peImageBase+idataRVA+peImportFileOff {
		t.Fatalf("putcharAddr %#x out of .idata range", putcharAddr)
	}
	if getcharAddr != putcharAddr+8 {
		t.Fatalf("getcharAddr = %#x, want putcharAddr+8 = %#x", getcharAddr, putcharAddr+8)
	}
	if bssAddr != peImageBase+bssRVA {
		t.Fatalf("bssAddr = %#x, want %#x", bssAddr, peImageBase+bssRVA)
	}
}

func TestWritePEPatchesSlots(t *testing.T) {
	out := &codeBuffer{}
	out.writeN(0, peHeaderRegion)

	be := &peX64Backend{}
	be.prologue(out, false)
	rawCodeSize := out.pos() - peHeaderRegion
	be.epilogue(out)
	rawCodeSize = out.pos() - peHeaderRegion
	out.writeN(0, alignUp(rawCodeSize, peSectionAlign)-rawCodeSize)

	writePE(out, be, rawCodeSize)

	raw := out.bytes()
	putcharVal := binary.LittleEndian.Uint32(raw[be.putcharSlot : be.putcharSlot+4])
	if putcharVal == 0 {
		t.Fatalf("putcharSlot not patched, still zero")
	}
	getcharVal := binary.LittleEndian.Uint32(raw[be.getcharSlot : be.getcharSlot+4])
	if getcharVal == 0 {
		t.Fatalf("getcharSlot not patched, still zero")
	}
	bssVal := binary.LittleEndian.Uint32(raw[be.bssSlot : be.bssSlot+4])
	if bssVal != peImageBase+uint32(peSectionAlign+alignUp(rawCodeSize, peSectionAlign))+peSectionAlign {
		t.Fatalf("bssSlot = %#x, unexpected value", bssVal)
	}
}
