package vobsub

import (
	"image/color"
	"testing"
)

func TestParseIdxPalette(t *testing.T) {
	text := `# VobSub index file, v7 (do not modify this line!)
size: 720x480
palette: 000000, f0f0f0, cccccc, 999999, 3333fa, 1111bb, fa3333, bb1111, 33fa33, 11bb11, fafa33, bbbb11, fa33fa, bb11bb, 33fafa, 11bbbb
custom colors: OFF, tridx: 0000, colors: 000000, 000000, 000000, 000000
`
	palette, ok := ParseIdx(text)
	if !ok {
		t.Fatal("expected palette to be found")
	}
	if palette[1] != (color.RGBA{R: 0xF0, G: 0xF0, B: 0xF0, A: 0xFF}) {
		t.Fatalf("palette[1] = %v", palette[1])
	}
	if palette[15] != (color.RGBA{R: 0x11, G: 0xBB, B: 0xBB, A: 0xFF}) {
		t.Fatalf("palette[15] = %v", palette[15])
	}
	if palette[16].A != 0 {
		t.Fatalf("slots past 16 must stay unset, got %v", palette[16])
	}
}

func TestParseIdxCustomColors(t *testing.T) {
	text := "palette: 101010, 202020, 303030, 404040\n" +
		"custom colors: ON, tridx: 1000, colors: 000000, ffffff, 808080, 000000\n"
	palette, ok := ParseIdx(text)
	if !ok {
		t.Fatal("expected palette to be found")
	}
	if palette[0].A != 0 {
		t.Fatalf("slot 0 should be transparent, got %v", palette[0])
	}
	if palette[1] != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Fatalf("slot 1 = %v", palette[1])
	}
	if palette[2] != (color.RGBA{R: 0x80, G: 0x80, B: 0x80, A: 0xFF}) {
		t.Fatalf("slot 2 = %v", palette[2])
	}
}

func TestParseIdxMissingPalette(t *testing.T) {
	if _, ok := ParseIdx("size: 720x576\n"); ok {
		t.Fatal("expected no palette")
	}
}
