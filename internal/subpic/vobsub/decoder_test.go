package vobsub

import (
	"encoding/binary"
	"errors"
	"testing"

	"subocr/internal/subpic"
)

// encodeRow run-length encodes one row into nibbles. When fillLast is set the
// final run uses the fill-to-end-of-row code.
func encodeRow(row []uint8, fillLast bool) []uint8 {
	var out []uint8
	for x := 0; x < len(row); {
		color := row[x]
		run := 1
		for x+run < len(row) && row[x+run] == color {
			run++
		}
		if fillLast && x+run == len(row) {
			out = append(out, 0, 0, 0, color)
			x += run
			break
		}
		x += run
		for run > 0 {
			n := run
			if n > 255 {
				n = 255
			}
			run -= n
			switch {
			case n < 4:
				out = append(out, uint8(n<<2)|color)
			case n < 16:
				out = append(out, uint8(n>>2), uint8(n&3)<<2|color)
			case n < 64:
				out = append(out, 0, uint8(n>>2), uint8(n&3)<<2|color)
			default:
				out = append(out, 0, uint8(n>>6), uint8(n>>2)&0x0F, uint8(n&3)<<2|color)
			}
		}
	}
	if len(out)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

func packNibbles(nibbles []uint8) []byte {
	out := make([]byte, len(nibbles)/2)
	for i := range out {
		out[i] = nibbles[2*i]<<4 | nibbles[2*i+1]
	}
	return out
}

type packetOptions struct {
	x1, y1    int
	remap     [2]byte
	alpha     [2]byte
	stopDelay uint16
	fillLast  bool
}

func buildPacket(rows [][]uint8, opts packetOptions) []byte {
	h := len(rows)
	w := len(rows[0])
	var top, bottom []uint8
	for y, row := range rows {
		if y%2 == 0 {
			top = append(top, encodeRow(row, opts.fillLast)...)
		} else {
			bottom = append(bottom, encodeRow(row, opts.fillLast)...)
		}
	}
	topBytes := packNibbles(top)
	bottomBytes := packNibbles(bottom)

	buf := make([]byte, 4)
	buf = append(buf, topBytes...)
	buf = append(buf, bottomBytes...)
	ctrl := len(buf)
	tf := 4
	bf := 4 + len(topBytes)

	x2 := opts.x1 + w - 1
	y2 := opts.y1 + h - 1
	seq2 := ctrl + 24
	buf = binary.BigEndian.AppendUint16(buf, 0)
	buf = binary.BigEndian.AppendUint16(buf, uint16(seq2))
	buf = append(buf, cmdStartDisplay)
	buf = append(buf, cmdPalette, opts.remap[0], opts.remap[1])
	buf = append(buf, cmdAlpha, opts.alpha[0], opts.alpha[1])
	buf = append(buf, cmdExtent,
		byte(opts.x1>>4), byte(opts.x1&0x0F)<<4|byte(x2>>8), byte(x2),
		byte(opts.y1>>4), byte(opts.y1&0x0F)<<4|byte(y2>>8), byte(y2))
	buf = append(buf, cmdFieldOffsets)
	buf = binary.BigEndian.AppendUint16(buf, uint16(tf))
	buf = binary.BigEndian.AppendUint16(buf, uint16(bf))
	buf = append(buf, cmdEnd)

	buf = binary.BigEndian.AppendUint16(buf, opts.stopDelay)
	buf = binary.BigEndian.AppendUint16(buf, uint16(seq2))
	buf = append(buf, cmdStopDisplay, cmdEnd)

	binary.BigEndian.PutUint16(buf[0:2], uint16(len(buf)))
	binary.BigEndian.PutUint16(buf[2:4], uint16(ctrl))
	return buf
}

func patternRows(w, h int) [][]uint8 {
	rows := make([][]uint8, h)
	for y := range rows {
		row := make([]uint8, w)
		for x := range row {
			switch {
			case x < 2:
				row[x] = uint8(y % 4)
			case x < 9:
				row[x] = 1
			case x < 40:
				row[x] = 2
			case x < 40+y*7:
				row[x] = uint8((x / 3) % 4)
			default:
				row[x] = 3
			}
		}
		rows[y] = row
	}
	return rows
}

func assertPixels(t *testing.T, img subpic.DecodedImage, rows [][]uint8) {
	t.Helper()
	if img.Height != len(rows) || img.Width != len(rows[0]) {
		t.Fatalf("dimensions = %dx%d, want %dx%d", img.Width, img.Height, len(rows[0]), len(rows))
	}
	for y, row := range rows {
		for x, want := range row {
			if got := img.At(x, y); got != want {
				t.Fatalf("pixel (%d,%d) = %d, want %d", x, y, got, want)
			}
		}
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		name     string
		w, h     int
		fillLast bool
	}{
		{name: "wide", w: 300, h: 5},
		{name: "fill to row end", w: 300, h: 6, fillLast: true},
		{name: "single row", w: 50, h: 1},
		{name: "odd width", w: 67, h: 3},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rows := patternRows(tc.w, tc.h)
			data := buildPacket(rows, packetOptions{x1: 10, y1: 400, stopDelay: 88, fillLast: tc.fillLast})
			img, err := NewDecoder().Decode(subpic.Packet{Data: data, PTS: 1000})
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			assertPixels(t, img, rows)
		})
	}
}

func TestDecodeDeinterlacesFields(t *testing.T) {
	rows := [][]uint8{
		{1, 1, 1, 1},
		{2, 2, 2, 2},
		{1, 1, 1, 1},
	}
	img, err := NewDecoder().Decode(subpic.Packet{Data: buildPacket(rows, packetOptions{})})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	assertPixels(t, img, rows)
}

func TestDecodeControlSequence(t *testing.T) {
	rows := patternRows(16, 4)
	data := buildPacket(rows, packetOptions{
		x1:        100,
		y1:        380,
		remap:     [2]byte{0x10, 0x02},
		alpha:     [2]byte{0xF8, 0xF0},
		stopDelay: 88,
	})
	img, err := NewDecoder().Decode(subpic.Packet{Data: data, PTS: 1000})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if img.Start != 1000 {
		t.Fatalf("start = %d, want 1000", img.Start)
	}
	if img.End != 2001 {
		t.Fatalf("end = %d, want 2001", img.End)
	}
	if img.IndexRemap == nil || *img.IndexRemap != [4]uint8{2, 0, 0, 1} {
		t.Fatalf("index remap = %v, want [2 0 0 1]", img.IndexRemap)
	}
	if img.AlphaRemap == nil || *img.AlphaRemap != [4]uint8{0, 255, 136, 255} {
		t.Fatalf("alpha remap = %v, want [0 255 136 255]", img.AlphaRemap)
	}
}

func TestDecodeUnknownCommand(t *testing.T) {
	data := []byte{0x00, 0x0A, 0x00, 0x04, 0x00, 0x00, 0x00, 0x04, 0x42, 0xFF}
	_, err := NewDecoder().Decode(subpic.Packet{Data: data})
	if !errors.Is(err, subpic.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}

func TestDecodeWithoutExtentIsEmpty(t *testing.T) {
	data := []byte{0x00, 0x0A, 0x00, 0x04, 0x00, 0x58, 0x00, 0x04, cmdStopDisplay, cmdEnd}
	img, err := NewDecoder().Decode(subpic.Packet{Data: data, PTS: 500})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !img.Empty() {
		t.Fatalf("expected empty image, got %dx%d", img.Width, img.Height)
	}
	if img.End != 1501 {
		t.Fatalf("end = %d, want 1501", img.End)
	}
}

func TestDecodeTruncatedPacketsNeverPanic(t *testing.T) {
	data := buildPacket(patternRows(40, 6), packetOptions{stopDelay: 10})
	for n := 0; n < len(data); n++ {
		_, err := NewDecoder().Decode(subpic.Packet{Data: data[:n]})
		if err != nil && !errors.Is(err, subpic.ErrMalformed) {
			t.Fatalf("prefix %d: unexpected error type %v", n, err)
		}
	}
}

func TestDecodeExtentWithoutFieldsIsMalformed(t *testing.T) {
	data := []byte{0x00, 0x00, 0x00, 0x04, 0x00, 0x00, 0x00, 0x04,
		cmdExtent, 0x00, 0x00, 0x0F, 0x00, 0x00, 0x0F, cmdEnd}
	_, err := NewDecoder().Decode(subpic.Packet{Data: data})
	if !errors.Is(err, subpic.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
