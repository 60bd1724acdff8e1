package vobsub

import "subocr/internal/subpic"

type nibbleReader struct {
	buf []byte
	pos int
}

func (r *nibbleReader) next() (int, error) {
	if r.pos>>1 >= len(r.buf) {
		return 0, subpic.Malformedf("bitmap data truncated at nibble %d", r.pos)
	}
	b := r.buf[r.pos>>1]
	r.pos++
	if r.pos&1 == 1 {
		return int(b >> 4), nil
	}
	return int(b & 0x0F), nil
}

// alignByte moves the cursor to the start of the next whole byte.
func (r *nibbleReader) alignByte() {
	r.pos = ((r.pos + 1) >> 1) << 1
}

// decodeFields runs the two field scans into a field-ordered buffer: rows
// [0, (h+1)/2) hold the top field and the remaining rows the bottom field.
func decodeFields(buf []byte, w, h, topOffset, bottomOffset int) ([]uint8, error) {
	pix := make([]uint8, w*h)
	half := (h + 1) >> 1
	if err := decodeRows(buf, pix, w, topOffset, 0, half); err != nil {
		return nil, err
	}
	if err := decodeRows(buf, pix, w, bottomOffset, half, h); err != nil {
		return nil, err
	}
	return pix, nil
}

func decodeRows(buf []byte, pix []uint8, w, byteOffset, y, yEnd int) error {
	if y >= yEnd {
		return nil
	}
	if byteOffset >= len(buf) {
		return subpic.Malformedf("field offset %d beyond packet end %d", byteOffset, len(buf))
	}
	r := &nibbleReader{buf: buf, pos: byteOffset << 1}
	x := 0
	for y < yEnd {
		run, color, err := readCode(r, w-x)
		if err != nil {
			return err
		}
		if x+run > w {
			run = w - x
		}
		row := pix[y*w:]
		for i := x; i < x+run; i++ {
			row[i] = color
		}
		x += run
		if x >= w {
			x = 0
			y++
			r.alignByte()
		}
	}
	return nil
}

// readCode decodes one variable-length run. remaining is the number of pixels
// left in the current row, used by the fill-to-end code.
func readCode(r *nibbleReader, remaining int) (int, uint8, error) {
	c0, err := r.next()
	if err != nil {
		return 0, 0, err
	}
	if c0 >= 4 {
		return (c0 >> 2) & 3, uint8(c0 & 3), nil
	}
	c1, err := r.next()
	if err != nil {
		return 0, 0, err
	}
	if c0 >= 1 {
		return c0<<2 | (c1>>2)&3, uint8(c1 & 3), nil
	}
	c2, err := r.next()
	if err != nil {
		return 0, 0, err
	}
	if c1 >= 4 {
		return c1<<2 | (c2>>2)&3, uint8(c2 & 3), nil
	}
	c3, err := r.next()
	if err != nil {
		return 0, 0, err
	}
	if c1 >= 1 {
		return c1<<6 | c2<<2 | (c3>>2)&3, uint8(c3 & 3), nil
	}
	return remaining, uint8(c3 & 3), nil
}

// deinterlace interleaves the field-ordered rows: even output rows come from
// the top field, odd rows from the bottom field.
func deinterlace(fields []uint8, w, h int) []uint8 {
	out := make([]uint8, len(fields))
	half := (h + 1) >> 1
	for y := 0; y < h; y++ {
		src := y >> 1
		if y&1 == 1 {
			src += half
		}
		copy(out[y*w:(y+1)*w], fields[src*w:(src+1)*w])
	}
	return out
}
