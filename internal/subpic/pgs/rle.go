package pgs

import "subocr/internal/subpic"

// decodeRLE expands an object's byte-oriented run-length data into w*h
// palette indexes. A zero-count run ends the row; any unwritten remainder
// keeps index 0. Runs that reach the right edge wrap to the next row.
func decodeRLE(data []byte, w, h int) ([]uint8, error) {
	pix := make([]uint8, w*h)
	pos, x, y := 0, 0, 0
	next := func() (byte, error) {
		if pos >= len(data) {
			return 0, subpic.Malformedf("bitmap data truncated at row %d of %d", y, h)
		}
		b := data[pos]
		pos++
		return b, nil
	}

	for y < h {
		if pos >= len(data) && y == h-1 && x >= w {
			break
		}
		b, err := next()
		if err != nil {
			return nil, err
		}
		color, count := b, 1
		if b == 0 {
			flags, err := next()
			if err != nil {
				return nil, err
			}
			count = int(flags & 0x3F)
			if flags&0x40 != 0 {
				low, err := next()
				if err != nil {
					return nil, err
				}
				count = count<<8 | int(low)
			}
			color = 0
			if flags&0x80 != 0 {
				if color, err = next(); err != nil {
					return nil, err
				}
			}
			if count == 0 {
				x = 0
				y++
				continue
			}
		}

		for count > 0 {
			if x >= w {
				x = 0
				y++
			}
			if y >= h {
				return nil, subpic.Malformedf("bitmap data overruns %dx%d object", w, h)
			}
			n := min(count, w-x)
			row := pix[y*w:]
			for i := x; i < x+n; i++ {
				row[i] = color
			}
			x += n
			count -= n
		}
	}
	return pix, nil
}
