package pgs

import (
	"encoding/binary"

	"subocr/internal/subpic"
)

const (
	segmentPalette      = 0x14
	segmentObject       = 0x15
	segmentPresentation = 0x16
	segmentWindow       = 0x17
	segmentEnd          = 0x80
)

const (
	objectFirstFragment = 0x80
	compositionCropped  = 0x40
)

// PaletteEntry is one raw palette definition as carried in the stream.
type PaletteEntry struct {
	PaletteID uint8
	Index     uint8
	Y         uint8
	Cr        uint8
	Cb        uint8
	Alpha     uint8
}

// Object is a run-length encoded bitmap, reassembled from its fragments.
type Object struct {
	ID     uint16
	Width  int
	Height int
	RLE    []byte
}

// Rect is an axis-aligned rectangle in presentation coordinates.
type Rect struct {
	X, Y, Width, Height int
}

// CompositionObject places an object on the presentation plane.
type CompositionObject struct {
	ObjectID uint16
	WindowID uint8
	X, Y     int
	Cropped  bool
	Crop     Rect
}

// Presentation is the presentation composition segment of a display set.
type Presentation struct {
	Width       int
	Height      int
	Composition uint16
	State       uint8
	PaletteID   uint8
	Objects     []CompositionObject
}

// Window is one entry of a window definition segment.
type Window struct {
	ID uint8
	Rect
}

// DisplaySet is the parsed segment stream of one display set.
type DisplaySet struct {
	Palette      []PaletteEntry
	Objects      []*Object
	Presentation *Presentation
	Windows      []Window
}

// Object returns the object with the given id, or nil.
func (ds DisplaySet) Object(id uint16) *Object {
	for _, obj := range ds.Objects {
		if obj.ID == id {
			return obj
		}
	}
	return nil
}

// ParseDisplaySet splits data into segments up to and including the end
// segment. Segment layout is type (1 byte), length (2 bytes), payload.
func ParseDisplaySet(data []byte) (DisplaySet, error) {
	var ds DisplaySet
	pos := 0
	for {
		if pos+3 > len(data) {
			return ds, subpic.Malformedf("display set ends without end segment at offset %d", pos)
		}
		kind := data[pos]
		size := int(binary.BigEndian.Uint16(data[pos+1:]))
		pos += 3
		if pos+size > len(data) {
			return ds, subpic.Malformedf("segment 0x%02x length %d exceeds remaining %d bytes", kind, size, len(data)-pos)
		}
		payload := data[pos : pos+size]
		pos += size

		var err error
		switch kind {
		case segmentPalette:
			err = ds.parsePalette(payload)
		case segmentObject:
			err = ds.parseObject(payload)
		case segmentPresentation:
			err = ds.parsePresentation(payload)
		case segmentWindow:
			err = ds.parseWindows(payload)
		case segmentEnd:
			return ds, nil
		default:
			return ds, subpic.Malformedf("unknown segment type 0x%02x at offset %d", kind, pos-size-3)
		}
		if err != nil {
			return ds, err
		}
	}
}

func (ds *DisplaySet) parsePalette(payload []byte) error {
	if len(payload) < 2 {
		return subpic.Malformedf("palette segment too short (%d bytes)", len(payload))
	}
	// id(1) version(1)
	id := payload[0]
	entries := payload[2:]
	if len(entries)%5 != 0 {
		return subpic.Malformedf("palette segment has partial entry (%d bytes)", len(entries))
	}
	for i := 0; i < len(entries); i += 5 {
		ds.Palette = append(ds.Palette, PaletteEntry{
			PaletteID: id,
			Index:     entries[i],
			Y:         entries[i+1],
			Cr:        entries[i+2],
			Cb:        entries[i+3],
			Alpha:     entries[i+4],
		})
	}
	return nil
}

func (ds *DisplaySet) parseObject(payload []byte) error {
	if len(payload) < 4 {
		return subpic.Malformedf("object segment too short (%d bytes)", len(payload))
	}
	id := binary.BigEndian.Uint16(payload[0:2])
	flags := payload[3]
	if flags&objectFirstFragment != 0 {
		// id(2) version(1) flags(1) length(3) width(2) height(2)
		if len(payload) < 11 {
			return subpic.Malformedf("object %d header truncated", id)
		}
		obj := &Object{
			ID:     id,
			Width:  int(binary.BigEndian.Uint16(payload[7:9])),
			Height: int(binary.BigEndian.Uint16(payload[9:11])),
			RLE:    append([]byte(nil), payload[11:]...),
		}
		if existing := ds.Object(id); existing != nil {
			*existing = *obj
			return nil
		}
		ds.Objects = append(ds.Objects, obj)
		return nil
	}
	obj := ds.Object(id)
	if obj == nil {
		return subpic.Malformedf("object %d continuation without first fragment", id)
	}
	obj.RLE = append(obj.RLE, payload[4:]...)
	return nil
}

func (ds *DisplaySet) parsePresentation(payload []byte) error {
	// width(2) height(2) rate(1) number(2) state(1) palette_update(1) palette_id(1) count(1)
	if len(payload) < 11 {
		return subpic.Malformedf("presentation segment too short (%d bytes)", len(payload))
	}
	p := &Presentation{
		Width:       int(binary.BigEndian.Uint16(payload[0:2])),
		Height:      int(binary.BigEndian.Uint16(payload[2:4])),
		Composition: binary.BigEndian.Uint16(payload[5:7]),
		State:       payload[7],
		PaletteID:   payload[9],
	}
	count := int(payload[10])
	pos := 11
	for i := 0; i < count; i++ {
		if pos+8 > len(payload) {
			return subpic.Malformedf("presentation object %d truncated", i)
		}
		obj := CompositionObject{
			ObjectID: binary.BigEndian.Uint16(payload[pos:]),
			WindowID: payload[pos+2],
			Cropped:  payload[pos+3]&compositionCropped != 0,
			X:        int(binary.BigEndian.Uint16(payload[pos+4:])),
			Y:        int(binary.BigEndian.Uint16(payload[pos+6:])),
		}
		pos += 8
		if obj.Cropped {
			if pos+8 > len(payload) {
				return subpic.Malformedf("presentation object %d crop truncated", i)
			}
			obj.Crop = Rect{
				X:      int(binary.BigEndian.Uint16(payload[pos:])),
				Y:      int(binary.BigEndian.Uint16(payload[pos+2:])),
				Width:  int(binary.BigEndian.Uint16(payload[pos+4:])),
				Height: int(binary.BigEndian.Uint16(payload[pos+6:])),
			}
			pos += 8
		}
		p.Objects = append(p.Objects, obj)
	}
	ds.Presentation = p
	return nil
}

func (ds *DisplaySet) parseWindows(payload []byte) error {
	if len(payload) < 1 {
		return subpic.Malformedf("window segment empty")
	}
	count := int(payload[0])
	pos := 1
	for i := 0; i < count; i++ {
		if pos+9 > len(payload) {
			return subpic.Malformedf("window %d truncated", i)
		}
		ds.Windows = append(ds.Windows, Window{
			ID: payload[pos],
			Rect: Rect{
				X:      int(binary.BigEndian.Uint16(payload[pos+1:])),
				Y:      int(binary.BigEndian.Uint16(payload[pos+3:])),
				Width:  int(binary.BigEndian.Uint16(payload[pos+5:])),
				Height: int(binary.BigEndian.Uint16(payload[pos+7:])),
			},
		})
		pos += 9
	}
	return nil
}
