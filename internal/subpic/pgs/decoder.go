package pgs

import (
	"subocr/internal/subpic"
)

const (
	stateEpochStart = 0x80

	// maxObjectDimension is the largest object edge the format allows.
	maxObjectDimension = 4096
)

// Decoder decodes PGS display sets for a single track. It keeps the palette
// and object definitions of the current epoch so that display sets which only
// update the palette or re-present an earlier object still decode.
type Decoder struct {
	matrix    ColorMatrix
	palettes  map[uint8]map[uint8]PaletteEntry
	paletteID uint8
	objects   map[uint16]*Object
}

// NewDecoder returns a decoder converting palettes with the given matrix.
func NewDecoder(matrix ColorMatrix) *Decoder {
	if matrix == "" {
		matrix = BT601
	}
	return &Decoder{
		matrix:   matrix,
		palettes: make(map[uint8]map[uint8]PaletteEntry),
		objects:  make(map[uint16]*Object),
	}
}

// Decode composes the display set's presentation objects onto one indexed
// image. A display set that presents no objects (an erase) yields an empty
// image. The image's Palette is the converted RGBA form of the palette the
// presentation selects; indexes the stream never defined are fully
// transparent. Objects placed outside the presentation plane are malformed.
func (d *Decoder) Decode(packet subpic.Packet) (subpic.DecodedImage, error) {
	ds, err := ParseDisplaySet(packet.Data)
	if err != nil {
		return subpic.DecodedImage{}, err
	}
	if ds.Presentation != nil && ds.Presentation.State&stateEpochStart != 0 {
		clear(d.palettes)
		clear(d.objects)
	}
	for _, entry := range ds.Palette {
		entries := d.palettes[entry.PaletteID]
		if entries == nil {
			entries = make(map[uint8]PaletteEntry)
			d.palettes[entry.PaletteID] = entries
		}
		entries[entry.Index] = entry
	}
	for _, obj := range ds.Objects {
		d.objects[obj.ID] = obj
	}
	if ds.Presentation != nil {
		d.paletteID = ds.Presentation.PaletteID
	}

	palette := d.rgbaPalette()
	img := subpic.DecodedImage{
		Palette: &palette,
		Start:   packet.PTS,
		End:     packet.PTS,
	}
	if ds.Presentation == nil || len(ds.Presentation.Objects) == 0 {
		return img, nil
	}

	layers := make([]layer, 0, len(ds.Presentation.Objects))
	for _, comp := range ds.Presentation.Objects {
		l, err := d.render(comp, ds.Presentation)
		if err != nil {
			return subpic.DecodedImage{}, err
		}
		if l.w > 0 && l.h > 0 {
			layers = append(layers, l)
		}
	}
	if len(layers) == 0 {
		return img, nil
	}

	minX, minY := layers[0].x, layers[0].y
	maxX, maxY := layers[0].x+layers[0].w, layers[0].y+layers[0].h
	for _, l := range layers[1:] {
		minX, minY = min(minX, l.x), min(minY, l.y)
		maxX, maxY = max(maxX, l.x+l.w), max(maxY, l.y+l.h)
	}
	w, h := maxX-minX, maxY-minY
	pix := make([]uint8, w*h)
	if bg := transparentIndex(&palette); bg != 0 {
		for i := range pix {
			pix[i] = bg
		}
	}
	for _, l := range layers {
		for row := 0; row < l.h; row++ {
			dst := (l.y-minY+row)*w + (l.x - minX)
			copy(pix[dst:dst+l.w], l.pix[row*l.w:(row+1)*l.w])
		}
	}

	img.Width = w
	img.Height = h
	img.Pix = pix
	return img, nil
}

type layer struct {
	pix        []uint8
	x, y, w, h int
}

// render decodes one composition object. The placed object must lie inside
// the presentation plane.
func (d *Decoder) render(comp CompositionObject, plane *Presentation) (layer, error) {
	obj := d.objects[comp.ObjectID]
	if obj == nil {
		return layer{}, subpic.Malformedf("presentation references undefined object %d", comp.ObjectID)
	}
	if obj.Width > maxObjectDimension || obj.Height > maxObjectDimension {
		return layer{}, subpic.Malformedf("object %d dimensions %dx%d exceed %d", obj.ID, obj.Width, obj.Height, maxObjectDimension)
	}
	if obj.Width == 0 || obj.Height == 0 {
		return layer{}, nil
	}
	pix, err := decodeRLE(obj.RLE, obj.Width, obj.Height)
	if err != nil {
		return layer{}, err
	}
	l := layer{pix: pix, x: comp.X, y: comp.Y, w: obj.Width, h: obj.Height}
	if comp.Cropped {
		l = cropLayer(l, comp.Crop)
	}
	if l.x+l.w > plane.Width || l.y+l.h > plane.Height {
		return layer{}, subpic.Malformedf("object %d at (%d,%d) size %dx%d lies outside the %dx%d presentation",
			obj.ID, l.x, l.y, l.w, l.h, plane.Width, plane.Height)
	}
	return l, nil
}

func cropLayer(l layer, crop Rect) layer {
	cx0, cy0 := min(crop.X, l.w), min(crop.Y, l.h)
	cx1, cy1 := min(cx0+crop.Width, l.w), min(cy0+crop.Height, l.h)
	cw, ch := cx1-cx0, cy1-cy0
	cropped := make([]uint8, cw*ch)
	for row := 0; row < ch; row++ {
		src := (cy0+row)*l.w + cx0
		copy(cropped[row*cw:(row+1)*cw], l.pix[src:src+cw])
	}
	return layer{pix: cropped, x: l.x, y: l.y, w: cw, h: ch}
}

func (d *Decoder) rgbaPalette() subpic.Palette {
	var palette subpic.Palette
	for index, entry := range d.palettes[d.paletteID] {
		palette[index] = d.matrix.RGBA(entry.Y, entry.Cr, entry.Cb, entry.Alpha)
	}
	return palette
}

// transparentIndex picks the background index for areas no object covers.
func transparentIndex(palette *subpic.Palette) uint8 {
	for i := len(palette) - 1; i >= 0; i-- {
		if palette[i].A == 0 {
			return uint8(i)
		}
	}
	return 0
}
