package vobsub

import (
	"encoding/binary"

	"subocr/internal/subpic"
)

const (
	cmdForceDisplay = 0x00
	cmdStartDisplay = 0x01
	cmdStopDisplay  = 0x02
	cmdPalette      = 0x03
	cmdAlpha        = 0x04
	cmdExtent       = 0x05
	cmdFieldOffsets = 0x06
	cmdEnd          = 0xFF
)

// maxSequences bounds the control sequence walk so a corrupt next-pointer
// chain cannot spin forever.
const maxSequences = 64

// Decoder decodes DVD subtitle (VobSub) display packets.
type Decoder struct{}

// NewDecoder returns a VobSub decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

type control struct {
	start, end    int64
	indexRemap    *[4]uint8
	alphaRemap    *[4]uint8
	width, height int
	hasExtent     bool
	topField      int
	bottomField   int
	hasFields     bool
}

// Decode parses the packet's control sequences and expands its interlaced
// bitmap. A packet without an image extent (a pure stop-display packet)
// yields an empty image and no error.
func (d *Decoder) Decode(packet subpic.Packet) (subpic.DecodedImage, error) {
	ctrl, err := parseControl(packet.Data, packet.PTS)
	if err != nil {
		return subpic.DecodedImage{}, err
	}
	img := subpic.DecodedImage{
		IndexRemap: ctrl.indexRemap,
		AlphaRemap: ctrl.alphaRemap,
		Start:      ctrl.start,
		End:        ctrl.end,
	}
	if !ctrl.hasExtent {
		return img, nil
	}
	if !ctrl.hasFields {
		return subpic.DecodedImage{}, subpic.Malformedf("image extent set without field offsets")
	}
	pix, err := decodeFields(packet.Data, ctrl.width, ctrl.height, ctrl.topField, ctrl.bottomField)
	if err != nil {
		return subpic.DecodedImage{}, err
	}
	img.Width = ctrl.width
	img.Height = ctrl.height
	img.Pix = deinterlace(pix, ctrl.width, ctrl.height)
	return img, nil
}

func parseControl(buf []byte, pts int64) (control, error) {
	ctrl := control{start: pts, end: pts}
	if len(buf) < 4 {
		return ctrl, subpic.Malformedf("packet too short (%d bytes)", len(buf))
	}
	offset := int(binary.BigEndian.Uint16(buf[2:4]))

	for seq := 0; ; seq++ {
		if seq >= maxSequences {
			return ctrl, subpic.Malformedf("control sequence chain exceeds %d entries", maxSequences)
		}
		if offset+4 > len(buf) {
			return ctrl, subpic.Malformedf("control sequence at %d beyond packet end %d", offset, len(buf))
		}
		delay := int64(binary.BigEndian.Uint16(buf[offset:]))
		// Delays count 1024-tick units of the 90kHz clock.
		delayMS := (delay << 10) / 90
		next := int(binary.BigEndian.Uint16(buf[offset+2:]))
		last := next == offset
		pos := offset + 4

	commands:
		for {
			if pos >= len(buf) {
				return ctrl, subpic.Malformedf("control sequence at %d missing terminator", offset)
			}
			cmd := buf[pos]
			pos++
			switch cmd {
			case cmdForceDisplay:
			case cmdStartDisplay:
				ctrl.start = pts + delayMS
			case cmdStopDisplay:
				ctrl.end = pts + delayMS
			case cmdPalette:
				values, err := take(buf, pos, 2)
				if err != nil {
					return ctrl, err
				}
				pos += 2
				remap := nibbleQuad(values)
				ctrl.indexRemap = &remap
			case cmdAlpha:
				values, err := take(buf, pos, 2)
				if err != nil {
					return ctrl, err
				}
				pos += 2
				alpha := nibbleQuad(values)
				for i := range alpha {
					alpha[i] = uint8(int(alpha[i]) * 255 / 15)
				}
				ctrl.alphaRemap = &alpha
			case cmdExtent:
				v, err := take(buf, pos, 6)
				if err != nil {
					return ctrl, err
				}
				pos += 6
				x1 := int(v[0])<<4 | int(v[1])>>4
				x2 := int(v[1]&0x0F)<<8 | int(v[2])
				y1 := int(v[3])<<4 | int(v[4])>>4
				y2 := int(v[4]&0x0F)<<8 | int(v[5])
				if x2 < x1 || y2 < y1 {
					return ctrl, subpic.Malformedf("inverted image extent (%d,%d)-(%d,%d)", x1, y1, x2, y2)
				}
				ctrl.width = x2 - x1 + 1
				ctrl.height = y2 - y1 + 1
				ctrl.hasExtent = true
			case cmdFieldOffsets:
				v, err := take(buf, pos, 4)
				if err != nil {
					return ctrl, err
				}
				pos += 4
				ctrl.topField = int(binary.BigEndian.Uint16(v[0:2]))
				ctrl.bottomField = int(binary.BigEndian.Uint16(v[2:4]))
				ctrl.hasFields = true
			case cmdEnd:
				break commands
			default:
				return ctrl, subpic.Malformedf("unknown control command 0x%02x at offset %d", cmd, pos-1)
			}
		}

		if last {
			return ctrl, nil
		}
		if next < offset {
			return ctrl, subpic.Malformedf("control sequence pointer moves backwards (%d -> %d)", offset, next)
		}
		offset = next
	}
}

func take(buf []byte, pos, n int) ([]byte, error) {
	if pos+n > len(buf) {
		return nil, subpic.Malformedf("command argument truncated at offset %d", pos)
	}
	return buf[pos : pos+n], nil
}

// nibbleQuad unpacks two bytes "ab cd" into rendering slots [d, c, b, a]:
// the stream lists slot 3 first.
func nibbleQuad(values []byte) [4]uint8 {
	return [4]uint8{
		values[1] & 0x0F,
		values[1] >> 4,
		values[0] & 0x0F,
		values[0] >> 4,
	}
}
