package subpic

import (
	"errors"
	"fmt"
	"image/color"
	"strings"
)

// ErrMalformed marks a packet that cannot be decoded: an unknown command or
// segment type, a truncated buffer, or a bitmap that references state the
// packet never set up. It is fatal for the track being processed.
var ErrMalformed = errors.New("malformed subtitle packet")

// Malformedf wraps ErrMalformed with a formatted detail message.
func Malformedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformed, fmt.Sprintf(format, args...))
}

// Codec identifies a bitmap subtitle format.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecVobSub
	CodecPGS
)

// ParseCodec maps an ffprobe codec_name onto a Codec.
func ParseCodec(name string) Codec {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "dvd_subtitle", "dvdsub":
		return CodecVobSub
	case "hdmv_pgs_subtitle", "pgssub":
		return CodecPGS
	default:
		return CodecUnknown
	}
}

func (c Codec) String() string {
	switch c {
	case CodecVobSub:
		return "vobsub"
	case CodecPGS:
		return "pgs"
	default:
		return "unknown"
	}
}

// Supported reports whether a decoder exists for the codec.
func (c Codec) Supported() bool {
	return c == CodecVobSub || c == CodecPGS
}

// Packet is one raw display packet (VobSub) or display set (PGS) as written
// by the demuxer, with its presentation timestamp in milliseconds.
type Packet struct {
	Data []byte
	PTS  int64
}

// Palette holds up to 256 colors. Alpha is straight (not premultiplied).
type Palette [256]color.RGBA

// DecodedImage is an indexed bitmap produced by a decoder.
//
// VobSub images reference the track's 16-color base palette: IndexRemap and
// AlphaRemap, when present, select the base colors and opacities for
// rendering indexes 0-3. PGS images carry their own Palette.
type DecodedImage struct {
	Width  int
	Height int
	Pix    []uint8

	IndexRemap *[4]uint8
	AlphaRemap *[4]uint8
	Palette    *Palette

	Start int64
	End   int64
}

// Empty reports whether the image has no pixels.
func (img DecodedImage) Empty() bool {
	return img.Width <= 0 || img.Height <= 0 || len(img.Pix) == 0
}

// At returns the palette index at (x, y).
func (img DecodedImage) At(x, y int) uint8 {
	return img.Pix[y*img.Width+x]
}

// Decoder turns one packet into a DecodedImage.
type Decoder interface {
	Decode(packet Packet) (DecodedImage, error)
}
