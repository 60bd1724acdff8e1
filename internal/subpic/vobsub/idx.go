package vobsub

import (
	"bufio"
	"image/color"
	"regexp"
	"strconv"
	"strings"

	"subocr/internal/subpic"
)

var customColorsPattern = regexp.MustCompile(`(?i)^custom colors:\s*(ON|OFF)\s*,\s*tridx:\s*([01]{4})\s*,\s*colors:\s*(.+)$`)

// ParseIdx builds the 16-color base palette from a track's idx text (the
// codec private data of a VobSub stream). The palette line supplies opaque
// colors; an enabled custom colors line overrides slots 0-3 and marks slots
// whose tridx flag is set as transparent. The boolean reports whether a
// palette line was found.
func ParseIdx(text string) (subpic.Palette, bool) {
	var palette subpic.Palette
	found := false

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lower := strings.ToLower(line)
		switch {
		case strings.HasPrefix(lower, "palette:"):
			colors := parseColorList(line[len("palette:"):])
			for i, c := range colors {
				if i >= 16 {
					break
				}
				palette[i] = c
			}
			found = found || len(colors) > 0
		case strings.HasPrefix(lower, "custom colors:"):
			match := customColorsPattern.FindStringSubmatch(line)
			if match == nil || !strings.EqualFold(match[1], "ON") {
				continue
			}
			tridx := match[2]
			colors := parseColorList(match[3])
			for i := 0; i < 4 && i < len(colors); i++ {
				c := colors[i]
				if tridx[i] == '0' {
					c.A = 0xFF
				} else {
					c.A = 0
				}
				palette[i] = c
			}
		}
	}
	return palette, found
}

func parseColorList(raw string) []color.RGBA {
	var colors []color.RGBA
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		value, err := strconv.ParseUint(field, 16, 32)
		if err != nil {
			break
		}
		colors = append(colors, color.RGBA{
			R: uint8(value >> 16),
			G: uint8(value >> 8),
			B: uint8(value),
			A: 0xFF,
		})
	}
	return colors
}
