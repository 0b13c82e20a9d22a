package media

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"unicode"

	"github.com/fogleman/gg"
	"github.com/opentravelmate/bridge-go/internal/domain/widget"
	"github.com/opentravelmate/bridge-go/internal/platform/native"
)

// RenderVectorIcon rasterizes a vector marker icon into a bitmap of the
// icon's declared size. The path uses SVG path-data syntax; rotation and
// scale apply around the origin, matching the legacy SVG transform order.
func RenderVectorIcon(icon widget.MarkerIcon) (*native.IconBitmap, error) {
	if icon.Kind != widget.IconVector {
		return nil, fmt.Errorf("icon is not a vector icon")
	}
	if icon.Size.Width <= 0 || icon.Size.Height <= 0 {
		return nil, fmt.Errorf("vector icon with size %dx%d", icon.Size.Width, icon.Size.Height)
	}

	dc := gg.NewContext(icon.Size.Width, icon.Size.Height)
	if icon.Rotation != 0 {
		dc.Rotate(gg.Radians(icon.Rotation))
	}
	if icon.Scale != 0 && icon.Scale != 1 {
		dc.Scale(icon.Scale, icon.Scale)
	}

	if err := tracePath(dc, icon.Path); err != nil {
		return nil, err
	}

	fill, err := parseHexColor(icon.FillColor)
	if err != nil {
		return nil, fmt.Errorf("invalid fill color: %w", err)
	}
	stroke, err := parseHexColor(icon.StrokeColor)
	if err != nil {
		return nil, fmt.Errorf("invalid stroke color: %w", err)
	}

	dc.SetRGBA255(int(fill.R), int(fill.G), int(fill.B), int(clampOpacity(icon.FillOpacity)*255))
	dc.FillPreserve()
	dc.SetRGBA255(int(stroke.R), int(stroke.G), int(stroke.B), int(clampOpacity(icon.StrokeOpacity)*255))
	dc.SetLineWidth(icon.StrokeWidth)
	dc.Stroke()

	return ToBitmap(dc.Image()), nil
}

func clampOpacity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// tracePath interprets SVG path data onto the drawing context. The subset
// covers the commands the web layer emits for marker icons: move, line,
// horizontal/vertical line, cubic and quadratic curves and close, in both
// absolute and relative form.
func tracePath(dc *gg.Context, pathData string) error {
	s := &pathScanner{data: pathData}
	var cx, cy float64
	var startX, startY float64
	cmd := byte(0)

	for {
		c, ok := s.nextCommand()
		if ok {
			cmd = c
		} else if s.done() {
			break
		}
		if cmd == 0 {
			return fmt.Errorf("path data does not start with a command")
		}

		rel := cmd >= 'a'
		switch upper(cmd) {
		case 'M':
			x, y, err := s.coords2()
			if err != nil {
				return err
			}
			if rel {
				x, y = cx+x, cy+y
			}
			dc.MoveTo(x, y)
			cx, cy = x, y
			startX, startY = x, y
			// Subsequent pairs after a moveto are implicit linetos.
			if rel {
				cmd = 'l'
			} else {
				cmd = 'L'
			}
		case 'L':
			x, y, err := s.coords2()
			if err != nil {
				return err
			}
			if rel {
				x, y = cx+x, cy+y
			}
			dc.LineTo(x, y)
			cx, cy = x, y
		case 'H':
			x, err := s.coord()
			if err != nil {
				return err
			}
			if rel {
				x = cx + x
			}
			dc.LineTo(x, cy)
			cx = x
		case 'V':
			y, err := s.coord()
			if err != nil {
				return err
			}
			if rel {
				y = cy + y
			}
			dc.LineTo(cx, y)
			cy = y
		case 'C':
			x1, y1, err := s.coords2()
			if err != nil {
				return err
			}
			x2, y2, err := s.coords2()
			if err != nil {
				return err
			}
			x, y, err := s.coords2()
			if err != nil {
				return err
			}
			if rel {
				x1, y1 = cx+x1, cy+y1
				x2, y2 = cx+x2, cy+y2
				x, y = cx+x, cy+y
			}
			dc.CubicTo(x1, y1, x2, y2, x, y)
			cx, cy = x, y
		case 'Q':
			x1, y1, err := s.coords2()
			if err != nil {
				return err
			}
			x, y, err := s.coords2()
			if err != nil {
				return err
			}
			if rel {
				x1, y1 = cx+x1, cy+y1
				x, y = cx+x, cy+y
			}
			dc.QuadraticTo(x1, y1, x, y)
			cx, cy = x, y
		case 'Z':
			dc.ClosePath()
			cx, cy = startX, startY
		default:
			return fmt.Errorf("unsupported path command %q", string(cmd))
		}
	}
	return nil
}

type pathScanner struct {
	data string
	pos  int
}

func (s *pathScanner) skipSeparators() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c == ',' || unicode.IsSpace(rune(c)) {
			s.pos++
			continue
		}
		break
	}
}

func (s *pathScanner) done() bool {
	s.skipSeparators()
	return s.pos >= len(s.data)
}

func (s *pathScanner) nextCommand() (byte, bool) {
	s.skipSeparators()
	if s.pos >= len(s.data) {
		return 0, false
	}
	c := s.data[s.pos]
	if (c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') && c != 'e' && c != 'E' {
		s.pos++
		return c, true
	}
	return 0, false
}

func (s *pathScanner) coord() (float64, error) {
	s.skipSeparators()
	start := s.pos
	if s.pos < len(s.data) && (s.data[s.pos] == '-' || s.data[s.pos] == '+') {
		s.pos++
	}
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c >= '0' && c <= '9' || c == '.' || c == 'e' || c == 'E' {
			s.pos++
			continue
		}
		if (c == '-' || c == '+') && s.pos > start && (s.data[s.pos-1] == 'e' || s.data[s.pos-1] == 'E') {
			s.pos++
			continue
		}
		break
	}
	if s.pos == start {
		return 0, fmt.Errorf("expected number at position %d in path data", start)
	}
	v, err := strconv.ParseFloat(s.data[start:s.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number in path data: %w", err)
	}
	return v, nil
}

func (s *pathScanner) coords2() (float64, float64, error) {
	x, err := s.coord()
	if err != nil {
		return 0, 0, err
	}
	y, err := s.coord()
	if err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 'a' + 'A'
	}
	return c
}

func parseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	switch len(s) {
	case 3:
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	case 6:
	default:
		return color.RGBA{}, fmt.Errorf("unsupported color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("unsupported color %q", s)
	}
	return color.RGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 0xFF,
	}, nil
}
