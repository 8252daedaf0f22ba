package native

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/jo-hoe/goimages/internal/engine"
)

// isSVGData performs a lightweight detection of SVG content from raw bytes.
func isSVGData(data []byte) bool {
	if len(data) == 0 {
		return false
	}
	n := min(len(data), 4096)
	head := bytes.ToLower(bytes.TrimSpace(data[:n]))
	return bytes.HasPrefix(head, []byte("<svg")) ||
		bytes.Contains(head, []byte("<svg")) ||
		bytes.Contains(head, []byte("xmlns=\"http://www.w3.org/2000/svg\"")) ||
		bytes.Contains(head, []byte("xmlns='http://www.w3.org/2000/svg'"))
}

// readSVGHeader parses the document and derives its intrinsic size from the
// width and height attributes, falling back to the view box.
func readSVGHeader(data []byte) (header, *oksvg.SvgIcon, error) {
	h := header{bands: 4, meta: engine.Metadata{Format: engine.TypeSvg, Pages: 1, Depth: "uchar"}}
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return h, nil, fmt.Errorf("failed to parse SVG: %w", err)
	}

	if w, ht, ok := parseSvgExplicitSize(data); ok {
		h.width, h.height = w, ht
	} else {
		h.width = int(math.Round(icon.ViewBox.W))
		h.height = int(math.Round(icon.ViewBox.H))
	}
	if h.width <= 0 || h.height <= 0 {
		return h, nil, fmt.Errorf("%w: SVG has no intrinsic size", errCorruptHeader)
	}
	h.meta.PageHeight = h.height
	return h, icon, nil
}

// renderSVG rasterises icon onto a transparent width x height canvas.
func renderSVG(ctx context.Context, icon *oksvg.SvgIcon, width, height int) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target dimensions for SVG rendering: %dx%d", width, height)
	}
	if err := engine.CheckContext(ctx, "svgload"); err != nil {
		return nil, err
	}
	icon.SetTarget(0, 0, float64(width), float64(height))

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	scanner := rasterx.NewScannerGV(width, height, dst, dst.Bounds())
	dasher := rasterx.NewDasher(width, height, scanner)
	icon.Draw(dasher, 1.0)
	return toNRGBA(dst), nil
}

// parseSvgExplicitSize extracts the width and height attributes of the root element.
func parseSvgExplicitSize(data []byte) (int, int, bool) {
	n := min(len(data), 8192)
	s := strings.ToLower(string(data[:n]))
	i := strings.Index(s, "<svg")
	if i < 0 {
		return 0, 0, false
	}
	j := strings.Index(s[i:], ">")
	if j < 0 {
		j = len(s)
	} else {
		j = i + j
	}
	tag := strings.Join(strings.Fields(s[i:j]), " ")

	w, wOk := parseNumericAttr(tag, "width")
	h, hOk := parseNumericAttr(tag, "height")
	if wOk && hOk && w > 0 && h > 0 {
		return w, h, true
	}
	return 0, 0, false
}

// parseNumericAttr extracts the leading integer of an attribute, e.g. width="123px".
func parseNumericAttr(tag, attr string) (int, bool) {
	pos := strings.Index(tag, " "+attr+"=")
	if pos < 0 {
		return 0, false
	}
	pos += len(attr) + 2
	if pos >= len(tag) {
		return 0, false
	}

	val := tag[pos:]
	if quote := val[0]; quote == '"' || quote == '\'' {
		val = val[1:]
		if end := strings.IndexByte(val, quote); end >= 0 {
			val = val[:end]
		}
	}

	num := 0
	found := false
	for i := 0; i < len(val); i++ {
		ch := val[i]
		if ch >= '0' && ch <= '9' {
			found = true
			num = num*10 + int(ch-'0')
		} else {
			break
		}
	}
	if !found || num <= 0 {
		return 0, false
	}
	return num, true
}
