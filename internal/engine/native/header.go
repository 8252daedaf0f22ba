package native

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"image"

	"github.com/jo-hoe/goimages/internal/engine"
)

var errCorruptHeader = errors.New("corrupt image header")

// header is what a loader knows about an image before decoding pixels.
type header struct {
	width  int
	height int
	bands  int
	meta   engine.Metadata
}

const (
	exifTagOrientation    = 0x0112
	exifTagXResolution    = 0x011A
	exifTagResolutionUnit = 0x0128
)

// readJPEGHeader walks the JPEG segments up to the first start of scan.
func readJPEGHeader(data []byte) (header, error) {
	h := header{meta: engine.Metadata{Format: engine.TypeJpeg, Pages: 1, Depth: "uchar"}}
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return h, fmt.Errorf("%w: missing JPEG start of image", errCorruptHeader)
	}

	pos := 2
	for pos+4 <= len(data) {
		if data[pos] != 0xFF {
			return h, fmt.Errorf("%w: bad JPEG marker at %d", errCorruptHeader, pos)
		}
		marker := data[pos+1]
		// padding
		if marker == 0xFF {
			pos++
			continue
		}
		if marker == 0xD9 || marker == 0xDA {
			break
		}
		if marker >= 0xD0 && marker <= 0xD7 || marker == 0x01 {
			pos += 2
			continue
		}

		length := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if length < 2 || pos+2+length > len(data) {
			return h, fmt.Errorf("%w: JPEG segment overruns input", errCorruptHeader)
		}
		segment := data[pos+4 : pos+2+length]

		switch {
		case marker == 0xE0 && bytes.HasPrefix(segment, []byte("JFIF\x00")) && len(segment) >= 12:
			readJFIFDensity(segment, &h.meta)
		case marker == 0xE1 && bytes.HasPrefix(segment, []byte("Exif\x00\x00")):
			readExif(segment[6:], &h.meta)
		case marker == 0xE2 && bytes.HasPrefix(segment, []byte("ICC_PROFILE")):
			h.meta.HasProfile = true
		case isStartOfFrame(marker):
			if len(segment) < 6 {
				return h, fmt.Errorf("%w: short JPEG frame header", errCorruptHeader)
			}
			h.height = int(binary.BigEndian.Uint16(segment[1:3]))
			h.width = int(binary.BigEndian.Uint16(segment[3:5]))
			components := int(segment[5])
			h.bands = 3
			if components == 1 {
				h.bands = 1
			}
			h.meta.IsProgressive = marker == 0xC2 || marker == 0xC6 || marker == 0xCA || marker == 0xCE
			if components == 3 && len(segment) >= 9 {
				h.meta.ChromaSubsampling = chromaSubsampling(segment[7])
			}
		}
		pos += 2 + length
	}

	if h.width == 0 || h.height == 0 {
		return h, fmt.Errorf("%w: JPEG frame header not found", errCorruptHeader)
	}
	h.meta.PageHeight = h.height
	return h, nil
}

func isStartOfFrame(marker byte) bool {
	return marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC
}

// chromaSubsampling names the luma sampling factors of a YCbCr frame.
func chromaSubsampling(sampling byte) string {
	switch sampling {
	case 0x11:
		return "4:4:4"
	case 0x21:
		return "4:2:2"
	case 0x22:
		return "4:2:0"
	case 0x41:
		return "4:1:1"
	case 0x12:
		return "4:4:0"
	default:
		return ""
	}
}

func readJFIFDensity(segment []byte, meta *engine.Metadata) {
	units := segment[7]
	x := float64(binary.BigEndian.Uint16(segment[8:10]))
	switch units {
	case 1:
		meta.Density = x
	case 2:
		meta.Density = x * 2.54
	}
}

// readExif reads the orientation and resolution from the TIFF structure of
// an Exif block. Damaged Exif data is ignored.
func readExif(data []byte, meta *engine.Metadata) {
	if len(data) < 8 {
		return
	}
	var order binary.ByteOrder
	switch {
	case data[0] == 'I' && data[1] == 'I':
		order = binary.LittleEndian
	case data[0] == 'M' && data[1] == 'M':
		order = binary.BigEndian
	default:
		return
	}
	if order.Uint16(data[2:4]) != 42 {
		return
	}

	offset := int(order.Uint32(data[4:8]))
	if offset+2 > len(data) {
		return
	}
	entries := int(order.Uint16(data[offset : offset+2]))
	offset += 2

	var resolution float64
	unit := 2
	for i := 0; i < entries && offset+12 <= len(data); i++ {
		entry := data[offset : offset+12]
		offset += 12

		switch order.Uint16(entry[0:2]) {
		case exifTagOrientation:
			if v := int(order.Uint16(entry[8:10])); v >= 1 && v <= 8 {
				meta.Orientation = v
			}
		case exifTagResolutionUnit:
			unit = int(order.Uint16(entry[8:10]))
		case exifTagXResolution:
			at := int(order.Uint32(entry[8:12]))
			if at+8 <= len(data) {
				num := order.Uint32(data[at : at+4])
				den := order.Uint32(data[at+4 : at+8])
				if den != 0 {
					resolution = float64(num) / float64(den)
				}
			}
		}
	}

	if resolution > 0 && meta.Density == 0 {
		if unit == 3 {
			resolution *= 2.54
		}
		meta.Density = resolution
	}
}

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// readPNGHeader reads the chunks preceding the image data.
func readPNGHeader(data []byte) (header, error) {
	h := header{meta: engine.Metadata{Format: engine.TypePng, Pages: 1, Depth: "uchar"}}
	if !bytes.HasPrefix(data, pngSignature) {
		return h, fmt.Errorf("%w: missing PNG signature", errCorruptHeader)
	}

	pos := len(pngSignature)
	colorType := -1
	transparent := false
	for pos+8 <= len(data) {
		length := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		kind := string(data[pos+4 : pos+8])
		if length < 0 || pos+12+length > len(data) {
			return h, fmt.Errorf("%w: PNG chunk %q overruns input", errCorruptHeader, kind)
		}
		chunk := data[pos+8 : pos+8+length]
		crc := binary.BigEndian.Uint32(data[pos+8+length : pos+12+length])
		if crc32.ChecksumIEEE(data[pos+4:pos+8+length]) != crc {
			return h, fmt.Errorf("%w: PNG chunk %q checksum mismatch", errCorruptHeader, kind)
		}

		switch kind {
		case "IHDR":
			if length != 13 {
				return h, fmt.Errorf("%w: bad PNG IHDR", errCorruptHeader)
			}
			h.width = int(binary.BigEndian.Uint32(chunk[0:4]))
			h.height = int(binary.BigEndian.Uint32(chunk[4:8]))
			depth := int(chunk[8])
			colorType = int(chunk[9])
			if depth == 16 {
				h.meta.Depth = "ushort"
			}
			if colorType == 3 {
				h.meta.PaletteBitDepth = depth
			}
		case "tRNS":
			transparent = true
		case "iCCP":
			h.meta.HasProfile = true
		case "pHYs":
			if length == 9 && chunk[8] == 1 {
				h.meta.Density = float64(binary.BigEndian.Uint32(chunk[0:4])) * 0.0254
			}
		case "IDAT", "IEND":
			pos = len(data)
			continue
		}
		pos += 12 + length
	}

	switch colorType {
	case 0:
		h.bands = 1
	case 2, 3:
		h.bands = 3
	case 4:
		h.bands = 2
	case 6:
		h.bands = 4
	default:
		return h, fmt.Errorf("%w: PNG header not found", errCorruptHeader)
	}
	if transparent && (h.bands == 1 || h.bands == 3) {
		h.bands++
	}
	if h.width == 0 || h.height == 0 {
		return h, fmt.Errorf("%w: zero PNG dimensions", errCorruptHeader)
	}
	h.meta.PageHeight = h.height
	return h, nil
}

// readGIFHeader counts the frames and collects the loop count and frame delays.
func readGIFHeader(data []byte) (header, error) {
	h := header{bands: 4, meta: engine.Metadata{Format: engine.TypeGif, Depth: "uchar"}}
	if len(data) < 13 || !bytes.HasPrefix(data, []byte("GIF8")) {
		return h, fmt.Errorf("%w: missing GIF signature", errCorruptHeader)
	}
	h.width = int(binary.LittleEndian.Uint16(data[6:8]))
	h.height = int(binary.LittleEndian.Uint16(data[8:10]))
	packed := data[10]
	h.meta.PaletteBitDepth = int(packed&0x07) + 1

	pos := 13
	if packed&0x80 != 0 {
		pos += 3 * (1 << (int(packed&0x07) + 1))
	}

	delay := 0
	frames := 0
	opaque := true
	for pos < len(data) {
		switch data[pos] {
		case 0x21:
			if pos+2 > len(data) {
				return h, fmt.Errorf("%w: truncated GIF extension", errCorruptHeader)
			}
			label := data[pos+1]
			pos += 2
			if label == 0xF9 && pos+5 < len(data) && data[pos] == 4 {
				delay = int(binary.LittleEndian.Uint16(data[pos+2:pos+4])) * 10
				if data[pos+1]&0x01 != 0 {
					opaque = false
				}
			}
			if label == 0xFF && pos+12 < len(data) && data[pos] == 11 &&
				string(data[pos+1:pos+12]) == "NETSCAPE2.0" && pos+16 < len(data) && data[pos+12] >= 3 {
				h.meta.Loop = int(binary.LittleEndian.Uint16(data[pos+14 : pos+16]))
			}
			next, err := skipGIFSubBlocks(data, pos)
			if err != nil {
				return h, err
			}
			pos = next
		case 0x2C:
			if pos+10 > len(data) {
				return h, fmt.Errorf("%w: truncated GIF image descriptor", errCorruptHeader)
			}
			frame := image.Rect(0, 0,
				int(binary.LittleEndian.Uint16(data[pos+5:pos+7])),
				int(binary.LittleEndian.Uint16(data[pos+7:pos+9]))).
				Add(image.Pt(int(binary.LittleEndian.Uint16(data[pos+1:pos+3])), int(binary.LittleEndian.Uint16(data[pos+3:pos+5]))))
			if !frame.Eq(image.Rect(0, 0, h.width, h.height)) {
				// uncovered screen pixels stay transparent
				opaque = false
			}
			local := data[pos+9]
			pos += 10
			if local&0x80 != 0 {
				pos += 3 * (1 << (int(local&0x07) + 1))
			}
			// LZW minimum code size
			pos++
			next, err := skipGIFSubBlocks(data, pos)
			if err != nil {
				return h, err
			}
			pos = next
			frames++
			h.meta.Delay = append(h.meta.Delay, delay)
			delay = 0
		case 0x3B:
			pos = len(data)
		default:
			return h, fmt.Errorf("%w: unknown GIF block 0x%02x", errCorruptHeader, data[pos])
		}
	}

	if frames == 0 || h.width == 0 || h.height == 0 {
		return h, fmt.Errorf("%w: GIF has no frames", errCorruptHeader)
	}
	h.meta.Pages = frames
	h.meta.PageHeight = h.height
	if opaque {
		h.bands = 3
	}
	return h, nil
}

func skipGIFSubBlocks(data []byte, pos int) (int, error) {
	for pos < len(data) {
		size := int(data[pos])
		pos++
		if size == 0 {
			return pos, nil
		}
		pos += size
	}
	return pos, fmt.Errorf("%w: truncated GIF data block", errCorruptHeader)
}

// tiffPage is the location and size of one image file directory.
type tiffPage struct {
	offset uint32
	width  int
	height int
}

const (
	tiffTagImageWidth  = 256
	tiffTagImageLength = 257
	tiffTagICCProfile  = 34675
	maxTIFFPages       = 100000
)

// readTIFFPages follows the IFD chain and returns every page.
func readTIFFPages(data []byte) (binary.ByteOrder, []tiffPage, bool, error) {
	if len(data) < 8 {
		return nil, nil, false, fmt.Errorf("%w: short TIFF header", errCorruptHeader)
	}
	var order binary.ByteOrder
	switch string(data[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return nil, nil, false, fmt.Errorf("%w: bad TIFF byte order", errCorruptHeader)
	}
	if order.Uint16(data[2:4]) != 42 {
		return nil, nil, false, fmt.Errorf("%w: bad TIFF magic", errCorruptHeader)
	}

	var pages []tiffPage
	profile := false
	seen := map[uint32]bool{}
	offset := order.Uint32(data[4:8])
	for offset != 0 && len(pages) < maxTIFFPages {
		if seen[offset] || int(offset)+2 > len(data) {
			break
		}
		seen[offset] = true

		page := tiffPage{offset: offset}
		pos := int(offset)
		entries := int(order.Uint16(data[pos : pos+2]))
		pos += 2
		for i := 0; i < entries && pos+12 <= len(data); i++ {
			entry := data[pos : pos+12]
			pos += 12

			value := int(order.Uint32(entry[8:12]))
			if order.Uint16(entry[2:4]) == 3 {
				value = int(order.Uint16(entry[8:10]))
			}
			switch order.Uint16(entry[0:2]) {
			case tiffTagImageWidth:
				page.width = value
			case tiffTagImageLength:
				page.height = value
			case tiffTagICCProfile:
				profile = true
			}
		}
		pages = append(pages, page)

		if pos+4 > len(data) {
			break
		}
		offset = order.Uint32(data[pos : pos+4])
	}

	if len(pages) == 0 || pages[0].width == 0 || pages[0].height == 0 {
		return nil, nil, false, fmt.Errorf("%w: TIFF has no readable directory", errCorruptHeader)
	}
	return order, pages, profile, nil
}

// rebaseTIFF returns a copy of data whose first directory is page.
func rebaseTIFF(data []byte, order binary.ByteOrder, page tiffPage) []byte {
	out := append([]byte(nil), data...)
	order.PutUint32(out[4:8], page.offset)
	return out
}

// webpHasAlpha inspects the RIFF container for an alpha channel.
func webpHasAlpha(data []byte) bool {
	if len(data) < 21 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
		return false
	}
	switch string(data[12:16]) {
	case "VP8X":
		return data[20]&0x10 != 0
	case "VP8L":
		// alpha_is_used hint in the lossless bitstream header
		return len(data) >= 25 && data[24]&0x10 != 0
	default:
		return false
	}
}
