package engine

// ImageType is the format an image was loaded from or is saved as.
type ImageType int

const (
	TypeUnknown ImageType = iota
	TypeJpeg
	TypePng
	TypeWebp
	TypeAvif
	TypeTiff
	TypeGif
	TypeSvg
	TypePdf
	TypeHeif
	TypeMagick
)

func (t ImageType) String() string {
	switch t {
	case TypeJpeg:
		return "jpeg"
	case TypePng:
		return "png"
	case TypeWebp:
		return "webp"
	case TypeAvif:
		return "avif"
	case TypeTiff:
		return "tiff"
	case TypeGif:
		return "gif"
	case TypeSvg:
		return "svg"
	case TypePdf:
		return "pdf"
	case TypeHeif:
		return "heif"
	case TypeMagick:
		return "magick"
	default:
		return "unknown"
	}
}

// Extension returns the file extension used for saved images, including the dot.
func (t ImageType) Extension() string {
	switch t {
	case TypeJpeg:
		return ".jpg"
	case TypeUnknown:
		return ""
	default:
		return "." + t.String()
	}
}

// MultiPage reports whether the format can hold several pages or frames.
func (t ImageType) MultiPage() bool {
	switch t {
	case TypeGif, TypeWebp, TypeTiff, TypePdf, TypeHeif:
		return true
	default:
		return false
	}
}

// Interpretation is the color space of the pixel values.
type Interpretation int

const (
	InterpretationSRGB Interpretation = iota
	InterpretationBW
	InterpretationRGB16
	InterpretationGrey16
	InterpretationCMYK
	InterpretationLAB
	InterpretationMultiband
)

func (i Interpretation) String() string {
	switch i {
	case InterpretationSRGB:
		return "srgb"
	case InterpretationBW:
		return "b-w"
	case InterpretationRGB16:
		return "rgb16"
	case InterpretationGrey16:
		return "grey16"
	case InterpretationCMYK:
		return "cmyk"
	case InterpretationLAB:
		return "lab"
	default:
		return "multiband"
	}
}

// Angle is a rotation by a multiple of 90 degrees, clockwise.
type Angle int

const (
	D0   Angle = 0
	D90  Angle = 90
	D180 Angle = 180
	D270 Angle = 270
)

// Direction is the axis a Flip mirrors along.
type Direction int

const (
	// Horizontal mirrors left to right ("flop").
	Horizontal Direction = iota
	// Vertical mirrors top to bottom ("flip").
	Vertical
)

// Interesting selects the saliency measure used by SmartCrop.
type Interesting int

const (
	InterestingEntropy Interesting = iota
	InterestingAttention
)

// BlendMode is a Porter-Duff compositing operator.
type BlendMode int

const (
	// BlendOver draws the overlay on top of the image.
	BlendOver BlendMode = iota
	// BlendDestIn keeps the image where the overlay is opaque.
	BlendDestIn
)

// Metadata is the non-pixel information carried by an image.
type Metadata struct {
	// Format is the format the image was loaded from.
	Format ImageType

	// Pages is the number of pages in the source file.
	Pages int

	// PageHeight is the height of a single page in a vertically stacked image.
	PageHeight int

	// PagePrimary is the index of the primary page (HEIF).
	PagePrimary int

	Loop  int
	Delay []int

	// Orientation is the EXIF orientation tag, 0 when absent.
	Orientation int

	// Density is the resolution in pixels per inch.
	Density float64

	Depth             string
	ChromaSubsampling string
	IsProgressive     bool
	PaletteBitDepth   int
	HasProfile        bool
}

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	if m.Delay != nil {
		m.Delay = append([]int(nil), m.Delay...)
	}
	return m
}
