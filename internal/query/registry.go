package query

type directiveType int

const (
	typeBool directiveType = iota
	typeInt
	typeFloat
	typeColor
	typeCoordinate
	typeIntVector
	typePosition
	typeCanvas
	typeFilter
	typeMask
	typeOutput
	typeModulate
	typeSharpen
	typeCrop
)

// registry maps every canonical key to the type it is parsed as.
var registry = map[string]directiveType{
	KeyWidth:            typeInt,
	KeyHeight:           typeInt,
	KeyDPR:              typeFloat,
	KeyFit:              typeCanvas,
	KeyWithoutEnlarge:   typeBool,
	KeyAlign:            typePosition,
	KeyFocalX:           typeFloat,
	KeyFocalY:           typeFloat,
	KeyCropX:            typeCoordinate,
	KeyCropY:            typeCoordinate,
	KeyCropWidth:        typeCoordinate,
	KeyCropHeight:       typeCoordinate,
	KeyCrop:             typeCrop,
	KeyPrecrop:          typeBool,
	KeyTrim:             typeInt,
	KeyMask:             typeMask,
	KeyMaskTrim:         typeBool,
	KeyMaskBackground:   typeColor,
	KeyFlip:             typeBool,
	KeyFlop:             typeBool,
	KeyRotate:           typeInt,
	KeyRotateBg:         typeColor,
	KeyBackground:       typeColor,
	KeyContainBg:        typeColor,
	KeyBlur:             typeFloat,
	KeyContrast:         typeInt,
	KeyBrightness:       typeInt,
	KeyFilter:           typeFilter,
	KeyStart:            typeColor,
	KeyStop:             typeColor,
	KeyGamma:            typeFloat,
	KeyModulate:         typeModulate,
	KeySaturation:       typeFloat,
	KeyHue:              typeInt,
	KeySharpen:          typeSharpen,
	KeySharpenFlat:      typeFloat,
	KeySharpenJagged:    typeFloat,
	KeyTint:             typeColor,
	KeyOutput:           typeOutput,
	KeyQuality:          typeInt,
	KeyCompression:      typeInt,
	KeyInterlace:        typeBool,
	KeyAdaptiveFilter:   typeBool,
	KeyLossless:         typeBool,
	KeyDelay:            typeIntVector,
	KeyPages:            typeInt,
	KeyPage:             typeInt,
	KeyFastShrinkOnLoad: typeBool,
}

// synonyms rewrites deprecated keys to their canonical spelling before typing.
var synonyms = map[string]string{
	"shape":  KeyMask,
	"strim":  KeyMaskTrim,
	"t":      KeyFit,
	"or":     KeyRotate,
	"width":  KeyWidth,
	"height": KeyHeight,
}

// maxKeyLength is the length of the longest registered or synonym key.
var maxKeyLength = func() int {
	longest := 0
	for key := range registry {
		longest = max(longest, len(key))
	}
	for key := range synonyms {
		longest = max(longest, len(key))
	}
	return longest
}()

// IsRegistered reports whether key is a canonical query key.
func IsRegistered(key string) bool {
	_, ok := registry[key]
	return ok
}

// Canonical returns the canonical spelling of key.
func Canonical(key string) string {
	if canonical, ok := synonyms[key]; ok {
		return canonical
	}
	return key
}
