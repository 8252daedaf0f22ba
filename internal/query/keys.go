package query

// Query keys accepted from the query string.
const (
	KeyWidth            = "w"
	KeyHeight           = "h"
	KeyDPR              = "dpr"
	KeyFit              = "fit"
	KeyWithoutEnlarge   = "we"
	KeyAlign            = "a"
	KeyFocalX           = "fpx"
	KeyFocalY           = "fpy"
	KeyCropX            = "cx"
	KeyCropY            = "cy"
	KeyCropWidth        = "cw"
	KeyCropHeight       = "ch"
	KeyCrop             = "crop"
	KeyPrecrop          = "precrop"
	KeyTrim             = "trim"
	KeyMask             = "mask"
	KeyMaskTrim         = "mtrim"
	KeyMaskBackground   = "mbg"
	KeyFlip             = "flip"
	KeyFlop             = "flop"
	KeyRotate           = "ro"
	KeyRotateBg         = "rbg"
	KeyBackground       = "bg"
	KeyContainBg        = "cbg"
	KeyBlur             = "blur"
	KeyContrast         = "con"
	KeyBrightness       = "bri"
	KeyFilter           = "filt"
	KeyStart            = "start"
	KeyStop             = "stop"
	KeyGamma            = "gam"
	KeyModulate         = "mod"
	KeySaturation       = "sat"
	KeyHue              = "hue"
	KeySharpen          = "sharp"
	KeySharpenFlat      = "sharpf"
	KeySharpenJagged    = "sharpj"
	KeyTint             = "tint"
	KeyOutput           = "output"
	KeyQuality          = "q"
	KeyCompression      = "l"
	KeyInterlace        = "il"
	KeyAdaptiveFilter   = "af"
	KeyLossless         = "lb"
	KeyDelay            = "delay"
	KeyPages            = "n"
	KeyPage             = "page"
	KeyFastShrinkOnLoad = "fsol"
)

// Derived keys written by one processing step and read by later ones. They
// share the Directive Map with the query keys and are always written with
// Update, except where noted.
//
//	angle, flip, flop  writer: thumbnail (ResolveRotationAndFlip, written once
//	                   while "angle" is absent). readers: thumbnail (dimension
//	                   swap), orientation. flip and flop overwrite the user
//	                   values with the combined EXIF result.
//	has_alpha          writers: loader, embed, background, mask.
//	                   readers: embed, background, saver (format resolution).
//	page_height        writers: loader, thumbnail, embed.
//	                   readers: thumbnail, embed, trim, saver, json metadata.
//	type               writer: loader (ImageType). readers: shrink-on-load, saver.
//	n, page            writer: loader (resolved page selection). readers:
//	                   geometry (multi-page mode), orientation, rotation, saver.
//	input_width,       writer: loader. reader: json metadata.
//	input_height
//	premultiplied      writer: thumbnail. reader: embed (unpremultiply).
//	shrink_on_load     writer: trim (false once trimmed). reader: shrink-on-load.
const (
	KeyAngle         = "angle"
	KeyHasAlpha      = "has_alpha"
	KeyPageHeight    = "page_height"
	KeyType          = "type"
	KeyInputWidth    = "input_width"
	KeyInputHeight   = "input_height"
	KeyPremultiplied = "premultiplied"
	KeyShrinkOnLoad  = "shrink_on_load"
)
