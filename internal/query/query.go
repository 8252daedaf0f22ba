package query

import (
	"strings"
)

// DefaultMaxVectorItems caps vector directives when no page limit is configured.
const DefaultMaxVectorItems = 256

type parseOptions struct {
	reserved map[string]struct{}
	maxPages int
}

// Option customizes Parse.
type Option func(*parseOptions)

// WithReservedKeys skips keys consumed by the host, e.g. "url" or "filename".
func WithReservedKeys(keys ...string) Option {
	return func(o *parseOptions) {
		for _, key := range keys {
			o.reserved[key] = struct{}{}
		}
	}
}

// WithMaxPages caps the number of delay items. Values <= 0 keep the default cap.
func WithMaxPages(maxPages int) Option {
	return func(o *parseOptions) {
		o.maxPages = maxPages
	}
}

// Parse builds a Directive Map from a query string of the form
// key1[=val1]&key2[=val2]. Unknown, reserved and over-long keys are ignored
// and the first occurrence of a key wins.
func Parse(query string, opts ...Option) *Directives {
	options := &parseOptions{reserved: make(map[string]struct{})}
	for _, opt := range opts {
		opt(options)
	}

	directives := NewDirectives()
	for _, pair := range strings.Split(query, "&") {
		key, value, _ := strings.Cut(pair, "=")
		if key == "" || len(key) > maxKeyLength {
			continue
		}
		if _, ok := options.reserved[key]; ok {
			continue
		}

		key = Canonical(key)
		kind, ok := registry[key]
		if !ok {
			continue
		}
		directives.add(key, kind, value, options)
	}
	return directives
}

func (d *Directives) add(key string, kind directiveType, value string, options *parseOptions) {
	switch kind {
	case typeBool:
		b, _ := ParseBool(value)
		d.Insert(key, BoolValue(b))
	case typeInt:
		d.Insert(key, IntValue(intOrSentinel(value)))
	case typeFloat:
		d.Insert(key, FloatValue(floatOrSentinel(value)))
	case typeColor:
		c, err := ParseColor(value)
		if err != nil {
			c = Transparent
		}
		d.Insert(key, ColorValue(c))
	case typeCoordinate:
		c, err := ParseCoordinate(value)
		if err != nil {
			c = InvalidCoordinate
		}
		d.Insert(key, CoordinateValue(c))
	case typeIntVector:
		limit := DefaultMaxVectorItems
		if options.maxPages > 0 {
			limit = options.maxPages
		}
		d.Insert(key, IntsValue(tokenizeInts(value, limit)))
	case typePosition:
		d.addPosition(value)
	case typeCanvas:
		c, err := ParseCanvas(value)
		if err != nil {
			return
		}
		if d.Insert(key, IntValue(int(c))) && (value == "fit" || value == "squaredown") {
			d.Insert(KeyWithoutEnlarge, BoolValue(true))
		}
	case typeFilter:
		if f, err := ParseFilterType(value); err == nil {
			d.Insert(key, IntValue(int(f)))
		}
	case typeMask:
		if m, err := ParseMaskType(value); err == nil {
			d.Insert(key, IntValue(int(m)))
		}
	case typeOutput:
		if o, err := ParseOutput(value); err == nil {
			d.Insert(key, IntValue(int(o)))
		}
	case typeModulate:
		d.addModulate(value)
	case typeSharpen:
		d.addSharpen(value)
	case typeCrop:
		d.addCrop(value)
	}
}

// addModulate expands mod=B,S,H into mod, sat and hue.
func (d *Directives) addModulate(value string) {
	tokens := tokenizeFloats(value, 3)
	targets := []string{KeyModulate, KeySaturation, KeyHue}
	for i, f := range tokens {
		if targets[i] == KeyHue {
			d.Insert(KeyHue, IntValue(int(f)))
			continue
		}
		d.Insert(targets[i], FloatValue(f))
	}
}

// addSharpen expands sharp=S to sharp and sharp=F,J,S to sharpf, sharpj and sharp.
// A bare sharp stores the -1 sentinel.
func (d *Directives) addSharpen(value string) {
	tokens := tokenizeFloats(value, 3)
	switch len(tokens) {
	case 0:
		d.Insert(KeySharpen, FloatValue(-1))
	case 1:
		d.Insert(KeySharpen, FloatValue(tokens[0]))
	case 3:
		d.Insert(KeySharpenFlat, FloatValue(tokens[0]))
		d.Insert(KeySharpenJagged, FloatValue(tokens[1]))
		d.Insert(KeySharpen, FloatValue(tokens[2]))
	}
}

// addCrop expands the deprecated crop=W,H,X,Y.
func (d *Directives) addCrop(value string) {
	tokens := tokenize(value, 4)
	if len(tokens) != 4 {
		return
	}
	for i, key := range []string{KeyCropWidth, KeyCropHeight, KeyCropX, KeyCropY} {
		c, err := ParseCoordinate(tokens[i])
		if err != nil {
			c = InvalidCoordinate
		}
		d.Insert(key, CoordinateValue(c))
	}
}

// addPosition stores the alignment and expands the deprecated focal-X-Y and
// crop-X-Y forms into fpx and fpy.
func (d *Directives) addPosition(value string) {
	p, err := ParsePosition(value)
	if err != nil {
		return
	}
	if !d.Insert(KeyAlign, IntValue(int(p))) || p != PositionFocal {
		return
	}

	rest, ok := strings.CutPrefix(value, "crop-")
	if !ok {
		rest, ok = strings.CutPrefix(value, "focal-")
	}
	if !ok {
		return
	}

	focal := [2]float64{0.5, 0.5}
	for i, token := range strings.SplitN(rest, "-", 2) {
		f, err := ParseFloat(token)
		if err != nil {
			continue
		}
		focal[i] = min(max(f, 0), 100) / 100
	}
	d.Insert(KeyFocalX, FloatValue(focal[0]))
	d.Insert(KeyFocalY, FloatValue(focal[1]))
}

func intOrSentinel(value string) int {
	i, err := ParseInt(value)
	if err != nil {
		return -1
	}
	return i
}

func floatOrSentinel(value string) float64 {
	f, err := ParseFloat(value)
	if err != nil {
		return -1
	}
	return f
}

// tokenize skips leading delimiters and splits value on ',' into at most limit items.
func tokenize(value string, limit int) []string {
	value = strings.TrimLeft(value, ",")
	if value == "" {
		return nil
	}
	tokens := strings.Split(value, ",")
	if len(tokens) > limit {
		tokens = tokens[:limit]
	}
	return tokens
}

func tokenizeInts(value string, limit int) []int {
	tokens := tokenize(value, limit)
	ints := make([]int, len(tokens))
	for i, token := range tokens {
		ints[i] = intOrSentinel(token)
	}
	return ints
}

func tokenizeFloats(value string, limit int) []float64 {
	tokens := tokenize(value, limit)
	floats := make([]float64, len(tokens))
	for i, token := range tokens {
		floats[i] = floatOrSentinel(token)
	}
	return floats
}
