package query

import "fmt"

// Kind tags the variant held by a Value.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindColor
	KindCoordinate
	KindInts
	KindFloats
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindColor:
		return "color"
	case KindCoordinate:
		return "coordinate"
	case KindInts:
		return "[]int"
	case KindFloats:
		return "[]float"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a typed directive value. Enumerations are stored as KindInt.
type Value struct {
	kind   Kind
	b      bool
	i      int
	f      float64
	color  Color
	coord  Coordinate
	ints   []int
	floats []float64
}

func BoolValue(b bool) Value             { return Value{kind: KindBool, b: b} }
func IntValue(i int) Value               { return Value{kind: KindInt, i: i} }
func FloatValue(f float64) Value         { return Value{kind: KindFloat, f: f} }
func ColorValue(c Color) Value           { return Value{kind: KindColor, color: c} }
func CoordinateValue(c Coordinate) Value { return Value{kind: KindCoordinate, coord: c} }
func IntsValue(ints []int) Value         { return Value{kind: KindInts, ints: ints} }
func FloatsValue(floats []float64) Value { return Value{kind: KindFloats, floats: floats} }

// Kind returns the variant tag.
func (v Value) Kind() Kind { return v.kind }

func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprint(v.b)
	case KindInt:
		return fmt.Sprint(v.i)
	case KindFloat:
		return fmt.Sprint(v.f)
	case KindColor:
		return v.color.String()
	case KindCoordinate:
		return v.coord.String()
	case KindInts:
		return fmt.Sprint(v.ints)
	default:
		return fmt.Sprint(v.floats)
	}
}

// Directives is the per-request Directive Map. It holds the typed query
// parameters and doubles as scratch space shared between pipeline stages
// (see keys.go for the derived keys and who reads and writes them).
// It is not safe for concurrent use; every request owns its own instance.
type Directives struct {
	values map[string]Value
}

// NewDirectives returns an empty Directive Map.
func NewDirectives() *Directives {
	return &Directives{values: make(map[string]Value)}
}

// Exists reports whether key holds a value.
func (d *Directives) Exists(key string) bool {
	_, ok := d.values[key]
	return ok
}

// Len returns the number of stored directives.
func (d *Directives) Len() int {
	return len(d.values)
}

// Value returns the raw value stored under key.
func (d *Directives) Value(key string) (Value, bool) {
	v, ok := d.values[key]
	return v, ok
}

// Insert stores value unless key already holds one and reports whether it was stored.
func (d *Directives) Insert(key string, value Value) bool {
	if _, ok := d.values[key]; ok {
		return false
	}
	d.values[key] = value
	return true
}

// Update stores value, replacing any previous value.
func (d *Directives) Update(key string, value Value) {
	d.values[key] = value
}

// Remove deletes key.
func (d *Directives) Remove(key string) {
	delete(d.values, key)
}

// Bool returns the bool under key, or def when absent or of another kind.
func (d *Directives) Bool(key string, def bool) bool {
	if v, ok := d.values[key]; ok && v.kind == KindBool {
		return v.b
	}
	return def
}

// Int returns the int under key, or def when absent or of another kind.
func (d *Directives) Int(key string, def int) int {
	if v, ok := d.values[key]; ok && v.kind == KindInt {
		return v.i
	}
	return def
}

// IntIf returns the int under key when valid accepts it, otherwise def.
func (d *Directives) IntIf(key string, valid func(int) bool, def int) int {
	if v, ok := d.values[key]; ok && v.kind == KindInt && valid(v.i) {
		return v.i
	}
	return def
}

// Float returns the float under key, or def when absent or of another kind.
func (d *Directives) Float(key string, def float64) float64 {
	if v, ok := d.values[key]; ok && v.kind == KindFloat {
		return v.f
	}
	return def
}

// FloatIf returns the float under key when valid accepts it, otherwise def.
func (d *Directives) FloatIf(key string, valid func(float64) bool, def float64) float64 {
	if v, ok := d.values[key]; ok && v.kind == KindFloat && valid(v.f) {
		return v.f
	}
	return def
}

// Color returns the color under key, or def when absent or of another kind.
func (d *Directives) Color(key string, def Color) Color {
	if v, ok := d.values[key]; ok && v.kind == KindColor {
		return v.color
	}
	return def
}

// Coordinate returns the coordinate under key, or InvalidCoordinate.
func (d *Directives) Coordinate(key string) Coordinate {
	if v, ok := d.values[key]; ok && v.kind == KindCoordinate {
		return v.coord
	}
	return InvalidCoordinate
}

// Ints returns the int vector under key, or nil.
func (d *Directives) Ints(key string) []int {
	if v, ok := d.values[key]; ok && v.kind == KindInts {
		return v.ints
	}
	return nil
}

// Floats returns the float vector under key, or nil.
func (d *Directives) Floats(key string) []float64 {
	if v, ok := d.values[key]; ok && v.kind == KindFloats {
		return v.floats
	}
	return nil
}

// Position returns the alignment, defaulting to center.
func (d *Directives) Position() Position {
	return Position(d.Int(KeyAlign, int(PositionCenter)))
}

// Canvas returns the fit mode, defaulting to inside.
func (d *Directives) Canvas() Canvas {
	return Canvas(d.Int(KeyFit, int(CanvasMax)))
}

// Filter returns the filter, or FilterNone.
func (d *Directives) Filter() FilterType {
	return FilterType(d.Int(KeyFilter, int(FilterNone)))
}

// Mask returns the mask type and whether a mask was requested.
func (d *Directives) Mask() (MaskType, bool) {
	if !d.Exists(KeyMask) {
		return MaskCircle, false
	}
	return MaskType(d.Int(KeyMask, int(MaskCircle))), true
}

// Output returns the requested output format, defaulting to the origin format.
func (d *Directives) Output() Output {
	return Output(d.Int(KeyOutput, int(OutputOrigin)))
}

// Keys returns the stored keys in no particular order.
func (d *Directives) Keys() []string {
	keys := make([]string, 0, len(d.values))
	for k := range d.values {
		keys = append(keys, k)
	}
	return keys
}
