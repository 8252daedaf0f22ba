package query

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxCoordinate is the largest magnitude accepted for numeric values. It matches
// the engine's maximum image dimension.
const MaxCoordinate = 10000000

// ErrInvalidValue is returned by the value parsers when a raw string cannot be typed.
var ErrInvalidValue = errors.New("invalid value")

// ParseBool treats a present key without a value as true. Only "false" and "0" are false.
func ParseBool(value string) (bool, error) {
	switch value {
	case "false", "0":
		return false, nil
	default:
		return true, nil
	}
}

// ParseInt parses an integer. Decimal literals are accepted and truncated toward zero.
func ParseInt(value string) (int, error) {
	if i, err := strconv.Atoi(value); err == nil {
		if i > MaxCoordinate || i < -MaxCoordinate {
			return 0, fmt.Errorf("%w: %q exceeds the maximum coordinate", ErrInvalidValue, value)
		}
		return i, nil
	}

	f, err := ParseFloat(value)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// ParseFloat parses a finite floating point number within MaxCoordinate.
func ParseFloat(value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, value)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > MaxCoordinate {
		return 0, fmt.Errorf("%w: %q is out of range", ErrInvalidValue, value)
	}
	return f, nil
}

// Coordinate is either an absolute pixel value or a fraction of a base dimension.
type Coordinate struct {
	pixels   int
	fraction float64
	relative bool
	valid    bool
}

// InvalidCoordinate is the sentinel stored for coordinates that failed to parse.
var InvalidCoordinate = Coordinate{}

// AbsoluteCoordinate returns a coordinate holding a pixel value.
func AbsoluteCoordinate(pixels int) Coordinate {
	return Coordinate{pixels: pixels, valid: true}
}

// RelativeCoordinate returns a coordinate holding a fraction in [0,1].
func RelativeCoordinate(fraction float64) Coordinate {
	return Coordinate{fraction: fraction, relative: true, valid: true}
}

// Valid reports whether the coordinate parsed successfully.
func (c Coordinate) Valid() bool {
	return c.valid
}

// Relative reports whether the coordinate is a fraction of its base.
func (c Coordinate) Relative() bool {
	return c.relative
}

// ToPixels resolves the coordinate against base. Invalid coordinates resolve to -1.
func (c Coordinate) ToPixels(base int) int {
	if !c.valid {
		return -1
	}
	if c.relative {
		return int(math.Round(c.fraction * float64(base)))
	}
	return c.pixels
}

func (c Coordinate) String() string {
	switch {
	case !c.valid:
		return "invalid"
	case c.relative:
		return strconv.FormatFloat(c.fraction*100, 'f', -1, 64) + "%"
	default:
		return strconv.Itoa(c.pixels)
	}
}

// ParseCoordinate parses "50%" (or "50%25") as a relative value and anything else as pixels.
func ParseCoordinate(value string) (Coordinate, error) {
	number, relative := strings.CutSuffix(value, "%25")
	if !relative {
		number, relative = strings.CutSuffix(value, "%")
	}

	if !relative {
		i, err := ParseInt(value)
		if err != nil {
			return InvalidCoordinate, err
		}
		return AbsoluteCoordinate(i), nil
	}

	f, err := ParseFloat(number)
	if err != nil {
		return InvalidCoordinate, err
	}
	if f < 0 || f > 100 {
		return InvalidCoordinate, fmt.Errorf("%w: percentage %q outside [0,100]", ErrInvalidValue, value)
	}
	return RelativeCoordinate(f / 100), nil
}
