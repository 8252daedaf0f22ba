package geometry

// ExifTransform returns the rotation and mirroring that undo an EXIF
// orientation tag. flip mirrors vertically, flop horizontally.
func ExifTransform(orientation int) (angle int, flip, flop bool) {
	switch orientation {
	case 2:
		return 0, false, true
	case 3:
		return 180, false, false
	case 4:
		return 180, false, true
	case 5:
		return 270, true, false
	case 6:
		return 90, false, false
	case 7:
		return 90, true, false
	case 8:
		return 270, false, false
	default:
		return 0, false, false
	}
}

// CombineRotation adds a requested rotation to the EXIF angle. Requests that
// are not a multiple of 90 are handled by the rotation stage and ignored here.
func CombineRotation(exifAngle, requested int) int {
	angle := exifAngle
	if requested%90 == 0 {
		angle += requested
	}
	angle %= 360
	if angle < 0 {
		angle += 360
	}
	return angle
}
