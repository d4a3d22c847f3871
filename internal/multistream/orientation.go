package multistream

import (
	"errors"
	"math"
)

// squareTolerance is the band around a 1.0 aspect ratio that still counts as
// square.
const squareTolerance = 0.05

// ErrAutoOrientation is returned when a reorientation filter is requested
// with Auto on either side. Auto must be resolved to a concrete orientation
// first.
var ErrAutoOrientation = errors.New("orientation must be resolved before building a filter")

// DetectOrientation classifies a frame size. Unknown dimensions map to Auto
// so the caller can fall back to configuration.
func DetectOrientation(width, height int) Orientation {
	if width <= 0 || height <= 0 {
		return OrientationAuto
	}

	ratio := float64(width) / float64(height)
	switch {
	case math.Abs(ratio-1.0) < squareTolerance:
		return OrientationSquare
	case ratio < 1.0:
		return OrientationVertical
	default:
		return OrientationHorizontal
	}
}

// ReorientationFilter returns the ffmpeg video filter that converts a frame
// from one orientation to another. Matching orientations need no filter and
// return the empty string.
func ReorientationFilter(from, to Orientation) (string, error) {
	if from == OrientationAuto || to == OrientationAuto {
		return "", ErrAutoOrientation
	}
	if from == to {
		return "", nil
	}

	switch to {
	case OrientationVertical:
		if from == OrientationHorizontal {
			return "crop=ih*9/16:ih,scale=1080:1920", nil
		}
		return "scale=1080:1920,setsar=1", nil
	case OrientationHorizontal:
		if from == OrientationVertical {
			return "crop=iw:iw*9/16,scale=1920:1080", nil
		}
		return "scale=1920:1080,setsar=1", nil
	case OrientationSquare:
		return "scale=1080:1080,setsar=1", nil
	default:
		return "", ErrAutoOrientation
	}
}
