package screen

// Image processing constants
const (
	// Max width or height before downscaling
	MaxDimension = 1920

	// JPEG quality for re-encoded frames
	JPEGQuality = 85
)
