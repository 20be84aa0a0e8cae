package segment

// Options tune the figure detector. The defaults suit pages rendered at 300 DPI.
type Options struct {
	// MinArea is the exclusive lower bound on a candidate's bounding-box area, in pixels.
	MinArea int

	// Threshold is the luminance at or below which a pixel counts as ink.
	Threshold uint8

	// KernelSize is the side of the square structuring element used for closing.
	KernelSize int

	// Aspect ratio (width/height) band, both bounds exclusive.
	MinAspect float64
	MaxAspect float64

	// Caption strips are at most CaptionMaxHeight tall and must be taller than CaptionMinHeight.
	CaptionMaxHeight int
	CaptionMinHeight int
}

func DefaultOptions() Options {
	return Options{
		MinArea:    90000,
		Threshold:  240,
		KernelSize: 15,

		MinAspect: 0.5,
		MaxAspect: 2.0,

		CaptionMaxHeight: 200,
		CaptionMinHeight: 20,
	}
}

type Option func(*Options)

func WithMinArea(area int) Option {
	return func(o *Options) {
		o.MinArea = area
	}
}

func WithThreshold(threshold uint8) Option {
	return func(o *Options) {
		o.Threshold = threshold
	}
}

func WithKernelSize(size int) Option {
	return func(o *Options) {
		o.KernelSize = size
	}
}

func WithAspectRange(min, max float64) Option {
	return func(o *Options) {
		o.MinAspect = min
		o.MaxAspect = max
	}
}

func WithCaptionHeight(min, max int) Option {
	return func(o *Options) {
		o.CaptionMinHeight = min
		o.CaptionMaxHeight = max
	}
}
