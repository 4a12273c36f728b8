package config

// DomainConfig holds the configurable bounds for render requests.
// Values live here rather than on the value objects so deployments can
// tighten limits without touching validation logic.
type DomainConfig struct {
	// Dimension constraints (pixels)
	MinWidth  int
	MaxWidth  int
	MinHeight int
	MaxHeight int

	// Scale constraints
	MinScale float64
	MaxScale float64

	// Source constraints
	MaxCodeLength int

	// Defaults applied when a request omits a field
	DefaultWidth           int
	DefaultHeight          int
	DefaultScale           float64
	DefaultPadding         int
	DefaultBackgroundColor string
}

// DefaultDomainConfig returns the default domain configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		MinWidth:  100,
		MaxWidth:  4000,
		MinHeight: 100,
		MaxHeight: 4000,

		MinScale: 0.5,
		MaxScale: 4.0,

		MaxCodeLength: 100_000,

		DefaultWidth:           800,
		DefaultHeight:          600,
		DefaultScale:           1.0,
		DefaultPadding:         20,
		DefaultBackgroundColor: "white",
	}
}
