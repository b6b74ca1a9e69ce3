package csdoptimade

var (
	// Version of csdoptimade.
	Version = "v0.1.0"

	// Build timestamp, set during compilation.
	Build = "n/a"
)
