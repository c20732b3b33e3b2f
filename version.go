package trellis

import _ "embed"

// Version exposes the version of the library, sourced from the VERSION file.
//
//go:embed VERSION
var Version string
