package tally

import _ "embed"

// Version is the version of the library and the tally binary.
//
//go:embed VERSION
var Version string
