package ir

// Version constants for the program IR and the toolchain.
const (
	// IRVersion is the program IR schema version.
	IRVersion = "1"

	// ToolVersion is the mthresh toolchain version.
	ToolVersion = "0.1.0"
)
