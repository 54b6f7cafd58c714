package panphon

import _ "embed"

// Embedded feature table blob, exported from the PanPhon segment
// inventory (24 features per symbol).

//go:embed features.json
var featuresData []byte
