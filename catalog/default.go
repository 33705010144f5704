package catalog

import (
	"bytes"
	_ "embed"
)

//go:embed problems.json
var defaultProblems []byte

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultProblems))
}
