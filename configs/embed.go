// Package configs embeds the example configuration template so it ships
// inside the binary and `leasedesk config init` works without any release
// artifacts on disk.
package configs

import _ "embed"

//go:embed config.example.yaml
var exampleConfig []byte

// ExampleConfig returns the example configuration template.
func ExampleConfig() []byte {
	out := make([]byte, len(exampleConfig))
	copy(out, exampleConfig)
	return out
}
