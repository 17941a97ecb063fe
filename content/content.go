// Package content embeds the default pathway content: the master manifest and
// one YAML file per pathway.
//
//	store, err := pathway.Load(content.FS)
package content

import "embed"

// FS holds manifest.yaml and pathways/*.yaml.
//
//go:embed manifest.yaml pathways/*.yaml
var FS embed.FS
