package demo_configs

import (
	"embed"
)

// FS provides embedded demo box setting YAMLs for external usage.
//
//go:embed *.yaml
var FS embed.FS
