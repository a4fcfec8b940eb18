// Package configs provides the embedded configuration template written by
// `docsearch init`.
//
// The template lists every key with its default value. Keys left out of a
// real config file keep their defaults (see internal/config Load).
package configs

import _ "embed"

// ProjectConfigTemplate is the template for .docsearch.yaml.
//
//go:embed docsearch.example.yaml
var ProjectConfigTemplate string
