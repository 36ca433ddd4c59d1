// Package configs provides the embedded configuration template.
//
// The template is embedded at build time so `strukindex config init`
// works in every distribution, source builds and binary releases alike.
package configs

import _ "embed"

// ConfigTemplate is the annotated example configuration written by
// `strukindex config init`.
//
//go:embed strukindex.example.yaml
var ConfigTemplate string
