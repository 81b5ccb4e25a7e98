// Package configs provides the embedded configuration template for
// leasehound. Embedding at build time keeps `leasehound config init`
// working in every distribution without shipping extra files.
package configs

import _ "embed"

// ConfigTemplate is the annotated starting config written by
// `leasehound config init` to ~/.leasehound/config.yaml.
//
//go:embed config.example.yaml
var ConfigTemplate string
