// Package assets embeds bundled data files.
package assets

import "embed"

// SampleDataFS embeds a small customer dataset for seeding a fresh
// installation.
//
//go:embed data/customers_sample.csv
var SampleDataFS embed.FS

// SampleDataPath is the embedded path of the sample dataset.
const SampleDataPath = "data/customers_sample.csv"
