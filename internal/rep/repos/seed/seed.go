// Package seed supplies the initial reputation dataset used when no
// database blob has been persisted yet. A seed file can be provided by the
// operator; otherwise a small curated default set ships with the binary.
package seed

import (
	"fmt"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"

	"github.com/haukened/domrep/internal/rep/domain"
)

// Load parses a seed dataset. If path is empty the built-in defaults are
// returned. Seed files are JSON with a top-level "records" array.
func Load(path string) ([]domain.Record, error) {
	k := koanf.New(".")

	var err error
	if path == "" {
		err = k.Load(rawbytes.Provider([]byte(defaultSeed)), json.Parser())
	} else {
		err = k.Load(file.Provider(path), json.Parser())
	}
	if err != nil {
		return nil, fmt.Errorf("error loading seed dataset: %w", err)
	}

	var records []domain.Record
	if err := k.UnmarshalWithConf("records", &records, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("error unmarshalling seed records: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("seed dataset contains no records")
	}
	return records, nil
}

// Version returns the version string of a seed dataset without fully
// decoding the records.
func Version(path string) string {
	k := koanf.New(".")
	var err error
	if path == "" {
		err = k.Load(rawbytes.Provider([]byte(defaultSeed)), json.Parser())
	} else {
		err = k.Load(file.Provider(path), json.Parser())
	}
	if err != nil {
		return ""
	}
	return k.String("version")
}
