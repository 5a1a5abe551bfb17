package domain

// Metadata describes the currently persisted reputation database.
// CompressionRatio is a diagnostic estimate derived from the last persist,
// not a hard guarantee; callers should only rely on it being positive.
type Metadata struct {
	Version          string   `json:"version"`
	TotalDomains     int      `json:"total_domains"`
	LastUpdated      int64    `json:"last_updated"`
	CompressionRatio float64  `json:"compression_ratio"`
	Sources          []string `json:"sources,omitempty"`
}

// Manifest describes a dataset available from the remote update source.
type Manifest struct {
	Version  string `json:"version"`
	URL      string `json:"url"`
	Checksum string `json:"checksum,omitempty"`
	Size     int64  `json:"size,omitempty"`
}

// AddSource appends an update-source identifier if it is not already listed.
func (m *Metadata) AddSource(source string) {
	if source == "" {
		return
	}
	for _, s := range m.Sources {
		if s == source {
			return
		}
	}
	m.Sources = append(m.Sources, source)
}
