package decision

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadModelFile reads a campaign definition from a local file, for offline
// development and for seeding a BucketingSource before its first network
// fetch. The format is chosen by extension: .yaml/.yml files are converted
// to JSON first, everything else is parsed as JSON directly.
func LoadModelFile(path string, logger *slog.Logger) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("decision: read campaign file: %w", err)
	}

	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		var doc any
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
		}
	}

	return ParseModel(raw, logger)
}
