package decision

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// rawConfig mirrors the bucketing file envelope. Campaigns stay raw so one
// malformed entry can be skipped without discarding its siblings.
type rawConfig struct {
	Panic     bool              `json:"panic"`
	Campaigns []json.RawMessage `json:"campaigns"`
}

// ParseModel parses a full campaign payload (bucketing file) into an
// immutable Model. Malformed campaigns, variation groups and variations are
// logged and dropped individually; the rest of the payload is kept.
func ParseModel(data []byte, logger *slog.Logger) (*Model, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var raw rawConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}

	model := &Model{
		Panic:     raw.Panic,
		FetchedAt: time.Now(),
	}
	for i, rc := range raw.Campaigns {
		var c Campaign
		if err := json.Unmarshal(rc, &c); err != nil {
			logger.Warn("skipping malformed campaign",
				slog.Int("index", i),
				slog.String("error", err.Error()))
			continue
		}
		if c.ID == "" {
			logger.Warn("skipping campaign without id", slog.Int("index", i))
			continue
		}
		c.VariationGroups = validGroups(c, logger)
		model.Campaigns = append(model.Campaigns, c)
	}
	return model, nil
}

func validGroups(c Campaign, logger *slog.Logger) []VariationGroup {
	groups := make([]VariationGroup, 0, len(c.VariationGroups))
	for _, g := range c.VariationGroups {
		if g.ID == "" {
			logger.Warn("skipping variation group without id",
				slog.String("campaign_id", c.ID))
			continue
		}
		variations := make([]Variation, 0, len(g.Variations))
		var total float64
		for _, v := range g.Variations {
			if v.ID == "" {
				logger.Warn("skipping variation without id",
					slog.String("campaign_id", c.ID),
					slog.String("variation_group_id", g.ID))
				continue
			}
			if v.Allocation < 0 || v.Allocation > 100 {
				logger.Warn("skipping variation with invalid allocation",
					slog.String("campaign_id", c.ID),
					slog.String("variation_id", v.ID),
					slog.Float64("allocation", v.Allocation))
				continue
			}
			total += v.Allocation
			variations = append(variations, v)
		}
		if total > 100 {
			logger.Warn("variation allocations exceed 100 percent",
				slog.String("campaign_id", c.ID),
				slog.String("variation_group_id", g.ID),
				slog.Float64("total", total))
		}
		g.Variations = variations
		groups = append(groups, g)
	}
	return groups
}
