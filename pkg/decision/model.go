package decision

import "time"

// Campaign is one experiment as delivered by the platform. Campaigns are
// immutable once parsed and are rebuilt wholesale on each successful fetch.
type Campaign struct {
	ID              string           `json:"id"`
	Type            string           `json:"type"`
	Slug            string           `json:"slug,omitempty"`
	VariationGroups []VariationGroup `json:"variationGroups"`
}

// VariationGroup is a targeted cohort within a campaign. Groups are
// evaluated in declared order; the first group whose targeting matches the
// visitor (or that has no targeting at all) is used for allocation.
type VariationGroup struct {
	ID         string          `json:"id"`
	Name       string          `json:"name,omitempty"`
	Targeting  TargetingGroups `json:"targeting"`
	Variations []Variation     `json:"variations"`
}

// Variation is one experience arm. Allocation is a percentage of the
// group's traffic; allocations across sibling variations sum to at most
// 100. A variation with a zero allocation is retained so that sticky
// assignments referencing it stay valid, but it is never newly selected.
type Variation struct {
	ID            string        `json:"id"`
	Name          string        `json:"name,omitempty"`
	Reference     bool          `json:"reference"`
	Allocation    float64       `json:"allocation"`
	Modifications Modifications `json:"modifications"`
}

// Modifications is the flag key/value payload carried by a variation.
// Values are the JSON scalars and composites produced by encoding/json:
// string, float64, bool, map[string]any, []any or nil.
type Modifications struct {
	Type  string         `json:"type"`
	Value map[string]any `json:"value"`
}

// Modification is one resolved flag assignment for a visitor. It replaces
// any previous assignment for the same key.
type Modification struct {
	Key              string
	Value            any
	CampaignID       string
	CampaignType     string
	Slug             string
	VariationGroupID string
	VariationID      string
	IsReference      bool
}

// Model is an immutable snapshot of all campaigns known to the SDK,
// swapped atomically on each successful fetch.
type Model struct {
	Campaigns []Campaign
	Panic     bool
	FetchedAt time.Time
}

// Resolution is the outcome of resolving flags for one visitor: the flag
// assignments plus the variation choices made during this resolution, keyed
// by variation group id. The caller merges Assignments into the visitor's
// sticky assignment history.
type Resolution struct {
	Modifications []Modification
	Assignments   map[string]string
}

// VisitorInfo is the read-only view of a visitor a Source needs to resolve
// flags: identity, context and the sticky assignment history.
type VisitorInfo struct {
	VisitorID   string
	AnonymousID string
	Context     map[string]any
	Assignments map[string]string
}

// modificationsOf flattens a selected variation into flag assignments.
func modificationsOf(c *Campaign, g *VariationGroup, v *Variation) []Modification {
	mods := make([]Modification, 0, len(v.Modifications.Value))
	for key, value := range v.Modifications.Value {
		mods = append(mods, Modification{
			Key:              key,
			Value:            value,
			CampaignID:       c.ID,
			CampaignType:     c.Type,
			Slug:             c.Slug,
			VariationGroupID: g.ID,
			VariationID:      v.ID,
			IsReference:      v.Reference,
		})
	}
	return mods
}
