package domain

type CostTier string

const (
	CostTierUnder CostTier = "under"
	CostTierAt    CostTier = "at"
	CostTierOver  CostTier = "over"
)

// DestinationSuggestion is one suggested destination from the external
// suggestion source. The blurb text is opaque to this system.
type DestinationSuggestion struct {
	Name     string
	IATACode string
	Blurb    string
	CostTier CostTier
}
