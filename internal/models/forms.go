package models

// Answers to "did the shop buy?"
const (
	SoldYes = "Yes"
	SoldNo  = "No"

	// ReasonOther requires free text in OtherReason.
	ReasonOther = "Other"
)

// VisitForm is what the agent fills in for a shop visit.
type VisitForm struct {
	Region        string         `json:"region"`
	Shop          string         `json:"shop"`
	Sold          string         `json:"sold"`
	SKUQuantities map[string]int `json:"skuQuantities"`
	Reason        string         `json:"reason"`
	OtherReason   string         `json:"otherReason"`
	Photo         []byte         `json:"-"`
}

// UpliftForm is what the agent fills in for a stock uplift.
type UpliftForm struct {
	Region        string         `json:"region"`
	Shop          string         `json:"shop"`
	SKUQuantities map[string]int `json:"skuQuantities"`
	Photo         []byte         `json:"-"`
}
