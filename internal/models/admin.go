package models

import "encoding/json"

// Summary periods accepted by the adminSummary action.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// VisitRow is a visit or uplift as listed back by the backend.
type VisitRow struct {
	NationalID   string          `json:"nationalID"`
	Name         string          `json:"name"`
	Region       string          `json:"region"`
	ShopName     string          `json:"shopName"`
	Sold         string          `json:"sold,omitempty"`
	SKUs         json.RawMessage `json:"skus,omitempty"`
	TotalCartons int             `json:"totalCartons"`
	Reason       string          `json:"reason,omitempty"`
	Longitude    float64         `json:"longitude"`
	Latitude     float64         `json:"latitude"`
	Timestamp    string          `json:"timestamp"`
}

// PendingUplift is an uplift waiting for an admin decision. RowIndex identifies it in the backend.
type PendingUplift struct {
	VisitRow
	RowIndex int    `json:"rowIndex"`
	Status   string `json:"status,omitempty"`
}

// Target is an agent's sales goal in cartons per period.
type Target struct {
	NationalID    string `json:"nationalID"`
	Name          string `json:"name"`
	DailyTarget   int    `json:"dailyTarget"`
	WeeklyTarget  int    `json:"weeklyTarget"`
	MonthlyTarget int    `json:"monthlyTarget"`
}

// SummaryParams filters the admin summary.
type SummaryParams struct {
	Type        string `json:"type"`
	Month       *int   `json:"month"`
	Year        int    `json:"year"`
	Salesperson string `json:"salesperson,omitempty"`
}

// SummaryTotals are the counters reported per agent, region and period.
type SummaryTotals struct {
	Visits  int `json:"visits"`
	Sold    int `json:"sold"`
	Cartons int `json:"cartons"`
}

// UserSummary is one agent's totals.
type UserSummary struct {
	NationalID string `json:"nationalID"`
	Name       string `json:"name"`
	SummaryTotals
}

// RegionSummary is one region's totals.
type RegionSummary struct {
	Region string `json:"region"`
	SummaryTotals
}

// PeriodSummary is the totals of one day, week or month.
type PeriodSummary struct {
	Period string `json:"period"`
	SummaryTotals
}

// AdminSummary is the reply of the adminSummary action.
type AdminSummary struct {
	Users      []UserSummary   `json:"users"`
	Regions    []RegionSummary `json:"regions"`
	Timeseries struct {
		Daily   []PeriodSummary `json:"daily"`
		Weekly  []PeriodSummary `json:"weekly"`
		Monthly []PeriodSummary `json:"monthly"`
	} `json:"timeseries"`
}

// Totals adds up the per-agent counters.
func (s AdminSummary) Totals() SummaryTotals {
	var t SummaryTotals
	for _, u := range s.Users {
		t.Visits += u.Visits
		t.Sold += u.Sold
		t.Cartons += u.Cartons
	}
	return t
}
