package models

import "time"

// ReportCategory is the top-level kind of report a user can request
type ReportCategory string

const (
	CategoryFinancials        ReportCategory = "financials"
	CategoryMonthlyBonus      ReportCategory = "monthly_bonus"
	CategoryRequisitions      ReportCategory = "requisitions"
	CategoryMarketingMaterial ReportCategory = "marketing_material"
	CategoryPatientReports    ReportCategory = "patient_reports"

	// Ledger table reports
	CategoryRevenue         ReportCategory = "revenue"
	CategoryCOGS            ReportCategory = "cogs"
	CategoryNetProfit       ReportCategory = "net_profit"
	CategoryCommission      ReportCategory = "commission"
	CategoryPatientIDReport ReportCategory = "patient_id_report"
)

// Ledger column names as they appear in the source spreadsheet
const (
	ColumnDate              = "Date"
	ColumnEntity            = "Entity"
	ColumnLocation          = "Location"
	ColumnReimbursement     = "Reimbursement"
	ColumnCOGS              = "COGS"
	ColumnNet               = "Net"
	ColumnCommission        = "Commission"
	ColumnAssociatedRepName = "Associated Rep Name"
	ColumnUsername          = "Username"
	ColumnPatientID         = "PatientID"
)

// AllEntities is the pseudo-entity meaning every entity the user may view
const AllEntities = "All Entities"

// ReportRow is one record of the transactional ledger
type ReportRow struct {
	Date              time.Time `json:"date"`
	Entity            string    `json:"entity"`
	Location          string    `json:"location"`
	Reimbursement     float64   `json:"reimbursement"`
	COGS              float64   `json:"cogs"`
	Net               float64   `json:"net"`
	Commission        float64   `json:"commission"`
	AssociatedRepName string    `json:"associated_rep_name"`
	UsernameTag       string    `json:"username_tag"`
	PatientID         string    `json:"patient_id,omitempty"`
}

// ReportFile is a resolved, existing file in the file store
type ReportFile struct {
	DisplayName string `json:"display_name"`
	Key         string `json:"key"`
}

// BonusSummary is one aggregated group of the monthly bonus view
type BonusSummary struct {
	AssociatedRepName string  `json:"associated_rep_name"`
	Entity            string  `json:"entity,omitempty"`
	Reimbursement     float64 `json:"reimbursement"`
	COGS              float64 `json:"cogs"`
	Net               float64 `json:"net"`
	Commission        float64 `json:"commission"`
}

// FileGroup is a labelled list of report files, such as one year of
// financials or one date of service
type FileGroup struct {
	Label string       `json:"label"`
	Files []ReportFile `json:"files"`
}
