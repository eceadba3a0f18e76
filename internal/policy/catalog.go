package policy

import (
	"fmt"
	"os"
	"sort"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"gopkg.in/yaml.v3"
)

// FinancialDefinition is one {report phrase, accounting basis} pair offered
// for the financials category. OnlyYear restricts it to a single year.
type FinancialDefinition struct {
	Phrase   string `yaml:"phrase" json:"phrase"`
	Basis    string `yaml:"basis" json:"basis"`
	OnlyYear int    `yaml:"only_year,omitempty" json:"only_year,omitempty"`
}

// OfferedIn reports whether the definition applies to the given year
func (d FinancialDefinition) OfferedIn(year int) bool {
	return d.OnlyYear == 0 || d.OnlyYear == year
}

// TableReport describes a ledger report rendered as a table
type TableReport struct {
	Name    string   `yaml:"name" json:"name"`
	Columns []string `yaml:"columns" json:"columns"`
}

// SeedUser is a user record declared in the catalog file. Password is
// hashed at load time when PasswordHash is empty.
type SeedUser struct {
	Username     string   `yaml:"username"`
	Role         string   `yaml:"role"`
	Password     string   `yaml:"password,omitempty"`
	PasswordHash string   `yaml:"password_hash,omitempty"`
	Email        string   `yaml:"email,omitempty"`
	FullName     string   `yaml:"full_name,omitempty"`
	LastName     string   `yaml:"last_name,omitempty"`
	DateOfBirth  string   `yaml:"dob,omitempty"`
	SSNLast4     string   `yaml:"ssn_last4,omitempty"`
	PatientID    string   `yaml:"patient_id,omitempty"`
	Entities     []string `yaml:"entities,omitempty"`
}

// Catalog is the static business configuration of the portal
type Catalog struct {
	Entities           []string                                `yaml:"entities"`
	UnfilteredUsers    []string                                `yaml:"unfiltered_users"`
	FinancialReports   []FinancialDefinition                   `yaml:"financial_reports"`
	MarketingMaterials []string                                `yaml:"marketing_materials"`
	RequisitionForms   []string                                `yaml:"requisition_forms"`
	TableReports       map[models.ReportCategory]TableReport   `yaml:"table_reports"`
	RoleCategories     map[models.Role][]models.ReportCategory `yaml:"roles"`
	MaxReportsPerVisit int                                     `yaml:"max_reports_per_visit"`
	YearsBack          int                                     `yaml:"years_back"`
	Users              []SeedUser                              `yaml:"users"`
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() *Catalog {
	return &Catalog{
		Entities: []string{
			"AIM Laboratories LLC",
			"AMICO Dx LLC",
			"Enviro Labs LLC",
			"First Bio Genetics LLC",
			"First Bio Lab",
			"First Bio Lab of Illinois",
			"Stat Labs",
		},
		UnfilteredUsers: []string{"SatishD", "AshlieT", "MinaK", "BobS", "NickT"},
		FinancialReports: []FinancialDefinition{
			{Phrase: "Profit and Loss", Basis: "Cash Basis"},
			{Phrase: "Profit and Loss", Basis: "Accrual Basis"},
			{Phrase: "Balance Sheet", Basis: "Accrual Basis"},
			{Phrase: "Profit and Loss by Month", Basis: "Cash Basis", OnlyYear: 2025},
		},
		MarketingMaterials: []string{"Brochure", "Services Overview", "Test Menu"},
		RequisitionForms:   []string{"Toxicology Requisition", "Genetics Requisition"},
		TableReports: map[models.ReportCategory]TableReport{
			models.CategoryRevenue: {
				Name:    "Revenue Report",
				Columns: []string{models.ColumnDate, models.ColumnLocation, models.ColumnReimbursement, models.ColumnEntity, models.ColumnAssociatedRepName, models.ColumnUsername},
			},
			models.CategoryCOGS: {
				Name:    "Cost of Goods Sold (COGS) Report",
				Columns: []string{models.ColumnDate, models.ColumnLocation, models.ColumnCOGS, models.ColumnEntity, models.ColumnAssociatedRepName, models.ColumnUsername},
			},
			models.CategoryNetProfit: {
				Name:    "Net Profit Report",
				Columns: []string{models.ColumnDate, models.ColumnLocation, models.ColumnNet, models.ColumnEntity, models.ColumnAssociatedRepName, models.ColumnUsername},
			},
			models.CategoryCommission: {
				Name:    "Commission Report",
				Columns: []string{models.ColumnDate, models.ColumnLocation, models.ColumnCommission, models.ColumnEntity, models.ColumnAssociatedRepName, models.ColumnUsername},
			},
			models.CategoryPatientIDReport: {
				Name:    "Patient ID Report",
				Columns: []string{models.ColumnDate, models.ColumnLocation, models.ColumnPatientID, models.ColumnEntity, models.ColumnAssociatedRepName, models.ColumnUsername},
			},
		},
		MaxReportsPerVisit: 3,
		YearsBack:          5,
	}
}

// LoadCatalog reads a YAML catalog file. Sections missing from the file
// keep their built-in defaults.
func LoadCatalog(path string) (*Catalog, error) {
	catalog := DefaultCatalog()
	if path == "" {
		return catalog, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var file Catalog
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", path, err)
	}

	catalog.merge(&file)
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Catalog) merge(o *Catalog) {
	if len(o.Entities) > 0 {
		c.Entities = o.Entities
	}
	if o.UnfilteredUsers != nil {
		c.UnfilteredUsers = o.UnfilteredUsers
	}
	if len(o.FinancialReports) > 0 {
		c.FinancialReports = o.FinancialReports
	}
	if len(o.MarketingMaterials) > 0 {
		c.MarketingMaterials = o.MarketingMaterials
	}
	if len(o.RequisitionForms) > 0 {
		c.RequisitionForms = o.RequisitionForms
	}
	for category, report := range o.TableReports {
		c.TableReports[category] = report
	}
	if len(o.RoleCategories) > 0 {
		c.RoleCategories = o.RoleCategories
	}
	if o.MaxReportsPerVisit > 0 {
		c.MaxReportsPerVisit = o.MaxReportsPerVisit
	}
	if o.YearsBack > 0 {
		c.YearsBack = o.YearsBack
	}
	c.Users = append(c.Users, o.Users...)
	sort.Strings(c.Entities)
}

// Validate checks the catalog for inconsistent entries
func (c *Catalog) Validate() error {
	if len(c.Entities) == 0 {
		return fmt.Errorf("catalog declares no entities")
	}
	seen := make(map[string]struct{}, len(c.Entities))
	for _, entity := range c.Entities {
		if entity == "" || entity == models.AllEntities {
			return fmt.Errorf("invalid entity name %q", entity)
		}
		if _, dup := seen[entity]; dup {
			return fmt.Errorf("duplicate entity %q", entity)
		}
		seen[entity] = struct{}{}
	}
	for role := range c.RoleCategories {
		if _, ok := defaultRoleTable[role]; !ok {
			return fmt.Errorf("catalog references %w %q", ErrUnknownRole, role)
		}
	}
	for _, user := range c.Users {
		if user.Username == "" {
			return fmt.Errorf("seed user without username")
		}
		if _, ok := defaultRoleTable[models.Role(user.Role)]; !ok {
			return fmt.Errorf("seed user %s: %w %q", user.Username, ErrUnknownRole, user.Role)
		}
	}
	return nil
}

// HasEntity reports whether name is on the master entity list
func (c *Catalog) HasEntity(name string) bool {
	for _, entity := range c.Entities {
		if entity == name {
			return true
		}
	}
	return false
}
