package policy

import "github.com/otcheredev/lab-report-portal/internal/models"

// CredentialKind selects how a role proves its identity
type CredentialKind string

const (
	CredentialUsernamePassword CredentialKind = "username_password"
	CredentialEmailPassword    CredentialKind = "email_password"
	CredentialPatientIdentity  CredentialKind = "patient_identity"
)

// Landing is where a user goes right after logging in
type Landing string

const (
	LandingSelectEntity   Landing = "select_entity"
	LandingPatientResults Landing = "patient_results"
)

// RoleProfile is one row of the role table
type RoleProfile struct {
	Role              models.Role             `json:"role"`
	Label             string                  `json:"label"`
	Credential        CredentialKind          `json:"credential"`
	Landing           Landing                 `json:"landing"`
	Categories        []models.ReportCategory `json:"categories"`
	AllEntitiesOption bool                    `json:"all_entities_option"`
}

var defaultRoleTable = map[models.Role]RoleProfile{
	models.RoleAdmin: {
		Role:       models.RoleAdmin,
		Label:      "Admin",
		Credential: CredentialUsernamePassword,
		Landing:    LandingSelectEntity,
		Categories: []models.ReportCategory{
			models.CategoryFinancials,
			models.CategoryMonthlyBonus,
			models.CategoryRequisitions,
			models.CategoryMarketingMaterial,
			models.CategoryPatientReports,
			models.CategoryRevenue,
			models.CategoryCOGS,
			models.CategoryNetProfit,
			models.CategoryCommission,
			models.CategoryPatientIDReport,
		},
		AllEntitiesOption: true,
	},
	models.RoleBusinessDevManager: {
		Role:       models.RoleBusinessDevManager,
		Label:      "Business Development Manager",
		Credential: CredentialUsernamePassword,
		Landing:    LandingSelectEntity,
		Categories: []models.ReportCategory{
			models.CategoryMonthlyBonus,
			models.CategoryRequisitions,
			models.CategoryMarketingMaterial,
			models.CategoryRevenue,
			models.CategoryCOGS,
			models.CategoryNetProfit,
			models.CategoryCommission,
			models.CategoryPatientIDReport,
		},
		AllEntitiesOption: true,
	},
	models.RolePhysicianProvider: {
		Role:       models.RolePhysicianProvider,
		Label:      "Physician / Provider",
		Credential: CredentialEmailPassword,
		Landing:    LandingSelectEntity,
		Categories: []models.ReportCategory{models.CategoryPatientReports},
	},
	models.RolePatient: {
		Role:       models.RolePatient,
		Label:      "Patient",
		Credential: CredentialPatientIdentity,
		Landing:    LandingPatientResults,
		Categories: []models.ReportCategory{models.CategoryPatientReports},
	},
}

// roleOrder fixes the order roles are listed in
var roleOrder = []models.Role{
	models.RoleAdmin,
	models.RoleBusinessDevManager,
	models.RolePhysicianProvider,
	models.RolePatient,
}

// buildRoleTable applies catalog category overrides on top of the defaults
func buildRoleTable(catalog *Catalog) map[models.Role]RoleProfile {
	table := make(map[models.Role]RoleProfile, len(defaultRoleTable))
	for role, profile := range defaultRoleTable {
		if categories, ok := catalog.RoleCategories[role]; ok {
			profile.Categories = append([]models.ReportCategory(nil), categories...)
		}
		table[role] = profile
	}
	return table
}
