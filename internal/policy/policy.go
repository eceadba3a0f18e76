package policy

import (
	"fmt"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/models"
)

// Policy answers every authorization question of the portal. It is built
// once at startup from the catalog and never mutated afterwards.
type Policy struct {
	catalog    *Catalog
	roles      map[models.Role]RoleProfile
	unfiltered map[string]struct{}
	master     map[string]struct{}
}

// New creates a policy from a catalog
func New(catalog *Catalog) *Policy {
	p := &Policy{
		catalog:    catalog,
		roles:      buildRoleTable(catalog),
		unfiltered: make(map[string]struct{}, len(catalog.UnfilteredUsers)),
		master:     make(map[string]struct{}, len(catalog.Entities)),
	}
	for _, username := range catalog.UnfilteredUsers {
		p.unfiltered[username] = struct{}{}
	}
	for _, entity := range catalog.Entities {
		p.master[entity] = struct{}{}
	}
	return p
}

// Catalog returns the catalog the policy was built from
func (p *Policy) Catalog() *Catalog {
	return p.catalog
}

// Role returns the role table row for a role
func (p *Policy) Role(role models.Role) (RoleProfile, error) {
	profile, ok := p.roles[role]
	if !ok {
		return RoleProfile{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return profile, nil
}

// Roles lists the selectable roles
func (p *Policy) Roles() []RoleProfile {
	profiles := make([]RoleProfile, 0, len(roleOrder))
	for _, role := range roleOrder {
		profiles = append(profiles, p.roles[role])
	}
	return profiles
}

// IsUnfiltered reports whether the username is on the unfiltered-access allow-list
func (p *Policy) IsUnfiltered(username string) bool {
	_, ok := p.unfiltered[username]
	return ok
}

// AuthorizedEntities returns the entities a user may view, in master-list order
func (p *Policy) AuthorizedEntities(user *models.User) []string {
	if user == nil {
		return nil
	}
	if user.Role == models.RoleAdmin || p.IsUnfiltered(user.Username) {
		return append([]string(nil), p.catalog.Entities...)
	}

	assigned := make(map[string]struct{}, len(user.Entities))
	for _, entity := range user.Entities {
		assigned[entity] = struct{}{}
	}

	var entities []string
	for _, entity := range p.catalog.Entities {
		if _, ok := assigned[entity]; ok {
			entities = append(entities, entity)
		}
	}
	return entities
}

// SelectableEntities returns the entity options shown to a user, with the
// "All Entities" option first for roles that offer it.
func (p *Policy) SelectableEntities(user *models.User) ([]string, error) {
	entities := p.AuthorizedEntities(user)
	if len(entities) == 0 {
		return nil, ErrNoEntities
	}
	profile, err := p.Role(user.Role)
	if err != nil {
		return nil, err
	}
	if profile.AllEntitiesOption {
		entities = append([]string{models.AllEntities}, entities...)
	}
	return entities, nil
}

// AuthorizeEntity re-checks that the user may view the entity
func (p *Policy) AuthorizeEntity(user *models.User, entity string) error {
	authorized := p.AuthorizedEntities(user)
	if len(authorized) == 0 {
		return ErrNoEntities
	}
	if entity == "" {
		return ErrEntityRequired
	}
	if entity == models.AllEntities {
		profile, err := p.Role(user.Role)
		if err != nil {
			return err
		}
		if !profile.AllEntitiesOption {
			return fmt.Errorf("%w: %s", ErrEntityNotAuthorized, entity)
		}
		return nil
	}
	for _, allowed := range authorized {
		if allowed == entity {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrEntityNotAuthorized, entity)
}

// ReportTypes returns the report categories a role may request
func (p *Policy) ReportTypes(role models.Role) ([]models.ReportCategory, error) {
	profile, err := p.Role(role)
	if err != nil {
		return nil, err
	}
	return append([]models.ReportCategory(nil), profile.Categories...), nil
}

// AuthorizeCategory rejects categories outside the role's allowed set
func (p *Policy) AuthorizeCategory(role models.Role, category models.ReportCategory) error {
	categories, err := p.ReportTypes(role)
	if err != nil {
		return err
	}
	for _, allowed := range categories {
		if allowed == category {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrCategoryNotAllowed, category)
}

// CategoryName returns the display title of a report category
func (p *Policy) CategoryName(category models.ReportCategory) string {
	if report, ok := p.catalog.TableReports[category]; ok {
		return report.Name
	}
	switch category {
	case models.CategoryFinancials:
		return "Financial Reports"
	case models.CategoryMonthlyBonus:
		return "Monthly Bonus Report"
	case models.CategoryRequisitions:
		return "Requisitions"
	case models.CategoryMarketingMaterial:
		return "Marketing Materials"
	case models.CategoryPatientReports:
		return "Patient Results"
	}
	return string(category)
}

// Month is a selectable month option
type Month struct {
	Value int    `json:"value"`
	Name  string `json:"name"`
}

// Months lists the twelve calendar months
func Months() []Month {
	months := make([]Month, 0, 12)
	for m := time.January; m <= time.December; m++ {
		months = append(months, Month{Value: int(m), Name: m.String()})
	}
	return months
}

// Years lists the selectable years, newest first
func (p *Policy) Years(now time.Time) []int {
	back := p.catalog.YearsBack
	if back <= 0 {
		back = 5
	}
	years := make([]int, 0, back)
	for y := now.Year(); y > now.Year()-back; y-- {
		years = append(years, y)
	}
	return years
}
