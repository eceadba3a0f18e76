package policy

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/otcheredev/lab-report-portal/internal/ledger"
	"github.com/otcheredev/lab-report-portal/internal/models"
)

var (
	propertyEntities  = DefaultCatalog().Entities
	propertyUsernames = []string{"AndrewS", "MelindaC", "Andrew", "And", "SatishD", "JayM"}
	propertyRoles     = []models.Role{models.RoleAdmin, models.RoleBusinessDevManager, models.RolePhysicianProvider, models.RolePatient}
	propertyQueries   = []models.ReportCategory{models.CategoryMonthlyBonus, models.CategoryRevenue, models.CategoryPatientIDReport}
)

// rowsFromSeeds expands generated integers into ledger rows
func rowsFromSeeds(seeds []int) []models.ReportRow {
	rows := make([]models.ReportRow, 0, len(seeds))
	for _, s := range seeds {
		tag := propertyUsernames[s%len(propertyUsernames)]
		if s%3 == 0 {
			tag += ", " + propertyUsernames[(s/3)%len(propertyUsernames)]
		}
		rows = append(rows, models.ReportRow{
			Date:          time.Date(2023+s%3, time.Month(1+s%12), 1+s%28, 0, 0, 0, 0, time.UTC),
			Entity:        propertyEntities[s%len(propertyEntities)],
			UsernameTag:   tag,
			Reimbursement: float64(s) / 7,
		})
	}
	return rows
}

func userFromSeed(role, name int, entities []int) *models.User {
	user := &models.User{
		Username: propertyUsernames[name%len(propertyUsernames)],
		Role:     propertyRoles[role%len(propertyRoles)],
	}
	for _, e := range entities {
		user.Entities = append(user.Entities, propertyEntities[e%len(propertyEntities)])
	}
	return user
}

func TestFilterIdempotence(t *testing.T) {
	p := New(DefaultCatalog())
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("filter(filter(rows)) == filter(rows)", prop.ForAll(
		func(seeds []int, role, name, entity, category, month, year int) bool {
			user := userFromSeed(role, name, []int{entity, entity + 2})
			q := Query{
				Category: propertyQueries[category%len(propertyQueries)],
				Entity:   propertyEntities[entity%len(propertyEntities)],
				Month:    month,
				Year:     year,
			}
			table := ledger.NewTable(allColumns, rowsFromSeeds(seeds))

			once := p.Filter(table, user, q)
			twice := p.Filter(once.Table, user, q)
			return reflect.DeepEqual(once.Table.Rows(), twice.Table.Rows())
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
		gen.IntRange(0, 3),
		gen.IntRange(0, 5),
		gen.IntRange(0, 6),
		gen.IntRange(0, 2),
		gen.IntRange(0, 12),
		gen.IntRange(2022, 2026),
	))

	properties.TestingRun(t)
}

func TestFilterNeverLeaksOtherEntities(t *testing.T) {
	p := New(DefaultCatalog())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("non-bypass results only hold the selected entity", prop.ForAll(
		func(seeds []int, entity int) bool {
			user := &models.User{Username: "AndrewS", Role: models.RoleBusinessDevManager, Entities: propertyEntities}
			selected := propertyEntities[entity%len(propertyEntities)]
			result := p.Filter(ledger.NewTable(allColumns, rowsFromSeeds(seeds)), user, Query{Category: models.CategoryRevenue, Entity: selected})
			for _, row := range result.Table.Rows() {
				if row.Entity != selected {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 10000)),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

func TestWholeTokenOwnership(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("every token owns the row", prop.ForAll(
		func(a, b string) bool {
			return OwnsRow(a+", "+b, a) && OwnsRow(a+","+b, strings.ToUpper(b))
		},
		gen.Identifier().SuchThat(func(s string) bool { return s != "" }),
		gen.Identifier().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.Property("a strict prefix of a token does not own the row", prop.ForAll(
		func(a, b string, cut int) bool {
			prefix := a[:1+cut%(len(a)-1)]
			if strings.EqualFold(prefix, b) {
				return true
			}
			return !OwnsRow(a+", "+b, prefix)
		},
		gen.Identifier().SuchThat(func(s string) bool { return len(s) > 1 }),
		gen.Identifier(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestAdminEntityMonotonicity(t *testing.T) {
	p := New(DefaultCatalog())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("admins and unfiltered users see the master list", prop.ForAll(
		func(name int, entities []int, unfiltered bool) bool {
			user := userFromSeed(0, name, entities)
			if unfiltered {
				user.Role = models.RoleBusinessDevManager
				user.Username = "SatishD"
			}
			return reflect.DeepEqual(p.AuthorizedEntities(user), p.Catalog().Entities)
		},
		gen.IntRange(0, 5),
		gen.SliceOf(gen.IntRange(0, 6)),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

func TestNonMemberRejection(t *testing.T) {
	p := New(DefaultCatalog())
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("entities outside the authorized set are rejected", prop.ForAll(
		func(role, name int, entities []int, target int) bool {
			user := userFromSeed(1+role%3, name, entities)
			entity := propertyEntities[target%len(propertyEntities)]
			for _, allowed := range p.AuthorizedEntities(user) {
				if allowed == entity {
					return true
				}
			}
			return p.AuthorizeEntity(user, entity) != nil
		},
		gen.IntRange(0, 2),
		gen.IntRange(0, 5),
		gen.SliceOf(gen.IntRange(0, 6)),
		gen.IntRange(0, 6),
	))

	properties.TestingRun(t)
}

func TestFileNamePurity(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("file names are deterministic", prop.ForAll(
		func(entity, phrase, basis string, year int) bool {
			return FinancialFileName(entity, phrase, year, basis) == FinancialFileName(entity, phrase, year, basis)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
		gen.IntRange(2000, 2100),
	))

	properties.Property("patient file names round trip", prop.ForAll(
		func(id string, n int) bool {
			gotID, gotDOS, gotN, ok := ParsePatientFileName(PatientFileName(id, "2025-03-01", n))
			return ok && gotID == id && gotDOS == "2025-03-01" && gotN == n
		},
		gen.Identifier(),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
