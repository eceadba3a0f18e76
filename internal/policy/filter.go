package policy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/otcheredev/lab-report-portal/internal/ledger"
	"github.com/otcheredev/lab-report-portal/internal/models"
)

// Query holds the selections a row filter is applied with
type Query struct {
	Category models.ReportCategory
	Entity   string
	Month    int
	Year     int
}

// HasPeriod reports whether both month and year are set
func (q Query) HasPeriod() bool {
	return q.Month > 0 && q.Year > 0
}

// FilterResult is the outcome of a row filter. Warnings describe data-shape
// problems that forced an empty result.
type FilterResult struct {
	Table    *ledger.Table
	Warnings []string
}

// Filter narrows the ledger to the rows the user may see. Stages run in a
// fixed order: unfiltered-access bypass, entity, date, ownership.
func (p *Policy) Filter(table *ledger.Table, user *models.User, q Query) FilterResult {
	if table == nil {
		table = ledger.Empty()
	}
	bypass := p.IsUnfiltered(user.Username)

	if !bypass {
		if !table.HasColumn(models.ColumnEntity) {
			return missingColumn(table, models.ColumnEntity)
		}
		if q.Entity == "" || q.Entity == models.AllEntities {
			allowed := toSet(p.AuthorizedEntities(user))
			table = table.Where(func(row models.ReportRow) bool {
				_, ok := allowed[row.Entity]
				return ok
			})
		} else {
			table = table.Where(func(row models.ReportRow) bool {
				return row.Entity == q.Entity
			})
		}
	}

	if q.HasPeriod() {
		if !table.HasColumn(models.ColumnDate) {
			return missingColumn(table, models.ColumnDate)
		}
		table = table.Where(func(row models.ReportRow) bool {
			return int(row.Date.Month()) == q.Month && row.Date.Year() == q.Year
		})
	}

	if q.Category == models.CategoryMonthlyBonus && !bypass {
		if !table.HasColumn(models.ColumnUsername) {
			return missingColumn(table, models.ColumnUsername)
		}
		table = table.Where(func(row models.ReportRow) bool {
			return OwnsRow(row.UsernameTag, user.Username)
		})
	}

	return FilterResult{Table: table}
}

func missingColumn(table *ledger.Table, column string) FilterResult {
	return FilterResult{
		Table:    table.WithoutRows(),
		Warnings: []string{fmt.Sprintf("Column %q not found in data; no filtering possible.", column)},
	}
}

// OwnsRow reports whether username appears as a whole token of a
// comma-joined username tag. Comparison ignores case and surrounding space.
func OwnsRow(tag, username string) bool {
	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" {
		return false
	}
	for _, token := range strings.Split(tag, ",") {
		if strings.ToLower(strings.TrimSpace(token)) == username {
			return true
		}
	}
	return false
}

// SummarizeBonus groups rows by rep (and entity when byEntity is set) and
// sums the money columns, rounded to cents.
func SummarizeBonus(rows []models.ReportRow, byEntity bool) []models.BonusSummary {
	type key struct{ rep, entity string }
	groups := make(map[key]*models.BonusSummary)
	var order []key

	for _, row := range rows {
		k := key{rep: row.AssociatedRepName}
		if byEntity {
			k.entity = row.Entity
		}
		g, ok := groups[k]
		if !ok {
			g = &models.BonusSummary{AssociatedRepName: k.rep, Entity: k.entity}
			groups[k] = g
			order = append(order, k)
		}
		g.Reimbursement += row.Reimbursement
		g.COGS += row.COGS
		g.Net += row.Net
		g.Commission += row.Commission
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].rep != order[j].rep {
			return order[i].rep < order[j].rep
		}
		return order[i].entity < order[j].entity
	})

	summaries := make([]models.BonusSummary, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Reimbursement = roundCents(g.Reimbursement)
		g.COGS = roundCents(g.COGS)
		g.Net = roundCents(g.Net)
		g.Commission = roundCents(g.Commission)
		summaries = append(summaries, *g)
	}
	return summaries
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// DisplayDateLayout is how dates are rendered once filtering is done
const DisplayDateLayout = "January 2006"

// FormatRows projects filtered rows onto report columns for display. Dates
// are rendered as month and year. Only call this after Filter.
func FormatRows(rows []models.ReportRow, columns []string) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		record := make(map[string]interface{}, len(columns))
		for _, column := range columns {
			switch column {
			case models.ColumnDate:
				record[column] = row.Date.Format(DisplayDateLayout)
			case models.ColumnEntity:
				record[column] = row.Entity
			case models.ColumnLocation:
				record[column] = row.Location
			case models.ColumnReimbursement:
				record[column] = roundCents(row.Reimbursement)
			case models.ColumnCOGS:
				record[column] = roundCents(row.COGS)
			case models.ColumnNet:
				record[column] = roundCents(row.Net)
			case models.ColumnCommission:
				record[column] = roundCents(row.Commission)
			case models.ColumnAssociatedRepName:
				record[column] = row.AssociatedRepName
			case models.ColumnUsername:
				record[column] = row.UsernameTag
			case models.ColumnPatientID:
				record[column] = row.PatientID
			}
		}
		out = append(out, record)
	}
	return out
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
