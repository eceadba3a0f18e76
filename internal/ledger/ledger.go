package ledger

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/rs/zerolog/log"
)

// Table is an immutable set of ledger rows plus the columns present in the source
type Table struct {
	columns map[string]struct{}
	rows    []models.ReportRow
}

// NewTable creates a table. The row slice is owned by the table afterwards.
func NewTable(columns []string, rows []models.ReportRow) *Table {
	set := make(map[string]struct{}, len(columns))
	for _, column := range columns {
		set[column] = struct{}{}
	}
	return &Table{columns: set, rows: rows}
}

// Empty returns a table with no columns and no rows
func Empty() *Table {
	return NewTable(nil, nil)
}

// HasColumn reports whether the source carried the column
func (t *Table) HasColumn(name string) bool {
	_, ok := t.columns[name]
	return ok
}

// Columns returns the column names in sorted order
func (t *Table) Columns() []string {
	columns := make([]string, 0, len(t.columns))
	for column := range t.columns {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// Rows returns the rows. Callers must not modify the returned slice.
func (t *Table) Rows() []models.ReportRow {
	return t.rows
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Where returns a table with the same columns and only the rows keep accepts
func (t *Table) Where(keep func(models.ReportRow) bool) *Table {
	rows := make([]models.ReportRow, 0, len(t.rows))
	for _, row := range t.rows {
		if keep(row) {
			rows = append(rows, row)
		}
	}
	return &Table{columns: t.columns, rows: rows}
}

// WithoutRows returns an empty table that keeps the column set
func (t *Table) WithoutRows() *Table {
	return &Table{columns: t.columns}
}

// Load reads a ledger from a .csv or .xlsx file
func Load(path string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(path)
	case ".xlsx":
		records, err = readXLSX(path)
	default:
		return nil, fmt.Errorf("unsupported ledger format: %s", path)
	}
	if err != nil {
		return nil, err
	}
	return Parse(records)
}

// LoadOrEmpty loads the ledger and substitutes an empty table on failure
func LoadOrEmpty(path string) *Table {
	table, err := Load(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Ledger unavailable, serving empty dataset")
		return Empty()
	}
	log.Info().Str("path", path).Int("rows", table.Len()).Msg("Ledger loaded")
	return table
}

// Parse builds a table from a header row followed by data rows
func Parse(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return Empty(), nil
	}

	header := make([]string, len(records[0]))
	index := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		header[i] = name
		index[name] = i
	}

	cell := func(record []string, column string) string {
		i, ok := index[column]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	rows := make([]models.ReportRow, 0, len(records)-1)
	skipped := 0
	for n, record := range records[1:] {
		row := models.ReportRow{
			Entity:            cell(record, models.ColumnEntity),
			Location:          cell(record, models.ColumnLocation),
			AssociatedRepName: cell(record, models.ColumnAssociatedRepName),
			UsernameTag:       nullable(cell(record, models.ColumnUsername)),
			PatientID:         nullable(cell(record, models.ColumnPatientID)),
		}

		if _, ok := index[models.ColumnDate]; ok {
			date, err := ParseDate(cell(record, models.ColumnDate))
			if err != nil {
				skipped++
				log.Debug().Err(err).Int("line", n+2).Msg("Skipping ledger row with unreadable date")
				continue
			}
			row.Date = date
		}

		if err := parseAmounts(&row, record, cell); err != nil {
			skipped++
			log.Debug().Err(err).Int("line", n+2).Msg("Skipping ledger row with unreadable amount")
			continue
		}

		rows = append(rows, row)
	}

	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Msg("Ledger rows skipped")
	}

	return NewTable(header, rows), nil
}

func parseAmounts(row *models.ReportRow, record []string, cell func([]string, string) string) error {
	amounts := []struct {
		column string
		dst    *float64
	}{
		{models.ColumnReimbursement, &row.Reimbursement},
		{models.ColumnCOGS, &row.COGS},
		{models.ColumnNet, &row.Net},
		{models.ColumnCommission, &row.Commission},
	}
	for _, a := range amounts {
		v, err := parseAmount(cell(record, a.column))
		if err != nil {
			return fmt.Errorf("%s: %w", a.column, err)
		}
		*a.dst = v
	}
	return nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
}

// ParseDate accepts the date layouts seen in exported ledgers
func ParseDate(value string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", value)
}

// nullable maps spreadsheet null markers to the empty string
func nullable(value string) string {
	switch strings.ToLower(value) {
	case "", "nan", "na", "n/a", "none", "null":
		return ""
	}
	return value
}

func parseAmount(value string) (float64, error) {
	value = strings.NewReplacer("$", "", ",", "", " ", "").Replace(value)
	if nullable(value) == "" {
		return 0, nil
	}
	negative := strings.HasPrefix(value, "(") && strings.HasSuffix(value, ")")
	if negative {
		value = strings.Trim(value, "()")
	}
	amount, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", value)
	}
	if negative {
		amount = -amount
	}
	return amount, nil
}
