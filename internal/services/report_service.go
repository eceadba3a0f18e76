package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/ledger"
	"github.com/otcheredev/lab-report-portal/internal/metrics"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/repository"
	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/otcheredev/lab-report-portal/internal/storage"
)

// ReportSelection is what a user picks before a dashboard is rendered
type ReportSelection struct {
	Category models.ReportCategory `json:"report_type"`
	Entity   string                `json:"entity,omitempty"`
	Month    int                   `json:"month,omitempty"`
	Year     int                   `json:"year,omitempty"`
}

// ReportTypeOption is one selectable report category
type ReportTypeOption struct {
	Category models.ReportCategory `json:"report_type"`
	Name     string                `json:"name"`
}

// Dashboard is a rendered report. Which fields are set depends on the category.
type Dashboard struct {
	Category   models.ReportCategory    `json:"report_type"`
	Title      string                   `json:"title"`
	Entity     string                   `json:"entity,omitempty"`
	Month      int                      `json:"month,omitempty"`
	Year       int                      `json:"year,omitempty"`
	Columns    []string                 `json:"columns,omitempty"`
	Rows       []map[string]interface{} `json:"rows,omitempty"`
	Bonus      []models.BonusSummary    `json:"bonus,omitempty"`
	FileGroups []models.FileGroup       `json:"file_groups,omitempty"`
	Files      []models.ReportFile      `json:"files,omitempty"`
	Messages   []string                 `json:"messages,omitempty"`
}

// PatientResults lists result files of one patient
type PatientResults struct {
	PatientName   string             `json:"patient_name"`
	PatientID     string             `json:"patient_id,omitempty"`
	Entity        string             `json:"entity,omitempty"`
	Results       []models.FileGroup `json:"results"`
	SearchEnabled bool               `json:"search_enabled"`
	Messages      []string           `json:"messages,omitempty"`
}

const noPatientResults = "No patient results found for your ID."

var bonusColumns = []string{
	models.ColumnAssociatedRepName,
	models.ColumnEntity,
	models.ColumnReimbursement,
	models.ColumnCOGS,
	models.ColumnNet,
	models.ColumnCommission,
}

// ReportService renders reports from the ledger and the file store
type ReportService struct {
	policy  *policy.Policy
	ledger  *ledger.Table
	store   storage.Store
	files   *FileResolver
	metrics *metrics.Metrics
	audit   auditor
	now     func() time.Time
}

// NewReportService creates a new report service. The ledger is shared
// read-only between requests.
func NewReportService(
	p *policy.Policy,
	table *ledger.Table,
	store storage.Store,
	auditRepo repository.AuditStore,
	m *metrics.Metrics,
) *ReportService {
	if table == nil {
		table = ledger.Empty()
	}
	m.LedgerRows.Set(float64(table.Len()))

	return &ReportService{
		policy:  p,
		ledger:  table,
		store:   store,
		files:   NewFileResolver(store, p.Catalog()),
		metrics: m,
		audit:   auditor{store: auditRepo},
		now:     time.Now,
	}
}

// Entities lists the entity options of the user
func (s *ReportService) Entities(user *models.User) ([]string, error) {
	return s.policy.SelectableEntities(user)
}

// SelectEntity records the entity the user works with. Earlier report
// selections are cleared.
func (s *ReportService) SelectEntity(sess *session.Session, user *models.User, entity string) error {
	if err := s.policy.AuthorizeEntity(user, entity); err != nil {
		return err
	}
	if err := sess.Advance(policy.StageAuthenticated); err != nil {
		return err
	}
	sess.State.SelectedEntity = entity
	sess.State.ReportCategory = ""
	sess.State.Month, sess.State.Year = 0, 0
	return nil
}

// ReportTypes lists the report categories the user may request
func (s *ReportService) ReportTypes(user *models.User) ([]ReportTypeOption, error) {
	categories, err := s.policy.ReportTypes(user.Role)
	if err != nil {
		return nil, err
	}
	options := make([]ReportTypeOption, 0, len(categories))
	for _, category := range categories {
		options = append(options, ReportTypeOption{Category: category, Name: s.policy.CategoryName(category)})
	}
	return options, nil
}

// SelectReport validates a report selection and records it on the session
func (s *ReportService) SelectReport(sess *session.Session, user *models.User, sel ReportSelection) error {
	if sel.Category == "" {
		return fmt.Errorf("%w: please select a report type", ErrValidation)
	}
	if err := s.policy.AuthorizeCategory(user.Role, sel.Category); err != nil {
		return err
	}
	if len(s.policy.AuthorizedEntities(user)) == 0 {
		return policy.ErrNoEntities
	}
	if sel.Month < 0 || sel.Month > 12 || sel.Year < 0 {
		return fmt.Errorf("%w: invalid month or year", ErrValidation)
	}

	entity := sel.Entity
	if entity == "" {
		entity = sess.State.SelectedEntity
	}

	switch {
	case sel.Category == models.CategoryPatientReports && user.Role == models.RolePatient:
		entity = ""
	case entity == "" && sel.Category == models.CategoryMonthlyBonus:
		profile, err := s.policy.Role(user.Role)
		if err != nil {
			return err
		}
		if !profile.AllEntitiesOption {
			return policy.ErrEntityRequired
		}
		entity = models.AllEntities
	case entity == "":
		return policy.ErrEntityRequired
	}

	if entity != "" {
		if err := s.policy.AuthorizeEntity(user, entity); err != nil {
			return err
		}
	}

	q := policy.Query{Category: sel.Category, Month: sel.Month, Year: sel.Year}
	if sel.Category == models.CategoryMonthlyBonus && !q.HasPeriod() {
		return policy.ErrPeriodRequired
	}

	if err := sess.Advance(policy.StageReportSelected); err != nil {
		return err
	}
	sess.State.ReportCategory = sel.Category
	sess.State.SelectedEntity = entity
	sess.State.Month = sel.Month
	sess.State.Year = sel.Year
	return nil
}

// Dashboard renders the report selected on the session
func (s *ReportService) Dashboard(ctx context.Context, sess *session.Session, user *models.User, client ClientInfo) (*Dashboard, error) {
	started := time.Now()
	if err := policy.Transition(sess.Stage(), policy.StageDashboardRendered); err != nil {
		return nil, err
	}

	st := sess.State
	d, err := s.dashboard(ctx, user, st)

	s.audit.record(ctx, models.AuditLog{
		Username:     user.Username,
		Role:         user.Role,
		Action:       models.AuditActionReportView,
		ResourceType: string(st.ReportCategory),
		ResourceID:   st.SelectedEntity,
	}, client, started, err)

	if err != nil {
		return nil, err
	}
	if err := sess.Advance(policy.StageDashboardRendered); err != nil {
		return nil, err
	}
	s.metrics.ReportViews.WithLabelValues(string(st.ReportCategory)).Inc()
	return d, nil
}

func (s *ReportService) dashboard(ctx context.Context, user *models.User, st models.SessionState) (*Dashboard, error) {
	category := st.ReportCategory
	if err := s.policy.AuthorizeCategory(user.Role, category); err != nil {
		return nil, err
	}
	if len(s.policy.AuthorizedEntities(user)) == 0 {
		return nil, policy.ErrNoEntities
	}
	if st.SelectedEntity != "" {
		if err := s.policy.AuthorizeEntity(user, st.SelectedEntity); err != nil {
			return nil, err
		}
	}

	d := &Dashboard{
		Category: category,
		Title:    s.policy.CategoryName(category),
		Entity:   st.SelectedEntity,
		Month:    st.Month,
		Year:     st.Year,
	}
	q := policy.Query{Category: category, Entity: st.SelectedEntity, Month: st.Month, Year: st.Year}

	if report, ok := s.policy.Catalog().TableReports[category]; ok {
		result := s.filter(user, q)
		d.Columns = report.Columns
		d.Messages = result.Warnings
		if len(result.Warnings) > 0 {
			return d, nil
		}
		if missing := missingColumns(result.Table, report.Columns); len(missing) > 0 {
			for _, column := range missing {
				d.Messages = append(d.Messages, fmt.Sprintf("Column %q not found in data for this report.", column))
			}
			return d, nil
		}
		d.Rows = policy.FormatRows(result.Table.Rows(), report.Columns)
		if len(d.Rows) == 0 && len(d.Messages) == 0 {
			d.Messages = append(d.Messages, "No data available for the selected criteria.")
		}
		return d, nil
	}

	switch category {
	case models.CategoryMonthlyBonus:
		summaries, warnings, err := s.bonus(user, q)
		if err != nil {
			return nil, err
		}
		d.Columns = bonusColumns
		d.Bonus = summaries
		d.Messages = warnings
		if len(summaries) == 0 && len(warnings) == 0 {
			d.Messages = append(d.Messages, "No data available for the selected month/year and your associated entities.")
		}

	case models.CategoryFinancials:
		years := []int{st.Year}
		if st.Year == 0 {
			years = s.policy.Years(s.now())
		}
		d.FileGroups = s.files.Financials(ctx, s.expand(user, st.SelectedEntity), years)
		if len(d.FileGroups) == 0 {
			d.Messages = append(d.Messages, "No financial reports found for the selected criteria.")
		}

	case models.CategoryMarketingMaterial, models.CategoryRequisitions:
		d.Files = s.files.Documents(ctx, category, s.expand(user, st.SelectedEntity))
		if len(d.Files) == 0 {
			d.Messages = append(d.Messages, "No documents found for the selected entity.")
		}

	case models.CategoryPatientReports:
		if user.Role != models.RolePatient {
			d.Messages = append(d.Messages, "Enter a Patient ID to view results.")
			return d, nil
		}
		results, err := s.patientResults(ctx, user, user.PatientID, s.policy.AuthorizedEntities(user))
		if err != nil {
			return nil, err
		}
		d.FileGroups = results.Results
		d.Messages = results.Messages
		if len(d.FileGroups) == 0 && len(d.Messages) == 0 {
			d.Messages = append(d.Messages, noPatientResults)
		}

	default:
		return nil, fmt.Errorf("%w: %s", policy.ErrCategoryNotAllowed, category)
	}

	return d, nil
}

// ExportBonus renders the selected monthly bonus summary as a workbook
func (s *ReportService) ExportBonus(ctx context.Context, sess *session.Session, user *models.User) ([]byte, string, error) {
	st := sess.State
	if !policy.Reached(sess.Stage(), policy.StageReportSelected) || st.ReportCategory != models.CategoryMonthlyBonus {
		return nil, "", fmt.Errorf("%w: select the monthly bonus report first", ErrValidation)
	}
	if err := s.policy.AuthorizeCategory(user.Role, st.ReportCategory); err != nil {
		return nil, "", err
	}
	if err := s.policy.AuthorizeEntity(user, st.SelectedEntity); err != nil {
		return nil, "", err
	}

	q := policy.Query{Category: st.ReportCategory, Entity: st.SelectedEntity, Month: st.Month, Year: st.Year}
	summaries, _, err := s.bonus(user, q)
	if err != nil {
		return nil, "", err
	}

	period := fmt.Sprintf("%s %d", time.Month(st.Month), st.Year)
	data, err := ledger.BonusWorkbook(fmt.Sprintf("Monthly Bonus Report - %s - %s", st.SelectedEntity, period), summaries)
	if err != nil {
		return nil, "", fmt.Errorf("failed to export bonus report: %w", err)
	}
	return data, fmt.Sprintf("Monthly Bonus - %s.xlsx", period), nil
}

// PatientResults lists result files. Patients always see their own results
// across their entities. Other roles search by patient id within the
// selected entity.
func (s *ReportService) PatientResults(ctx context.Context, sess *session.Session, user *models.User, patientID string, client ClientInfo) (*PatientResults, error) {
	started := time.Now()
	if err := s.policy.AuthorizeCategory(user.Role, models.CategoryPatientReports); err != nil {
		return nil, err
	}

	var (
		entities []string
		entity   string
	)
	if user.Role == models.RolePatient {
		if user.PatientID == "" {
			return nil, ErrNotAuthenticated
		}
		patientID = user.PatientID
		entities = s.policy.AuthorizedEntities(user)
		if len(entities) == 0 {
			return nil, policy.ErrNoEntities
		}
	} else {
		entity = sess.State.SelectedEntity
		if err := s.policy.AuthorizeEntity(user, entity); err != nil {
			return nil, err
		}
		entities = s.expand(user, entity)
	}

	if sess.Stage() == policy.StageAuthenticated {
		if err := sess.Advance(policy.StageReportSelected); err != nil {
			return nil, err
		}
		sess.State.ReportCategory = models.CategoryPatientReports
	}
	if err := sess.Advance(policy.StageDashboardRendered); err != nil {
		return nil, err
	}

	if patientID == "" {
		return &PatientResults{
			PatientName:   user.DisplayName(),
			Entity:        entity,
			Results:       []models.FileGroup{},
			SearchEnabled: true,
			Messages:      []string{"Enter a Patient ID to view results."},
		}, nil
	}

	results, err := s.patientResults(ctx, user, patientID, entities)

	s.audit.record(ctx, models.AuditLog{
		Username:     user.Username,
		Role:         user.Role,
		Action:       models.AuditActionReportView,
		ResourceType: string(models.CategoryPatientReports),
		ResourceID:   patientID,
	}, client, started, err)

	if err != nil {
		return nil, err
	}
	results.Entity = entity
	results.SearchEnabled = user.Role != models.RolePatient
	if len(results.Results) == 0 && len(results.Messages) == 0 {
		if user.Role == models.RolePatient {
			results.Messages = []string{noPatientResults}
		} else {
			results.Messages = []string{fmt.Sprintf("No results found for Patient ID: %s at %s.", patientID, entity)}
		}
	}
	s.metrics.ReportViews.WithLabelValues(string(models.CategoryPatientReports)).Inc()
	return results, nil
}

func (s *ReportService) patientResults(ctx context.Context, user *models.User, patientID string, entities []string) (*PatientResults, error) {
	results := &PatientResults{
		PatientName: user.DisplayName(),
		PatientID:   patientID,
		Results:     []models.FileGroup{},
	}
	if !s.ledger.HasColumn(models.ColumnPatientID) {
		results.Messages = []string{fmt.Sprintf("Column %q not found in data; no results available.", models.ColumnPatientID)}
		return results, nil
	}

	rows := s.patientRows(patientID, entities)
	results.Results = s.files.PatientResults(ctx, patientID, rows)
	if results.Results == nil {
		results.Results = []models.FileGroup{}
	}
	return results, nil
}

func (s *ReportService) patientRows(patientID string, entities []string) []models.ReportRow {
	allowed := make(map[string]struct{}, len(entities))
	for _, entity := range entities {
		allowed[entity] = struct{}{}
	}
	return s.ledger.Where(func(row models.ReportRow) bool {
		if row.PatientID != patientID {
			return false
		}
		_, ok := allowed[row.Entity]
		return ok
	}).Rows()
}

// OpenFile re-authorizes a file key for the user and opens it
func (s *ReportService) OpenFile(ctx context.Context, user *models.User, key string, client ClientInfo) (io.ReadCloser, models.ReportFile, error) {
	started := time.Now()
	category, name, err := SplitFileKey(key)
	if err == nil {
		err = s.authorizeFile(user, category, name)
	}

	var rc io.ReadCloser
	if err == nil {
		rc, err = s.open(ctx, key)
	}

	status := models.AuditStatusSuccess
	if err != nil {
		status = models.AuditStatusFailure
	}
	s.metrics.FileDownloads.WithLabelValues(string(category), status).Inc()
	s.audit.record(ctx, models.AuditLog{
		Username:     user.Username,
		Role:         user.Role,
		Action:       models.AuditActionFileDownload,
		ResourceType: string(category),
		ResourceID:   key,
	}, client, started, err)

	if err != nil {
		return nil, models.ReportFile{}, err
	}
	return rc, models.ReportFile{DisplayName: name, Key: key}, nil
}

func (s *ReportService) authorizeFile(user *models.User, category models.ReportCategory, name string) error {
	switch category {
	case models.CategoryFinancials, models.CategoryMarketingMaterial, models.CategoryRequisitions:
	case models.CategoryPatientReports:
		return s.authorizePatientFile(user, name)
	default:
		return ErrFileNotFound
	}

	if err := s.policy.AuthorizeCategory(user.Role, category); err != nil {
		return err
	}
	entity, ok := policy.FileEntity(name)
	if !ok {
		return ErrFileNotFound
	}
	return s.policy.AuthorizeEntity(user, entity)
}

func (s *ReportService) authorizePatientFile(user *models.User, name string) error {
	if err := s.policy.AuthorizeCategory(user.Role, models.CategoryPatientReports); err != nil {
		return err
	}
	patientID, dos, n, ok := policy.ParsePatientFileName(name)
	if !ok || n > s.policy.Catalog().MaxReportsPerVisit {
		return ErrFileNotFound
	}
	if user.Role == models.RolePatient && patientID != user.PatientID {
		return ErrForbidden
	}
	for _, row := range s.patientRows(patientID, s.policy.AuthorizedEntities(user)) {
		if row.Date.Format(dateOfServiceLayout) == dos {
			return nil
		}
	}
	return ErrForbidden
}

func (s *ReportService) open(ctx context.Context, key string) (io.ReadCloser, error) {
	exists, err := s.store.Exists(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check file: %w", err)
	}
	if !exists {
		return nil, ErrFileNotFound
	}
	rc, err := s.store.Open(ctx, key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return rc, nil
}

func (s *ReportService) bonus(user *models.User, q policy.Query) ([]models.BonusSummary, []string, error) {
	if !q.HasPeriod() {
		return nil, nil, policy.ErrPeriodRequired
	}
	result := s.filter(user, q)
	byEntity := q.Entity != "" && q.Entity != models.AllEntities
	return policy.SummarizeBonus(result.Table.Rows(), byEntity), result.Warnings, nil
}

func (s *ReportService) filter(user *models.User, q policy.Query) policy.FilterResult {
	done := s.metrics.ObserveFilter()
	defer done()
	return s.policy.Filter(s.ledger, user, q)
}

// expand turns the "All Entities" option into the user's authorized entities
func (s *ReportService) expand(user *models.User, entity string) []string {
	if entity == models.AllEntities {
		return s.policy.AuthorizedEntities(user)
	}
	return []string{entity}
}

func missingColumns(table *ledger.Table, columns []string) []string {
	var missing []string
	for _, column := range columns {
		if !table.HasColumn(column) {
			missing = append(missing, column)
		}
	}
	return missing
}
