package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/storage"
	"github.com/rs/zerolog/log"
)

// dateOfServiceLayout is how dates of service appear in patient file names
const dateOfServiceLayout = "2006-01-02"

// FileResolver turns report selections into the files that actually exist
// in the store. Candidate names come from the naming rules in policy; any
// candidate the store does not hold is left out.
type FileResolver struct {
	store   storage.Store
	catalog *policy.Catalog
}

// NewFileResolver creates a file resolver
func NewFileResolver(store storage.Store, catalog *policy.Catalog) *FileResolver {
	return &FileResolver{store: store, catalog: catalog}
}

// FileKey returns the store key of a file name within a category folder
func FileKey(category models.ReportCategory, name string) string {
	return storage.Join(string(category), name)
}

// SplitFileKey separates a store key into its category folder and file name
func SplitFileKey(key string) (models.ReportCategory, string, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrValidation, err)
	}
	folder, name, found := strings.Cut(cleaned, "/")
	if !found || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("%w: malformed file key %q", ErrValidation, key)
	}
	return models.ReportCategory(folder), name, nil
}

// Financials lists the financial statements of the entities for each year,
// newest year first. Years without any file are left out.
func (r *FileResolver) Financials(ctx context.Context, entities []string, years []int) []models.FileGroup {
	years = append([]int(nil), years...)
	sort.Sort(sort.Reverse(sort.IntSlice(years)))

	var groups []models.FileGroup
	for _, year := range years {
		var files []models.ReportFile
		for _, entity := range entities {
			for _, d := range r.catalog.FinancialReports {
				if !d.OfferedIn(year) {
					continue
				}
				name := policy.FinancialFileName(entity, d.Phrase, year, d.Basis)
				display := policy.FinancialDisplayName(d, year)
				if len(entities) > 1 {
					display = entity + ": " + display
				}
				if file, ok := r.resolve(ctx, models.CategoryFinancials, name, display); ok {
					files = append(files, file)
				}
			}
		}
		if len(files) > 0 {
			groups = append(groups, models.FileGroup{Label: fmt.Sprint(year), Files: files})
		}
	}
	return groups
}

// Documents lists marketing material or requisition forms of the entities
func (r *FileResolver) Documents(ctx context.Context, category models.ReportCategory, entities []string) []models.ReportFile {
	var parts []string
	switch category {
	case models.CategoryMarketingMaterial:
		parts = r.catalog.MarketingMaterials
	case models.CategoryRequisitions:
		parts = r.catalog.RequisitionForms
	default:
		return nil
	}

	var files []models.ReportFile
	for _, entity := range entities {
		for _, part := range parts {
			display := part
			if len(entities) > 1 {
				display = entity + ": " + part
			}
			if file, ok := r.resolve(ctx, category, policy.DocumentFileName(entity, part), display); ok {
				files = append(files, file)
			}
		}
	}
	return files
}

// PatientResults lists a patient's result files grouped by date of service,
// newest first. rows must already be limited to the patient and the
// entities the caller may view.
func (r *FileResolver) PatientResults(ctx context.Context, patientID string, rows []models.ReportRow) []models.FileGroup {
	seen := make(map[string]struct{})
	var dates []string
	for _, row := range rows {
		if row.Date.IsZero() {
			continue
		}
		dos := row.Date.Format(dateOfServiceLayout)
		if _, ok := seen[dos]; ok {
			continue
		}
		seen[dos] = struct{}{}
		dates = append(dates, dos)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	limit := r.catalog.MaxReportsPerVisit
	var groups []models.FileGroup
	for _, dos := range dates {
		var files []models.ReportFile
		for n := 1; n <= limit; n++ {
			name := policy.PatientFileName(patientID, dos, n)
			display := fmt.Sprintf("Report %d (%s)", n, dos)
			if file, ok := r.resolve(ctx, models.CategoryPatientReports, name, display); ok {
				files = append(files, file)
			}
		}
		if len(files) > 0 {
			groups = append(groups, models.FileGroup{Label: dos, Files: files})
		}
	}
	return groups
}

func (r *FileResolver) resolve(ctx context.Context, category models.ReportCategory, name, display string) (models.ReportFile, bool) {
	key := FileKey(category, name)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("File existence check failed")
		return models.ReportFile{}, false
	}
	if !exists {
		return models.ReportFile{}, false
	}
	return models.ReportFile{DisplayName: display, Key: key}, true
}
