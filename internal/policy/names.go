package policy

import (
	"fmt"
	"strings"
)

const (
	fileSeparator = " - "
	fileSuffix    = ".pdf"
)

// FinancialFileName builds "{entity} - {phrase} - {year} - {basis}.pdf"
func FinancialFileName(entity, phrase string, year int, basis string) string {
	return strings.Join([]string{entity, phrase, fmt.Sprint(year), basis}, fileSeparator) + fileSuffix
}

// DocumentFileName builds "{entity} - {display part}.pdf" used by marketing
// material and requisition forms
func DocumentFileName(entity, displayPart string) string {
	return entity + fileSeparator + displayPart + fileSuffix
}

// PatientFileName builds "Patient_{id}_DOS_{date}_Report_{n}.pdf"
func PatientFileName(patientID, dateOfService string, n int) string {
	return fmt.Sprintf("Patient_%s_DOS_%s_Report_%d%s", patientID, dateOfService, n, fileSuffix)
}

// FinancialDisplayName is the label a financial file is listed under
func FinancialDisplayName(d FinancialDefinition, year int) string {
	return fmt.Sprintf("%s (%s) %d", d.Phrase, d.Basis, year)
}

// FileEntity returns the entity a financial or document file name belongs to
func FileEntity(name string) (string, bool) {
	i := strings.Index(name, fileSeparator)
	if i <= 0 || !strings.HasSuffix(name, fileSuffix) {
		return "", false
	}
	return name[:i], true
}

// ParsePatientFileName splits a patient file name into its parts
func ParsePatientFileName(name string) (patientID, dateOfService string, n int, ok bool) {
	rest, found := strings.CutPrefix(name, "Patient_")
	if !found {
		return "", "", 0, false
	}
	rest, found = strings.CutSuffix(rest, fileSuffix)
	if !found {
		return "", "", 0, false
	}
	i := strings.LastIndex(rest, "_DOS_")
	if i <= 0 {
		return "", "", 0, false
	}
	patientID, rest = rest[:i], rest[i+len("_DOS_"):]
	j := strings.LastIndex(rest, "_Report_")
	if j <= 0 {
		return "", "", 0, false
	}
	dateOfService = rest[:j]
	if _, err := fmt.Sscanf(rest[j+len("_Report_"):], "%d", &n); err != nil || n < 1 {
		return "", "", 0, false
	}
	if PatientFileName(patientID, dateOfService, n) != name {
		return "", "", 0, false
	}
	return patientID, dateOfService, n, true
}
