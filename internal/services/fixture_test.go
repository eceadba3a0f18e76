package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/otcheredev/lab-report-portal/internal/auth"
	"github.com/otcheredev/lab-report-portal/internal/ledger"
	"github.com/otcheredev/lab-report-portal/internal/metrics"
	"github.com/otcheredev/lab-report-portal/internal/models"
	"github.com/otcheredev/lab-report-portal/internal/policy"
	"github.com/otcheredev/lab-report-portal/internal/repository"
	"github.com/otcheredev/lab-report-portal/internal/session"
	"github.com/otcheredev/lab-report-portal/internal/storage"
	"github.com/stretchr/testify/require"
)

const testPassword = "s3cret-pass"

var testColumns = []string{
	models.ColumnDate,
	models.ColumnEntity,
	models.ColumnLocation,
	models.ColumnReimbursement,
	models.ColumnCOGS,
	models.ColumnNet,
	models.ColumnCommission,
	models.ColumnAssociatedRepName,
	models.ColumnUsername,
	models.ColumnPatientID,
}

var testFiles = []string{
	"financials/First Bio Lab - Profit and Loss - 2024 - Cash Basis.pdf",
	"financials/First Bio Lab - Profit and Loss by Month - 2025 - Cash Basis.pdf",
	"financials/Stat Labs - Balance Sheet - 2025 - Accrual Basis.pdf",
	"marketing_material/First Bio Lab - Brochure.pdf",
	"requisitions/AIM Laboratories LLC - Toxicology Requisition.pdf",
	"patient_reports/Patient_1234_DOS_2025-03-01_Report_1.pdf",
	"patient_reports/Patient_1234_DOS_2025-03-01_Report_2.pdf",
	"patient_reports/Patient_1234_DOS_2025-04-10_Report_1.pdf",
	"patient_reports/Patient_5678_DOS_2025-03-01_Report_1.pdf",
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testLedger() *ledger.Table {
	return ledger.NewTable(testColumns, []models.ReportRow{
		{Date: day(2025, 3, 1), Entity: "First Bio Lab", UsernameTag: "JayM,MelindaC", AssociatedRepName: "Jay Moore", Reimbursement: 1200, COGS: 200, Net: 1000, Commission: 100, PatientID: "1234"},
		{Date: day(2025, 3, 12), Entity: "First Bio Lab", UsernameTag: "JayMoore", AssociatedRepName: "Jay Moore", Reimbursement: 500},
		{Date: day(2025, 3, 5), Entity: "AIM Laboratories LLC", UsernameTag: "JayM", AssociatedRepName: "Jay Moore", Reimbursement: 300},
		{Date: day(2025, 4, 10), Entity: "Stat Labs", UsernameTag: "SatishD", AssociatedRepName: "Satish D", Reimbursement: 80, PatientID: "1234"},
		{Date: day(2025, 3, 20), Entity: "Stat Labs", UsernameTag: "JayM", AssociatedRepName: "Jay Moore", Reimbursement: 999},
		{Date: day(2025, 3, 1), Entity: "Stat Labs", UsernameTag: "SatishD", AssociatedRepName: "Satish D", PatientID: "5678"},
	})
}

type testEnv struct {
	policy  *policy.Policy
	users   *repository.MemoryUserRepository
	audits  *repository.MemoryAuditRepository
	metrics *metrics.Metrics
	auth    *AuthService
	reports *ReportService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLedger(t, testLedger())
}

func newTestEnvWithLedger(t *testing.T, table *ledger.Table) *testEnv {
	t.Helper()
	ctx := context.Background()

	root := t.TempDir()
	for _, key := range testFiles {
		p := filepath.Join(root, filepath.FromSlash(key))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("%PDF "+key), 0o600))
	}
	store, err := storage.NewLocalStore(root)
	require.NoError(t, err)

	hash, err := auth.HashPassword(testPassword)
	require.NoError(t, err)

	users := repository.NewMemoryUserRepository()
	for _, u := range []*models.User{
		{Username: "AndrewS", Role: models.RoleAdmin, PasswordHash: hash, FullName: "Andrew Smith"},
		{Username: "JayM", Role: models.RoleBusinessDevManager, PasswordHash: hash, Entities: []string{"First Bio Lab", "AIM Laboratories LLC"}},
		{Username: "drgrey", Role: models.RolePhysicianProvider, Email: "grey@clinic.test", PasswordHash: hash, Entities: []string{"First Bio Lab"}},
		{Username: "patient-1234", Role: models.RolePatient, FullName: "Greg House", LastName: "House", DateOfBirth: "1980-05-15", SSNLast4: "1234", PatientID: "1234", Entities: []string{"First Bio Lab"}},
	} {
		require.NoError(t, users.Create(ctx, u))
	}

	p := policy.New(policy.DefaultCatalog())
	audits := repository.NewMemoryAuditRepository(100)
	m := metrics.NewNop()

	reports := NewReportService(p, table, store, audits, m)
	reports.now = func() time.Time { return day(2025, 6, 1) }

	return &testEnv{
		policy:  p,
		users:   users,
		audits:  audits,
		metrics: m,
		auth:    NewAuthService(users, audits, p, m),
		reports: reports,
	}
}

// login runs role selection and login on a fresh session
func (e *testEnv) login(t *testing.T, role models.Role, creds models.Credentials) (*session.Session, *models.User) {
	t.Helper()
	sess := &session.Session{ID: "test-session"}
	_, err := e.auth.SelectRole(sess, role)
	require.NoError(t, err)
	_, err = e.auth.Login(context.Background(), sess, creds, ClientInfo{IPAddress: "192.0.2.1"})
	require.NoError(t, err)
	user, err := e.auth.CurrentUser(context.Background(), sess)
	require.NoError(t, err)
	return sess, user
}

func (e *testEnv) loginAdmin(t *testing.T) (*session.Session, *models.User) {
	return e.login(t, models.RoleAdmin, models.Credentials{Username: "AndrewS", Password: testPassword})
}

func (e *testEnv) loginBDM(t *testing.T) (*session.Session, *models.User) {
	return e.login(t, models.RoleBusinessDevManager, models.Credentials{Username: "JayM", Password: testPassword})
}

func (e *testEnv) loginPhysician(t *testing.T) (*session.Session, *models.User) {
	return e.login(t, models.RolePhysicianProvider, models.Credentials{Email: "grey@clinic.test", Password: testPassword})
}

func (e *testEnv) loginPatient(t *testing.T) (*session.Session, *models.User) {
	return e.login(t, models.RolePatient, models.Credentials{LastName: "House", DateOfBirth: "1980-05-15", SSNLast4: "1234"})
}
