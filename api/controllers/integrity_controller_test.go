package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"integrity-service/service/integrity"
	"integrity-service/service/models"
	"integrity-service/testutil"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrityControllerTestSuite 数据完整性控制器测试套件
type IntegrityControllerTestSuite struct {
	suite.Suite
	tdb     *testutil.TestDB
	factory *testutil.TestDataFactory
	svc     *integrity.Service
	router  chi.Router
	http    *testutil.HTTPTestHelper
}

func (s *IntegrityControllerTestSuite) SetupTest() {
	s.tdb = testutil.NewTestDB()
	s.factory = testutil.NewTestDataFactory(s.tdb.DB)
	s.svc = integrity.NewService(s.tdb.DB, nil, integrity.Dependencies{})
	s.http = testutil.NewHTTPTestHelper()

	ctrl := NewIntegrityController(s.svc)
	r := chi.NewRouter()
	r.Route("/integrity", func(r chi.Router) {
		r.Get("/rules", ctrl.GetRules)
		r.Get("/summary", ctrl.GetSummary)
		r.Post("/checks", ctrl.RunCheck)
		r.Get("/checks", ctrl.GetCheckHistory)
		r.Post("/checks/{id}/corrections", ctrl.AutoCorrect)
		r.Get("/checks/{id}/corrections", ctrl.GetCorrections)
		r.Post("/backups", ctrl.CreateBackup)
		r.Get("/backups", ctrl.ListBackups)
		r.Post("/backups/{id}/restore", ctrl.RestoreBackup)
	})
	s.router = r
}

func (s *IntegrityControllerTestSuite) TearDownTest() {
	s.tdb.Close()
}

func (s *IntegrityControllerTestSuite) do(method, url string, body interface{}) *httptest.ResponseRecorder {
	req, err := s.http.CreateJSONRequest(method, url, body)
	s.Require().NoError(err)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *IntegrityControllerTestSuite) seedMismatch() *models.Event {
	event := s.factory.CreateEvent(testutil.WithEventTotals(10, 100))
	s.factory.CreateTicketSale(event.ID, testutil.WithSaleAmount(4, 40))
	s.factory.CreateTicketSale(event.ID, testutil.WithSaleAmount(8, 75))
	return event
}

func (s *IntegrityControllerTestSuite) TestGetRules() {
	w := s.do(http.MethodGet, "/integrity/rules", nil)
	s.Equal(http.StatusOK, w.Code)

	var rules []map[string]interface{}
	status, _ := s.http.DecodeResponse(s.T(), w, &rules)
	s.Equal(http.StatusOK, status)
	s.Len(rules, s.svc.Catalog().Len())
}

func (s *IntegrityControllerTestSuite) TestRunCheck() {
	event := s.seedMismatch()

	w := s.do(http.MethodPost, "/integrity/checks", RunCheckRequest{
		RuleID: integrity.RuleEventTotalsMismatch,
		Scope:  event.ID,
	})
	s.Equal(http.StatusCreated, w.Code)

	var run models.CheckRun
	status, _ := s.http.DecodeResponse(s.T(), w, &run)
	s.Equal(http.StatusCreated, status)
	s.NotEmpty(run.ID)
	s.Equal(event.ID, run.Scope)
	s.Equal(models.CheckStatusFailed, run.Status)
	s.Require().Len(run.Issues, 1)
	s.Equal(integrity.RuleEventTotalsMismatch, run.Issues[0].Type)
}

func (s *IntegrityControllerTestSuite) TestRunCheck_EmptyBodyRunsFullCatalog() {
	req := httptest.NewRequest(http.MethodPost, "/integrity/checks", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusCreated, w.Code)

	var run models.CheckRun
	s.http.DecodeResponse(s.T(), w, &run)
	s.Equal(models.CheckStatusPassed, run.Status)
	s.Equal(s.svc.Catalog().Len(), run.RulesExecuted)
}

func (s *IntegrityControllerTestSuite) TestRunCheck_UnknownRule() {
	w := s.do(http.MethodPost, "/integrity/checks", RunCheckRequest{RuleID: "no_such_rule"})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *IntegrityControllerTestSuite) TestHistoryAndSummary() {
	event := s.seedMismatch()
	s.do(http.MethodPost, "/integrity/checks", RunCheckRequest{RuleID: integrity.RuleEventTotalsMismatch, Scope: event.ID})
	s.do(http.MethodPost, "/integrity/checks", RunCheckRequest{RuleID: integrity.RuleNegativeAmounts, Scope: event.ID})

	w := s.do(http.MethodGet, "/integrity/checks?scope="+event.ID+"&limit=1", nil)
	s.Equal(http.StatusOK, w.Code)
	var runs []models.CheckRun
	s.http.DecodeResponse(s.T(), w, &runs)
	s.Len(runs, 1)

	w = s.do(http.MethodGet, "/integrity/summary?scope="+event.ID, nil)
	s.Equal(http.StatusOK, w.Code)
	var summary integrity.IssuesSummary
	s.http.DecodeResponse(s.T(), w, &summary)
	s.NotNil(summary.LastCheckAt)
	s.Len(summary.Trend, 2)
}

func (s *IntegrityControllerTestSuite) TestAutoCorrect() {
	event := s.seedMismatch()
	run, err := s.svc.RunCheck(context.Background(), integrity.RuleEventTotalsMismatch, event.ID)
	s.Require().NoError(err)

	w := s.do(http.MethodPost, "/integrity/checks/"+run.ID+"/corrections", AutoCorrectRequest{
		IssueTypes: []string{integrity.RuleEventTotalsMismatch},
	})
	s.Equal(http.StatusOK, w.Code)
	var result AutoCorrectResult
	s.http.DecodeResponse(s.T(), w, &result)
	s.Equal(run.ID, result.CheckRunID)
	s.Equal(1, result.CorrectedCount)

	w = s.do(http.MethodGet, "/integrity/checks/"+run.ID+"/corrections", nil)
	s.Equal(http.StatusOK, w.Code)
	var records []models.CorrectionRecord
	s.http.DecodeResponse(s.T(), w, &records)
	s.Require().Len(records, 1)
	s.NotEmpty(records[0].BackupID)
}

func (s *IntegrityControllerTestSuite) TestAutoCorrect_BadRequestAndNotFound() {
	w := s.do(http.MethodPost, "/integrity/checks/missing/corrections", AutoCorrectRequest{})
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/integrity/checks/missing/corrections", AutoCorrectRequest{
		IssueTypes: []string{integrity.RuleEventTotalsMismatch},
	})
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *IntegrityControllerTestSuite) TestBackups() {
	event := s.seedMismatch()

	w := s.do(http.MethodPost, "/integrity/backups", CreateBackupRequest{Scope: event.ID})
	s.Equal(http.StatusCreated, w.Code)
	var created map[string]string
	s.http.DecodeResponse(s.T(), w, &created)
	backupID := created["backup_id"]
	s.NotEmpty(backupID)

	w = s.do(http.MethodGet, "/integrity/backups?scope="+event.ID, nil)
	s.Equal(http.StatusOK, w.Code)
	var backups []models.DataBackup
	s.http.DecodeResponse(s.T(), w, &backups)
	s.Require().Len(backups, 1)
	s.Equal(backupID, backups[0].ID)

	w = s.do(http.MethodPost, "/integrity/backups/"+backupID+"/restore", nil)
	s.Equal(http.StatusAccepted, w.Code)
	var intent integrity.RestoreIntent
	s.http.DecodeResponse(s.T(), w, &intent)
	s.False(intent.Applied)

	w = s.do(http.MethodPost, "/integrity/backups/missing/restore", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func TestIntegrityControllerTestSuite(t *testing.T) {
	suite.Run(t, new(IntegrityControllerTestSuite))
}

func TestHealthController(t *testing.T) {
	ok := NewHealthController(func(ctx context.Context) error { return nil })
	w := httptest.NewRecorder()
	ok.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	down := NewHealthController(func(ctx context.Context) error { return errors.New("数据库不可用") })
	w = httptest.NewRecorder()
	down.Ready(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")

	w = httptest.NewRecorder()
	down.Health(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
}
