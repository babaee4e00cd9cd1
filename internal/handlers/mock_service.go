package handlers

import (
	"context"
	"net/http"
	"time"

	"mppt_sweep/internal/models"
	"mppt_sweep/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockSweeper struct {
	startRunID string
	startErr   error
	abortErr   error
	progress   service.Progress

	startCalls int
	abortCalls int
	lastStart  service.StartRequest
}

func (m *mockSweeper) Start(req service.StartRequest) (string, error) {
	m.startCalls++
	m.lastStart = req
	return m.startRunID, m.startErr
}
func (m *mockSweeper) Abort() error {
	m.abortCalls++
	return m.abortErr
}
func (m *mockSweeper) Status() service.Progress {
	return m.progress
}

type mockRuns struct {
	listResp []models.SweepRun
	listErr  error
	getResp  models.SweepRun
	getErr   error

	lastGetID string
}

func (m *mockRuns) List(ctx context.Context) ([]models.SweepRun, error) {
	return m.listResp, m.listErr
}
func (m *mockRuns) Get(ctx context.Context, runID string) (models.SweepRun, error) {
	m.lastGetID = runID
	return m.getResp, m.getErr
}

type mockRunLog struct {
	resp     []models.SweepEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockRunLog) List(ctx context.Context, f service.LogFilter) ([]models.SweepEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, service.NewBroadcaster(), nil)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
