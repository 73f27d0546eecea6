package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"garageops/internal/cache"
	"garageops/internal/model"
	"garageops/internal/repository"
	"garageops/internal/service"
	"garageops/internal/transport/ws"
)

type testServer struct {
	srv        *httptest.Server
	token      string
	workOrders *repository.MemoryWorkOrderRepo
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	sessions := repository.NewMemorySessionRepo()
	workOrders := repository.NewMemoryWorkOrderRepo()
	logger := zap.NewNop()

	authSvc := service.NewAuthService("tech", "secret", "org_1", "test-secret")
	trackingSvc := service.NewTrackingService(sessions, workOrders, cache.NewNoopActiveSessionCache(), logger)

	router := NewRouter(&Container{
		AuthService:     authSvc,
		TrackingService: trackingSvc,
		WSHub:           ws.NewHub(logger),
		Logger:          logger,
	})

	token, err := authSvc.GenerateTechnicianToken("tech_1", "org_1")
	require.NoError(t, err)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, token: token, workOrders: workOrders}
}

func (ts *testServer) seedWorkOrder(t *testing.T, status model.WorkOrderStatus) string {
	t.Helper()
	order := &model.WorkOrder{OrgID: "org_1", Number: "WO-2001", Status: status}
	require.NoError(t, ts.workOrders.Create(context.Background(), order))
	return order.ID
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}, authed bool) (*http.Response, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if authed {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	resp, body := ts.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestLogin(t *testing.T) {
	ts := newTestServer(t)

	resp, body := ts.do(t, http.MethodPost, "/v1/auth/login",
		model.LoginRequest{Username: "tech", Password: "secret"}, false)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["token"])
	assert.Equal(t, "org_1", body["orgId"])

	resp, _ = ts.do(t, http.MethodPost, "/v1/auth/login",
		model.LoginRequest{Username: "tech", Password: "wrong"}, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStartEndpoint_RequiresAuth(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]string{"workOrderId": "wo"}, false)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestStartEndpoint(t *testing.T) {
	ts := newTestServer(t)
	woID := ts.seedWorkOrder(t, model.WorkOrderPending)

	resp, body := ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": woID, "workType": "repair"}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	session := body["session"].(map[string]interface{})
	assert.NotEmpty(t, session["id"])
	assert.Equal(t, woID, session["workOrderId"])
	assert.Equal(t, "repair", session["workType"])
	assert.Nil(t, body["warning"])

	// Duplicate start surfaces the existing session's identity
	resp, body = ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": woID}, true)
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "session_already_open", body["code"])
	assert.Equal(t, session["id"], body["trackingId"])
	assert.NotEmpty(t, body["startedAt"])
}

func TestStartEndpoint_ValidationAndNotFound(t *testing.T) {
	ts := newTestServer(t)

	resp, _ := ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{}, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": "missing"}, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartEndpoint_TerminalWorkOrder(t *testing.T) {
	ts := newTestServer(t)
	woID := ts.seedWorkOrder(t, model.WorkOrderCancelled)

	resp, body := ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": woID}, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "work_order_terminal", body["code"])
}

func TestPauseResumeCompleteEndpoints(t *testing.T) {
	ts := newTestServer(t)
	woID := ts.seedWorkOrder(t, model.WorkOrderInProgress)

	_, startBody := ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": woID}, true)
	trackingID := startBody["session"].(map[string]interface{})["id"].(string)

	// Pause
	resp, body := ts.do(t, http.MethodPost, "/v1/time-tracking/pause",
		map[string]interface{}{"timeTrackingId": trackingID, "reason": "lunch"}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["pausedAt"])

	// Pausing again conflicts
	resp, body = ts.do(t, http.MethodPost, "/v1/time-tracking/pause",
		map[string]interface{}{"timeTrackingId": trackingID}, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "session_already_paused", body["code"])

	// Resume via PUT on the same path
	resp, body = ts.do(t, http.MethodPut, "/v1/time-tracking/pause",
		map[string]interface{}{"timeTrackingId": trackingID}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["pausedAt"])
	pauses := body["pauses"].([]interface{})
	require.Len(t, pauses, 1)
	assert.NotEmpty(t, pauses[0].(map[string]interface{})["endedAt"])

	// Complete
	resp, body = ts.do(t, http.MethodPost, "/v1/time-tracking/complete",
		map[string]interface{}{"timeTrackingId": trackingID}, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := body["summary"].(map[string]interface{})
	assert.Contains(t, summary, "totalMinutes")
	assert.Contains(t, summary, "billableMinutes")
	assert.Contains(t, summary, "pausedMinutes")
	assert.Contains(t, summary, "totalHours")

	// Completing again conflicts
	resp, body = ts.do(t, http.MethodPost, "/v1/time-tracking/complete",
		map[string]interface{}{"timeTrackingId": trackingID}, true)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "session_already_completed", body["code"])
}

func TestPauseEndpoint_UnknownSession(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodPost, "/v1/time-tracking/pause",
		map[string]interface{}{"timeTrackingId": "missing"}, true)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListActiveEndpoint(t *testing.T) {
	ts := newTestServer(t)
	woID := ts.seedWorkOrder(t, model.WorkOrderInProgress)

	ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": woID}, true)

	resp, body := ts.do(t, http.MethodGet, "/v1/time-tracking/start", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	view := sessions[0].(map[string]interface{})
	assert.Contains(t, view, "currentSessionMinutes")
	assert.Equal(t, false, view["isPaused"])
}

func TestHistoryEndpoint(t *testing.T) {
	ts := newTestServer(t)
	woID := ts.seedWorkOrder(t, model.WorkOrderInProgress)

	_, startBody := ts.do(t, http.MethodPost, "/v1/time-tracking/start",
		map[string]interface{}{"workOrderId": woID, "workType": "diagnostic"}, true)
	trackingID := startBody["session"].(map[string]interface{})["id"].(string)
	ts.do(t, http.MethodPost, "/v1/time-tracking/complete",
		map[string]interface{}{"timeTrackingId": trackingID}, true)

	resp, body := ts.do(t, http.MethodGet, "/v1/time-tracking/complete", nil, true)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessions := body["sessions"].([]interface{})
	require.Len(t, sessions, 1)

	summary := body["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["sessions"])

	byType := summary["byWorkType"].([]interface{})
	require.Len(t, byType, 1)
	assert.Equal(t, "diagnostic", byType[0].(map[string]interface{})["workType"])

	// Malformed date
	resp, _ = ts.do(t, http.MethodGet, "/v1/time-tracking/complete?from=yesterday", nil, true)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUnknownRoute(t *testing.T) {
	ts := newTestServer(t)
	resp, _ := ts.do(t, http.MethodGet, "/v1/nope", nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
