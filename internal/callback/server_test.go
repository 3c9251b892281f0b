package callback

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/config"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/common/logger"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/models"
	"github.com/City-of-Helsinki/yjdh-sub002/internal/status"
)

const testAppUUID = "5f7c2c0a-8f7e-4d2b-9ec6-000000000001"

func newTestServer(t *testing.T) (*Server, *fakeApps, *fakeLog) {
	app := testApp(status.AppReceived)
	apps := newFakeApps(app)
	log := &fakeLog{latest: map[string]*models.IntegrationStatus{
		app.ID: {ApplicationID: app.ID, Status: status.AhjoOpenCaseRequestSent},
	}}
	ahjo := NewAhjoReconciler(apps, log, nil, logger.NewNoOpLogger())
	batch := &models.ApplicationBatch{ID: "batch-1", Status: status.BatchSentToTalpa}
	talpa := NewTalpaReconciler(apps,
		&fakeBatches{batches: map[string]*models.ApplicationBatch{"batch-1": batch}},
		&fakeAudit{}, nil, logger.NewNoOpLogger())

	srv := NewServer(ahjo, talpa,
		config.CallbackConfig{ListenAddress: ":0"},
		config.TalpaConfig{CallbackUser: "talpa", CallbackPassword: "secret"},
		logger.NewNoOpLogger())
	return srv, apps, log
}

func postJSON(t *testing.T, handler http.Handler, path, body string, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_AhjoCallback(t *testing.T) {
	srv, apps, log := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/ahjo/callback/"+testAppUUID,
		`{"message":"Success","requestId":"req-1","caseId":"HEL 2026-004123","caseGuid":"guid-1"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "HEL 2026-004123", apps.assigned[testAppUUID])
	assert.Equal(t, []status.AhjoStatus{status.AhjoCaseOpened}, log.appended)
}

func TestServer_AhjoCallback_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{
			name: "invalid uuid",
			path: "/ahjo/callback/not-a-uuid",
			body: `{"message":"Success"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "message outside the enum",
			path: "/ahjo/callback/" + testAppUUID,
			body: `{"message":"Maybe"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "missing message",
			path: "/ahjo/callback/" + testAppUUID,
			body: `{"caseId":"HEL 2026-004123"}`,
			want: http.StatusBadRequest,
		},
		{
			name: "unknown application",
			path: "/ahjo/callback/5f7c2c0a-8f7e-4d2b-9ec6-ffffffffffff",
			body: `{"message":"Success"}`,
			want: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, log := newTestServer(t)
			rec := postJSON(t, srv.Handler(), tt.path, tt.body)
			assert.Equal(t, tt.want, rec.Code)
			assert.Empty(t, log.appended)
		})
	}
}

func TestServer_AhjoCallback_MismatchStillAnswers200(t *testing.T) {
	srv, _, log := newTestServer(t)
	log.latest[testAppUUID] = &models.IntegrationStatus{
		ApplicationID: testAppUUID,
		Status:        status.AhjoCaseOpened,
	}

	rec := postJSON(t, srv.Handler(), "/ahjo/callback/"+testAppUUID,
		`{"message":"Success","caseId":"HEL 2026-004123"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, log.appended)
}

func TestServer_TalpaCallback_RequiresBasicAuth(t *testing.T) {
	srv, _, _ := newTestServer(t)
	body := `{"status":"Success","successful_applications":[125010]}`

	rec := postJSON(t, srv.Handler(), "/talpa/callback", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, srv.Handler(), "/talpa/callback", body, func(r *http.Request) {
		r.SetBasicAuth("talpa", "wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postJSON(t, srv.Handler(), "/talpa/callback", body, func(r *http.Request) {
		r.SetBasicAuth("talpa", "secret")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_TalpaCallback_RejectsEmptyLists(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := postJSON(t, srv.Handler(), "/talpa/callback", `{"status":"Success"}`, func(r *http.Request) {
		r.SetBasicAuth("talpa", "secret")
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_MethodRouting(t *testing.T) {
	srv, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/ahjo/callback/"+testAppUUID, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestValidateTalpaPayload(t *testing.T) {
	require.NoError(t, ValidateTalpaPayload([]byte(`{"status":"Failure","failed_applications":[1]}`)))
	assert.Error(t, ValidateTalpaPayload([]byte(`{"status":"Partial","failed_applications":[1]}`)))
	assert.Error(t, ValidateTalpaPayload([]byte(`not json`)))
}
