package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plc-copilot/internal/config"
	"plc-copilot/internal/copilot"
	"plc-copilot/internal/metrics"
	"plc-copilot/internal/store"
	"plc-copilot/internal/types"
	"plc-copilot/internal/upstream"
)

const codeBody = `{"response_type":"plc_code","final_json":{"explanation":"Motor latch",` +
	`"structured_text":"Motor := Start OR Motor;","required_variables":"VAR Motor : BOOL; END_VAR"},` +
	`"verification_status":{"status":"success"}}`

type fakeVerifier struct {
	mu    sync.Mutex
	codes []string
	resp  types.VerifyResponse
}

func (f *fakeVerifier) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.VerifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.mu.Lock()
		f.codes = append(f.codes, req.STCode)
		resp := f.resp
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(resp)
	}
}

type testEnv struct {
	srv      *Server
	reg      *prometheus.Registry
	verifier *fakeVerifier
}

func newTestEnv(t *testing.T, orchestrator http.HandlerFunc) *testEnv {
	t.Helper()
	return newTestEnvConfig(t, config.Config{AllowedOrigin: "*"}, orchestrator)
}

func newTestEnvConfig(t *testing.T, cfg config.Config, orchestrator http.HandlerFunc) *testEnv {
	t.Helper()
	orch := httptest.NewServer(orchestrator)
	t.Cleanup(orch.Close)

	fv := &fakeVerifier{resp: types.VerifyResponse{Status: "success"}}
	ver := httptest.NewServer(fv.handler(t))
	t.Cleanup(ver.Close)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	client := upstream.NewHTTPClient(5*time.Second, upstream.OAuthConfig{})
	srv := New(cfg, Deps{
		Generator: upstream.NewOrchestrator(orch.URL, client, m),
		Verifier:  upstream.NewVerifier(ver.URL, client, m),
		Store:     store.NewMemoryStore(cfg.MaxTranscript),
		Metrics:   m,
		Gatherer:  reg,
	})
	return &testEnv{srv: srv, reg: reg, verifier: fv}
}

func respond(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, body)
	}
}

func (e *testEnv) do(t *testing.T, method, path, sid, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if sid != "" {
		req.Header.Set(SessionHeader, sid)
	}
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeView(t *testing.T, rec *httptest.ResponseRecorder) types.ActionView {
	t.Helper()
	var view types.ActionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, respond(`{}`))
	rec := env.do(t, http.MethodGet, "/api/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestChat_CodeResponse(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))

	rec := env.do(t, http.MethodPost, "/api/chat", "", `{"prompt":"latch a motor"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, CookieName, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, cookies[0].Value, rec.Header().Get(SessionHeader))

	view := decodeView(t, rec)
	assert.Equal(t, cookies[0].Value, view.SessionID)
	assert.Equal(t, copilot.KindCode, view.Kind)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, types.Message{Type: copilot.MessageUser, Content: "latch a motor"}, view.Messages[0])
	assert.Equal(t, types.Message{Type: copilot.MessageAssistant, Content: "Motor latch"}, view.Messages[1])
	assert.Equal(t, "Motor := Start OR Motor;", view.Panels.Code)
	assert.Equal(t, "VAR Motor : BOOL; END_VAR", view.Panels.Variables)
	assert.Equal(t, copilot.PlaceholderSimulation, view.Panels.Simulation)
	assert.Equal(t, copilot.PlaceholderVerificationNotes, view.Panels.VerificationNotes)
	assert.Contains(t, view.Notifications, types.Notification{
		Level: copilot.LevelSuccess,
		Text:  "Code received. Verification status: success",
	})

	count, err := testutil.GatherAndCount(env.reg, "plc_copilot_routed_responses_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestChat_ChatResponseLeavesPanels(t *testing.T) {
	env := newTestEnv(t, respond(`{"response_type":"chat","message":"Which PLC family?"}`))

	view := decodeView(t, env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"hello"}`))
	assert.Equal(t, copilot.KindChat, view.Kind)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, "Which PLC family?", view.Messages[1].Content)
	assert.Equal(t, copilot.EmptyPanels(), view.Panels)
}

func TestChat_UpstreamFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{name: "non-OK status", handler: func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}},
		{name: "malformed JSON", handler: respond(`{"response_type":`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.handler)
			rec := env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"x"}`)
			require.Equal(t, http.StatusOK, rec.Code)

			view := decodeView(t, rec)
			assert.Equal(t, copilot.KindError, view.Kind)
			require.Len(t, view.Messages, 2)
			assert.Equal(t, copilot.MsgOrchestratorDown, view.Messages[1].Content)
			assert.Equal(t, copilot.EmptyPanels(), view.Panels)
		})
	}
}

func TestChat_Unreachable(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	url := dead.URL
	dead.Close()

	srv := New(config.Config{AllowedOrigin: "*"}, Deps{
		Generator: upstream.NewOrchestrator(url, &http.Client{Timeout: time.Second}, nil),
		Store:     store.NewMemoryStore(0),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"x"}`))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	view := decodeView(t, rec)
	require.Len(t, view.Messages, 2)
	assert.Equal(t, copilot.MsgOrchestratorDown, view.Messages[1].Content)
}

func TestChat_BadRequests(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))

	rec := env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"prompt is required"}`, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/chat", "s1", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidateAndDownload(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))

	rec := env.do(t, http.MethodGet, "/api/download", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, copilot.PlaceholderCode, rec.Body.String())

	view := decodeView(t, env.do(t, http.MethodPost, "/api/validate", "s1", ""))
	assert.Empty(t, env.verifier.codes)
	assert.Equal(t, []types.Notification{{Level: copilot.LevelWarning, Text: copilot.NoteNothingToCheck}}, view.Notifications)

	env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"latch a motor"}`)

	view = decodeView(t, env.do(t, http.MethodPost, "/api/validate", "s1", ""))
	assert.Equal(t, []string{"Motor := Start OR Motor;"}, env.verifier.codes)
	assert.Contains(t, view.Notifications, types.Notification{Level: copilot.LevelSuccess, Text: copilot.NoteValidationOK})
	assert.Empty(t, view.Messages)

	rec = env.do(t, http.MethodGet, "/api/download", "s1", "")
	assert.Equal(t, "Motor := Start OR Motor;", rec.Body.String())
	assert.Equal(t, `attachment; filename="program.st"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
}

func TestValidate_FailureAndOverride(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))
	env.verifier.resp = types.VerifyResponse{Status: "error", Details: "line 1: expected ':='"}

	view := decodeView(t, env.do(t, http.MethodPost, "/api/validate", "s1", `{"st_code":"Motor = Start;"}`))
	assert.Equal(t, []string{"Motor = Start;"}, env.verifier.codes)
	require.Len(t, view.Messages, 1)
	assert.Equal(t, "⚠️ Validation Failed:\nline 1: expected ':='", view.Messages[0].Content)
	assert.Contains(t, view.Notifications, types.Notification{Level: copilot.LevelError, Text: copilot.NoteValidationFailed})
}

func TestHistoryClearAndState(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))
	env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"latch a motor"}`)

	var state types.StateView
	require.NoError(t, json.Unmarshal(env.do(t, http.MethodGet, "/api/state", "s1", "").Body.Bytes(), &state))
	assert.Len(t, state.Transcript, 2)
	assert.Equal(t, store.DefaultTheme, state.Theme)

	rec := env.do(t, http.MethodDelete, "/api/history", "s1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	state = types.StateView{}
	require.NoError(t, json.Unmarshal(env.do(t, http.MethodGet, "/api/state", "s1", "").Body.Bytes(), &state))
	assert.Empty(t, state.Transcript)
	assert.Equal(t, "Motor := Start OR Motor;", state.Panels.Code)
}

func TestTheme(t *testing.T) {
	env := newTestEnv(t, respond(`{}`))

	rec := env.do(t, http.MethodGet, "/api/theme", "s1", "")
	assert.JSONEq(t, `{"theme":"light"}`, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/theme", "s1", `{"theme":"Dark"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/theme", "s1", "")
	assert.JSONEq(t, `{"theme":"dark"}`, rec.Body.String())

	rec = env.do(t, http.MethodPut, "/api/theme", "s1", `{"theme":"blue"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionIDSources(t *testing.T) {
	env := newTestEnv(t, respond(`{}`))

	req := httptest.NewRequest(http.MethodGet, "/api/theme?sessionId=from-query", nil)
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "from-query", rec.Header().Get(SessionHeader))
	assert.Empty(t, rec.Result().Cookies())

	req = httptest.NewRequest(http.MethodGet, "/api/theme", nil)
	req.AddCookie(&http.Cookie{Name: CookieName, Value: "from-cookie"})
	req.Header.Set(SessionHeader, "from-header")
	rec = httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "from-cookie", rec.Header().Get(SessionHeader))

	rec = env.do(t, http.MethodGet, "/api/theme", "../../etc/passwd", "")
	sid := rec.Header().Get(SessionHeader)
	assert.NotEqual(t, "../../etc/passwd", sid)
	assert.True(t, store.ValidSessionID(sid))
	require.Len(t, rec.Result().Cookies(), 1)
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, respond(`{}`))
	rec := env.do(t, http.MethodGet, "/", "s1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "<title>PLC Copilot</title>")
	assert.Contains(t, body, copilot.PlaceholderCode)
	assert.Contains(t, body, `data-theme="light"`)
	assert.Contains(t, body, "Could not reach the AI Orchestrator server.")
	assert.NotContains(t, body, copilot.NoteContacting)
}

func TestReadOnlyRoutesDoNotRegisterSessions(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))

	for i := 0; i < 20; i++ {
		for _, path := range []string{"/", "/api/state", "/api/download"} {
			rec := env.do(t, http.MethodGet, path, "", "")
			require.Equal(t, http.StatusOK, rec.Code, path)
		}
	}
	assert.Equal(t, 0, env.srv.sessions.Len())

	rec := env.do(t, http.MethodGet, "/api/download", "", "")
	assert.Equal(t, copilot.PlaceholderCode, rec.Body.String())

	env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"latch a motor"}`)
	assert.Equal(t, 1, env.srv.sessions.Len())
}

func TestState_UnseenSessionReadsStore(t *testing.T) {
	env := newTestEnv(t, respond(`{}`))
	ctx := context.Background()
	require.NoError(t, env.srv.store.Append(ctx, "old", types.Message{Type: copilot.MessageUser, Content: "from before"}))

	var state types.StateView
	require.NoError(t, json.Unmarshal(env.do(t, http.MethodGet, "/api/state", "old", "").Body.Bytes(), &state))
	assert.Equal(t, []types.Message{{Type: copilot.MessageUser, Content: "from before"}}, state.Transcript)
	assert.Equal(t, copilot.EmptyPanels(), state.Panels)
	assert.Equal(t, 0, env.srv.sessions.Len())

	state = types.StateView{}
	require.NoError(t, json.Unmarshal(env.do(t, http.MethodGet, "/api/state", "never-seen", "").Body.Bytes(), &state))
	assert.NotNil(t, state.Transcript)
	assert.Empty(t, state.Transcript)
}

func TestState_TranscriptLimitMatchesStore(t *testing.T) {
	env := newTestEnvConfig(t, config.Config{AllowedOrigin: "*", MaxTranscript: 2}, respond(codeBody))

	for _, p := range []string{"one", "two", "three"} {
		require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/chat", "abc", `{"prompt":"`+p+`"}`).Code)
	}

	var state types.StateView
	require.NoError(t, json.Unmarshal(env.do(t, http.MethodGet, "/api/state", "abc", "").Body.Bytes(), &state))
	history, err := env.srv.store.History(context.Background(), "abc")
	require.NoError(t, err)

	require.Len(t, history, 2)
	assert.Equal(t, history, state.Transcript)
	assert.Equal(t, "three", state.Transcript[0].Content)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, respond(codeBody))
	env.do(t, http.MethodPost, "/api/chat", "s1", `{"prompt":"latch a motor"}`)

	rec := env.do(t, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `plc_copilot_upstream_requests_total{outcome="ok",target="orchestrator"} 1`)
	assert.Contains(t, rec.Body.String(), `plc_copilot_routed_responses_total{kind="plc_code"} 1`)
}
