package services_test

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/fbx-agent/internal/constants"
	"github.com/benmeehan/fbx-agent/internal/models"
	"github.com/benmeehan/fbx-agent/pkg/credentials"
	"github.com/benmeehan/fbx-agent/pkg/encryption"
	"github.com/benmeehan/fbx-agent/pkg/file"
	"github.com/benmeehan/fbx-agent/pkg/transport"
)

const (
	testAppToken     = "app-token-0123456789"
	testChallenge    = "challenge-abcdef"
	testSessionToken = "session-token-xyz"
	testSalt         = "salt-42"
	testTrackID      = 7
)

// fakeAppliance is a TLS server speaking the appliance login and resource API.
type fakeAppliance struct {
	t      *testing.T
	server *httptest.Server
	caPath string

	mu              sync.Mutex
	statuses        []string
	authorizeFails  bool
	revoked         bool
	expireSessionsN int
	authorizeCalls  int
	pollCalls       int
	challengeCalls  int
	sessionCalls    int
	logoutCalls     int
	resourceTokens  []string
	sessionsIssued  int
	launchedURL     string
}

func newFakeAppliance(t *testing.T, statuses ...string) *fakeAppliance {
	t.Helper()

	fa := &fakeAppliance{t: t, statuses: statuses}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v8/login/authorize/", fa.handleAuthorize)
	mux.HandleFunc("GET /api/v8/login/authorize/{id}", fa.handlePoll)
	mux.HandleFunc("GET /api/v8/login/{$}", fa.handleChallenge)
	mux.HandleFunc("POST /api/v8/login/session/", fa.handleSession)
	mux.HandleFunc("POST /api/v8/login/logout/", fa.handleLogout)
	mux.HandleFunc("GET /api/v8/lan/browser/pub/", fa.handleLan)
	mux.HandleFunc("GET /api/v8/player/{$}", fa.handlePlayers)
	mux.HandleFunc("GET /api/v8/player/{id}/api/v6/status/", fa.handlePlayerStatus)
	mux.HandleFunc("POST /api/v8/player/{id}/api/v6/control/open/", fa.handleOpen)

	fa.server = httptest.NewTLSServer(mux)
	t.Cleanup(fa.server.Close)

	fa.caPath = filepath.Join(t.TempDir(), "appliance.pem")
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: fa.server.Certificate().Raw})
	require.NoError(t, os.WriteFile(fa.caPath, certPEM, 0600))

	return fa
}

func (fa *fakeAppliance) baseURL() string {
	return fa.server.URL + "/api/v8/"
}

// clientFactory builds trusted clients pinned on the fake appliance certificate.
func (fa *fakeAppliance) clientFactory() func(string) (*transport.Client, error) {
	return func(baseURL string) (*transport.Client, error) {
		return transport.New(transport.Config{BaseURL: baseURL, CACertificate: fa.caPath}, file.NewFileService())
	}
}

func (fa *fakeAppliance) client() *transport.Client {
	fa.t.Helper()
	client, err := fa.clientFactory()(fa.baseURL())
	require.NoError(fa.t, err)
	return client
}

func (fa *fakeAppliance) resolver() *staticResolver {
	return &staticResolver{info: credentials.ConnectionInfo{BaseURL: fa.baseURL()}}
}

func (fa *fakeAppliance) counts() (authorize, poll, session int) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	return fa.authorizeCalls, fa.pollCalls, fa.sessionCalls
}

func writeEnvelope(w http.ResponseWriter, status int, result any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "result": result})
}

func writeFailure(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error_code": code, "msg": msg})
}

func (fa *fakeAppliance) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.authorizeCalls++

	var req map[string]string
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req["app_id"] == "" {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "missing app_id")
		return
	}
	if fa.authorizeFails {
		writeFailure(w, http.StatusForbidden, constants.ErrCodeNewAppsDenied, "new apps denied")
		return
	}
	fa.revoked = false
	writeEnvelope(w, http.StatusOK, models.AuthorizeResponse{AppToken: testAppToken, TrackID: testTrackID})
}

func (fa *fakeAppliance) handlePoll(w http.ResponseWriter, r *http.Request) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.pollCalls++

	if r.PathValue("id") != strconv.Itoa(testTrackID) {
		writeEnvelope(w, http.StatusOK, models.AuthorizeStatusResponse{Status: "unknown"})
		return
	}

	status := "granted"
	if len(fa.statuses) > 0 {
		idx := fa.pollCalls - 1
		if idx >= len(fa.statuses) {
			idx = len(fa.statuses) - 1
		}
		status = fa.statuses[idx]
	}
	resp := models.AuthorizeStatusResponse{Status: status, Challenge: testChallenge}
	if status == "granted" {
		resp.PasswordSalt = testSalt
	}
	writeEnvelope(w, http.StatusOK, resp)
}

func (fa *fakeAppliance) handleChallenge(w http.ResponseWriter, r *http.Request) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.challengeCalls++
	writeEnvelope(w, http.StatusOK, models.ChallengeResponse{Challenge: testChallenge, PasswordSalt: testSalt})
}

func (fa *fakeAppliance) handleSession(w http.ResponseWriter, r *http.Request) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.sessionCalls++

	var req models.SessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid_request", "bad body")
		return
	}
	if fa.revoked {
		writeFailure(w, http.StatusForbidden, constants.ErrCodeInvalidToken, "token revoked")
		return
	}
	if !encryption.VerifyChallengePassword(testAppToken, testChallenge, req.Password) {
		writeFailure(w, http.StatusForbidden, "invalid_password", "wrong password")
		return
	}
	fa.sessionsIssued++
	writeEnvelope(w, http.StatusOK, models.SessionResponse{
		SessionToken: testSessionToken + "-" + strconv.Itoa(fa.sessionsIssued),
		Permissions:  map[string]bool{"player": true, "settings": false},
	})
}

func (fa *fakeAppliance) handleLogout(w http.ResponseWriter, r *http.Request) {
	fa.mu.Lock()
	defer fa.mu.Unlock()
	fa.logoutCalls++
	writeEnvelope(w, http.StatusOK, nil)
}

// authorized records the session header and reports whether the call may proceed.
func (fa *fakeAppliance) authorized(w http.ResponseWriter, r *http.Request) bool {
	fa.mu.Lock()
	defer fa.mu.Unlock()

	token := r.Header.Get(constants.AppAuthHeader)
	fa.resourceTokens = append(fa.resourceTokens, token)
	if token == "" {
		writeFailure(w, http.StatusForbidden, constants.ErrCodeAuthRequired, "auth required")
		return false
	}
	if fa.expireSessionsN > 0 {
		fa.expireSessionsN--
		writeFailure(w, http.StatusForbidden, constants.ErrCodeAuthRequired, "session expired")
		return false
	}
	return true
}

func (fa *fakeAppliance) handleLan(w http.ResponseWriter, r *http.Request) {
	if !fa.authorized(w, r) {
		return
	}
	writeEnvelope(w, http.StatusOK, []models.LanHost{
		{ID: "ether-aa", PrimaryName: "laptop", Active: true, Reachable: true},
		{ID: "ether-bb", PrimaryName: "printer", Active: false},
		{ID: "ether-cc", PrimaryName: "phone", Active: true, Reachable: true},
	})
}

func (fa *fakeAppliance) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if !fa.authorized(w, r) {
		return
	}
	writeEnvelope(w, http.StatusOK, []models.Player{
		{ID: 1, DeviceName: "Living room", Reachable: true, APIAvailable: true},
		{ID: 2, DeviceName: "Bedroom", Reachable: false},
		{ID: 3, DeviceName: "Office", Reachable: true, APIAvailable: true},
	})
}

func (fa *fakeAppliance) handlePlayerStatus(w http.ResponseWriter, r *http.Request) {
	if !fa.authorized(w, r) {
		return
	}
	if r.PathValue("id") == "3" {
		writeFailure(w, http.StatusOK, "internal_error", "player busy")
		return
	}
	writeEnvelope(w, http.StatusOK, models.PlayerStatus{
		PowerState:    "running",
		ForegroundApp: &models.ForegroundApp{Package: "fr.freebox.tv"},
	})
}

func (fa *fakeAppliance) handleOpen(w http.ResponseWriter, r *http.Request) {
	if !fa.authorized(w, r) {
		return
	}
	body, _ := io.ReadAll(r.Body)
	var req models.OpenRequest
	_ = json.Unmarshal(body, &req)

	fa.mu.Lock()
	fa.launchedURL = req.URL
	fa.mu.Unlock()
	writeEnvelope(w, http.StatusOK, nil)
}

// staticResolver returns a fixed endpoint and counts calls.
type staticResolver struct {
	mu    sync.Mutex
	info  credentials.ConnectionInfo
	err   error
	calls int
}

func (s *staticResolver) Resolve(ctx context.Context) (credentials.ConnectionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.info, s.err
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// noWait skips inter-poll delays while still honouring cancellation.
func noWait(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
