package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	grantlifecycle "rolewarden/contexts/access-control/grant-lifecycle"
	domainerrors "rolewarden/contexts/access-control/grant-lifecycle/domain/errors"
	httptransport "rolewarden/contexts/access-control/grant-lifecycle/transport/http"
)

func newTestServer() (*Server, grantlifecycle.Module) {
	module := grantlifecycle.NewInMemoryModule(nil)
	return New(module, nil, ":0"), module
}

func do(server *Server, method string, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	server.mux.ServeHTTP(rec, req)
	return rec
}

func TestCreateGrantReturnsCreated(t *testing.T) {
	server, _ := newTestServer()

	body, _ := json.Marshal(httptransport.CreateGrantRequest{
		PrincipalID:     1,
		RealmID:         10,
		RoleID:          99,
		DurationSeconds: 3600,
	})
	rec := do(server, http.MethodPost, "/api/grants/v1/grants", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body %s", rec.Code, rec.Body.String())
	}

	var resp httptransport.CreateGrantResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Grant.GrantID == "" || resp.Grant.PrincipalID != 1 || resp.Grant.RoleID != 99 {
		t.Fatalf("unexpected grant %+v", resp.Grant)
	}
	if !resp.Grant.ExpiresAt.After(time.Now().UTC()) {
		t.Fatalf("expiry must land in the future, got %s", resp.Grant.ExpiresAt)
	}
}

func TestCreateGrantRejectsMalformedBody(t *testing.T) {
	server, _ := newTestServer()

	rec := do(server, http.MethodPost, "/api/grants/v1/grants", []byte("{not json"))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp httptransport.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "invalid_body" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestCreateGrantRejectsInvalidIdentifiers(t *testing.T) {
	server, _ := newTestServer()

	body, _ := json.Marshal(httptransport.CreateGrantRequest{PrincipalID: 0, RealmID: 10, RoleID: 99})
	rec := do(server, http.MethodPost, "/api/grants/v1/grants", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body %s", rec.Code, rec.Body.String())
	}
	var resp httptransport.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "invalid_request" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestListActiveGrantsFiltersByPrincipalAndRealm(t *testing.T) {
	server, _ := newTestServer()

	for _, triple := range []struct{ principal, realm, role int64 }{
		{1, 10, 99},
		{1, 10, 98},
		{2, 10, 99},
		{1, 20, 99},
	} {
		body, _ := json.Marshal(httptransport.CreateGrantRequest{
			PrincipalID: triple.principal,
			RealmID:     triple.realm,
			RoleID:      triple.role,
		})
		if rec := do(server, http.MethodPost, "/api/grants/v1/grants", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed grant failed: %d %s", rec.Code, rec.Body.String())
		}
	}

	rec := do(server, http.MethodGet, "/api/grants/v1/principals/1/realms/10/grants", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	var resp httptransport.ListActiveGrantsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.PrincipalID != 1 || resp.RealmID != 10 || len(resp.Grants) != 2 {
		t.Fatalf("unexpected listing %+v", resp)
	}
}

func TestListActiveGrantsRejectsNonNumericPath(t *testing.T) {
	server, _ := newTestServer()

	rec := do(server, http.MethodGet, "/api/grants/v1/principals/abc/realms/10/grants", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp httptransport.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "invalid_principal_id" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestCountAndReconcileRoundTrip(t *testing.T) {
	server, module := newTestServer()
	module.Authority.AddRealm(10, "guild")
	module.Authority.AddMember(10, 1, "member-1")
	module.Authority.AddRole(10, 99, "role-99")
	module.Authority.AssignRole(10, 1, 99)

	body, _ := json.Marshal(httptransport.CreateGrantRequest{PrincipalID: 1, RealmID: 10, RoleID: 99, DurationSeconds: 1})
	if rec := do(server, http.MethodPost, "/api/grants/v1/grants", body); rec.Code != http.StatusCreated {
		t.Fatalf("seed grant failed: %d", rec.Code)
	}

	rec := do(server, http.MethodGet, "/api/grants/v1/grants/count", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("count expected 200, got %d", rec.Code)
	}
	var countResp httptransport.CountGrantsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &countResp); err != nil || countResp.Count != 1 {
		t.Fatalf("unexpected count %+v err=%v", countResp, err)
	}

	// Let the one-second grant lapse, then trigger a manual pass.
	time.Sleep(1100 * time.Millisecond)

	rec = do(server, http.MethodPost, "/api/grants/v1/reconcile", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("reconcile expected 200, got %d body %s", rec.Code, rec.Body.String())
	}
	var reconcileResp httptransport.ReconcileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &reconcileResp); err != nil {
		t.Fatalf("decode reconcile response: %v", err)
	}
	if reconcileResp.RevokedCount != 1 {
		t.Fatalf("expected 1 revocation, got %d", reconcileResp.RevokedCount)
	}

	rec = do(server, http.MethodGet, "/api/grants/v1/grants/count", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &countResp); err != nil || countResp.Count != 0 {
		t.Fatalf("store should be empty after reconcile: %+v err=%v", countResp, err)
	}
}

func TestWriteDomainErrorMapsStorageUnavailable(t *testing.T) {
	server, _ := newTestServer()
	rec := httptest.NewRecorder()
	server.writeDomainError(rec, fmt.Errorf("wrap: %w", domainerrors.ErrStorageUnavailable))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestWriteDomainErrorMapsPassInFlight(t *testing.T) {
	server, _ := newTestServer()
	rec := httptest.NewRecorder()
	server.writeDomainError(rec, domainerrors.ErrPassInFlight)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	var resp httptransport.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if resp.Code != "reconcile_in_flight" {
		t.Fatalf("unexpected error code %q", resp.Code)
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	server, _ := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- server.Start(ctx)
	}()

	// Give the listener a moment to come up before signalling shutdown.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server did not stop after context cancel")
	}
}
