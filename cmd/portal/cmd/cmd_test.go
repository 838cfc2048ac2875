package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/diagnostic-login/internal/client"
	"github.com/spec-kit/diagnostic-login/internal/domain"
)

func fakeBackend(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/exchange/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(client.Exchange{
			Customer: domain.Identity{ID: 5, Username: "alice", FirstName: "Alice", LastName: "Liddell"},
			Staff:    domain.Identity{ID: 2, Username: "bob", IsStaff: true},
		})
	})
	mux.HandleFunc("POST /api/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"user": domain.Identity{ID: 2, Username: "bob", IsStaff: true}})
	})
	mux.HandleFunc("POST /api/auth/diagnostic-login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(client.DiagnosticCode{Code: "xyz", Customer: domain.Identity{ID: 7, Username: "carol"}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCustomerOpenRedeemsCode(t *testing.T) {
	base := fakeBackend(t)
	out, err := run(t, "customer", "open", "--api-url", base, "http://localhost:3002/?code=abc123")
	require.NoError(t, err)
	assert.Contains(t, out, "Signed in as Alice Liddell (alice, id 5)")
	assert.Contains(t, out, "Diagnostic session opened by bob")
	assert.Contains(t, out, "Address:  http://localhost:3002/\n")
}

func TestIntranetDiagnosePrintsPortalURL(t *testing.T) {
	base := fakeBackend(t)
	out, err := run(t, "intranet", "diagnose", "7",
		"--api-url", base, "--customer-app-url", "http://localhost:3002",
		"--username", "bob", "--password", "pw")
	require.NoError(t, err)
	assert.Contains(t, out, "Open the customer portal: http://localhost:3002/?code=xyz")
	assert.Contains(t, out, "Diagnostic session for carol")
}

func TestIntranetDiagnoseRejectsBadID(t *testing.T) {
	_, err := run(t, "intranet", "diagnose", "abc", "--username", "bob", "--password", "pw")
	assert.EqualError(t, err, `invalid customer id "abc"`)
}
