// Package testutil provides an in-process OpenID issuer for tests of the identity backends.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/dashboard-auth/token"
	"github.com/stretchr/testify/require"
)

// Issuer serves OpenID discovery, a JWKS document and a token endpoint. Codes registered
// with AddCode are exchanged for an ID token carrying the registered claims.
type Issuer struct {
	Server *httptest.Server
	Keys   *token.RSAKeyPair

	mu    sync.Mutex
	codes map[string]jwt.MapClaims
	mux   *http.ServeMux
}

func NewIssuer(t *testing.T) *Issuer {
	t.Helper()
	keys, err := token.GenerateRSAKeyPair("test-key")
	require.NoError(t, err)

	iss := &Issuer{Keys: keys, codes: make(map[string]jwt.MapClaims), mux: http.NewServeMux()}
	iss.Server = httptest.NewServer(iss.mux)
	t.Cleanup(iss.Server.Close)

	iss.mux.HandleFunc("GET /.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"issuer":                                iss.URL(),
			"authorization_endpoint":                iss.URL() + "/authorize",
			"token_endpoint":                        iss.URL() + "/token",
			"jwks_uri":                              iss.URL() + "/jwks",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	iss.mux.HandleFunc("GET /jwks", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, iss.Keys.JWKS())
	})
	iss.mux.HandleFunc("POST /token", iss.handleToken)
	return iss
}

func (iss *Issuer) URL() string {
	return iss.Server.URL
}

// Handle lets a test add endpoints next to the issuer ones.
func (iss *Issuer) Handle(pattern string, handler http.HandlerFunc) {
	iss.mux.HandleFunc(pattern, handler)
}

// AddCode registers an authorization code redeemable once. iss, iat and exp are added
// when missing.
func (iss *Issuer) AddCode(code string, claims jwt.MapClaims) {
	iss.mu.Lock()
	defer iss.mu.Unlock()
	iss.codes[code] = claims
}

// Mint signs claims with the issuer key, defaulting iss, iat and exp.
func (iss *Issuer) Mint(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	signed, err := iss.Keys.Sign(iss.withDefaults(claims))
	require.NoError(t, err)
	return signed
}

func (iss *Issuer) withDefaults(claims jwt.MapClaims) jwt.MapClaims {
	out := jwt.MapClaims{}
	for k, v := range claims {
		out[k] = v
	}
	now := time.Now()
	if _, ok := out["iss"]; !ok {
		out["iss"] = iss.URL()
	}
	if _, ok := out["iat"]; !ok {
		out["iat"] = now.Unix()
	}
	if _, ok := out["exp"]; !ok {
		out["exp"] = now.Add(time.Hour).Unix()
	}
	return out
}

func (iss *Issuer) handleToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	iss.mu.Lock()
	claims, ok := iss.codes[r.PostForm.Get("code")]
	delete(iss.codes, r.PostForm.Get("code"))
	iss.mu.Unlock()
	if !ok || r.PostForm.Get("code_verifier") == "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	idToken, err := iss.Keys.Sign(iss.withDefaults(claims))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{
		"access_token": "idp-access-token",
		"token_type":   "Bearer",
		"expires_in":   3600,
		"id_token":     idToken,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
