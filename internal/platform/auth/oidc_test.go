package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func rsaPublicKeyToJWK(privateKey *rsa.PrivateKey, kid string) JWKSKey {
	pub := &privateKey.PublicKey
	return JWKSKey{
		Kty: "RSA",
		Kid: kid,
		Use: "sig",
		Alg: "RS256",
		N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
		E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
	}
}

func newDiscoveryServer(t *testing.T, jwksURL string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/.well-known/openid-configuration" {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{
				"issuer":                 "https://idp.example.com",
				"authorization_endpoint": "https://idp.example.com/authorize",
				"token_endpoint":         "https://idp.example.com/token",
				"jwks_uri":               jwksURL,
			})
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOIDCProvider_Discovery(t *testing.T) {
	server := newDiscoveryServer(t, "https://idp.example.com/jwks")

	provider, err := NewOIDCProvider(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.JWKSURI != "https://idp.example.com/jwks" {
		t.Errorf("expected jwks_uri https://idp.example.com/jwks, got %s", provider.JWKSURI)
	}
	if provider.TokenEndpoint != "https://idp.example.com/token" {
		t.Errorf("expected token_endpoint https://idp.example.com/token, got %s", provider.TokenEndpoint)
	}
}

func TestOIDCProvider_InvalidIssuer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	if _, err := NewOIDCProvider(server.URL); err == nil {
		t.Fatal("expected error for issuer without a discovery document")
	}
	if _, err := NewOIDCProvider("http://127.0.0.1:1"); err == nil {
		t.Fatal("expected error for unreachable issuer")
	}
}

func TestOIDCProvider_MissingJWKSURI(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"issuer": "https://idp.example.com",
		})
	}))
	defer server.Close()

	if _, err := NewOIDCProvider(server.URL); err == nil {
		t.Fatal("expected error for missing jwks_uri")
	}
}

func signRS256Token(t *testing.T, key *rsa.PrivateKey, kid, issuer string) string {
	t.Helper()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: []string{RoleDoctor},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestJWTMiddleware_DiscoversJWKSFromIssuer(t *testing.T) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	kid := "issuer-test-key"

	var jwksFetches int64
	jwksServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&jwksFetches, 1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(JWKSResponse{Keys: []JWKSKey{rsaPublicKeyToJWK(privateKey, kid)}})
	}))
	defer jwksServer.Close()

	discovery := newDiscoveryServer(t, jwksServer.URL)

	// Issuer-only config: the JWKS URL must come from discovery.
	mw := JWTMiddleware(JWTConfig{Issuer: discovery.URL})
	tokenStr := signRS256Token(t, privateKey, kid, discovery.URL)

	rec, err := runMiddleware(t, mw, "Bearer "+tokenStr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	// The cache is shared across requests; a second call must not refetch.
	if _, err := runMiddleware(t, mw, "Bearer "+tokenStr); err != nil {
		t.Fatalf("unexpected error on second request: %v", err)
	}
	if got := atomic.LoadInt64(&jwksFetches); got != 1 {
		t.Errorf("expected 1 JWKS fetch across requests, got %d", got)
	}
}
