package auth

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

func generateRSAKeyPair(t testing.TB) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	return priv, &priv.PublicKey
}

func createJWKS(t testing.TB, publicKey *rsa.PublicKey) jwk.Set {
	t.Helper()
	key, err := jwk.FromRaw(publicKey)
	if err != nil {
		t.Fatalf("jwk.FromRaw: %v", err)
	}
	if err := key.Set(jwk.KeyIDKey, "test-key-id"); err != nil {
		t.Fatalf("set kid: %v", err)
	}
	if err := key.Set(jwk.AlgorithmKey, jwa.RS256); err != nil {
		t.Fatalf("set alg: %v", err)
	}

	keyset := jwk.NewSet()
	if err := keyset.AddKey(key); err != nil {
		t.Fatalf("add key: %v", err)
	}
	return keyset
}

func createTestJWT(t testing.TB, privateKey *rsa.PrivateKey, issuer, audience, subject string, claims map[string]any) string {
	t.Helper()
	token := jwt.New()
	must := func(err error) {
		if err != nil {
			t.Fatalf("set claim: %v", err)
		}
	}
	must(token.Set(jwt.IssuerKey, issuer))
	must(token.Set(jwt.AudienceKey, audience))
	must(token.Set(jwt.SubjectKey, subject))
	must(token.Set(jwt.IssuedAtKey, time.Now()))
	must(token.Set(jwt.ExpirationKey, time.Now().Add(time.Hour)))
	for k, v := range claims {
		must(token.Set(k, v))
	}

	key, err := jwk.FromRaw(privateKey)
	if err != nil {
		t.Fatalf("jwk.FromRaw: %v", err)
	}
	must(key.Set(jwk.KeyIDKey, "test-key-id"))

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, key))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

// setupTestValidator spins up a JWKS endpoint backed by a freshly
// generated RSA key pair and returns a validator wired to it.
func setupTestValidator(t testing.TB) (validator *JWTValidator, privateKey *rsa.PrivateKey, issuer, audience string) {
	t.Helper()
	privateKey, publicKey := generateRSAKeyPair(t)
	keyset := createJWKS(t, publicKey)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/jwks.json" {
			http.NotFound(w, r)
			return
		}
		body, err := json.Marshal(keyset)
		if err != nil {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(server.Close)

	jwksURL := server.URL + "/.well-known/jwks.json"
	issuer = "https://test-issuer.example.com"
	audience = "hector-core-test"

	v, err := NewJWTValidator(jwksURL, issuer, audience, time.Minute)
	if err != nil {
		t.Fatalf("NewJWTValidator: %v", err)
	}
	return v, privateKey, issuer, audience
}
