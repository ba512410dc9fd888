package session

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func jwksServer(t *testing.T, kid string, key *rsa.PublicKey) *httptest.Server {
	t.Helper()
	doc := map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": kid,
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
		}},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return signed
}

func TestVerifyMapsClaims(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL)

	signed := signToken(t, key, "k1", jwt.MapClaims{
		"sub":      "user-1",
		"TenantId": "tenant-1",
		"email":    "a@clett.ai",
	})
	s, err := v.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if s.Uid != "user-1" || s.Tid != "tenant-1" || s.Email != "a@clett.ai" {
		t.Fatalf("claims not mapped: %+v", s)
	}
	if s.Role != "member" {
		t.Fatalf("expected default role member, got %q", s.Role)
	}
}

func TestVerifyTenantFallbackClaim(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL)

	signed := signToken(t, key, "k1", jwt.MapClaims{
		"sub":    "user-1",
		"custom": map[string]any{"tenant_id": "tenant-9"},
	})
	s, err := v.Verify(signed)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if s.Tid != "tenant-9" {
		t.Fatalf("expected fallback tenant claim, got %q", s.Tid)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	token.Header["kid"] = "k1"
	signed, err := token.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := v.Verify(signed); err == nil {
		t.Fatal("HS256 token must be rejected")
	}
}

func TestVerifyUnknownKid(t *testing.T) {
	key, _ := rsa.GenerateKey(rand.Reader, 2048)
	srv := jwksServer(t, "k1", &key.PublicKey)
	v := NewVerifier(srv.URL)

	signed := signToken(t, key, "other-kid", jwt.MapClaims{"sub": "user-1"})
	if _, err := v.Verify(signed); err == nil {
		t.Fatal("unknown kid must fail verification")
	}
}

func TestVerifyBadSignature(t *testing.T) {
	goodKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	otherKey, _ := rsa.GenerateKey(rand.Reader, 2048)
	srv := jwksServer(t, "k1", &goodKey.PublicKey)
	v := NewVerifier(srv.URL)

	signed := signToken(t, otherKey, "k1", jwt.MapClaims{"sub": "user-1"})
	if _, err := v.Verify(signed); err == nil {
		t.Fatal("token signed by a different key must fail")
	}
}
