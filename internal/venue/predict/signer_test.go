package predict

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

func generateTestSigner(t *testing.T) (*Signer, *rsa.PublicKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey() error = %v", err)
	}
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})

	s, err := NewSignerFromPEM(pemBytes, "test-key-id")
	if err != nil {
		t.Fatalf("NewSignerFromPEM() error = %v", err)
	}
	return s, &key.PublicKey
}

func TestSignRequestRoundTrip(t *testing.T) {
	t.Parallel()
	s, pub := generateTestSigner(t)

	headers, err := s.SignRequest("POST", "/orders", `{"size":10}`)
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}
	if headers.KeyID != "test-key-id" {
		t.Errorf("KeyID = %q, want test-key-id", headers.KeyID)
	}

	err = VerifyRequest(pub, "POST", "/orders", `{"size":10}`, headers.Timestamp, headers.Signature)
	if err != nil {
		t.Errorf("VerifyRequest() error = %v, want nil", err)
	}
}

func TestVerifyRequestRejectsTamperedBody(t *testing.T) {
	t.Parallel()
	s, pub := generateTestSigner(t)

	headers, err := s.SignRequest("POST", "/orders", `{"size":10}`)
	if err != nil {
		t.Fatalf("SignRequest() error = %v", err)
	}

	err = VerifyRequest(pub, "POST", "/orders", `{"size":999}`, headers.Timestamp, headers.Signature)
	if err == nil {
		t.Error("VerifyRequest() = nil for tampered body, want error")
	}
}

func TestSessionAuthSignIsDeterministicPerMessage(t *testing.T) {
	t.Parallel()
	sess := NewSessionAuth([]byte("session-secret-key-material"))
	defer sess.Destroy()

	sig1 := sess.Sign("GET", "/balance", "")
	sig2 := sess.Sign("GET", "/balance", "")
	if sig1 != sig2 {
		t.Error("Sign() not deterministic for identical inputs")
	}

	sig3 := sess.Sign("GET", "/positions", "")
	if sig1 == sig3 {
		t.Error("Sign() produced identical signature for different paths")
	}
}
