// Package jwttest generates throwaway Ed25519 key material for tests.
package jwttest

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
)

// KeyPair holds PEM-encoded Ed25519 keys.
type KeyPair struct {
	PrivatePEM []byte
	PublicPEM  []byte
}

// NewKeyPair generates a fresh key pair and PEM-encodes it the way the
// server expects it in configuration (PKCS#8 private, PKIX public).
func NewKeyPair(t testing.TB) KeyPair {
	t.Helper()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		t.Fatalf("marshal private key: %v", err)
	}
	pubDER, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		t.Fatalf("marshal public key: %v", err)
	}

	return KeyPair{
		PrivatePEM: pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER}),
		PublicPEM:  pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER}),
	}
}
