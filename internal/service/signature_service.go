package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"audit-webhook-engine/internal/core/ports"
)

const (
	// SignatureHeader is the HTTP header deliveries carry their signature in.
	SignatureHeader = "x-signature"
	// SignatureHeaderPrefix prefixes the hex digest in the signature header.
	SignatureHeaderPrefix = "sha256="
)

// HMACSignatureService implements ports.SignatureService using HMAC-SHA256.
type HMACSignatureService struct{}

// NewHMACSignatureService creates a new HMAC-SHA256 signature service.
func NewHMACSignatureService() *HMACSignatureService {
	return &HMACSignatureService{}
}

var _ ports.SignatureService = (*HMACSignatureService)(nil)

// Sign computes HMAC-SHA256 of payload using secret.
// Returns lowercase hex-encoded signature.
//
// The payload must be the exact bytes placed on the wire. The engine signs
// the payload captured at enqueue time, never a re-serialization, so the
// signature a receiver verifies is identical on every retry.
func (s *HMACSignatureService) Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks if signature matches HMAC-SHA256(secret, payload).
// Uses constant-time comparison to prevent timing attacks.
func (s *HMACSignatureService) Verify(secret string, payload []byte, signature string) bool {
	expected := s.Sign(secret, payload)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// Header returns the value sent in the x-signature header.
func (s *HMACSignatureService) Header(secret string, payload []byte) string {
	return SignatureHeaderPrefix + s.Sign(secret, payload)
}
