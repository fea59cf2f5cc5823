package handlers

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

// SignatureHeader carries the caller's ed25519 signature over the raw request
// body, base64 encoded.
const SignatureHeader = "X-Airdrop-Signature"

var errInvalidSignature = errors.New("invalid signature")

// verifyEd25519Signature verifies an Ed25519 signature produced by a Solana
// wallet key.
func verifyEd25519Signature(publicKeyBase58 string, message []byte, signatureBase64 string) (bool, error) {
	publicKeyBytes, err := base58.Decode(publicKeyBase58)
	if err != nil {
		return false, fmt.Errorf("failed to decode public key: %w", err)
	}
	if len(publicKeyBytes) != ed25519.PublicKeySize {
		return false, fmt.Errorf("invalid public key size: expected %d, got %d", ed25519.PublicKeySize, len(publicKeyBytes))
	}

	signatureBytes, err := decodeSignature(signatureBase64)
	if err != nil {
		return false, fmt.Errorf("failed to decode signature: %w", err)
	}
	if len(signatureBytes) != ed25519.SignatureSize {
		return false, fmt.Errorf("invalid signature size: expected %d, got %d", ed25519.SignatureSize, len(signatureBytes))
	}

	return ed25519.Verify(ed25519.PublicKey(publicKeyBytes), message, signatureBytes), nil
}

// decodeSignature accepts standard, URL-safe and unpadded base64.
func decodeSignature(s string) ([]byte, error) {
	var firstErr error
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.URLEncoding, base64.RawStdEncoding, base64.RawURLEncoding} {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// verifyCaller checks that body was signed by caller.
func verifyCaller(caller string, body []byte, signature string) error {
	if signature == "" {
		return fmt.Errorf("%w: missing %s header", errInvalidSignature, SignatureHeader)
	}
	ok, err := verifyEd25519Signature(caller, body, signature)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidSignature, err)
	}
	if !ok {
		return errInvalidSignature
	}
	return nil
}
