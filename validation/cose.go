package validation

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/veraison/go-cose"

	"github.com/cloudx-io/clickauction/report"
)

// ExtractCOSEPayload decodes a signed export without verifying it.
// COSE_Sign1 structure: [protected, unprotected, payload, signature]
func ExtractCOSEPayload(signed []byte) (*report.Envelope, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}
	return report.UnmarshalCBOR(msg.Payload)
}

// VerifyCOSESignature verifies an ES256 COSE_Sign1 export against publicKey
// and returns the decoded envelope
func VerifyCOSESignature(signed []byte, publicKey *ecdsa.PublicKey) (*report.Envelope, error) {
	var msg cose.Sign1Message
	if err := msg.UnmarshalCBOR(signed); err != nil {
		return nil, fmt.Errorf("parse COSE_Sign1: %w", err)
	}

	verifier, err := cose.NewVerifier(cose.AlgorithmES256, publicKey)
	if err != nil {
		return nil, fmt.Errorf("create verifier: %w", err)
	}

	if err := msg.Verify(nil, verifier); err != nil {
		return nil, fmt.Errorf("COSE signature verification failed: %w", err)
	}

	return report.UnmarshalCBOR(msg.Payload)
}
