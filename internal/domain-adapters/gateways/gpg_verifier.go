package gateways

import (
	"context"
	"fmt"

	"github.com/ochairo/binscope/internal/external-adapters/gpg"
)

// gpgVerifier wraps the external GPG adapter to implement RuleVerifier
type gpgVerifier struct {
	verifier *gpg.Verifier
}

// NewGPGVerifier creates a rule verifier trusting the keys in keyringPath
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewGPGVerifier(keyringPath string) (*gpgVerifier, error) {
	v := gpg.NewVerifier()
	if err := v.ImportKeyFromFile(keyringPath); err != nil {
		return nil, fmt.Errorf("failed to load keyring: %w", err)
	}
	return &gpgVerifier{verifier: v}, nil
}

// VerifyDetached verifies a detached signature of a rule file
func (g *gpgVerifier) VerifyDetached(ctx context.Context, dataPath, sigPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := g.verifier.VerifySignatureFromFile(dataPath, sigPath); err != nil {
		return fmt.Errorf("rule signature verification failed: %w", err)
	}
	return nil
}

// Fingerprints lists the trusted key fingerprints
func (g *gpgVerifier) Fingerprints() []string {
	return g.verifier.Fingerprints()
}
