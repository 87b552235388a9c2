// Package repositories defines interfaces for data persistence.
package repositories

import (
	"context"

	"github.com/ochairo/binscope/internal/domain/entities"
)

// RuleRepository defines the interface for signature rule storage
type RuleRepository interface {
	// ListRules returns every loadable rule, in a stable order
	ListRules(ctx context.Context) ([]*entities.SignatureRule, error)

	// GetRule retrieves a rule by ID
	GetRule(ctx context.Context, id string) (*entities.SignatureRule, error)
}
