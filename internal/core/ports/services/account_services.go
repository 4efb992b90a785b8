package services

import (
	"context"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/dukabook/dukabook_backend/internal/dto"
)

// AccountSvcFacade defines the chart-of-accounts operations.
type AccountSvcFacade interface {
	// CreateAccount provisions a new ledger account for a company.
	CreateAccount(ctx context.Context, companyID string, req dto.CreateAccountRequest, creatorUserID string) (*domain.Account, error)

	// GetAccountByID retrieves an account, scoped to the company.
	GetAccountByID(ctx context.Context, companyID string, accountID string) (*domain.Account, error)

	// GetAccountByCode retrieves an account by its ledger code.
	GetAccountByCode(ctx context.Context, companyID string, code string) (*domain.Account, error)

	// GetAccountsByIDs retrieves multiple accounts as a map keyed by id.
	GetAccountsByIDs(ctx context.Context, companyID string, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts retrieves a paginated list of accounts.
	ListAccounts(ctx context.Context, companyID string, limit int, offset int) ([]domain.Account, error)

	// UpdateAccount updates an account's descriptive fields.
	UpdateAccount(ctx context.Context, companyID string, accountID string, req dto.UpdateAccountRequest, userID string) (*domain.Account, error)

	// DeactivateAccount marks an account inactive; it can no longer be posted against.
	DeactivateAccount(ctx context.Context, companyID string, accountID string, userID string) error
}
