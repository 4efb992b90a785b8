package dto

import (
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
)

// CreateAccountRequest defines the data needed to create a new account.
type CreateAccountRequest struct {
	Code              string             `json:"code" binding:"required"`
	Name              string             `json:"name" binding:"required"`
	AccountType       domain.AccountType `json:"accountType" binding:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	Subtype           string             `json:"subtype"`
	Description       string             `json:"description"`
	BankProvider      string             `json:"bankProvider"`
	BankAccountNumber string             `json:"bankAccountNumber"`
}

// UpdateAccountRequest defines the data allowed for updating an account.
// Posted-against accounts stay immutable except for descriptive fields, so
// only those are accepted here. Pointers distinguish zero-value updates from
// fields not provided.
type UpdateAccountRequest struct {
	Name              *string `json:"name"`
	Subtype           *string `json:"subtype"`
	Description       *string `json:"description"`
	BankProvider      *string `json:"bankProvider"`
	BankAccountNumber *string `json:"bankAccountNumber"`
}

// AccountResponse defines the data returned for an account.
type AccountResponse struct {
	AccountID         string             `json:"accountID"`
	Code              string             `json:"code"`
	Name              string             `json:"name"`
	AccountType       domain.AccountType `json:"accountType"`
	Subtype           string             `json:"subtype"`
	Description       string             `json:"description"`
	BankProvider      string             `json:"bankProvider,omitempty"`
	BankAccountNumber string             `json:"bankAccountNumber,omitempty"`
	IsActive          bool               `json:"isActive"`
	CreatedAt         time.Time          `json:"createdAt"`
	CreatedBy         string             `json:"createdBy"`
}

// ToAccountResponse converts a domain.Account to AccountResponse DTO.
func ToAccountResponse(acc *domain.Account) AccountResponse {
	return AccountResponse{
		AccountID:         acc.AccountID,
		Code:              acc.Code,
		Name:              acc.Name,
		AccountType:       acc.AccountType,
		Subtype:           acc.Subtype,
		Description:       acc.Description,
		BankProvider:      acc.BankProvider,
		BankAccountNumber: acc.BankAccountNumber,
		IsActive:          acc.IsActive,
		CreatedAt:         acc.CreatedAt,
		CreatedBy:         acc.CreatedBy,
	}
}

// ToAccountResponses converts a slice of domain.Account to []AccountResponse.
func ToAccountResponses(accounts []domain.Account) []AccountResponse {
	responses := make([]AccountResponse, len(accounts))
	for i := range accounts {
		responses[i] = ToAccountResponse(&accounts[i])
	}
	return responses
}
