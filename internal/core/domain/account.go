package domain

// AccountType defines the fundamental accounting type of an account.
type AccountType string

const (
	Asset     AccountType = "ASSET"
	Liability AccountType = "LIABILITY"
	Equity    AccountType = "EQUITY"
	Revenue   AccountType = "REVENUE"
	Expense   AccountType = "EXPENSE"
)

// Account represents a general-ledger account within the chart of accounts.
// Accounts are provisioned per company and are looked up by the core, never
// auto-created by it.
type Account struct {
	AccountID   string      `json:"accountID"`   // Primary Key (UUID)
	CompanyID   string      `json:"companyID"`   // Owning tenant (NON-NULL)
	Code        string      `json:"code"`        // Ledger code, unique per company (e.g. "1400")
	Name        string      `json:"name"`        // User-defined name
	AccountType AccountType `json:"accountType"` // ASSET, LIABILITY, etc.
	Subtype     string      `json:"subtype"`     // Free-form classification, e.g. "Bank", "Cash", "Inventory"
	Description string      `json:"description"` // Nullable user description
	// Bank metadata, only meaningful for Subtype "Bank" accounts.
	BankProvider      string `json:"bankProvider,omitempty"`
	BankAccountNumber string `json:"bankAccountNumber,omitempty"`
	IsActive          bool   `json:"isActive"`
	AuditFields
}

// IsPostable reports whether new journal lines may reference this account.
func (a Account) IsPostable() bool {
	return a.IsActive
}
