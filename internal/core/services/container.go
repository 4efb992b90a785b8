package services

import (
	portsrepo "github.com/dukabook/dukabook_backend/internal/core/ports/repositories"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/pkg/config"
)

// NewServiceContainer wires every service with its repositories and the
// bookkeeping tunables from configuration.
func NewServiceContainer(repos portsrepo.RepositoryProvider, cfg *config.Config) *portssvc.ServiceContainer {
	accountSvc := NewAccountService(repos.AccountRepo)
	ledgerSvc := NewLedgerService(repos.JournalRepo, accountSvc)
	productSvc := NewProductService(repos.ProductRepo)
	costingSvc := NewCostingService(repos.ProductRepo)
	adjustmentSvc := NewAdjustmentService(repos.ProductRepo, repos.AdjustmentRepo, accountSvc, ledgerSvc, AdjustmentConfig{
		InventoryAccountCode: cfg.InventoryAccountCode,
		PostingThreshold:     cfg.GLPostingThreshold,
	})
	reconciliationSvc := NewReconciliationService(repos.BankLineRepo, repos.JournalRepo, accountSvc, ReconciliationConfig{
		Tolerance: cfg.ReconciliationTolerance,
	})

	return &portssvc.ServiceContainer{
		Account:        accountSvc,
		Ledger:         ledgerSvc,
		Product:        productSvc,
		Costing:        costingSvc,
		Adjustment:     adjustmentSvc,
		Reconciliation: reconciliationSvc,
	}
}
