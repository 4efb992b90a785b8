package services

// ServiceContainer holds all service facades needed by the handlers.
type ServiceContainer struct {
	Account        AccountSvcFacade
	Ledger         LedgerSvcFacade
	Product        ProductSvcFacade
	Costing        CostingSvcFacade
	Adjustment     AdjustmentSvcFacade
	Reconciliation ReconciliationSvcFacade
}
