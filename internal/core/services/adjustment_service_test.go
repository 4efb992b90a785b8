package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/dukabook/dukabook_backend/internal/apperrors"
	"github.com/dukabook/dukabook_backend/internal/core/domain"
	portssvc "github.com/dukabook/dukabook_backend/internal/core/ports/services"
	"github.com/dukabook/dukabook_backend/internal/core/services"
	"github.com/dukabook/dukabook_backend/internal/dto"
)

type AdjustmentServiceTestSuite struct {
	suite.Suite
	mockProductRepo    *MockProductRepository
	mockAdjustmentRepo *MockAdjustmentRepository
	mockAccountSvc     *MockAccountService
	mockLedgerSvc      *MockLedgerService
	service            portssvc.AdjustmentSvcFacade
	companyID          string
	userID             string
	offsetAccount      domain.Account
	inventoryAccount   domain.Account
}

func (suite *AdjustmentServiceTestSuite) SetupTest() {
	suite.mockProductRepo = new(MockProductRepository)
	suite.mockAdjustmentRepo = new(MockAdjustmentRepository)
	suite.mockAccountSvc = new(MockAccountService)
	suite.mockLedgerSvc = new(MockLedgerService)
	suite.service = services.NewAdjustmentService(
		suite.mockProductRepo,
		suite.mockAdjustmentRepo,
		suite.mockAccountSvc,
		suite.mockLedgerSvc,
		services.AdjustmentConfig{
			InventoryAccountCode: "1400",
			PostingThreshold:     decimal.RequireFromString("0.01"),
		},
	)

	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
	suite.offsetAccount = domain.Account{
		AccountID:   uuid.NewString(),
		CompanyID:   suite.companyID,
		Code:        "5400",
		AccountType: domain.Expense,
		IsActive:    true,
	}
	suite.inventoryAccount = domain.Account{
		AccountID:   uuid.NewString(),
		CompanyID:   suite.companyID,
		Code:        "1400",
		AccountType: domain.Asset,
		IsActive:    true,
	}
}

func (suite *AdjustmentServiceTestSuite) wacProduct(stock, avgCost string) *domain.Product {
	return &domain.Product{
		ProductID:      uuid.NewString(),
		CompanyID:      suite.companyID,
		SKU:            "SKU-1",
		Name:           "Widget",
		CostingMethod:  domain.WAC,
		CurrentStock:   decimal.RequireFromString(stock),
		CurrentAvgCost: decimal.RequireFromString(avgCost),
	}
}

func (suite *AdjustmentServiceTestSuite) expectAccounts() {
	suite.mockAccountSvc.On("GetAccountByID", mock.Anything, suite.companyID, suite.offsetAccount.AccountID).
		Return(&suite.offsetAccount, nil).Once()
	suite.mockAccountSvc.On("GetAccountByCode", mock.Anything, suite.companyID, "1400").
		Return(&suite.inventoryAccount, nil).Once()
}

func (suite *AdjustmentServiceTestSuite) expectTx() {
	suite.mockProductRepo.On("Begin", mock.Anything).Return(nil, nil).Once()
	suite.mockProductRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_ShrinkageWAC() {
	ctx := context.Background()
	product := suite.wacProduct("100", "10")
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(-20),
		Reason:          "Annual stocktake shortfall",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}
	entryID := uuid.NewString()

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()
	suite.mockAdjustmentRepo.On("SaveAdjustmentInTx", ctx, mock.Anything, mock.MatchedBy(func(a domain.StockAdjustment) bool {
		return a.QuantityChange.Equal(decimal.NewFromInt(-20)) &&
			a.UnitCost.Equal(decimal.NewFromInt(10)) &&
			a.AdjustmentValue.Equal(decimal.NewFromInt(200))
	})).Return(nil).Once()
	suite.mockProductRepo.On("UpdateStockInTx", ctx, mock.Anything, product.ProductID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(80)) }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(10)) }),
		suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerSvc.On("PostEntryInTx", ctx, mock.Anything, suite.companyID, mock.MatchedBy(func(r dto.CreateEntryRequest) bool {
		if len(r.Lines) != 2 || r.SourceRef == nil || r.SourceRef.Type != domain.SourceStockAdjustment {
			return false
		}
		debit, credit := r.Lines[0], r.Lines[1]
		return debit.LineType == domain.Debit &&
			debit.AccountID == suite.offsetAccount.AccountID &&
			debit.Amount.Equal(decimal.NewFromInt(200)) &&
			credit.LineType == domain.Credit &&
			credit.AccountID == suite.inventoryAccount.AccountID &&
			credit.Amount.Equal(decimal.NewFromInt(200))
	}), suite.userID).Return(&domain.JournalEntry{EntryID: entryID}, nil).Once()
	suite.mockAdjustmentRepo.On("SetEntryIDInTx", ctx, mock.Anything, mock.AnythingOfType("string"), entryID).
		Return(nil).Once()
	suite.mockProductRepo.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()

	adjustment, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Require().NotNil(adjustment)
	suite.True(adjustment.AdjustmentValue.Equal(decimal.NewFromInt(200)))
	suite.Require().NotNil(adjustment.EntryID)
	suite.Equal(entryID, *adjustment.EntryID)
	suite.mockProductRepo.AssertExpectations(suite.T())
	suite.mockAdjustmentRepo.AssertExpectations(suite.T())
	suite.mockLedgerSvc.AssertExpectations(suite.T())
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_OverageWAC() {
	ctx := context.Background()
	product := suite.wacProduct("50", "4")
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(5),
		Reason:          "Found during recount",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()
	suite.mockAdjustmentRepo.On("SaveAdjustmentInTx", ctx, mock.Anything, mock.MatchedBy(func(a domain.StockAdjustment) bool {
		return a.QuantityChange.Equal(decimal.NewFromInt(5)) && a.AdjustmentValue.Equal(decimal.NewFromInt(20))
	})).Return(nil).Once()
	suite.mockProductRepo.On("UpdateStockInTx", ctx, mock.Anything, product.ProductID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(55)) }),
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(4)) }),
		suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerSvc.On("PostEntryInTx", ctx, mock.Anything, suite.companyID, mock.MatchedBy(func(r dto.CreateEntryRequest) bool {
		if len(r.Lines) != 2 {
			return false
		}
		debit, credit := r.Lines[0], r.Lines[1]
		return debit.AccountID == suite.inventoryAccount.AccountID &&
			debit.LineType == domain.Debit &&
			credit.AccountID == suite.offsetAccount.AccountID &&
			credit.LineType == domain.Credit
	}), suite.userID).Return(&domain.JournalEntry{EntryID: uuid.NewString()}, nil).Once()
	suite.mockAdjustmentRepo.On("SetEntryIDInTx", ctx, mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil).Once()
	suite.mockProductRepo.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()

	adjustment, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.True(adjustment.AdjustmentValue.Equal(decimal.NewFromInt(20)))
	// Overage never consumes layers and never shifts the average.
	suite.mockProductRepo.AssertNotCalled(suite.T(), "ApplyLayerConsumptionsInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockLedgerSvc.AssertExpectations(suite.T())
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_NegativeStockRejected() {
	ctx := context.Background()
	product := suite.wacProduct("100", "10")
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(-150),
		Reason:          "Bad count",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()

	_, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrNegativeStock)
	suite.mockAdjustmentRepo.AssertNotCalled(suite.T(), "SaveAdjustmentInTx", mock.Anything, mock.Anything, mock.Anything)
	suite.mockProductRepo.AssertNotCalled(suite.T(), "UpdateStockInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockProductRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_NoCostBasis() {
	ctx := context.Background()
	product := suite.wacProduct("100", "0")
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(-10),
		Reason:          "Shrinkage with no cost history",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()

	_, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrNoCostBasis)
	suite.mockProductRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_FIFOShrinkageConsumesLayers() {
	ctx := context.Background()
	product := &domain.Product{
		ProductID:     uuid.NewString(),
		CompanyID:     suite.companyID,
		SKU:           "FIFO-1",
		Name:          "Gadget",
		CostingMethod: domain.FIFO,
		CurrentStock:  decimal.NewFromInt(20),
	}
	layers := []domain.CostLayer{
		{LayerID: "L1", ProductID: product.ProductID, QuantityIn: decimal.NewFromInt(10), RemainingQuantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(5)},
		{LayerID: "L2", ProductID: product.ProductID, QuantityIn: decimal.NewFromInt(10), RemainingQuantity: decimal.NewFromInt(10), UnitCost: decimal.NewFromInt(7)},
	}
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(-15),
		Reason:          "Water damage",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()
	suite.mockProductRepo.On("FindCostLayersForUpdate", ctx, mock.Anything, product.ProductID).
		Return(layers, nil).Once()
	suite.mockAdjustmentRepo.On("SaveAdjustmentInTx", ctx, mock.Anything, mock.MatchedBy(func(a domain.StockAdjustment) bool {
		// 10@5 + 5@7 = 85
		return a.AdjustmentValue.Equal(decimal.RequireFromString("85.00"))
	})).Return(nil).Once()
	suite.mockProductRepo.On("ApplyLayerConsumptionsInTx", ctx, mock.Anything, mock.MatchedBy(func(c []domain.LayerConsumption) bool {
		return len(c) == 2 && c[0].LayerID == "L1" && c[1].LayerID == "L2"
	}), suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockProductRepo.On("UpdateStockInTx", ctx, mock.Anything, product.ProductID,
		mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(decimal.NewFromInt(5)) }),
		mock.Anything, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockLedgerSvc.On("PostEntryInTx", ctx, mock.Anything, suite.companyID, mock.Anything, suite.userID).
		Return(&domain.JournalEntry{EntryID: uuid.NewString()}, nil).Once()
	suite.mockAdjustmentRepo.On("SetEntryIDInTx", ctx, mock.Anything, mock.AnythingOfType("string"), mock.AnythingOfType("string")).
		Return(nil).Once()
	suite.mockProductRepo.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()

	adjustment, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.True(adjustment.AdjustmentValue.Equal(decimal.RequireFromString("85")))
	suite.mockProductRepo.AssertExpectations(suite.T())
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_BelowThresholdSkipsPosting() {
	ctx := context.Background()
	product := suite.wacProduct("100", "0.0004")
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(-1),
		Reason:          "Negligible rounding loss",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()
	suite.mockAdjustmentRepo.On("SaveAdjustmentInTx", ctx, mock.Anything, mock.AnythingOfType("domain.StockAdjustment")).
		Return(nil).Once()
	suite.mockProductRepo.On("UpdateStockInTx", ctx, mock.Anything, product.ProductID,
		mock.Anything, mock.Anything, suite.userID, mock.AnythingOfType("time.Time")).Return(nil).Once()
	suite.mockProductRepo.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()

	adjustment, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.Nil(adjustment.EntryID)
	suite.mockLedgerSvc.AssertNotCalled(suite.T(), "PostEntryInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockAdjustmentRepo.AssertNotCalled(suite.T(), "SetEntryIDInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_MissingInventoryAccount() {
	ctx := context.Background()
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       uuid.NewString(),
		QuantityChange:  decimal.NewFromInt(-5),
		Reason:          "Shrinkage",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.mockAccountSvc.On("GetAccountByID", mock.Anything, suite.companyID, suite.offsetAccount.AccountID).
		Return(&suite.offsetAccount, nil).Once()
	suite.mockAccountSvc.On("GetAccountByCode", mock.Anything, suite.companyID, "1400").
		Return(nil, apperrors.ErrNotFound).Once()

	_, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrMissingInventoryAccount)
	suite.mockProductRepo.AssertNotCalled(suite.T(), "Begin", mock.Anything)
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_ZeroQuantityRejected() {
	ctx := context.Background()
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       uuid.NewString(),
		QuantityChange:  decimal.Zero,
		Reason:          "Nothing changed",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	_, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
	suite.mockAccountSvc.AssertNotCalled(suite.T(), "GetAccountByID", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *AdjustmentServiceTestSuite) TestApplyStockAdjustment_ServiceProductRejected() {
	ctx := context.Background()
	product := suite.wacProduct("0", "0")
	product.IsService = true
	req := dto.CreateStockAdjustmentRequest{
		ProductID:       product.ProductID,
		QuantityChange:  decimal.NewFromInt(-1),
		Reason:          "Impossible",
		OffsetAccountID: suite.offsetAccount.AccountID,
		Date:            time.Now(),
	}

	suite.expectAccounts()
	suite.expectTx()
	suite.mockProductRepo.On("FindProductForUpdate", ctx, mock.Anything, suite.companyID, product.ProductID).
		Return(product, nil).Once()

	_, err := suite.service.ApplyStockAdjustment(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrServiceProductHasNoStock)
}

func TestAdjustmentServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AdjustmentServiceTestSuite))
}
