package services_test

import (
	"context"
	"strings"
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

type ReconciliationServiceTestSuite struct {
	suite.Suite
	mockBankRepo    *MockBankLineRepository
	mockJournalRepo *MockJournalRepository
	mockAccountSvc  *MockAccountService
	service         portssvc.ReconciliationSvcFacade
	companyID       string
	userID          string
	bankAccount     domain.Account
}

func (suite *ReconciliationServiceTestSuite) SetupTest() {
	suite.mockBankRepo = new(MockBankLineRepository)
	suite.mockJournalRepo = new(MockJournalRepository)
	suite.mockAccountSvc = new(MockAccountService)
	suite.service = services.NewReconciliationService(
		suite.mockBankRepo,
		suite.mockJournalRepo,
		suite.mockAccountSvc,
		services.ReconciliationConfig{Tolerance: decimal.RequireFromString("0.05")},
	)

	suite.companyID = uuid.NewString()
	suite.userID = uuid.NewString()
	suite.bankAccount = domain.Account{
		AccountID:   uuid.NewString(),
		CompanyID:   suite.companyID,
		Code:        "1010",
		AccountType: domain.Asset,
		IsActive:    true,
	}
}

func (suite *ReconciliationServiceTestSuite) expectTx() {
	suite.mockBankRepo.On("Begin", mock.Anything).Return(nil, nil).Once()
	suite.mockBankRepo.On("Rollback", mock.Anything, mock.Anything).Return(nil).Maybe()
}

func (suite *ReconciliationServiceTestSuite) bankLine(credit, debit string) domain.BankStatementLine {
	return domain.BankStatementLine{
		BankLineID: uuid.NewString(),
		CompanyID:  suite.companyID,
		AccountID:  suite.bankAccount.AccountID,
		LineDate:   time.Now(),
		Credit:     decimal.RequireFromString(credit),
		Debit:      decimal.RequireFromString(debit),
		Source:     domain.BankLineWebhook,
	}
}

func (suite *ReconciliationServiceTestSuite) ledgerLine(amount string, lineType domain.LineType) domain.EntryLine {
	return domain.EntryLine{
		LineID:    uuid.NewString(),
		EntryID:   uuid.NewString(),
		AccountID: suite.bankAccount.AccountID,
		Amount:    decimal.RequireFromString(amount),
		LineType:  lineType,
	}
}

func ids(bankLines []domain.BankStatementLine, ledgerLines []domain.EntryLine) ([]string, []string) {
	bankIDs := make([]string, len(bankLines))
	for i := range bankLines {
		bankIDs[i] = bankLines[i].BankLineID
	}
	ledgerIDs := make([]string, len(ledgerLines))
	for i := range ledgerLines {
		ledgerIDs[i] = ledgerLines[i].LineID
	}
	return bankIDs, ledgerIDs
}

func (suite *ReconciliationServiceTestSuite) TestReconcile_WithinTolerance() {
	ctx := context.Background()
	// Bank shows 499.98 in, ledger recorded a 500.00 debit to the bank account.
	bankLines := []domain.BankStatementLine{suite.bankLine("499.98", "0")}
	ledgerLines := []domain.EntryLine{suite.ledgerLine("500.00", domain.Debit)}
	bankIDs, ledgerIDs := ids(bankLines, ledgerLines)
	req := dto.ReconcileRequest{BankLineIDs: bankIDs, LedgerLineIDs: ledgerIDs}

	suite.expectTx()
	suite.mockBankRepo.On("FindBankLinesByIDsForUpdate", ctx, mock.Anything, bankIDs).Return(bankLines, nil).Once()
	suite.mockJournalRepo.On("FindLinesByIDsForUpdate", ctx, mock.Anything, suite.companyID, ledgerIDs).Return(ledgerLines, nil).Once()
	suite.mockBankRepo.On("MarkBankLinesMatchedInTx", ctx, mock.Anything, bankIDs, suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil).Once()
	suite.mockJournalRepo.On("MarkLinesMatchedInTx", ctx, mock.Anything, ledgerIDs, suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil).Once()
	suite.mockBankRepo.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()

	err := suite.service.Reconcile(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
	suite.mockBankRepo.AssertExpectations(suite.T())
	suite.mockJournalRepo.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestReconcile_ManyToOne() {
	ctx := context.Background()
	// Two deposits against one combined ledger line.
	bankLines := []domain.BankStatementLine{
		suite.bankLine("300.00", "0"),
		suite.bankLine("200.00", "0"),
	}
	ledgerLines := []domain.EntryLine{suite.ledgerLine("500.00", domain.Debit)}
	bankIDs, ledgerIDs := ids(bankLines, ledgerLines)
	req := dto.ReconcileRequest{BankLineIDs: bankIDs, LedgerLineIDs: ledgerIDs}

	suite.expectTx()
	suite.mockBankRepo.On("FindBankLinesByIDsForUpdate", ctx, mock.Anything, bankIDs).Return(bankLines, nil).Once()
	suite.mockJournalRepo.On("FindLinesByIDsForUpdate", ctx, mock.Anything, suite.companyID, ledgerIDs).Return(ledgerLines, nil).Once()
	suite.mockBankRepo.On("MarkBankLinesMatchedInTx", ctx, mock.Anything, bankIDs, suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(2), nil).Once()
	suite.mockJournalRepo.On("MarkLinesMatchedInTx", ctx, mock.Anything, ledgerIDs, suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(1), nil).Once()
	suite.mockBankRepo.On("Commit", mock.Anything, mock.Anything).Return(nil).Once()

	err := suite.service.Reconcile(ctx, suite.companyID, req, suite.userID)

	suite.Require().NoError(err)
}

func (suite *ReconciliationServiceTestSuite) TestReconcile_AmountMismatch() {
	ctx := context.Background()
	bankLines := []domain.BankStatementLine{suite.bankLine("450.00", "0")}
	ledgerLines := []domain.EntryLine{suite.ledgerLine("500.00", domain.Debit)}
	bankIDs, ledgerIDs := ids(bankLines, ledgerLines)
	req := dto.ReconcileRequest{BankLineIDs: bankIDs, LedgerLineIDs: ledgerIDs}

	suite.expectTx()
	suite.mockBankRepo.On("FindBankLinesByIDsForUpdate", ctx, mock.Anything, bankIDs).Return(bankLines, nil).Once()
	suite.mockJournalRepo.On("FindLinesByIDsForUpdate", ctx, mock.Anything, suite.companyID, ledgerIDs).Return(ledgerLines, nil).Once()

	err := suite.service.Reconcile(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrAmountMismatch)
	suite.mockBankRepo.AssertNotCalled(suite.T(), "MarkBankLinesMatchedInTx", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	suite.mockBankRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestReconcile_AlreadyMatchedLine() {
	ctx := context.Background()
	matched := suite.bankLine("500.00", "0")
	matched.IsMatched = true
	bankLines := []domain.BankStatementLine{matched}
	ledgerLines := []domain.EntryLine{suite.ledgerLine("500.00", domain.Debit)}
	bankIDs, ledgerIDs := ids(bankLines, ledgerLines)
	req := dto.ReconcileRequest{BankLineIDs: bankIDs, LedgerLineIDs: ledgerIDs}

	suite.expectTx()
	suite.mockBankRepo.On("FindBankLinesByIDsForUpdate", ctx, mock.Anything, bankIDs).Return(bankLines, nil).Once()
	suite.mockJournalRepo.On("FindLinesByIDsForUpdate", ctx, mock.Anything, suite.companyID, ledgerIDs).Return(ledgerLines, nil).Once()

	err := suite.service.Reconcile(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrLineAlreadyMatched)
}

func (suite *ReconciliationServiceTestSuite) TestReconcile_ConcurrentModification() {
	ctx := context.Background()
	bankLines := []domain.BankStatementLine{suite.bankLine("500.00", "0")}
	ledgerLines := []domain.EntryLine{suite.ledgerLine("500.00", domain.Debit)}
	bankIDs, ledgerIDs := ids(bankLines, ledgerLines)
	req := dto.ReconcileRequest{BankLineIDs: bankIDs, LedgerLineIDs: ledgerIDs}

	suite.expectTx()
	suite.mockBankRepo.On("FindBankLinesByIDsForUpdate", ctx, mock.Anything, bankIDs).Return(bankLines, nil).Once()
	suite.mockJournalRepo.On("FindLinesByIDsForUpdate", ctx, mock.Anything, suite.companyID, ledgerIDs).Return(ledgerLines, nil).Once()
	// Another session matched the bank line first: the guarded update hits 0 rows.
	suite.mockBankRepo.On("MarkBankLinesMatchedInTx", ctx, mock.Anything, bankIDs, suite.userID, mock.AnythingOfType("time.Time")).
		Return(int64(0), nil).Once()

	err := suite.service.Reconcile(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, services.ErrConcurrentModification)
	suite.mockBankRepo.AssertNotCalled(suite.T(), "Commit", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestReconcile_MissingBankLine() {
	ctx := context.Background()
	bankIDs := []string{uuid.NewString(), uuid.NewString()}
	ledgerIDs := []string{uuid.NewString()}
	req := dto.ReconcileRequest{BankLineIDs: bankIDs, LedgerLineIDs: ledgerIDs}

	suite.expectTx()
	suite.mockBankRepo.On("FindBankLinesByIDsForUpdate", ctx, mock.Anything, bankIDs).
		Return([]domain.BankStatementLine{suite.bankLine("100.00", "0")}, nil).Once()

	err := suite.service.Reconcile(ctx, suite.companyID, req, suite.userID)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrNotFound)
}

func (suite *ReconciliationServiceTestSuite) TestIngestWebhookLine_Inserted() {
	ctx := context.Background()
	req := dto.WebhookBankLineRequest{
		TransactionRef: "MPESA-TX-001",
		AccountCode:    "1010",
		Date:           time.Now(),
		Description:    "Customer payment",
		Credit:         decimal.RequireFromString("250.00"),
	}

	suite.mockAccountSvc.On("GetAccountByCode", ctx, suite.companyID, "1010").Return(&suite.bankAccount, nil).Once()
	suite.mockBankRepo.On("UpsertWebhookLine", ctx, mock.MatchedBy(func(l domain.BankStatementLine) bool {
		return l.ProviderRef == "MPESA-TX-001" &&
			l.AccountID == suite.bankAccount.AccountID &&
			l.Source == domain.BankLineWebhook &&
			l.Credit.Equal(decimal.RequireFromString("250.00"))
	})).Return(true, nil).Once()

	inserted, err := suite.service.IngestWebhookLine(ctx, suite.companyID, req)

	suite.Require().NoError(err)
	suite.True(inserted)
	suite.mockBankRepo.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestIngestWebhookLine_DuplicateDelivery() {
	ctx := context.Background()
	req := dto.WebhookBankLineRequest{
		TransactionRef: "MPESA-TX-001",
		AccountCode:    "1010",
		Date:           time.Now(),
		Credit:         decimal.RequireFromString("250.00"),
	}

	suite.mockAccountSvc.On("GetAccountByCode", ctx, suite.companyID, "1010").Return(&suite.bankAccount, nil).Once()
	suite.mockBankRepo.On("UpsertWebhookLine", ctx, mock.AnythingOfType("domain.BankStatementLine")).
		Return(false, nil).Once()

	inserted, err := suite.service.IngestWebhookLine(ctx, suite.companyID, req)

	suite.Require().NoError(err)
	suite.False(inserted)
}

func (suite *ReconciliationServiceTestSuite) TestIngestWebhookLine_UnknownAccountSkipped() {
	ctx := context.Background()
	req := dto.WebhookBankLineRequest{
		TransactionRef: "MPESA-TX-002",
		AccountCode:    "9999",
		Date:           time.Now(),
		Credit:         decimal.RequireFromString("10.00"),
	}

	suite.mockAccountSvc.On("GetAccountByCode", ctx, suite.companyID, "9999").Return(nil, apperrors.ErrNotFound).Once()

	inserted, err := suite.service.IngestWebhookLine(ctx, suite.companyID, req)

	suite.Require().NoError(err)
	suite.False(inserted)
	suite.mockBankRepo.AssertNotCalled(suite.T(), "UpsertWebhookLine", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestIngestWebhookLine_BothSidesRejected() {
	ctx := context.Background()
	req := dto.WebhookBankLineRequest{
		TransactionRef: "MPESA-TX-003",
		AccountCode:    "1010",
		Date:           time.Now(),
		Debit:          decimal.RequireFromString("10.00"),
		Credit:         decimal.RequireFromString("10.00"),
	}

	_, err := suite.service.IngestWebhookLine(ctx, suite.companyID, req)

	suite.Require().Error(err)
	suite.ErrorIs(err, apperrors.ErrValidation)
}

func (suite *ReconciliationServiceTestSuite) TestImportStatementCSV() {
	ctx := context.Background()
	csvData := strings.Join([]string{
		"date,description,debit,credit,balance",
		"2026-08-01,Card settlement,0,1500.00,12500.00",
		"2026-08-02,Bank charges,35.50,0,12464.50",
		"not-a-date,Broken row,x,y",
		"2026-08-03,Missing amounts,0,0",
		"2026-08-04,Supplier payment,820.00,,11644.50",
	}, "\n")

	suite.mockAccountSvc.On("GetAccountByID", ctx, suite.companyID, suite.bankAccount.AccountID).
		Return(&suite.bankAccount, nil).Once()
	suite.mockBankRepo.On("InsertLines", ctx, mock.MatchedBy(func(lines []domain.BankStatementLine) bool {
		if len(lines) != 3 {
			return false
		}
		return lines[0].Credit.Equal(decimal.RequireFromString("1500.00")) &&
			lines[0].Source == domain.BankLineManual &&
			lines[1].Debit.Equal(decimal.RequireFromString("35.50")) &&
			lines[2].Debit.Equal(decimal.RequireFromString("820.00"))
	})).Return(nil).Once()

	result, err := suite.service.ImportStatementCSV(ctx, suite.companyID, suite.bankAccount.AccountID, strings.NewReader(csvData), suite.userID)

	suite.Require().NoError(err)
	suite.Equal(3, result.Imported)
	suite.Equal(2, result.Skipped)
	suite.mockBankRepo.AssertExpectations(suite.T())
}

func (suite *ReconciliationServiceTestSuite) TestImportStatementCSV_EmptyFile() {
	ctx := context.Background()

	suite.mockAccountSvc.On("GetAccountByID", ctx, suite.companyID, suite.bankAccount.AccountID).
		Return(&suite.bankAccount, nil).Once()

	result, err := suite.service.ImportStatementCSV(ctx, suite.companyID, suite.bankAccount.AccountID, strings.NewReader(""), suite.userID)

	suite.Require().NoError(err)
	suite.Equal(0, result.Imported)
	suite.Equal(0, result.Skipped)
	suite.mockBankRepo.AssertNotCalled(suite.T(), "InsertLines", mock.Anything, mock.Anything)
}

func (suite *ReconciliationServiceTestSuite) TestProposeMatches() {
	ctx := context.Background()
	bankLines := []domain.BankStatementLine{suite.bankLine("100.00", "0")}
	ledgerLines := []domain.EntryLine{suite.ledgerLine("100.00", domain.Debit)}

	suite.mockAccountSvc.On("GetAccountByID", ctx, suite.companyID, suite.bankAccount.AccountID).
		Return(&suite.bankAccount, nil).Once()
	suite.mockBankRepo.On("FindUnmatchedByAccount", ctx, suite.companyID, suite.bankAccount.AccountID).
		Return(bankLines, nil).Once()
	suite.mockJournalRepo.On("FindUnmatchedLinesByAccount", ctx, suite.companyID, suite.bankAccount.AccountID).
		Return(ledgerLines, nil).Once()

	resp, err := suite.service.ProposeMatches(ctx, suite.companyID, suite.bankAccount.AccountID)

	suite.Require().NoError(err)
	suite.Len(resp.BankLines, 1)
	suite.Len(resp.LedgerLines, 1)
}

func TestReconciliationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ReconciliationServiceTestSuite))
}
