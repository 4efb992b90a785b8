package dto

import (
	"time"

	"github.com/dukabook/dukabook_backend/internal/core/domain"
	"github.com/shopspring/decimal"
)

// EntryLineRequest defines one line of a journal entry to create.
type EntryLineRequest struct {
	AccountID   string          `json:"accountID" binding:"required"`
	Amount      decimal.Decimal `json:"amount" binding:"required"`
	LineType    domain.LineType `json:"lineType" binding:"required,oneof=DEBIT CREDIT"`
	Description string          `json:"description"`
}

// SourceRefRequest links the entry back to the originating business record.
type SourceRefRequest struct {
	Type domain.SourceType `json:"type" binding:"required,oneof=STOCK_ADJUSTMENT BILL INVOICE PAYMENT"`
	ID   string            `json:"id" binding:"required"`
}

// CreateEntryRequest defines the data needed to create a journal entry.
type CreateEntryRequest struct {
	Date        time.Time          `json:"date" binding:"required"`
	Description string             `json:"description" binding:"required"`
	SourceLabel string             `json:"sourceLabel"`
	SourceRef   *SourceRefRequest  `json:"sourceRef"`
	Draft       bool               `json:"draft"`
	Lines       []EntryLineRequest `json:"lines" binding:"required,min=2,dive"`
}

// EntryLineResponse defines the data returned for an entry line.
type EntryLineResponse struct {
	LineID      string          `json:"lineID"`
	AccountID   string          `json:"accountID"`
	Amount      decimal.Decimal `json:"amount"`
	LineType    domain.LineType `json:"lineType"`
	Description string          `json:"description"`
	IsMatched   bool            `json:"isMatched"`
}

// EntryResponse defines the data returned for a journal entry.
type EntryResponse struct {
	EntryID          string              `json:"entryID"`
	Date             time.Time           `json:"date"`
	Description      string              `json:"description"`
	SourceLabel      string              `json:"sourceLabel"`
	Status           domain.EntryStatus  `json:"status"`
	Amount           decimal.Decimal     `json:"amount"`
	OriginalEntryID  *string             `json:"originalEntryID,omitempty"`
	ReversingEntryID *string             `json:"reversingEntryID,omitempty"`
	CreatedAt        time.Time           `json:"createdAt"`
	CreatedBy        string              `json:"createdBy"`
	Lines            []EntryLineResponse `json:"lines,omitempty"`
}

// ListEntriesResponse wraps a page of journal entries.
type ListEntriesResponse struct {
	Entries []EntryResponse `json:"entries"`
}

// ToEntryLineResponse converts a domain.EntryLine to EntryLineResponse DTO.
func ToEntryLineResponse(l *domain.EntryLine) EntryLineResponse {
	return EntryLineResponse{
		LineID:      l.LineID,
		AccountID:   l.AccountID,
		Amount:      l.Amount,
		LineType:    l.LineType,
		Description: l.Description,
		IsMatched:   l.IsMatched,
	}
}

// ToEntryLineResponses converts a slice of domain.EntryLine to DTOs.
func ToEntryLineResponses(lines []domain.EntryLine) []EntryLineResponse {
	responses := make([]EntryLineResponse, len(lines))
	for i := range lines {
		responses[i] = ToEntryLineResponse(&lines[i])
	}
	return responses
}

// ToEntryResponse converts a domain.JournalEntry to EntryResponse DTO.
func ToEntryResponse(j *domain.JournalEntry) EntryResponse {
	return EntryResponse{
		EntryID:          j.EntryID,
		Date:             j.EntryDate,
		Description:      j.Description,
		SourceLabel:      j.SourceLabel,
		Status:           j.Status,
		Amount:           j.Amount,
		OriginalEntryID:  j.OriginalEntryID,
		ReversingEntryID: j.ReversingEntryID,
		CreatedAt:        j.CreatedAt,
		CreatedBy:        j.CreatedBy,
		Lines:            ToEntryLineResponses(j.Lines),
	}
}
