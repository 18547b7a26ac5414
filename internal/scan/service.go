// Package scan digitizes supplier invoices and sales tickets: OCR
// first, then a local LLM extracts structured fields from the raw
// text. Everything it produces is a suggestion the user must confirm;
// nothing is persisted from here.
package scan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

var ErrNotConfigured = errors.New("scan stack is not configured")

type SuggestedItem struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type InvoiceSuggestion struct {
	Supplier       string          `json:"supplier"`
	Date           string          `json:"date"`
	Total          decimal.Decimal `json:"total"`
	Items          []SuggestedItem `json:"items"`
	RawText        string          `json:"raw_text"`
	RequiresReview bool            `json:"requires_review"`
}

type TicketSuggestion struct {
	Date           string          `json:"date"`
	Total          decimal.Decimal `json:"total"`
	Items          []SuggestedItem `json:"items"`
	RawText        string          `json:"raw_text"`
	RequiresReview bool            `json:"requires_review"`
}

type Service struct {
	ocr OCR
	llm LLM
}

// NewService wires the scan pipeline. Either dependency may be nil, in
// which case the service reports itself as disabled.
func NewService(ocr OCR, llm LLM) *Service {
	return &Service{ocr: ocr, llm: llm}
}

func (s *Service) Enabled() bool {
	return s != nil && s.ocr != nil && s.llm != nil
}

const invoicePrompt = `You are extracting data from a Spanish supplier invoice.
From the OCR text below, return a JSON object with exactly these keys:
"supplier" (string), "date" (string, DD/MM/YYYY if present), "total" (string),
"items" (array of {"description": string, "quantity": number, "price": string}).
Use empty strings or empty arrays when a field is not present. OCR text:

%s`

const ticketPrompt = `You are extracting data from a Spanish restaurant sales ticket.
From the OCR text below, return a JSON object with exactly these keys:
"date" (string, DD/MM/YYYY if present), "total" (string),
"items" (array of {"description": string, "quantity": number, "price": string}).
Use empty strings or empty arrays when a field is not present. OCR text:

%s`

type extractedItem struct {
	Description string      `json:"description"`
	Quantity    json.Number `json:"quantity"`
	Price       string      `json:"price"`
}

type extractedDoc struct {
	Supplier string          `json:"supplier"`
	Date     string          `json:"date"`
	Total    string          `json:"total"`
	Items    []extractedItem `json:"items"`
}

func (s *Service) ScanInvoice(ctx context.Context, imagePath string) (*InvoiceSuggestion, error) {
	doc, raw, err := s.extract(ctx, imagePath, invoicePrompt)
	if err != nil {
		return nil, err
	}

	return &InvoiceSuggestion{
		Supplier:       doc.Supplier,
		Date:           doc.Date,
		Total:          NormalizeAmount(doc.Total),
		Items:          suggestItems(doc.Items),
		RawText:        raw,
		RequiresReview: true,
	}, nil
}

func (s *Service) ScanTicket(ctx context.Context, imagePath string) (*TicketSuggestion, error) {
	doc, raw, err := s.extract(ctx, imagePath, ticketPrompt)
	if err != nil {
		return nil, err
	}

	return &TicketSuggestion{
		Date:           doc.Date,
		Total:          NormalizeAmount(doc.Total),
		Items:          suggestItems(doc.Items),
		RawText:        raw,
		RequiresReview: true,
	}, nil
}

func (s *Service) extract(ctx context.Context, imagePath, prompt string) (*extractedDoc, string, error) {
	if !s.Enabled() {
		return nil, "", ErrNotConfigured
	}

	raw, err := s.ocr.ExtractText(ctx, imagePath)
	if err != nil {
		return nil, "", err
	}

	start := time.Now()
	completion, err := s.llm.Complete(ctx, fmt.Sprintf(prompt, raw))
	if err != nil {
		return nil, "", err
	}
	log.Debug().Dur("llm_duration", time.Since(start)).Msg("Document extraction completed")

	doc := &extractedDoc{}
	if err := json.Unmarshal([]byte(stripFences(completion)), doc); err != nil {
		return nil, "", fmt.Errorf("scan: model returned unparseable JSON: %w", err)
	}
	return doc, raw, nil
}

func suggestItems(items []extractedItem) []SuggestedItem {
	out := make([]SuggestedItem, 0, len(items))
	for _, item := range items {
		qty, err := item.Quantity.Int64()
		if err != nil || qty <= 0 {
			qty = 1
		}
		out = append(out, SuggestedItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    int(qty),
			UnitPrice:   NormalizeAmount(item.Price),
		})
	}
	return out
}

// NormalizeAmount parses an OCR/LLM-reported money string. Spanish
// documents use comma decimals; OCR frequently drops the separator
// entirely, so a bare digit run of three or more is read as having
// implicit cents (e.g. "1250" -> 12.50). This is a heuristic guess:
// callers must surface the result for user review, never persist it
// directly.
func NormalizeAmount(raw string) decimal.Decimal {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimSuffix(cleaned, "€")
	cleaned = strings.TrimPrefix(cleaned, "€")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, " ", "")

	if cleaned == "" {
		return decimal.Zero
	}

	// "1.250,30" style: dot thousands, comma decimals.
	if strings.Contains(cleaned, ",") {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
		cleaned = strings.Replace(cleaned, ",", ".", 1)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}

	// No separator at all: assume the last two digits are cents.
	if !strings.ContainsAny(cleaned, ".") && len(cleaned) >= 3 {
		return d.Shift(-2)
	}
	return d
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
