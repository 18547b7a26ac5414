package scan_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapeo-pos/server/internal/scan"
)

type mockOCR struct {
	text string
	err  error
}

func (m *mockOCR) ExtractText(ctx context.Context, imagePath string) (string, error) {
	return m.text, m.err
}

type mockLLM struct {
	completion string
	err        error
	gotPrompt  string
}

func (m *mockLLM) Complete(ctx context.Context, prompt string) (string, error) {
	m.gotPrompt = prompt
	return m.completion, m.err
}

func TestNormalizeAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"12.50", "12.50"},
		{"12,50", "12.50"},
		{"12,50 €", "12.50"},
		{"1.250,30", "1250.30"},
		{"1250", "12.50"},   // missing separator, implicit cents
		{"850", "8.50"},     // missing separator, implicit cents
		{"85", "85.00"},     // too short for the cents heuristic
		{"  24,90€ ", "24.90"},
		{"", "0.00"},
		{"n/a", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, scan.NormalizeAmount(tt.raw).StringFixed(2))
		})
	}
}

func TestScanInvoice(t *testing.T) {
	llm := &mockLLM{completion: `{
		"supplier": "Distribuciones García",
		"date": "12/05/2025",
		"total": "83,30",
		"items": [
			{"description": "Carne picada 5kg", "quantity": 2, "price": "32,40"},
			{"description": "Pan de hamburguesa", "quantity": 10, "price": "185"}
		]
	}`}
	svc := scan.NewService(&mockOCR{text: "FACTURA ..."}, llm)

	got, err := svc.ScanInvoice(context.Background(), "/tmp/factura.jpg")
	require.NoError(t, err)

	assert.True(t, got.RequiresReview, "scan output is advisory only")
	assert.Equal(t, "Distribuciones García", got.Supplier)
	assert.Equal(t, "83.30", got.Total.StringFixed(2))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "32.40", got.Items[0].UnitPrice.StringFixed(2))
	assert.Equal(t, "1.85", got.Items[1].UnitPrice.StringFixed(2)) // decimal-shift heuristic
	assert.Equal(t, "FACTURA ...", got.RawText)
	assert.Contains(t, llm.gotPrompt, "FACTURA ...")
}

func TestScanTicketStripsCodeFences(t *testing.T) {
	llm := &mockLLM{completion: "```json\n{\"date\": \"01/06/2025\", \"total\": \"42,10\", \"items\": []}\n```"}
	svc := scan.NewService(&mockOCR{text: "TICKET"}, llm)

	got, err := svc.ScanTicket(context.Background(), "/tmp/ticket.jpg")
	require.NoError(t, err)
	assert.Equal(t, "42.10", got.Total.StringFixed(2))
	assert.True(t, got.RequiresReview)
}

func TestScanRequiresConfiguration(t *testing.T) {
	svc := scan.NewService(nil, nil)
	assert.False(t, svc.Enabled())

	_, err := svc.ScanInvoice(context.Background(), "/tmp/x.jpg")
	assert.ErrorIs(t, err, scan.ErrNotConfigured)
}

func TestScanSurfacesModelGarbage(t *testing.T) {
	svc := scan.NewService(&mockOCR{text: "x"}, &mockLLM{completion: "sorry, I cannot do that"})

	_, err := svc.ScanInvoice(context.Background(), "/tmp/x.jpg")
	assert.Error(t, err)
}
