package core

import (
	"context"

	"coffeeroaster/pkg/domain"
)

// SubmitSalesInvoice recomputes VAT and submits the invoice. Submitted
// invoices feed the sales reports and the monthly export.
func (s *Service) SubmitSalesInvoice(ctx context.Context, id string) (domain.SalesInvoice, Result, error) {
	return submitDraft[domain.SalesInvoice](ctx, s, "submit_sales_invoice", id)
}
