package costing

import (
	"github.com/shopspring/decimal"

	"coffeeroaster/pkg/domain"
)

// DefaultVATRate applies when no rate is configured.
const DefaultVATRate = 0.15

// ApplyVAT recomputes line amounts, the net total, VAT and the grand total
// of a sales invoice. Exempt customers are charged no VAT.
func ApplyVAT(inv *domain.SalesInvoice, rate float64, exempt bool) {
	net := decimal.Zero
	for i := range inv.Items {
		it := &inv.Items[i]
		it.Amount = it.Rate.Mul(decimal.NewFromFloat(it.Qty)).Round(2)
		net = net.Add(it.Amount)
	}
	if exempt {
		rate = 0
	}
	inv.VATRate = rate
	inv.NetTotal = net
	inv.TotalTaxes = net.Mul(decimal.NewFromFloat(rate)).Round(2)
	inv.GrandTotal = net.Add(inv.TotalTaxes)
}
