package core

import (
	"strings"

	"github.com/shopspring/decimal"

	"coffeeroaster/internal/costing"
	"coffeeroaster/internal/roasting"
	"coffeeroaster/internal/routing"
	"coffeeroaster/pkg/domain"
)

// beforeSave runs the validate hooks of a document: derived fields are
// recomputed and user errors abort the save.
func (s *Service) beforeSave(view domain.TransactionView, rec domain.Record) error {
	switch r := rec.(type) {
	case *domain.RoastBatch:
		return roasting.Recompute(r)
	case *domain.RoastedCoffee:
		return calculateWeightLoss(r)
	case *domain.BatchCost:
		s.recomputeBatchCost(view, r)
	case *domain.SalesInvoice:
		if len(r.Items) == 0 {
			return domain.Invalidf("Items are required on Sales Invoice.")
		}
		s.applyInvoiceTotals(view, r)
	case *domain.RTMAssignment:
		return s.validateRTM(view, r)
	case *domain.JournalEntry:
		r.TotalDebit, r.TotalCredit = r.Totals()
	case *domain.CoffeeRoastingLog:
		if r.BatchWeightKg > 0 && r.YieldKg > 0 {
			r.WeightLossPct = (1 - r.YieldKg/r.BatchWeightKg) * 100
		}
	case *domain.CuppingAssessment:
		switch r.Kind {
		case domain.AssessmentDescriptive, domain.AssessmentExtrinsic, domain.AssessmentPhysical, domain.AssessmentAffective:
		default:
			return domain.Invalidf("Unknown assessment kind %q.", r.Kind)
		}
	case *domain.Settings:
		r.ID = domain.SettingsID
	}
	return nil
}

func calculateWeightLoss(rc *domain.RoastedCoffee) error {
	loss, pct, err := roasting.WeightLoss(rc.InputWeight, rc.OutputWeight)
	if err != nil {
		return err
	}
	rc.WeightLoss = loss
	rc.WeightLossPercentage = pct
	return nil
}

// recomputeBatchCost pulls the output weight and company from the roast
// batch before recomputing the totals.
func (s *Service) recomputeBatchCost(view domain.TransactionView, bc *domain.BatchCost) {
	rb, known := domain.Find[domain.RoastBatch](view, bc.BatchNo)
	var output float64
	if known {
		_, output, _ = roasting.EffectiveInOut(rb)
		if bc.Company == "" {
			bc.Company = rb.Company
		}
		if bc.SellingRate.IsZero() && rb.SellingRate > 0 {
			bc.SellingRate = decimal.NewFromFloat(rb.SellingRate)
		}
	}
	if bc.Company == "" {
		bc.Company = s.settingsIn(view).DefaultCompany
	}
	costing.Recompute(bc, output, known)
}

func (s *Service) applyInvoiceTotals(view domain.TransactionView, inv *domain.SalesInvoice) {
	st := s.settingsIn(view)
	if inv.Company == "" {
		inv.Company = st.DefaultCompany
	}
	cust, ok := domain.Find[domain.Customer](view, inv.Customer)
	if ok && inv.CustomerName == "" {
		inv.CustomerName = cust.CustomerName
	}
	for i := range inv.Items {
		it := &inv.Items[i]
		if it.ItemName == "" {
			if item, found := domain.Find[domain.Item](view, it.ItemCode); found {
				it.ItemName = item.ItemName
			}
		}
	}
	costing.ApplyVAT(inv, st.VATRate, ok && cust.TaxExempt)
}

// validateRTM fills the company, customer details and weekday of an RTM
// assignment.
func (s *Service) validateRTM(view domain.TransactionView, a *domain.RTMAssignment) error {
	if a.Company == "" {
		a.Company = s.pickDefaultCompany(view)
		if a.Company == "" {
			return domain.Invalidf("Please set Company or configure a Default Company (Setup → Global Defaults).")
		}
	}
	if a.Customer != "" {
		cust, ok := domain.Find[domain.Customer](view, a.Customer)
		if a.CustomerName == "" {
			a.CustomerName = a.Customer
			if ok && cust.CustomerName != "" {
				a.CustomerName = cust.CustomerName
			}
		}
		if ok {
			if a.SubCity == "" {
				a.SubCity = cust.SubCity
			}
			if a.OutletType == "" {
				a.OutletType = cust.OutletType
			}
			if a.Latitude == 0 && a.Longitude == 0 {
				a.Latitude, a.Longitude = cust.Latitude, cust.Longitude
			}
			if a.DisplayAddress == "" {
				a.DisplayAddress = cust.Address.Display
			}
		}
	}
	a.Day = routing.NormalizeDay(a.Day)
	a.Frequency = strings.TrimSpace(a.Frequency)
	if a.Frequency == "" {
		a.Frequency = domain.FrequencyWeekly
	}
	return nil
}

// pickDefaultCompany returns the settings default company when it exists,
// else the first company on file.
func (s *Service) pickDefaultCompany(view domain.TransactionView) string {
	if c := s.settingsIn(view).DefaultCompany; c != "" {
		if _, ok := domain.Find[domain.Company](view, c); ok {
			return c
		}
	}
	if companies := domain.List[domain.Company](view); len(companies) > 0 {
		return companies[0].ID
	}
	return ""
}
