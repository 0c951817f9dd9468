package core

import (
	"context"
	"strings"

	"coffeeroaster/pkg/domain"
)

// PrintProfile is the company letterhead block used by printed documents.
type PrintProfile struct {
	Company        string `json:"company"`
	TIN            string `json:"tin"`
	VATReg         string `json:"vat_reg"`
	Phone          string `json:"phone"`
	AddressDisplay string `json:"address_display"`
}

// CompanyPrintProfile resolves the letterhead values of a company. Unknown
// or empty companies yield an empty profile.
func (s *Service) CompanyPrintProfile(ctx context.Context, company string) (PrintProfile, error) {
	profile := PrintProfile{Company: company}
	if strings.TrimSpace(company) == "" {
		return profile, nil
	}
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		c, ok := domain.Find[domain.Company](v, company)
		if !ok {
			return nil
		}
		profile = printProfileOf(c)
		return nil
	})
	return profile, err
}

func printProfileOf(c domain.Company) PrintProfile {
	field := func(named string, candidates ...string) string {
		if v := strings.TrimSpace(named); v != "" {
			return v
		}
		for _, k := range candidates {
			if v := strings.TrimSpace(c.Attributes[k]); v != "" {
				return v
			}
		}
		return ""
	}
	return PrintProfile{
		Company:        c.ID,
		TIN:            field(c.TaxID),
		VATReg:         field(c.VATRegistrationNumber, "vat_id", "vat_reg_no", "vat_no", "company_vat_number"),
		Phone:          field(c.PhoneNo, "phone", "phone_number"),
		AddressDisplay: field(addressDisplay(c.Address)),
	}
}

func addressDisplay(a domain.Address) string {
	if a.Display != "" {
		return a.Display
	}
	var parts []string
	for _, p := range []string{a.Line1, a.Line2, a.City, a.State, a.Pincode, a.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
