package sage

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"coffeeroaster/pkg/domain"
)

// File is one member of the export archive.
type File struct {
	Name    string
	Content string
}

// Pack is the monthly export for one company.
type Pack struct {
	Company string
	Period  Period
	Files   []File
}

// Options tune pack assembly.
type Options struct {
	// PriceList is the list tried first for item prices.
	PriceList string
}

// Build renders the six export files from view. The files are independent,
// so they are built concurrently; view must be safe for concurrent reads.
func Build(ctx context.Context, view domain.TransactionView, company string, p Period, opts Options) (Pack, error) {
	if company == "" {
		return Pack{}, domain.Invalidf("Company is required for the Sage export.")
	}
	if opts.PriceList == "" {
		opts.PriceList = DefaultPriceList
	}
	ym := p.YYYYMM()
	files := []File{
		{Name: "COA_" + ym + ".txt"},
		{Name: "Customers_" + ym + ".txt"},
		{Name: "Suppliers_" + ym + ".txt"},
		{Name: "Items_" + ym + ".txt"},
		{Name: "Sales_" + ym + ".txt"},
		{Name: "GeneralJournal_" + ym + ".txt"},
	}
	renders := []func() string{
		func() string { return TabText(COAHeader, COARows(view, company)) },
		func() string { return TabText(CustomerHeader, CustomerRows(view)) },
		func() string { return TabText(SupplierHeader, SupplierRows(view)) },
		func() string { return TabText(ItemHeader, ItemRows(view, company, opts.PriceList)) },
		func() string { return TabText(SalesHeader, SalesRows(view, company, p)) },
		func() string { return TabTextCRLF(JournalRows(view, company, p)) },
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, render := range renders {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			files[i].Content = render()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Pack{}, fmt.Errorf("build sage pack: %w", err)
	}
	return Pack{Company: company, Period: p, Files: files}, nil
}

// ZipName is the archive file name, e.g. SAGE_Acme_Coffee_202503.zip.
func (p Pack) ZipName() string {
	return fmt.Sprintf("SAGE_%s_%s.zip", Slug(p.Company), p.Period.YYYYMM())
}

// Subject is the e-mail subject used when the pack is mailed.
func (p Pack) Subject() string {
	return fmt.Sprintf("Sage Monthly Export - %s %s", p.Company, p.Period.YYYYMM())
}

// Body is the e-mail body used when the pack is mailed.
func (p Pack) Body() string {
	return fmt.Sprintf("Attached is the Sage monthly export for %s (%s).", p.Company, p.Period.YYYYMM())
}

// Zip compresses the files with DEFLATE in pack order.
func (p Pack) Zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range p.Files {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: f.Name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
		if _, err := w.Write([]byte(f.Content)); err != nil {
			return nil, fmt.Errorf("zip %s: %w", f.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}
