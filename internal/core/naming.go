package core

import (
	"coffeeroaster/internal/roasting"
	"coffeeroaster/pkg/domain"
)

// namingSeries lists the document name series per entity. Master data is
// named by its business key and has no series.
var namingSeries = map[domain.EntityType]string{
	domain.EntityStockEntry:          "MAT-STE-.YYYY.-.#####",
	domain.EntityRoastBatch:          "RB-.#####",
	domain.EntityRoastedCoffee:       "RC-.#####",
	domain.EntityBatchCost:           "BC-.#####",
	domain.EntityJournalEntry:        "ACC-JV-.YYYY.-.#####",
	domain.EntitySalesInvoice:        "ACC-SINV-.YYYY.-.#####",
	domain.EntityGreenBeanAssessment: "GBA-.#####",
	domain.EntityCuppingAssessment:   "CA-.#####",
	domain.EntityRoastingLog:         "CRL-.#####",
	domain.EntityRTMAssignment:       "RTM-.#####",
	domain.EntityRoutePlan:           "RP-.YYYY.-.#####",
	domain.EntityMasterRoutePlan:     "MRP-.#####",
}

// assignName gives rec the next name in its entity series when unnamed.
func (s *Service) assignName(view domain.TransactionView, rec domain.Record) {
	meta := rec.Meta()
	if meta.ID != "" {
		return
	}
	series, ok := namingSeries[rec.Entity()]
	if !ok {
		return
	}
	meta.ID = roasting.NextInSeries(series, s.now(), ids(view, rec.Entity()))
}

func ids(view domain.TransactionView, entity domain.EntityType) []string {
	recs := view.Scan(entity)
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Meta().ID)
	}
	return out
}

// insert names and stores rec.
func insert[T any, PT domain.RecordPtr[T]](s *Service, tx domain.Transaction, rec T) (T, error) {
	s.assignName(tx, PT(&rec))
	return domain.Create[T, PT](tx, rec)
}
