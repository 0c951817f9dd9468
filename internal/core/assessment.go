package core

import (
	"context"

	"coffeeroaster/pkg/domain"
)

// SubmitGreenBeanAssessment submits a QC assessment and moves the lot out
// of the QC pending warehouse: to the accepted warehouse on Pass, to the
// rejected warehouse otherwise.
func (s *Service) SubmitGreenBeanAssessment(ctx context.Context, id string) (domain.GreenBeanAssessment, Result, error) {
	var submitted domain.GreenBeanAssessment
	res, err := s.run(ctx, "submit_green_bean_assessment", domain.EntityGreenBeanAssessment, domain.ActionUpdate, func(tx domain.Transaction) error {
		gba, err := domain.Get[domain.GreenBeanAssessment](tx, id)
		if err != nil {
			return err
		}
		if gba.DocStatus != domain.DocStatusDraft {
			return domain.Invalidf("Green Bean Assessment %s is already %s.", id, gba.DocStatus)
		}
		if gba.BatchNo == "" || gba.ItemCode == "" {
			return domain.Invalidf("Batch No and Item Code are required.")
		}
		if gba.TotalQty <= 0 {
			return domain.Invalidf("Total Qty must be greater than zero for QC transfer.")
		}
		st := s.settingsIn(tx)
		target := st.QCRejectedWarehouse
		if gba.QCResult == domain.QCResultPass {
			target = st.QCAcceptedWarehouse
		}
		se, err := s.postStockEntry(tx, domain.StockEntry{
			StockEntryType: domain.StockEntryMaterialTransfer,
			Company:        st.DefaultCompany,
			PostingDate:    gba.AssessmentDate,
			ReferenceType:  domain.EntityGreenBeanAssessment,
			ReferenceName:  id,
			Items: []domain.StockEntryDetail{{
				ItemCode:         gba.ItemCode,
				Qty:              gba.TotalQty,
				UOM:              DefaultUOM,
				ConversionFactor: 1,
				SWarehouse:       st.QCPendingWarehouse,
				TWarehouse:       target,
				BatchNo:          gba.BatchNo,
			}},
		})
		if err != nil {
			return err
		}
		submitted, err = domain.Update[domain.GreenBeanAssessment](tx, id, func(cur *domain.GreenBeanAssessment) error {
			cur.StockEntry = se.ID
			cur.DocStatus = domain.DocStatusSubmitted
			return nil
		})
		if err == nil {
			s.logger.Info("qc transfer posted", "assessment", id, "result", gba.QCResult, "target", target, "stock_entry", se.ID)
		}
		return err
	}, constID(id))
	return submitted, res, err
}

// SubmitCuppingAssessment submits one of the four cupping forms.
func (s *Service) SubmitCuppingAssessment(ctx context.Context, id string) (domain.CuppingAssessment, Result, error) {
	return submitDraft[domain.CuppingAssessment](ctx, s, "submit_cupping_assessment", id)
}

// submitDraft flips a draft document without side effects to submitted.
func submitDraft[T any, PT domain.RecordPtr[T]](ctx context.Context, s *Service, op, id string) (T, Result, error) {
	entity := domain.EntityOf[T, PT]()
	var submitted T
	res, err := s.run(ctx, op, entity, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		submitted, err = domain.Update[T, PT](tx, id, func(cur *T) error {
			if status, _ := docStatus(PT(cur)); status != domain.DocStatusDraft {
				return domain.Invalidf("%s %s is already %s.", entity, id, status)
			}
			if err := s.beforeSave(tx, PT(cur)); err != nil {
				return err
			}
			setDocStatus(PT(cur), domain.DocStatusSubmitted)
			return nil
		})
		return err
	}, constID(id))
	return submitted, res, err
}
