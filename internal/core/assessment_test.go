package core

import (
	"context"
	"strings"
	"testing"

	"coffeeroaster/pkg/domain"
)

func TestSubmitGreenBeanAssessmentTransfersLot(t *testing.T) {
	tests := []struct {
		result string
		target string
	}{
		{domain.QCResultPass, DefaultQCAcceptedWarehouse},
		{domain.QCResultFail, DefaultQCRejectedWarehouse},
	}
	for _, tc := range tests {
		t.Run(tc.result, func(t *testing.T) {
			ctx := context.Background()
			svc := newTestService(t)
			seedRoastery(t, svc)
			receive(t, svc, itemGreen, DefaultQCPendingWarehouse, "LOT-42", 60)
			gba := mustCreate(t, svc, domain.GreenBeanAssessment{
				BatchNo:        "LOT-42",
				ItemCode:       itemGreen,
				TotalQty:       60,
				QCResult:       tc.result,
				AssessmentDate: fixedNow,
			})

			submitted, _, err := svc.SubmitGreenBeanAssessment(ctx, gba.ID)
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			if submitted.DocStatus != domain.DocStatusSubmitted || submitted.StockEntry == "" {
				t.Fatalf("unexpected assessment %+v", submitted)
			}
			se := mustGet[domain.StockEntry](t, svc, submitted.StockEntry)
			line := se.Items[0]
			if se.StockEntryType != domain.StockEntryMaterialTransfer || line.SWarehouse != DefaultQCPendingWarehouse || line.TWarehouse != tc.target || line.BatchNo != "LOT-42" {
				t.Fatalf("unexpected transfer %+v", se)
			}
			if got := balance(t, svc, itemGreen, tc.target); got != 60 {
				t.Fatalf("expected 60 kg in %s, got %v", tc.target, got)
			}
			if got := balance(t, svc, itemGreen, DefaultQCPendingWarehouse); got != 0 {
				t.Fatalf("expected QC pending to be empty, got %v", got)
			}
		})
	}
}

func TestSubmitGreenBeanAssessmentUsesConfiguredWarehouses(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedRoastery(t, svc)
	if _, _, err := svc.SaveSettings(ctx, domain.Settings{DefaultCompany: testCompany, QCPendingWarehouse: "Intake - AR", QCAcceptedWarehouse: whGreen}); err != nil {
		t.Fatalf("save settings: %v", err)
	}
	receive(t, svc, itemGreen, "Intake - AR", "LOT-1", 10)
	gba := mustCreate(t, svc, domain.GreenBeanAssessment{BatchNo: "LOT-1", ItemCode: itemGreen, TotalQty: 10, QCResult: domain.QCResultPass})
	if _, _, err := svc.SubmitGreenBeanAssessment(ctx, gba.ID); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := balance(t, svc, itemGreen, whGreen); got != 10 {
		t.Fatalf("expected lot in %s, got %v", whGreen, got)
	}
}

func TestSubmitGreenBeanAssessmentValidation(t *testing.T) {
	tests := []struct {
		name string
		in   domain.GreenBeanAssessment
		want string
	}{
		{"missing batch", domain.GreenBeanAssessment{ItemCode: itemGreen, TotalQty: 5}, "Batch No and Item Code are required."},
		{"missing item", domain.GreenBeanAssessment{BatchNo: "LOT-1", TotalQty: 5}, "Batch No and Item Code are required."},
		{"zero qty", domain.GreenBeanAssessment{BatchNo: "LOT-1", ItemCode: itemGreen}, "Total Qty must be greater than zero for QC transfer."},
		{"nothing pending", domain.GreenBeanAssessment{BatchNo: "LOT-1", ItemCode: itemGreen, TotalQty: 5, QCResult: domain.QCResultPass}, "insufficient stock for GREEN-YIRG in QC Pending - CR"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t)
			gba := mustCreate(t, svc, tc.in)
			_, _, err := svc.SubmitGreenBeanAssessment(context.Background(), gba.ID)
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected %q, got %v", tc.want, err)
			}
			if got := mustGet[domain.GreenBeanAssessment](t, svc, gba.ID); got.DocStatus != domain.DocStatusDraft {
				t.Fatalf("failed submit must leave a draft, got %s", got.DocStatus)
			}
		})
	}
}

func TestCuppingAssessmentKinds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	for _, kind := range []domain.AssessmentKind{domain.AssessmentDescriptive, domain.AssessmentExtrinsic, domain.AssessmentPhysical, domain.AssessmentAffective} {
		ca := mustCreate(t, svc, domain.CuppingAssessment{Kind: kind, RoastBatch: "RB-00001"})
		submitted, _, err := svc.SubmitCuppingAssessment(ctx, ca.ID)
		if err != nil {
			t.Fatalf("submit %s: %v", kind, err)
		}
		if submitted.DocStatus != domain.DocStatusSubmitted {
			t.Fatalf("expected %s submitted", kind)
		}
	}
	if _, _, err := Create(ctx, svc, domain.CuppingAssessment{Kind: "aroma"}); err == nil || err.Error() != `Unknown assessment kind "aroma".` {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
	list, _ := List[domain.CuppingAssessment](ctx, svc)
	if len(list) != 4 || list[0].ID != "CA-00001" {
		t.Fatalf("unexpected cupping list %d %v", len(list), list)
	}
}
