package reports

import (
	"context"
	"sort"

	"coffeeroaster/pkg/domain"
)

const combinedAssessmentLimit = 100

func combinedAssessment() Template {
	cols := []Column{
		{Name: "roast_batch", Type: "link"},
		{Name: "sample_no", Type: "text"},
		{Name: "roast_date", Type: "date"},
		{Name: "roast_time", Type: "time"},
		{Name: "roast_level", Type: "text"},
		{Name: "assessor_name", Type: "text"},
		{Name: "assessment_date", Type: "date"},
	}
	for _, name := range []string{
		"purpose", "country", "region", "farm_or_coop_name", "producer_name", "species", "variety",
		"harvest_date_year", "other_farming_attribute", "farming_notes", "processor_name", "process_type",
		"processing_notes", "trading_size_grade", "trading_ico_number", "trading_other_grade",
		"trading_other_attribute", "trading_notes", "certifications", "certification_notes", "general_notes",
	} {
		cols = append(cols, Column{Name: name, Type: "text"})
	}
	for _, name := range []string{
		"blue_green", "bluish_green", "green", "greenish", "yellow_green", "pale_yellow", "yellowish", "brownish",
	} {
		cols = append(cols, Column{Name: name, Type: "check"})
	}
	cols = append(cols,
		Column{Name: "moisture", Label: "Moisture (%)", Type: "float"},
		Column{Name: "total_full_defects", Type: "int"},
		Column{Name: "max_screen_size", Type: "text"},
		Column{Name: "physical_grade", Type: "text"},
		Column{Name: "affective_total_score", Type: "float"},
		Column{Name: "affective_grade", Type: "text"},
	)
	return Template{
		Key:         "combined_assessment",
		Version:     "1",
		Title:       "Combined Assessment",
		Description: "Latest descriptive, extrinsic, physical and affective assessment of each roast batch on one row.",
		Parameters: withDateRange(
			Parameter{Name: "roast_batch", Type: "string"},
		),
		Columns: cols,
		Formats: allFormats,
		Run:     runCombinedAssessment,
	}
}

func runCombinedAssessment(ctx context.Context, req Request) (Result, error) {
	batch := req.String("roast_batch")
	var rows []map[string]any
	err := req.Source.View(ctx, func(v domain.TransactionView) error {
		latest := latestAssessments(domain.List[domain.CuppingAssessment](v))
		base := latest[domain.AssessmentDescriptive]
		names := make([]string, 0, len(base))
		for rb, da := range base {
			if (batch != "" && rb != batch) || !inRange(da.Descriptive.RoastDate, req) {
				continue
			}
			names = append(names, rb)
		}
		sort.Sort(sort.Reverse(sort.StringSlice(names)))
		if len(names) > combinedAssessmentLimit {
			names = names[:combinedAssessmentLimit]
		}
		for _, rb := range names {
			rows = append(rows, combinedRow(rb, latest))
		}
		return nil
	})
	return Result{Rows: rows}, err
}

// latestAssessments keeps the most recently updated non-cancelled assessment
// per kind and roast batch.
func latestAssessments(all []domain.CuppingAssessment) map[domain.AssessmentKind]map[string]domain.CuppingAssessment {
	out := map[domain.AssessmentKind]map[string]domain.CuppingAssessment{}
	for _, a := range all {
		if a.DocStatus == domain.DocStatusCancelled || a.RoastBatch == "" {
			continue
		}
		byBatch := out[a.Kind]
		if byBatch == nil {
			byBatch = map[string]domain.CuppingAssessment{}
			out[a.Kind] = byBatch
		}
		if cur, ok := byBatch[a.RoastBatch]; !ok || a.UpdatedAt.After(cur.UpdatedAt) {
			byBatch[a.RoastBatch] = a
		}
	}
	return out
}

func combinedRow(rb string, latest map[domain.AssessmentKind]map[string]domain.CuppingAssessment) map[string]any {
	da := latest[domain.AssessmentDescriptive][rb].Descriptive
	row := map[string]any{
		"roast_batch": rb,
		"sample_no":   da.SampleNo,
		"roast_date":  dateString(da.RoastDate),
		"roast_time":  da.RoastTime,
		"roast_level": da.RoastLevel,
	}
	if ea, ok := latest[domain.AssessmentExtrinsic][rb]; ok {
		e := ea.Extrinsic
		for k, val := range map[string]string{
			"assessor_name":           e.AssessorName,
			"assessment_date":         dateString(e.AssessmentDate),
			"purpose":                 e.Purpose,
			"country":                 e.Country,
			"region":                  e.Region,
			"farm_or_coop_name":       e.FarmOrCoopName,
			"producer_name":           e.ProducerName,
			"species":                 e.Species,
			"variety":                 e.Variety,
			"harvest_date_year":       e.HarvestDateYear,
			"other_farming_attribute": e.OtherFarmingAttribute,
			"farming_notes":           e.FarmingNotes,
			"processor_name":          e.ProcessorName,
			"process_type":            e.ProcessType,
			"processing_notes":        e.ProcessingNotes,
			"trading_size_grade":      e.TradingSizeGrade,
			"trading_ico_number":      e.TradingICONumber,
			"trading_other_grade":     e.TradingOtherGrade,
			"trading_other_attribute": e.TradingOtherAttribute,
			"trading_notes":           e.TradingNotes,
			"certifications":          e.Certifications,
			"certification_notes":     e.CertificationNotes,
			"general_notes":           e.GeneralNotes,
		} {
			row[k] = val
		}
	}
	if pa, ok := latest[domain.AssessmentPhysical][rb]; ok {
		p := pa.Physical
		row["blue_green"] = p.BlueGreen
		row["bluish_green"] = p.BluishGreen
		row["green"] = p.Green
		row["greenish"] = p.Greenish
		row["yellow_green"] = p.YellowGreen
		row["pale_yellow"] = p.PaleYellow
		row["yellowish"] = p.Yellowish
		row["brownish"] = p.Brownish
		row["moisture"] = p.Moisture
		row["total_full_defects"] = p.TotalFullDefects
		row["max_screen_size"] = p.MaxScreenSize
		row["physical_grade"] = p.PhysicalGrade
	}
	if aa, ok := latest[domain.AssessmentAffective][rb]; ok {
		row["affective_total_score"] = aa.Affective.TotalScore
		row["affective_grade"] = aa.Affective.Grade
	}
	return row
}
