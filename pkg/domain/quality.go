package domain

import "time"

// QC outcomes for green bean assessments.
const (
	QCResultPass = "Pass"
	QCResultFail = "Fail"
)

// GreenBeanAssessment is the incoming QC check that releases green coffee
// from the QC pending warehouse.
type GreenBeanAssessment struct {
	Base
	BatchNo         string    `json:"batch_no"`
	ItemCode        string    `json:"item_code"`
	Supplier        string    `json:"supplier"`
	TotalQty        float64   `json:"total_qty"`
	QCResult        string    `json:"qc_result"`
	Assessor        string    `json:"assessor"`
	AssessmentDate  time.Time `json:"assessment_date"`
	MoistureContent float64   `json:"moisture_content"`
	DefectCount     int       `json:"defect_count"`
	StockEntry      string    `json:"stock_entry"`
	DocStatus       DocStatus `json:"docstatus"`
}

// Entity implements Record.
func (GreenBeanAssessment) Entity() EntityType { return EntityGreenBeanAssessment }

func (g *GreenBeanAssessment) cloneRecord() Record { cp := *g; return &cp }

// AssessmentKind distinguishes the four cupping assessment forms.
type AssessmentKind string

// Cupping assessment kinds.
const (
	AssessmentDescriptive AssessmentKind = "descriptive"
	AssessmentExtrinsic   AssessmentKind = "extrinsic"
	AssessmentPhysical    AssessmentKind = "physical"
	AssessmentAffective   AssessmentKind = "affective"
)

// DescriptiveDetails identify the roasted sample.
type DescriptiveDetails struct {
	SampleNo   string    `json:"sample_no"`
	RoastDate  time.Time `json:"roast_date"`
	RoastTime  string    `json:"roast_time"`
	RoastLevel string    `json:"roast_level"`
}

// ExtrinsicDetails describe provenance and trade attributes.
type ExtrinsicDetails struct {
	AssessorName          string    `json:"assessor_name"`
	AssessmentDate        time.Time `json:"assessment_date"`
	Purpose               string    `json:"purpose"`
	Country               string    `json:"country"`
	Region                string    `json:"region"`
	FarmOrCoopName        string    `json:"farm_or_coop_name"`
	ProducerName          string    `json:"producer_name"`
	Species               string    `json:"species"`
	Variety               string    `json:"variety"`
	HarvestDateYear       string    `json:"harvest_date_year"`
	OtherFarmingAttribute string    `json:"other_farming_attribute"`
	FarmingNotes          string    `json:"farming_notes"`
	ProcessorName         string    `json:"processor_name"`
	ProcessType           string    `json:"process_type"`
	ProcessingNotes       string    `json:"processing_notes"`
	TradingSizeGrade      string    `json:"trading_size_grade"`
	TradingICONumber      string    `json:"trading_ico_number"`
	TradingOtherGrade     string    `json:"trading_other_grade"`
	TradingOtherAttribute string    `json:"trading_other_attribute"`
	TradingNotes          string    `json:"trading_notes"`
	Certifications        string    `json:"certifications"`
	CertificationNotes    string    `json:"certification_notes"`
	GeneralNotes          string    `json:"general_notes"`
}

// PhysicalDetails capture green grading results.
type PhysicalDetails struct {
	BlueGreen        bool    `json:"blue_green"`
	BluishGreen      bool    `json:"bluish_green"`
	Green            bool    `json:"green"`
	Greenish         bool    `json:"greenish"`
	YellowGreen      bool    `json:"yellow_green"`
	PaleYellow       bool    `json:"pale_yellow"`
	Yellowish        bool    `json:"yellowish"`
	Brownish         bool    `json:"brownish"`
	Moisture         float64 `json:"moisture"`
	TotalFullDefects int     `json:"total_full_defects"`
	MaxScreenSize    string  `json:"max_screen_size"`
	PhysicalGrade    string  `json:"physical_grade"`
}

// AffectiveDetails hold the overall cupping score.
type AffectiveDetails struct {
	TotalScore float64 `json:"affective_total_score"`
	Grade      string  `json:"affective_grade"`
}

// CuppingAssessment is one of the four assessment forms for a roast batch.
// Only the section matching Kind is meaningful.
type CuppingAssessment struct {
	Base
	Kind        AssessmentKind     `json:"kind"`
	RoastBatch  string             `json:"roast_batch"`
	DocStatus   DocStatus          `json:"docstatus"`
	Descriptive DescriptiveDetails `json:"descriptive"`
	Extrinsic   ExtrinsicDetails   `json:"extrinsic"`
	Physical    PhysicalDetails    `json:"physical"`
	Affective   AffectiveDetails   `json:"affective"`
}

// Entity implements Record.
func (CuppingAssessment) Entity() EntityType { return EntityCuppingAssessment }

func (c *CuppingAssessment) cloneRecord() Record { cp := *c; return &cp }
