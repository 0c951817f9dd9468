package core

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"coffeeroaster/internal/blob"
	"coffeeroaster/internal/machines"
	"coffeeroaster/internal/roasting"
	"coffeeroaster/internal/routing"
	"coffeeroaster/pkg/domain"
)

// ErrInvalidToken is returned when a webhook call carries the wrong token or
// no token is configured.
var ErrInvalidToken = errors.New("invalid token")

// DefaultExportFilename is assumed when a webhook call does not name its file.
const DefaultExportFilename = "roast.json"

const attachmentPrefix = "roasting-logs"

// ImportCurve parses a machine export and writes its phases, metrics and
// raw curve onto the roasting log.
func (s *Service) ImportCurve(ctx context.Context, logID, filename string, content []byte, adapter string) (machines.Summary, error) {
	imp, err := machines.ParseExport(content, filename, adapter)
	if err != nil {
		return machines.Summary{}, err
	}
	if err := s.applyImport(ctx, logID, imp); err != nil {
		return machines.Summary{}, err
	}
	return imp.Summary(), nil
}

func (s *Service) applyImport(ctx context.Context, logID string, imp machines.Import) error {
	_, err := s.run(ctx, "import_curve", domain.EntityRoastingLog, domain.ActionUpdate, func(tx domain.Transaction) error {
		_, err := domain.Update[domain.CoffeeRoastingLog](tx, logID, func(cur *domain.CoffeeRoastingLog) error {
			if err := imp.Apply(cur); err != nil {
				return err
			}
			return s.beforeSave(tx, cur)
		})
		return err
	}, constID(logID))
	return err
}

// createImportedLog stores a new roasting log that already carries the
// parsed export, so a rejected export never leaves an empty log behind.
func (s *Service) createImportedLog(ctx context.Context, log domain.CoffeeRoastingLog, imp machines.Import) (domain.CoffeeRoastingLog, error) {
	log.RoastDate = s.today()
	log.Timestamp = s.now()
	if err := imp.Apply(&log); err != nil {
		return domain.CoffeeRoastingLog{}, err
	}
	created, _, err := Create(ctx, s, log)
	return created, err
}

// logNameFor derives the log name from an export filename, so
// "RB-0007-R2.csv" lands in round 2 of its batch.
func logNameFor(filename string) string {
	base := filepath.Base(strings.TrimSpace(filename))
	if base == "." || base == string(filepath.Separator) {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ImportCurveFromAttachment imports the most recently attached file.
func (s *Service) ImportCurveFromAttachment(ctx context.Context, logID, adapter string) (machines.Summary, error) {
	var log domain.CoffeeRoastingLog
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		var err error
		log, err = domain.Get[domain.CoffeeRoastingLog](v, logID)
		return err
	})
	if err != nil {
		return machines.Summary{}, err
	}
	att, ok := log.LatestAttachment()
	if !ok {
		return machines.Summary{}, domain.Invalidf("No attachment found on this Coffee Roasting Log.")
	}
	if s.blobs == nil {
		return machines.Summary{}, errors.New("attachment storage is not configured")
	}
	_, rc, err := s.blobs.Get(ctx, att.Key)
	if err != nil {
		return machines.Summary{}, fmt.Errorf("read attachment %s: %w", att.Key, err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		return machines.Summary{}, fmt.Errorf("read attachment %s: %w", att.Key, err)
	}
	return s.ImportCurve(ctx, logID, att.Filename, content, adapter)
}

// AttachToRoastingLog stores content in blob storage and records it on the
// log.
func (s *Service) AttachToRoastingLog(ctx context.Context, logID, filename string, content []byte) (domain.Attachment, error) {
	if s.blobs == nil {
		return domain.Attachment{}, errors.New("attachment storage is not configured")
	}
	filename = path.Base(strings.TrimSpace(filename))
	if filename == "" || filename == "." || filename == "/" {
		filename = DefaultExportFilename
	}
	if err := s.store.View(ctx, func(v domain.TransactionView) error {
		_, err := domain.Get[domain.CoffeeRoastingLog](v, logID)
		return err
	}); err != nil {
		return domain.Attachment{}, err
	}
	uploaded := s.now()
	key := path.Join(attachmentPrefix, logID, uploaded.Format("20060102T150405.000000000")+"-"+filename)
	info, err := s.blobs.Put(ctx, key, bytes.NewReader(content), blob.PutOptions{
		ContentType: contentTypeFor(filename),
		Metadata:    map[string]string{"roasting_log": logID, "filename": filename},
	})
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("store attachment: %w", err)
	}
	att := domain.Attachment{Key: info.Key, Filename: filename, Size: info.Size, UploadedAt: uploaded}
	_, err = s.run(ctx, "attach_roasting_log_file", domain.EntityRoastingLog, domain.ActionUpdate, func(tx domain.Transaction) error {
		_, err := domain.Update[domain.CoffeeRoastingLog](tx, logID, func(cur *domain.CoffeeRoastingLog) error {
			cur.Attachments = append(cur.Attachments, att)
			return nil
		})
		return err
	}, constID(logID))
	if err != nil {
		if _, derr := s.blobs.Delete(ctx, key); derr != nil {
			s.logger.Warn("orphaned attachment", "key", key, "error", derr)
		}
		return domain.Attachment{}, err
	}
	return att, nil
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(path.Ext(filename)) {
	case ".json", ".alog":
		return "application/json"
	case ".csv":
		return "text/csv"
	default:
		return "text/plain"
	}
}

// RoastLogPull holds the values a roasting log copies from its roast batch.
type RoastLogPull struct {
	Doc    map[string]any      `json:"doc"`
	Phases []domain.RoastPhase `json:"phases"`
}

// PullFromRoastBatch resolves the roasting log fields from a roast batch,
// trying alternative field names for each.
func (s *Service) PullFromRoastBatch(ctx context.Context, rbID string) (RoastLogPull, error) {
	if strings.TrimSpace(rbID) == "" {
		return RoastLogPull{}, domain.Invalidf("Roast Batch is required")
	}
	var out RoastLogPull
	err := s.store.View(ctx, func(v domain.TransactionView) error {
		rb, err := domain.Get[domain.RoastBatch](v, rbID)
		if err != nil {
			return err
		}
		out = pullFrom(rb)
		return nil
	})
	return out, err
}

var (
	pullText = []struct {
		key        string
		candidates []string
	}{
		{"company", []string{"company"}},
		{"roasted_item", []string{"roasted_item", "item", "finished_item", "fg_item"}},
		{"roaster_used", []string{"roaster_used", "roasting_machine", "machine"}},
		{"roast_profile", []string{"roast_profile", "profile"}},
		{"green_origin", []string{"green_origin", "origin"}},
		{"green_grade", []string{"green_grade", "grade"}},
		{"quality_inspection", []string{"quality_inspection"}},
	}
	pullNumber = []struct {
		key        string
		candidates []string
	}{
		{"charge_temp_c", []string{"charge_temp", "charge_temperature_c"}},
		{"final_temp_c", []string{"final_temp", "drop_temp", "drop_temperature_c"}},
		{"color_agtron", []string{"agtron", "color_agtron"}},
	}
)

func pullFrom(rb domain.RoastBatch) RoastLogPull {
	doc := map[string]any{}
	if !rb.RoastDate.IsZero() {
		doc["roast_date"] = rb.RoastDate.Format(routing.DateLayout)
	}
	for _, f := range pullText {
		if _, v := roasting.FirstText(rb, f.candidates...); v != "" {
			doc[f.key] = v
		}
	}
	for _, f := range pullNumber {
		if name, v := roasting.FirstNumber(rb, f.candidates...); name != "" {
			doc[f.key] = v
		}
	}
	_, bw := roasting.FirstNumber(rb, "input_weight", "green_weight", "batch_weight_kg", "total_input_qty", "input_qty", "qty_to_roast")
	_, y := roasting.FirstNumber(rb, "output_weight", "yield_kg", "total_output_qty", "roasted_weight", "output_qty")
	doc["batch_weight_kg"] = bw
	doc["yield_kg"] = y
	if bw > 0 && y >= 0 {
		doc["weight_loss_pct"] = (1 - y/bw) * 100
	}
	return RoastLogPull{Doc: doc, Phases: batchPhases(rb)}
}

// batchPhases reads the first attribute table whose name mentions phases.
func batchPhases(rb domain.RoastBatch) []domain.RoastPhase {
	phases := []domain.RoastPhase{}
	for _, f := range roasting.Fields(rb) {
		if f.Kind != roasting.KindTable || !strings.Contains(strings.ToLower(f.Name), "phase") {
			continue
		}
		rows, _ := f.Value.([]map[string]any)
		for _, r := range rows {
			p := domain.RoastPhase{
				Phase:        stringOf(r["phase"]),
				StartTime:    stringOf(r["start_time"]),
				EndTime:      stringOf(r["end_time"]),
				Observations: stringOf(r["observations"]),
			}
			if t, ok := roasting.ToFloat(r["temperature_c"]); ok {
				p.TemperatureC = &t
			}
			phases = append(phases, p)
		}
		break
	}
	return phases
}

func stringOf(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ApplyRoastBatchToLog copies the pulled roast batch values onto the log.
// Existing phases are kept when the batch has none.
func (s *Service) ApplyRoastBatchToLog(ctx context.Context, logID string) (domain.CoffeeRoastingLog, error) {
	var updated domain.CoffeeRoastingLog
	_, err := s.run(ctx, "pull_from_roast_batch", domain.EntityRoastingLog, domain.ActionUpdate, func(tx domain.Transaction) error {
		var err error
		updated, err = domain.Update[domain.CoffeeRoastingLog](tx, logID, func(cur *domain.CoffeeRoastingLog) error {
			if cur.RoastBatch == "" {
				return domain.Invalidf("Roast Batch is required")
			}
			rb, err := domain.Get[domain.RoastBatch](tx, cur.RoastBatch)
			if err != nil {
				return err
			}
			pulled := pullFrom(rb)
			applyPull(cur, rb, pulled)
			return s.beforeSave(tx, cur)
		})
		return err
	}, constID(logID))
	return updated, err
}

func applyPull(log *domain.CoffeeRoastingLog, rb domain.RoastBatch, p RoastLogPull) {
	if !rb.RoastDate.IsZero() {
		log.RoastDate = rb.RoastDate
	}
	text := map[string]*string{
		"company":            &log.Company,
		"roasted_item":       &log.RoastedItem,
		"roaster_used":       &log.RoasterUsed,
		"roast_profile":      &log.RoastProfile,
		"green_origin":       &log.GreenOrigin,
		"green_grade":        &log.GreenGrade,
		"quality_inspection": &log.QualityInspection,
	}
	for key, dst := range text {
		if v, ok := p.Doc[key].(string); ok {
			*dst = v
		}
	}
	number := map[string]*float64{
		"batch_weight_kg": &log.BatchWeightKg,
		"yield_kg":        &log.YieldKg,
		"charge_temp_c":   &log.ChargeTempC,
		"final_temp_c":    &log.FinalTempC,
		"color_agtron":    &log.ColorAgtron,
	}
	for key, dst := range number {
		if v, ok := p.Doc[key].(float64); ok {
			*dst = v
		}
	}
	if len(p.Phases) > 0 {
		log.Phases = p.Phases
	}
}

// MachineIngest is one webhook delivery.
type MachineIngest struct {
	Token    string
	LogName  string
	Filename string
	Adapter  string
	Content  []byte
}

// IngestResult reports where a webhook delivery was imported.
type IngestResult struct {
	RoastingLog string `json:"roasting_log"`
	machines.Summary
}

// IngestMachineExport authenticates a webhook delivery and imports it into
// the named log, creating one when settings allow.
func (s *Service) IngestMachineExport(ctx context.Context, in MachineIngest) (IngestResult, error) {
	st, err := s.Settings(ctx)
	if err != nil {
		return IngestResult{}, err
	}
	want := strings.TrimSpace(st.MachineWebhookToken)
	got := strings.TrimSpace(in.Token)
	if want == "" || subtle.ConstantTimeCompare([]byte(want), []byte(got)) != 1 {
		return IngestResult{}, ErrInvalidToken
	}
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		filename = DefaultExportFilename
	}
	logName := strings.TrimSpace(in.LogName)
	s.logger.Info("machine webhook invoked", "filename", filename, "adapter", in.Adapter, "log", logName)

	if logName == "" && !st.AutoCreateRoastLog {
		return IngestResult{}, domain.Invalidf("Header 'X-Roast-Log-Name' is required (or enable 'auto_create_roast_log' in settings)")
	}
	imp, err := machines.ParseExport(in.Content, filename, in.Adapter)
	if err != nil {
		s.logger.Debug("rejected machine export", "log", logName, "content", string(in.Content))
		return IngestResult{}, err
	}
	if logName == "" {
		created, err := s.createImportedLog(ctx, domain.CoffeeRoastingLog{
			Base:    domain.Base{ID: uuid.NewString()},
			LogName: logNameFor(in.Filename),
		}, imp)
		if err != nil {
			return IngestResult{}, fmt.Errorf("auto-create roasting log: %w", err)
		}
		s.logger.Info("auto-created roasting log", "log", created.ID, "log_name", created.LogName)
		return IngestResult{RoastingLog: created.ID, Summary: imp.Summary()}, nil
	}
	if err := s.applyImport(ctx, logName, imp); err != nil {
		return IngestResult{}, err
	}
	summary := imp.Summary()
	return IngestResult{RoastingLog: logName, Summary: summary}, nil
}

// DropImporter returns the import callback for the drop-directory watcher.
// Each accepted file gets a new roasting log named after the file; the file
// is attached when blob storage is configured. A file that fails to parse or
// attach leaves no log behind.
func (s *Service) DropImporter(adapter string) func(ctx context.Context, filename string, content []byte) error {
	return func(ctx context.Context, filename string, content []byte) error {
		imp, err := machines.ParseExport(content, filename, adapter)
		if err != nil {
			return err
		}
		created, err := s.createImportedLog(ctx, domain.CoffeeRoastingLog{LogName: logNameFor(filename)}, imp)
		if err != nil {
			return err
		}
		if s.blobs != nil {
			if _, err := s.AttachToRoastingLog(ctx, created.ID, filename, content); err != nil {
				if _, derr := Delete[domain.CoffeeRoastingLog](ctx, s, created.ID); derr != nil {
					s.logger.Warn("orphaned roasting log", "log", created.ID, "error", derr)
				}
				return err
			}
		}
		s.logger.Info("imported dropped export", "log", created.ID, "file", filename, "adapter", imp.Adapter, "points", len(imp.Curve.Points))
		return nil
	}
}
