// Package exports runs the monthly Sage export in the background, storing
// each archive in blob storage and optionally mailing it to finance.
package exports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"coffeeroaster/internal/blob"
	"coffeeroaster/internal/mail"
	"coffeeroaster/internal/sage"
	"coffeeroaster/pkg/domain"
)

// Status describes the lifecycle stage of an export job.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

const zipContentType = "application/zip"

// Artifact is the stored archive of a finished job.
type Artifact struct {
	Key         string    `json:"key"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record tracks one export request.
type Record struct {
	ID          string     `json:"id"`
	Company     string     `json:"company"`
	Period      string     `json:"period"`
	Status      Status     `json:"status"`
	Error       string     `json:"error,omitempty"`
	Artifact    *Artifact  `json:"artifact,omitempty"`
	Recipients  []string   `json:"recipients,omitempty"`
	Emailed     bool       `json:"emailed"`
	MailError   string     `json:"mail_error,omitempty"`
	RequestedBy string     `json:"requested_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Input is an export request. A zero Period means the month before the
// worker clock; an empty Company means the settings default company.
type Input struct {
	Company     string
	Period      sage.Period
	RequestedBy string
	// Email sends the archive to Recipients, or to the settings recipients
	// when Recipients is empty.
	Email      bool
	Recipients []string
}

// Source is the store access the export needs.
type Source interface {
	View(ctx context.Context, fn func(domain.TransactionView) error) error
	Settings(ctx context.Context) (domain.Settings, error)
}

// Scheduler queues exports and exposes their status.
type Scheduler interface {
	Enqueue(ctx context.Context, input Input) (Record, error)
	Get(id string) (Record, bool)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures one export state change.
type AuditEntry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	Actor      string         `json:"actor"`
	JobID      string         `json:"job_id"`
	Company    string         `json:"company"`
	Period     string         `json:"period"`
	Status     Status         `json:"status"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option configures a Worker.
type Option func(*Worker)

// WithMailer enables e-mail delivery.
func WithMailer(m mail.Sender) Option { return func(w *Worker) { w.mailer = m } }

// WithAudit records state changes.
func WithAudit(a AuditLogger) Option { return func(w *Worker) { w.audit = a } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(w *Worker) { w.now = now } }

// WithQueueSize bounds the number of waiting jobs.
func WithQueueSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.queueSize = n
		}
	}
}

// WithKeyPrefix sets the blob key prefix for archives.
func WithKeyPrefix(prefix string) Option {
	return func(w *Worker) { w.prefix = strings.Trim(prefix, "/") }
}

// WithRetention sets how long finished jobs stay visible through Get.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.retention = d
		}
	}
}

// WithRegisterer exports job counters to reg.
func WithRegisterer(reg prometheus.Registerer) Option { return func(w *Worker) { w.reg = reg } }

// Worker executes Sage exports one at a time.
type Worker struct {
	src       Source
	store     blob.Store
	mailer    mail.Sender
	audit     AuditLogger
	log       *zap.Logger
	now       func() time.Time
	prefix    string
	queueSize int
	retention time.Duration
	reg       prometheus.Registerer
	jobsTotal *prometheus.CounterVec

	queue chan string
	mu    sync.RWMutex
	jobs  map[string]*job

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type job struct {
	record Record
	input  Input
}

// NewWorker constructs a worker. Start must be called before queued jobs run.
func NewWorker(src Source, store blob.Store, opts ...Option) (*Worker, error) {
	if src == nil {
		return nil, errors.New("exports: source required")
	}
	if store == nil {
		return nil, errors.New("exports: blob store required")
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{
		src:       src,
		store:     store,
		log:       zap.NewNop(),
		now:       func() time.Time { return time.Now().UTC() },
		prefix:    "exports/sage",
		queueSize: 32,
		retention: 24 * time.Hour,
		jobs:      make(map[string]*job),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.queue = make(chan string, w.queueSize)
	w.jobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "coffeeroaster",
		Subsystem: "exports",
		Name:      "jobs_total",
		Help:      "Sage export jobs by final status.",
	}, []string{"status"})
	if w.reg != nil {
		if err := w.reg.Register(w.jobsTotal); err != nil {
			cancel()
			return nil, fmt.Errorf("register export metrics: %w", err)
		}
	}
	return w, nil
}

// Start begins processing queued jobs.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for the running job.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case id := <-w.queue:
			w.process(w.ctx, id)
		}
	}
}

// Enqueue validates input and schedules the export.
func (w *Worker) Enqueue(ctx context.Context, input Input) (Record, error) {
	input, err := w.resolve(ctx, input)
	if err != nil {
		return Record{}, err
	}
	now := w.now()
	rec := Record{
		ID:          uuid.NewString(),
		Company:     input.Company,
		Period:      input.Period.YYYYMM(),
		Status:      StatusQueued,
		Recipients:  append([]string(nil), input.Recipients...),
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.pruneLocked(now)
	w.jobs[rec.ID] = &job{record: rec, input: input}
	w.mu.Unlock()

	select {
	case w.queue <- rec.ID:
	default:
		w.mu.Lock()
		delete(w.jobs, rec.ID)
		w.mu.Unlock()
		return Record{}, errors.New("export queue full")
	}
	w.record(ctx, rec.ID, StatusQueued, nil)
	return rec.copy(), nil
}

// Get returns a snapshot of a job. Jobs finished longer ago than the
// retention are gone.
func (w *Worker) Get(id string) (Record, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(w.now())
	j, ok := w.jobs[id]
	if !ok {
		return Record{}, false
	}
	return j.record.copy(), true
}

// Run executes an export synchronously without the queue. It is used by the
// command line export; the job is not kept once Run returns.
func (w *Worker) Run(ctx context.Context, input Input) (Record, []byte, error) {
	input, err := w.resolve(ctx, input)
	if err != nil {
		return Record{}, nil, err
	}
	now := w.now()
	rec := Record{
		ID:          uuid.NewString(),
		Company:     input.Company,
		Period:      input.Period.YYYYMM(),
		Status:      StatusRunning,
		Recipients:  append([]string(nil), input.Recipients...),
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	w.mu.Lock()
	w.jobs[rec.ID] = &job{record: rec, input: input}
	w.mu.Unlock()

	payload, err := w.execute(ctx, rec.ID)
	var out Record
	w.mu.Lock()
	if j, ok := w.jobs[rec.ID]; ok {
		out = j.record.copy()
		delete(w.jobs, rec.ID)
	}
	w.mu.Unlock()
	if err != nil {
		return out, nil, err
	}
	return out, payload, nil
}

// pruneLocked drops finished jobs older than the retention. w.mu must be
// held for writing.
func (w *Worker) pruneLocked(now time.Time) {
	for id, j := range w.jobs {
		if done := j.record.CompletedAt; done != nil && now.Sub(*done) >= w.retention {
			delete(w.jobs, id)
		}
	}
}

func (w *Worker) resolve(ctx context.Context, input Input) (Input, error) {
	settings, err := w.src.Settings(ctx)
	if err != nil {
		return input, fmt.Errorf("load settings: %w", err)
	}
	input.Company = strings.TrimSpace(input.Company)
	if input.Company == "" {
		input.Company = settings.DefaultCompany
	}
	if input.Company == "" {
		return input, domain.Invalidf("Company is required for the Sage export.")
	}
	if input.Period == (sage.Period{}) {
		input.Period = sage.PreviousMonth(w.now())
	}
	if input.Email && len(input.Recipients) == 0 {
		input.Recipients = append([]string(nil), settings.SageEmailRecipients...)
	}
	if !input.Email {
		input.Recipients = nil
	}
	return input, nil
}

func (w *Worker) process(ctx context.Context, id string) {
	w.setStatus(ctx, id, StatusRunning)
	_, _ = w.execute(ctx, id)
}

// execute builds, stores and mails one archive and returns its bytes. A
// failed job is marked before the error is returned.
func (w *Worker) execute(ctx context.Context, id string) ([]byte, error) {
	w.mu.RLock()
	j, ok := w.jobs[id]
	var input Input
	if ok {
		input = j.input
	}
	w.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("export job %s not found", id)
	}
	payload, artifact, err := w.build(ctx, id, input)
	if err != nil {
		w.fail(ctx, id, err)
		return nil, err
	}
	emailed, mailErr := w.deliver(ctx, artifact.pack, payload, input.Recipients)
	w.complete(ctx, id, artifact.Artifact, emailed, mailErr)
	return payload, nil
}

type builtArtifact struct {
	*Artifact
	pack sage.Pack
}

func (w *Worker) build(ctx context.Context, id string, input Input) ([]byte, builtArtifact, error) {
	settings, err := w.src.Settings(ctx)
	if err != nil {
		return nil, builtArtifact{}, fmt.Errorf("load settings: %w", err)
	}
	var pack sage.Pack
	err = w.src.View(ctx, func(v domain.TransactionView) error {
		var err error
		pack, err = sage.Build(ctx, v, input.Company, input.Period, sage.Options{PriceList: settings.StandardSellingPriceList})
		return err
	})
	if err != nil {
		return nil, builtArtifact{}, err
	}
	payload, err := pack.Zip()
	if err != nil {
		return nil, builtArtifact{}, err
	}

	key := path.Join(w.prefix, pack.Period.YYYYMM(), id, pack.ZipName())
	info, err := w.store.Put(ctx, key, bytes.NewReader(payload), blob.PutOptions{
		ContentType: zipContentType,
		Metadata:    map[string]string{"company": pack.Company, "period": pack.Period.YYYYMM(), "job": id},
	})
	if err != nil {
		return nil, builtArtifact{}, fmt.Errorf("store archive: %w", err)
	}
	artifact := &Artifact{
		Key:         info.Key,
		Filename:    pack.ZipName(),
		ContentType: zipContentType,
		SizeBytes:   int64(len(payload)),
		CreatedAt:   w.now(),
	}
	if url, err := w.store.PresignURL(ctx, key, blob.SignedURLOptions{Method: "GET", Expiry: 24 * time.Hour}); err == nil {
		artifact.URL = url
	} else if !errors.Is(err, blob.ErrUnsupported) {
		w.log.Warn("presign export archive", zap.String("key", key), zap.Error(err))
	}
	return payload, builtArtifact{Artifact: artifact, pack: pack}, nil
}

// deliver mails the archive. Delivery problems are logged and reported on
// the record without failing the job.
func (w *Worker) deliver(ctx context.Context, pack sage.Pack, payload []byte, to []string) (bool, string) {
	if len(to) == 0 {
		return false, ""
	}
	if w.mailer == nil {
		w.log.Warn("sage export e-mail requested but no mail relay configured", zap.String("company", pack.Company))
		return false, "mail relay not configured"
	}
	err := w.mailer.Send(ctx, mail.Message{
		To:      to,
		Subject: pack.Subject(),
		Body:    pack.Body(),
		Attachments: []mail.Attachment{{
			Name:        pack.ZipName(),
			ContentType: zipContentType,
			Data:        payload,
		}},
	})
	if err != nil {
		w.log.Error("send sage export", zap.String("company", pack.Company), zap.Strings("to", to), zap.Error(err))
		return false, err.Error()
	}
	return true, ""
}

func (w *Worker) setStatus(ctx context.Context, id string, status Status) {
	w.mu.Lock()
	if j, ok := w.jobs[id]; ok {
		j.record.Status = status
		j.record.UpdatedAt = w.now()
	}
	w.mu.Unlock()
	w.record(ctx, id, status, nil)
}

func (w *Worker) complete(ctx context.Context, id string, artifact *Artifact, emailed bool, mailErr string) {
	now := w.now()
	w.mu.Lock()
	if j, ok := w.jobs[id]; ok {
		j.record.Status = StatusSucceeded
		j.record.Error = ""
		j.record.Artifact = artifact
		j.record.Emailed = emailed
		j.record.MailError = mailErr
		j.record.UpdatedAt = now
		j.record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.jobsTotal.WithLabelValues(string(StatusSucceeded)).Inc()
	meta := map[string]any{"key": artifact.Key, "size_bytes": artifact.SizeBytes, "emailed": emailed}
	if mailErr != "" {
		meta["mail_error"] = mailErr
	}
	w.record(ctx, id, StatusSucceeded, meta)
	w.log.Info("sage export stored", zap.String("job", id), zap.String("key", artifact.Key), zap.Bool("emailed", emailed))
}

func (w *Worker) fail(ctx context.Context, id string, err error) {
	now := w.now()
	w.mu.Lock()
	if j, ok := w.jobs[id]; ok {
		j.record.Status = StatusFailed
		j.record.Error = err.Error()
		j.record.UpdatedAt = now
		j.record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.jobsTotal.WithLabelValues(string(StatusFailed)).Inc()
	w.record(ctx, id, StatusFailed, map[string]any{"error": err.Error()})
	w.log.Error("sage export failed", zap.String("job", id), zap.Error(err))
}

func (w *Worker) record(ctx context.Context, id string, status Status, meta map[string]any) {
	if w.audit == nil {
		return
	}
	w.mu.RLock()
	j, ok := w.jobs[id]
	var rec Record
	if ok {
		rec = j.record
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         uuid.NewString(),
		Action:     "sage_export",
		Actor:      rec.RequestedBy,
		JobID:      id,
		Company:    rec.Company,
		Period:     rec.Period,
		Status:     status,
		Metadata:   meta,
		OccurredAt: w.now(),
	})
}

func (r Record) copy() Record {
	dup := r
	dup.Recipients = append([]string(nil), r.Recipients...)
	if r.Artifact != nil {
		a := *r.Artifact
		dup.Artifact = &a
	}
	if r.CompletedAt != nil {
		t := *r.CompletedAt
		dup.CompletedAt = &t
	}
	return dup
}

// MemoryAuditLog keeps audit entries in memory.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a copy of the recorded entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]AuditEntry(nil), l.entries...)
}

// LogAuditLog writes audit entries to a zap logger.
type LogAuditLog struct {
	Logger *zap.Logger
}

// Record implements AuditLogger.
func (l LogAuditLog) Record(_ context.Context, e AuditEntry) {
	l.Logger.Info("export audit",
		zap.String("job", e.JobID),
		zap.String("actor", e.Actor),
		zap.String("company", e.Company),
		zap.String("period", e.Period),
		zap.String("status", string(e.Status)),
		zap.Any("metadata", e.Metadata),
	)
}
