// Package batch runs the issuance pipeline over a dataset: one signed,
// rendered, stored certificate per row, processed by a worker pool with
// per-row failure isolation.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/dataset"
	"github.com/lvillar/certkit/mapping"
	"github.com/lvillar/certkit/render"
	"github.com/lvillar/certkit/sign"
	"github.com/lvillar/certkit/store"
	"github.com/lvillar/certkit/symbol"
)

// Config wires the pipeline pieces a Processor needs.
type Config struct {
	Template *render.Template
	Signer   *sign.Signer
	Store    store.Store
	Options  certkit.Options
	Format   symbol.Format
	Logger   *zap.Logger
}

// Processor issues certificates for dataset rows.
type Processor struct {
	tmpl     *render.Template
	renderer *render.Renderer
	signer   *sign.Signer
	store    store.Store
	opts     certkit.Options
	format   symbol.Format
	log      *zap.Logger
}

// New validates the configuration and builds a Processor.
func New(cfg Config) (*Processor, error) {
	if cfg.Template == nil {
		return nil, errors.New("batch: template is required")
	}
	if cfg.Signer == nil {
		return nil, certkit.NewError("batch.New", certkit.ErrSigningKeyMissing)
	}
	if cfg.Store == nil {
		return nil, errors.New("batch: store is required")
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	format := cfg.Format
	if format == "" {
		format = symbol.FormatQR
	}
	return &Processor{
		tmpl:     cfg.Template,
		renderer: render.NewRenderer(cfg.Template, cfg.Options),
		signer:   cfg.Signer,
		store:    cfg.Store,
		opts:     cfg.Options,
		format:   format,
		log:      log,
	}, nil
}

// RowResult is the outcome for one dataset row.
type RowResult struct {
	Index     int
	CertID    string
	Filename  string
	PDF       []byte
	Overflows []render.Overflow
	Err       error
}

// Result is the outcome of one batch run.
type Result struct {
	BatchID   string
	Rows      []RowResult
	Report    mapping.Report
	Succeeded int
	Failed    int
}

// Run processes every row of the dataset. Rows execute on a worker pool
// and fail independently; cancelling the context stops new rows from
// starting but leaves already-stored records intact.
func (p *Processor) Run(ctx context.Context, ds *dataset.Dataset) (*Result, error) {
	m, report := mapping.Build(p.tmpl.PlaceholderNames(), ds.Columns)

	res := &Result{
		BatchID: uuid.NewString(),
		Rows:    make([]RowResult, len(ds.Rows)),
		Report:  report,
	}

	if len(p.tmpl.Placeholders()) == 0 {
		p.log.Info("template has no placeholders, output reduces to symbol stamping",
			zap.String("batch_id", res.BatchID))
	}
	if report.HasGaps() {
		p.log.Warn("unmatched placeholders keep their literal token",
			zap.String("batch_id", res.BatchID),
			zap.Strings("placeholders", report.UnmatchedPlaceholders))
	}

	g, gctx := errgroup.WithContext(ctx)
	workers := p.opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	g.SetLimit(workers)

	names := newNamer()
	for i := range ds.Rows {
		if gctx.Err() != nil {
			res.Rows[i] = RowResult{Index: i, Err: gctx.Err()}
			continue
		}
		i := i
		row := ds.Rows[i]
		filename := names.filenameFor(row, i)
		g.Go(func() error {
			rr := p.processRow(gctx, row, m)
			rr.Index = i
			rr.Filename = filename
			res.Rows[i] = rr
			return nil // a row failure never aborts siblings
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, rr := range res.Rows {
		if rr.Err != nil {
			res.Failed++
		} else {
			res.Succeeded++
		}
	}
	p.log.Info("batch complete",
		zap.String("batch_id", res.BatchID),
		zap.Int("succeeded", res.Succeeded),
		zap.Int("failed", res.Failed))
	return res, nil
}

// processRow signs, stores and renders one certificate.
func (p *Processor) processRow(ctx context.Context, row dataset.Row, m mapping.Mapping) RowResult {
	identity := row.ExtractIdentity()
	if identity.IssueDate == "" {
		identity.IssueDate = time.Now().Format("2006-01-02")
	}
	data := row.CanonicalMap()

	rec, err := p.issueAndStore(ctx, identity, data)
	if err != nil {
		p.log.Warn("row failed at signing",
			zap.String("recipient", identity.Recipient), zap.Error(err))
		return RowResult{Err: err}
	}

	payload := p.signer.VerificationURL(rec.CertID)
	sym, err := symbol.Encode(p.format, payload)
	if err != nil {
		p.log.Warn("row failed at symbol encoding",
			zap.String("cert_id", rec.CertID), zap.Error(err))
		return RowResult{CertID: rec.CertID, Err: err}
	}

	values := buildValues(m, row)
	rendered, err := p.renderer.Render(values, sym, rec.CertID)
	if err != nil {
		p.log.Warn("row failed at rendering",
			zap.String("cert_id", rec.CertID), zap.Error(err))
		return RowResult{CertID: rec.CertID, Err: err}
	}
	for _, ov := range rendered.Overflows {
		p.log.Info("value shrunk to fit placeholder",
			zap.String("cert_id", rec.CertID),
			zap.String("placeholder", ov.Placeholder),
			zap.Float64("from_pt", ov.FromSizePt),
			zap.Float64("to_pt", ov.ToSizePt),
			zap.Bool("truncated", ov.Truncated))
	}

	return RowResult{CertID: rec.CertID, PDF: rendered.PDF, Overflows: rendered.Overflows}
}

// issueAndStore signs under fresh ids until the store accepts one,
// bounded by MaxIDAttempts.
func (p *Processor) issueAndStore(ctx context.Context, id dataset.Identity, data map[string]string) (*certkit.CertificateRecord, error) {
	attempts := p.opts.MaxIDAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		certID, err := sign.GenerateID()
		if err != nil {
			return nil, err
		}
		rec := p.signer.IssueWithID(certID, id.Recipient, id.Course, id.IssueDate, data)
		err = p.store.Put(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, certkit.ErrDuplicateID) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: gave up after %d attempts", certkit.ErrDuplicateID, attempts)
}

// buildValues resolves the substitution text for every mapped
// placeholder of one row.
func buildValues(m mapping.Mapping, row dataset.Row) map[string]string {
	values := make(map[string]string, len(m))
	for placeholder, field := range m {
		if v, ok := row.Get(field); ok {
			values[placeholder] = v.Canonical()
		}
	}
	return values
}

// namer produces unique, filesystem-safe output names from the first
// dataset column.
type namer struct {
	used map[string]bool
}

func newNamer() *namer {
	return &namer{used: make(map[string]bool)}
}

func (n *namer) filenameFor(row dataset.Row, idx int) string {
	base := ""
	if len(row.Columns) > 0 {
		if v, ok := row.Get(row.Columns[0]); ok {
			base = sanitizeName(v.Canonical())
		}
	}
	if base == "" {
		base = fmt.Sprintf("certificate_%d", idx+1)
	}
	name := base
	for i := 2; n.used[name]; i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	n.used[name] = true
	return name + ".pdf"
}

// sanitizeName keeps letters, digits, spaces, underscores and hyphens.
func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == ' ', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.TrimSpace(b.String())
}
