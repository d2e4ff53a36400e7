// Package indexer ingests a folder of documents into a store.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/webdedesign/vergiai/internal/chunk"
	"github.com/webdedesign/vergiai/internal/extract"
	"github.com/webdedesign/vergiai/internal/metrics"
	"github.com/webdedesign/vergiai/internal/storage"
)

// ErrNoDocuments is returned when a folder holds no candidate files.
var ErrNoDocuments = errors.New("no documents found")

// DefaultExtensions are the file types picked up by discovery.
var DefaultExtensions = []string{".pdf"}

// Splitter turns extracted pages into chunks.
type Splitter interface {
	Split(document string, pages []chunk.Page) ([]chunk.Chunk, error)
}

// FileReport describes what happened to one file.
type FileReport struct {
	Path      string
	Document  string
	Pages     int
	Chunks    int
	Written   int
	Duplicate bool
	Err       error
}

// Failed reports whether the file contributed nothing because of an error.
func (f FileReport) Failed() bool {
	return f.Err != nil && f.Written == 0
}

// Empty reports whether the file held no text to store.
func (f FileReport) Empty() bool {
	return f.Err == nil && !f.Duplicate && f.Chunks == 0
}

// Partial reports whether only some chunks were written.
func (f FileReport) Partial() bool {
	return f.Err != nil && f.Written > 0
}

// Result contains statistics about an ingestion run.
type Result struct {
	Files        []FileReport
	TotalWritten int
	// StoreTotal is the entry count after the run, or -1 if the store could
	// not report it.
	StoreTotal int
	Duration   time.Duration
}

// Duplicates returns the files skipped because their document was stored already.
func (r *Result) Duplicates() []FileReport {
	return r.filter(func(f FileReport) bool { return f.Duplicate })
}

// Failures returns the files that could not be ingested at all.
func (r *Result) Failures() []FileReport {
	return r.filter(FileReport.Failed)
}

// Empty returns the files without extractable text.
func (r *Result) Empty() []FileReport {
	return r.filter(FileReport.Empty)
}

// Ingested returns the files that wrote at least one chunk.
func (r *Result) Ingested() []FileReport {
	return r.filter(func(f FileReport) bool { return f.Written > 0 })
}

func (r *Result) filter(keep func(FileReport) bool) []FileReport {
	var out []FileReport
	for _, f := range r.Files {
		if keep(f) {
			out = append(out, f)
		}
	}
	return out
}

// Pipeline runs discovery, extraction, chunking and storage one file at a
// time. Runs against the same store must not overlap.
type Pipeline struct {
	extractor  extract.Extractor
	splitter   Splitter
	store      storage.Store
	logger     *zap.Logger
	metrics    *metrics.Metrics
	extensions []string
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithExtensions sets the file extensions picked up by discovery.
func WithExtensions(exts ...string) Option {
	return func(p *Pipeline) {
		if len(exts) > 0 {
			p.extensions = exts
		}
	}
}

// WithMetrics records per-file outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(extractor extract.Extractor, splitter Splitter, store storage.Store, logger *zap.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		extractor:  extractor,
		splitter:   splitter,
		store:      store,
		logger:     logger,
		extensions: DefaultExtensions,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// DocumentName derives a document name from its file name.
func DocumentName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Discover lists the files of dir (not recursing) whose extension matches,
// ignoring case, in name order.
func Discover(dir string, extensions []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if slices.ContainsFunc(extensions, func(want string) bool { return strings.EqualFold(want, ext) }) {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s (extensions %s)", ErrNoDocuments, dir, strings.Join(extensions, ", "))
	}
	return paths, nil
}

// IngestDir ingests every candidate file of dir.
func (p *Pipeline) IngestDir(ctx context.Context, dir string) (*Result, error) {
	paths, err := Discover(dir, p.extensions)
	if err != nil {
		return nil, err
	}
	return p.IngestFiles(ctx, paths)
}

// IngestFiles ingests the given files. Per-file failures are recorded in the
// result, not returned; only cancellation stops the run early.
func (p *Pipeline) IngestFiles(ctx context.Context, paths []string) (*Result, error) {
	start := time.Now()
	result := &Result{StoreTotal: -1}

	known, err := p.store.DocumentNames(ctx)
	if err != nil {
		p.logger.Warn("listing stored documents failed, treating store as empty", zap.Error(err))
		known = map[string]struct{}{}
	}

	p.logger.Info("starting ingestion",
		zap.Int("files", len(paths)),
		zap.Int("stored_documents", len(known)),
		zap.Stringer("chunker", stringer(p.splitter)),
	)

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(start)
			return result, err
		}

		report := p.processFile(ctx, path, known)
		if report.Written > 0 {
			known[report.Document] = struct{}{}
		}
		result.Files = append(result.Files, report)
		result.TotalWritten += report.Written
		p.record(report)
	}

	if total, err := p.store.Count(ctx); err != nil {
		p.logger.Warn("counting stored entries failed", zap.Error(err))
	} else {
		result.StoreTotal = total
	}

	result.Duration = time.Since(start)
	p.logger.Info("ingestion complete",
		zap.Int("ingested", len(result.Ingested())),
		zap.Int("duplicates", len(result.Duplicates())),
		zap.Int("failed", len(result.Failures())),
		zap.Int("written", result.TotalWritten),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// processFile handles the full pipeline for a single file.
func (p *Pipeline) processFile(ctx context.Context, path string, known map[string]struct{}) FileReport {
	report := FileReport{Path: path, Document: DocumentName(path)}
	log := p.logger.With(zap.String("path", path), zap.String("document", report.Document))

	if _, ok := known[report.Document]; ok {
		log.Info("document already stored, skipping")
		report.Duplicate = true
		return report
	}

	pages, err := p.extractor.Extract(ctx, path)
	if err != nil {
		log.Warn("failed to extract document", zap.Error(err))
		report.Err = fmt.Errorf("extract: %w", err)
		return report
	}
	pages = extract.Clean(pages)
	report.Pages = len(pages)

	chunks, err := p.splitter.Split(report.Document, pages)
	if err != nil {
		log.Warn("failed to chunk document", zap.Error(err))
		report.Err = fmt.Errorf("chunk: %w", err)
		return report
	}
	report.Chunks = len(chunks)
	if len(chunks) == 0 {
		log.Info("no text extracted")
		return report
	}

	written, err := p.store.Upsert(ctx, report.Document, chunks)
	report.Written = written
	if err != nil {
		log.Warn("failed to store chunks", zap.Int("written", written), zap.Error(err))
		report.Err = fmt.Errorf("store: %w", err)
		return report
	}
	if written == 0 {
		log.Info("document already stored, skipping")
		report.Duplicate = true
		return report
	}

	log.Info("ingested document",
		zap.Int("pages", report.Pages),
		zap.Int("chunks", report.Chunks),
		zap.Int("written", written),
	)
	return report
}

func (p *Pipeline) record(r FileReport) {
	if p.metrics == nil {
		return
	}
	outcome := metrics.OutcomeIngested
	switch {
	case r.Duplicate:
		outcome = metrics.OutcomeDuplicate
	case r.Partial():
		outcome = metrics.OutcomePartial
	case r.Failed():
		outcome = metrics.OutcomeFailed
	case r.Empty():
		outcome = metrics.OutcomeEmpty
	}
	p.metrics.IngestFiles.WithLabelValues(outcome).Inc()
	p.metrics.ChunksWritten.Add(float64(r.Written))
}

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }

func stringer(v any) fmt.Stringer {
	if s, ok := v.(fmt.Stringer); ok {
		return s
	}
	return stringerFunc(func() string { return fmt.Sprintf("%T", v) })
}
