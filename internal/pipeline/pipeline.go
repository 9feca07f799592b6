package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dgallion1/examkb/internal/config"
	"github.com/dgallion1/examkb/internal/doctree"
	"github.com/dgallion1/examkb/internal/knowledge"
	"github.com/dgallion1/examkb/internal/parser"
	"github.com/dgallion1/examkb/internal/structure"
	"github.com/google/uuid"
)

// Phase names a pipeline stage in logs and errors.
type Phase string

const (
	PhaseLoading     Phase = "loading"
	PhaseStructuring Phase = "structuring"
	PhaseExtracting  Phase = "extracting"
	PhaseAssembling  Phase = "assembling"
)

// Pipeline runs one document through load, structure, extraction and
// assembly. Apart from its Stats it holds only immutable configuration,
// so one Pipeline can serve concurrent runs.
type Pipeline struct {
	structure  *structure.Parser
	extractor  *knowledge.Extractor
	parserOpts parser.Options
	subject    string
	code       string
	stats      *Stats
	log        *slog.Logger
}

// Options overrides parts of the environment config for one pipeline.
type Options struct {
	Rules       *knowledge.Ruleset // nil loads cfg.RulesPath
	Subject     string
	SubjectCode string
}

// New builds a pipeline from cfg. A nil logger discards output.
func New(cfg config.Config, opts Options, log *slog.Logger) (*Pipeline, error) {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	rs := opts.Rules
	if rs == nil {
		loaded, err := knowledge.LoadRuleset(cfg.RulesPath)
		if err != nil {
			return nil, err
		}
		rs = &loaded
	}
	ex, err := knowledge.New(*rs, log)
	if err != nil {
		return nil, fmt.Errorf("compile rules: %w", err)
	}

	scfg, err := structure.NewConfig(cfg.ChapterPattern, cfg.SectionPattern)
	if err != nil {
		return nil, err
	}
	// Zero keeps the heading-level defaults; a negative level disables them.
	if cfg.ChapterLevel != 0 {
		scfg.ChapterLevel = cfg.ChapterLevel
	}
	if cfg.SectionLevel != 0 {
		scfg.SectionLevel = cfg.SectionLevel
	}

	p := &Pipeline{
		structure:  structure.New(scfg, log),
		extractor:  ex,
		parserOpts: parser.Options{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext},
		subject:    cfg.Subject,
		code:       cfg.SubjectCode,
		stats:      NewStats(time.Hour),
		log:        log,
	}
	if opts.Subject != "" {
		p.subject = opts.Subject
	}
	if opts.SubjectCode != "" {
		p.code = opts.SubjectCode
	}
	return p, nil
}

// Result is the outcome of one run.
type Result struct {
	RunID    string
	Tree     *doctree.Tree
	Records  int // text records produced by the loader
	Duration time.Duration
}

// RunFile opens path and runs it.
func (p *Pipeline) RunFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseLoading, err)
	}
	defer f.Close()
	return p.Run(ctx, f, path)
}

// Stats returns the rolling run statistics of this pipeline.
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Run processes a whole document read from r. filename selects the
// loader by extension. Any error aborts the run; there is no partial output.
func (p *Pipeline) Run(ctx context.Context, r io.Reader, filename string) (*Result, error) {
	start := time.Now()
	res, err := p.run(ctx, r, filename, start)
	if err != nil {
		p.stats.record(time.Since(start), 0, true)
		return nil, err
	}
	p.stats.record(res.Duration, res.Tree.Stats.TotalPoints, false)
	return res, nil
}

func (p *Pipeline) run(ctx context.Context, r io.Reader, filename string, start time.Time) (*Result, error) {
	runID := uuid.NewString()
	log := p.log.With("run_id", runID, "file", filename)

	// Phase 1: Load
	ld, err := parser.ForFile(filename, p.parserOpts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseLoading, err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%s: read: %w", PhaseLoading, err)
	}
	doc, err := ld.Parse(bytes.NewReader(data), filename)
	if err != nil {
		log.Error("load failed", "error", err)
		return nil, fmt.Errorf("%s: %w", PhaseLoading, err)
	}
	log.Info("document loaded", "records", len(doc.Records), "bytes", len(data))

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseStructuring, err)
	}

	// Phase 2: Structure
	chapters := p.structure.Parse(doc.Records)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", PhaseExtracting, err)
	}

	// Phase 3: Knowledge points
	p.extractor.Fill(chapters)

	// Phase 4: Assemble
	tree := doctree.Assemble(doctree.Meta{
		Title:       doc.Title,
		Subject:     p.subject,
		SubjectCode: p.code,
		Source:      filename,
		SourceHash:  ContentHashHex(data),
	}, chapters, p.extractor)

	res := &Result{RunID: runID, Tree: tree, Records: len(doc.Records), Duration: time.Since(start)}
	log.Info("run complete",
		"chapters", tree.Stats.TotalChapters,
		"sections", tree.Stats.TotalSections,
		"points", tree.Stats.TotalPoints,
		"drugs", tree.Stats.TotalDrugs,
		"duration", res.Duration)
	return res, nil
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}
