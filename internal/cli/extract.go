package cli

import (
	"fmt"
	"time"

	"github.com/dgallion1/examkb/internal/export"
	"github.com/dgallion1/examkb/internal/pipeline"
	"github.com/dgallion1/examkb/internal/store"
	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatTree    = "tree"
	formatRecords = "records"
	formatSQL     = "sql"
)

type extractOpts struct {
	output      string
	format      string
	subject     string
	subjectCode string
	store       bool
	dsn         string
}

func newExtractCmd(a *app) *cobra.Command {
	o := &extractOpts{}
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Build the knowledge tree of one document",
		Long: `Loads a layout JSON, Markdown, text, HTML, PDF or DOCX document, finds its
chapters and sections, extracts knowledge points and writes the result.

Formats:
  tree     nested JSON tree with per-drug view (default)
  records  flat JSON records, one per node
  sql      DELETE/INSERT statements for the knowledge_tree table`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runExtract(cmd, args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "output file (default stdout)")
	f.StringVarP(&o.format, "format", "f", formatTree, "output format: tree, records or sql")
	f.StringVar(&o.subject, "subject", "", "subject name (overrides EXAMKB_SUBJECT)")
	f.StringVar(&o.subjectCode, "subject-code", "", "subject code used to prefix record ids (overrides EXAMKB_SUBJECT_CODE)")
	f.BoolVar(&o.store, "store", false, "also replace the subject's rows in the database")
	f.StringVar(&o.dsn, "db", "", "database DSN for --store (default DATABASE_URL)")
	return cmd
}

func (a *app) runExtract(cmd *cobra.Command, path string, o *extractOpts) error {
	switch o.format {
	case formatTree, formatRecords, formatSQL:
	default:
		return fmt.Errorf("unknown format %q", o.format)
	}
	dsn := o.dsn
	if dsn == "" {
		dsn = a.cfg.DatabaseURL
	}
	if o.store && dsn == "" {
		return fmt.Errorf("--store needs --db or DATABASE_URL")
	}

	log := a.cliLogger(cmd.ErrOrStderr())
	ctx := cmd.Context()

	p, err := pipeline.New(a.cfg, pipeline.Options{Subject: o.subject, SubjectCode: o.subjectCode}, log)
	if err != nil {
		return err
	}
	res, err := p.RunFile(ctx, path)
	if err != nil {
		return err
	}
	records := export.Flatten(res.Tree)

	if o.store {
		st, err := store.Open(ctx, dsn)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.Init(ctx); err != nil {
			return err
		}
		if err := st.Replace(ctx, res.Tree.SubjectCode, records); err != nil {
			return err
		}
		log.Info("records stored", "subject_code", res.Tree.SubjectCode, "records", len(records))
	}

	w, closeFn, err := openOutput(cmd, o.output)
	if err != nil {
		return err
	}
	switch o.format {
	case formatTree:
		err = export.WriteJSON(w, res.Tree)
	case formatRecords:
		err = export.WriteRecordsJSON(w, records)
	case formatSQL:
		err = export.WriteSQL(w, records, time.Now())
	}
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", o.format, err)
	}
	return nil
}
