package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/dgallion1/examkb/internal/questions"
	"github.com/spf13/cobra"
)

type questionsOpts struct {
	output     string
	year       int
	subject    string
	chapter    string
	examType   string
	sourceType string
	force      bool
}

func newQuestionsCmd(a *app) *cobra.Command {
	o := &questionsOpts{}
	cmd := &cobra.Command{
		Use:   "questions <file.csv|file.xlsx>",
		Short: "Convert a question sheet into SQL inserts",
		Long: `Reads a question sheet with the columns 题号, 题型, 题目内容, 选项A..选项E,
答案 and 解析, validates every row and writes a scoped DELETE followed by
one INSERT per question.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runQuestions(cmd, args[0], o)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&o.output, "output", "o", "", "output file (default stdout)")
	f.IntVar(&o.year, "year", 0, "exam year of the sheet")
	f.StringVar(&o.subject, "subject", "", "subject name (default EXAMKB_SUBJECT)")
	f.StringVar(&o.chapter, "chapter", "", "chapter tag stored with every question")
	f.StringVar(&o.examType, "exam-type", "", "exam type (default EXAMKB_EXAM_TYPE)")
	f.StringVar(&o.sourceType, "source-type", "", "source type (default EXAMKB_SOURCE_TYPE)")
	f.BoolVar(&o.force, "force", false, "write SQL even when rows fail validation")
	cmd.MarkFlagRequired("year")
	return cmd
}

func (a *app) runQuestions(cmd *cobra.Command, path string, o *questionsOpts) error {
	log := a.cliLogger(cmd.ErrOrStderr())

	qs, err := questions.Load(path)
	if err != nil {
		return err
	}
	issues := questions.Validate(qs)
	for _, is := range issues {
		log.Warn("invalid question", "question", is.Number, "field", is.Field, "reason", is.Message)
	}
	if len(issues) > 0 && !o.force {
		return fmt.Errorf("%d validation issues in %s (use --force to write anyway)", len(issues), path)
	}

	meta := questions.Meta{
		ExamType:   or(o.examType, a.cfg.ExamType),
		Subject:    or(o.subject, a.cfg.Subject),
		Chapter:    o.chapter,
		SourceType: or(o.sourceType, a.cfg.SourceType),
		Year:       o.year,
		Source:     filepath.Base(path),
	}

	w, closeFn, err := openOutput(cmd, o.output)
	if err != nil {
		return err
	}
	err = questions.WriteSQL(w, meta, qs, time.Now())
	if cerr := closeFn(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write sql: %w", err)
	}
	log.Info("questions converted", "file", path, "questions", len(qs), "issues", len(issues))
	return nil
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
