package questions

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/dgallion1/examkb/internal/export"
)

// Meta scopes an import. The DELETE at the top of the file removes
// exactly the rows an earlier import with the same Meta created.
type Meta struct {
	ExamType   string
	Subject    string
	Chapter    string
	SourceType string
	Year       int
	Source     string
}

// TypeNames labels question types in SQL comments.
var TypeNames = map[string]string{
	"single":        "最佳选择题",
	"match":         "配伍选择题",
	"comprehensive": "综合分析题",
	"multiple":      "多项选择题",
}

type option struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// optionsJSON serializes the non-empty options as [{"key","value"}].
func optionsJSON(q Question) (string, error) {
	opts := make([]option, 0, len(OptionKeys))
	for i, k := range OptionKeys {
		if q.Options[i] != "" {
			opts = append(opts, option{Key: k, Value: q.Options[i]})
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(opts); err != nil {
		return "", err
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}

// WriteSQL writes a scoped DELETE followed by one INSERT per question.
func WriteSQL(w io.Writer, meta Meta, qs []Question, now time.Time) error {
	bw := bufio.NewWriter(w)
	q := func(s string) string { return "'" + export.Escape(s) + "'" }

	fmt.Fprintf(bw, "-- question import\n-- year: %d\n-- questions: %d\n-- generated: %s\n", meta.Year, len(qs), now.Format(time.RFC3339))
	if meta.Source != "" {
		fmt.Fprintf(bw, "-- source: %s\n", meta.Source)
	}
	fmt.Fprintf(bw, "\nDELETE FROM questions WHERE exam_type = %s AND subject = %s AND source_year = %d;\n",
		q(meta.ExamType), q(meta.Subject), meta.Year)

	for _, question := range qs {
		opts, err := optionsJSON(question)
		if err != nil {
			return fmt.Errorf("question %d options: %w", question.Number, err)
		}
		name := TypeNames[question.Type]
		if name == "" {
			name = question.Type
		}
		fmt.Fprintf(bw, "\n-- %d %s\n", question.Number, name)
		fmt.Fprintf(bw, "INSERT INTO questions (exam_type, subject, chapter, question_type, content, options, correct_answer, explanation, difficulty, knowledge_points, source_type, source_year, is_published) "+
			"VALUES (%s, %s, %s, %s, %s, %s::json, %s, %s, 2, ARRAY[%s], %s, %d, true);\n",
			q(meta.ExamType), q(meta.Subject), q(meta.Chapter), q(question.Type), q(question.Content), q(opts),
			q(question.Answer), q(question.Explanation), q(meta.Chapter), q(meta.SourceType), meta.Year)
	}
	return bw.Flush()
}
