// Package questions converts exam-question spreadsheets into SQL.
package questions

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat is returned by Load for files other than CSV/XLSX.
var ErrUnsupportedFormat = errors.New("unsupported question file")

// OptionKeys are the option columns in sheet order.
var OptionKeys = [...]string{"A", "B", "C", "D", "E"}

// Question is one row of a question sheet.
type Question struct {
	Number      int       `validate:"gt=0"`
	Type        string    `validate:"oneof=single match comprehensive multiple"`
	Content     string    `validate:"required"`
	Options     [5]string // A..E, empty when the question has fewer options
	Answer      string    `validate:"required,max=5"`
	Explanation string
}

// Column headers.
const (
	colNumber      = "题号"
	colType        = "题型"
	colContent     = "题目内容"
	colAnswer      = "答案"
	colExplanation = "解析"
	colOptionFmt   = "选项%s"
)

// Load reads questions from a .csv or .xlsx file. Rows without a number
// are skipped.
func Load(path string) ([]Question, error) {
	if !IsSupportedExtension(path) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, path)
}

// IsSupportedExtension reports whether name is a CSV or XLSX file.
func IsSupportedExtension(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv", ".xlsx":
		return true
	}
	return false
}

// Read picks the reader by the extension of name.
func Read(r io.Reader, name string) ([]Question, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return ReadCSV(r)
	case ".xlsx":
		return ReadXLSX(r)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadCSV reads a UTF-8 CSV with a header row. A leading BOM is ignored.
func ReadCSV(r io.Reader) ([]Question, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return fromRows(rows)
}

// ReadXLSX reads the first sheet of a workbook.
func ReadXLSX(r io.Reader) ([]Question, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()
	return readWorkbook(f)
}

func readWorkbook(f *excelize.File) ([]Question, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) ([]Question, error) {
	if len(rows) == 0 {
		return nil, nil
	}

	header := map[string]int{}
	for i, h := range rows[0] {
		header[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	if _, ok := header[colNumber]; !ok {
		return nil, fmt.Errorf("missing %s column", colNumber)
	}
	cell := func(row []string, name string) string {
		i, ok := header[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []Question
	for line, row := range rows[1:] {
		num := cell(row, colNumber)
		if num == "" {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			return nil, fmt.Errorf("row %d: bad %s %q", line+2, colNumber, num)
		}
		q := Question{
			Number:      n,
			Type:        cell(row, colType),
			Content:     cell(row, colContent),
			Answer:      strings.ToUpper(cell(row, colAnswer)),
			Explanation: cell(row, colExplanation),
		}
		if q.Type == "" {
			q.Type = "single"
		}
		for i, k := range OptionKeys {
			q.Options[i] = cell(row, fmt.Sprintf(colOptionFmt, k))
		}
		out = append(out, q)
	}
	return out, nil
}
