package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/examkb/internal/doctree"
)

// Node types of a flattened record.
const (
	TypeChapter = "chapter"
	TypeSection = "section"
	TypePoint   = "knowledge_point"
)

// Record is one tree node as a database row. ParentID is empty for
// chapters. ID is the tree id prefixed with the subject code so several
// subjects can share a table; Code is the bare tree id.
type Record struct {
	Type        string `json:"type"`
	ID          string `json:"id"`
	Code        string `json:"code"`
	Title       string `json:"title"`
	ParentID    string `json:"parent_id,omitempty"`
	SubjectCode string `json:"subject_code"`
	Level       int    `json:"level"`
	Content     string `json:"content,omitempty"`
	PointType   string `json:"point_type,omitempty"`
	DrugName    string `json:"drug_name,omitempty"`
	Importance  int    `json:"importance,omitempty"`
}

// Flatten walks the tree depth-first, parents before children.
func Flatten(tree *doctree.Tree) []Record {
	prefix := func(id string) string {
		if tree.SubjectCode == "" {
			return id
		}
		return tree.SubjectCode + "_" + id
	}

	var out []Record
	for _, ch := range tree.Chapters {
		chID := prefix(ch.ID)
		out = append(out, Record{
			Type: TypeChapter, ID: chID, Code: ch.ID, Title: ch.Title,
			SubjectCode: tree.SubjectCode, Level: 1,
		})
		for _, sec := range ch.Sections {
			secID := prefix(sec.ID)
			out = append(out, Record{
				Type: TypeSection, ID: secID, Code: sec.ID, Title: sec.Title, ParentID: chID,
				SubjectCode: tree.SubjectCode, Level: 2,
			})
			for _, p := range sec.Points {
				out = append(out, Record{
					Type:        TypePoint,
					ID:          prefix(p.ID),
					Code:        p.ID,
					Title:       p.Title,
					ParentID:    secID,
					SubjectCode: tree.SubjectCode,
					Level:       3,
					Content:     p.Content,
					PointType:   joinTypes(p.Types),
					DrugName:    p.DrugName,
					Importance:  p.Importance,
				})
			}
		}
	}
	return out
}

func joinTypes(types []doctree.PointType) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = string(t)
	}
	return strings.Join(parts, ",")
}

// WriteRecordsJSON writes records as an indented JSON array.
func WriteRecordsJSON(w io.Writer, records []Record) error {
	if records == nil {
		records = []Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode records: %w", err)
	}
	return nil
}
