// Package export serializes knowledge trees as JSON, flat records and SQL.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/dgallion1/examkb/internal/doctree"
	"github.com/dgallion1/examkb/internal/knowledge"
)

// builtinRules sorts sentences when a document arrives without its drug view.
var builtinRules = sync.OnceValue(func() doctree.DrugClassifier {
	ex, err := knowledge.New(knowledge.DefaultRuleset(), nil)
	if err != nil {
		panic(fmt.Sprintf("built-in ruleset: %v", err))
	}
	return ex
})

type treeJSON struct {
	Title       string                       `json:"title"`
	Subject     string                       `json:"subject"`
	SubjectCode string                       `json:"subject_code,omitempty"`
	Source      string                       `json:"source,omitempty"`
	SourceHash  string                       `json:"source_hash,omitempty"`
	Statistics  doctree.Stats                `json:"statistics"`
	Chapters    []chapterJSON                `json:"chapters"`
	Drugs       map[string]*doctree.DrugInfo `json:"drugs"`
}

type chapterJSON struct {
	ChapterID   string        `json:"chapter_id"`
	ChapterName string        `json:"chapter_name"`
	Ordinal     int           `json:"ordinal,omitempty"`
	Sections    []sectionJSON `json:"sections"`
}

type sectionJSON struct {
	SectionID       string      `json:"section_id"`
	SectionName     string      `json:"section_name"`
	KnowledgePoints []pointJSON `json:"knowledge_points"`
}

type pointJSON struct {
	PointID         string   `json:"point_id"`
	PointTitle      string   `json:"point_title"`
	DrugName        string   `json:"drug_name"`
	KnowledgeTypes  []string `json:"knowledge_types"`
	ImportanceLevel int      `json:"importance_level"`
	Content         string   `json:"content"`
	FullContent     string   `json:"full_content"`
}

// WriteJSON writes the knowledge tree document, indented, with
// non-ASCII text left unescaped.
func WriteJSON(w io.Writer, tree *doctree.Tree) error {
	doc := treeJSON{
		Title:       tree.Title,
		Subject:     tree.Subject,
		SubjectCode: tree.SubjectCode,
		Source:      tree.Source,
		SourceHash:  tree.SourceHash,
		Statistics:  tree.Stats,
		Chapters:    make([]chapterJSON, 0, len(tree.Chapters)),
		Drugs:       tree.Drugs,
	}
	if doc.Drugs == nil {
		doc.Drugs = map[string]*doctree.DrugInfo{}
	}

	for _, ch := range tree.Chapters {
		cj := chapterJSON{
			ChapterID:   ch.ID,
			ChapterName: ch.Title,
			Ordinal:     ch.Ordinal,
			Sections:    make([]sectionJSON, 0, len(ch.Sections)),
		}
		for _, sec := range ch.Sections {
			sj := sectionJSON{
				SectionID:       sec.ID,
				SectionName:     sec.Title,
				KnowledgePoints: make([]pointJSON, 0, len(sec.Points)),
			}
			for _, p := range sec.Points {
				types := make([]string, len(p.Types))
				for i, t := range p.Types {
					types[i] = string(t)
				}
				sj.KnowledgePoints = append(sj.KnowledgePoints, pointJSON{
					PointID:         p.ID,
					PointTitle:      p.Title,
					DrugName:        p.DrugName,
					KnowledgeTypes:  types,
					ImportanceLevel: p.Importance,
					Content:         p.Content,
					FullContent:     p.FullContent,
				})
			}
			cj.Sections = append(cj.Sections, sj)
		}
		doc.Chapters = append(doc.Chapters, cj)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode tree: %w", err)
	}
	return nil
}

// ReadJSON loads a tree written by WriteJSON. A document without a drugs
// object gets the view rebuilt from its points with the built-in rules.
func ReadJSON(r io.Reader) (*doctree.Tree, error) {
	var doc treeJSON
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}

	tree := &doctree.Tree{
		Title:       doc.Title,
		Subject:     doc.Subject,
		SubjectCode: doc.SubjectCode,
		Source:      doc.Source,
		SourceHash:  doc.SourceHash,
		Stats:       doc.Statistics,
		Chapters:    make([]doctree.Chapter, 0, len(doc.Chapters)),
		Drugs:       doc.Drugs,
	}
	for _, cj := range doc.Chapters {
		ch := doctree.Chapter{
			ID:       cj.ChapterID,
			Title:    cj.ChapterName,
			Ordinal:  cj.Ordinal,
			Sections: make([]doctree.Section, 0, len(cj.Sections)),
		}
		for _, sj := range cj.Sections {
			sec := doctree.Section{ID: sj.SectionID, Title: sj.SectionName}
			for _, pj := range sj.KnowledgePoints {
				p := doctree.KnowledgePoint{
					ID:          pj.PointID,
					Title:       pj.PointTitle,
					Content:     pj.Content,
					FullContent: pj.FullContent,
					DrugName:    pj.DrugName,
					Importance:  pj.ImportanceLevel,
				}
				for _, t := range pj.KnowledgeTypes {
					p.Types = append(p.Types, doctree.ParsePointType(t))
				}
				sec.Points = append(sec.Points, p)
			}
			ch.Sections = append(ch.Sections, sec)
		}
		tree.Chapters = append(tree.Chapters, ch)
	}

	if tree.Drugs == nil {
		tree.RebuildDrugs(builtinRules())
	}
	return tree, nil
}
