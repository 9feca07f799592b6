package doctree

import (
	"strings"
	"unicode/utf8"
)

// Meta describes where a tree came from.
type Meta struct {
	Title       string
	Subject     string
	SubjectCode string
	Source      string
	SourceHash  string
}

// DrugClassifier decides where a sentence of a point belongs in the drug
// view. SentenceTypes returns the point types whose rules match s.
type DrugClassifier interface {
	SentenceTypes(s string) []PointType
	Severity(s string) Severity
	IsPharmacokinetic(s string) bool
}

// Assemble folds parsed chapters into a tree with counters and the drug view.
// Section text buffers are dropped; they are not part of the output.
// A nil classifier records drug names, categories and importance only.
func Assemble(meta Meta, chapters []Chapter, c DrugClassifier) *Tree {
	tree := &Tree{
		Title:       meta.Title,
		Subject:     meta.Subject,
		SubjectCode: meta.SubjectCode,
		Source:      meta.Source,
		SourceHash:  meta.SourceHash,
		Chapters:    make([]Chapter, 0, len(chapters)),
	}
	for _, ch := range chapters {
		out := Chapter{ID: ch.ID, Title: ch.Title, Ordinal: ch.Ordinal, Sections: make([]Section, 0, len(ch.Sections))}
		for _, sec := range ch.Sections {
			pts := sec.Points
			if len(pts) == 0 {
				pts = nil
			}
			out.Sections = append(out.Sections, Section{ID: sec.ID, Title: sec.Title, Points: pts})
		}
		tree.Chapters = append(tree.Chapters, out)
	}
	tree.RebuildDrugs(c)
	tree.Stats = Count(tree)
	return tree
}

// Count sums chapters, sections and points over the nested structure.
func Count(tree *Tree) Stats {
	s := Stats{TotalChapters: len(tree.Chapters), TotalDrugs: len(tree.Drugs)}
	for _, ch := range tree.Chapters {
		s.TotalSections += len(ch.Sections)
		for _, sec := range ch.Sections {
			s.TotalPoints += len(sec.Points)
		}
	}
	return s
}

// snippetMax caps one drug-view sentence in runes.
const snippetMax = 120

// RebuildDrugs recomputes the drug view from the points alone.
func (t *Tree) RebuildDrugs(c DrugClassifier) {
	drugs := make(map[string]*DrugInfo)
	for _, ch := range t.Chapters {
		for _, sec := range ch.Sections {
			for _, p := range sec.Points {
				if p.DrugName == "" {
					continue
				}
				info, ok := drugs[p.DrugName]
				if !ok {
					info = &DrugInfo{Name: p.DrugName, Category: sec.Title}
					drugs[p.DrugName] = info
				}
				if p.Importance > info.Importance {
					info.Importance = p.Importance
				}
				if c != nil {
					addSnippets(info, p, c)
				}
			}
		}
	}
	t.Drugs = drugs
}

// addSnippets files each sentence of p under the aspects its own wording
// matches. Only aspects the point was classified with are considered.
func addSnippets(info *DrugInfo, p KnowledgePoint, c DrugClassifier) {
	text := p.FullContent
	if text == "" {
		text = p.Content
	}
	for _, s := range Sentences(text) {
		if c.IsPharmacokinetic(s) {
			info.Pharmacokinetics = appendUnique(info.Pharmacokinetics, s)
		}
		for _, pt := range c.SentenceTypes(s) {
			if !p.HasType(pt) {
				continue
			}
			switch pt {
			case PointMechanism:
				info.Mechanism = appendUnique(info.Mechanism, s)
			case PointAdverseReaction:
				info.AdverseReactions = appendUnique(info.AdverseReactions, s)
				switch c.Severity(s) {
				case SeveritySevere:
					info.AdverseLevels.Severe = appendUnique(info.AdverseLevels.Severe, s)
				case SeverityModerate:
					info.AdverseLevels.Moderate = appendUnique(info.AdverseLevels.Moderate, s)
				default:
					info.AdverseLevels.Mild = appendUnique(info.AdverseLevels.Mild, s)
				}
			case PointContraindication:
				info.Contraindications = appendUnique(info.Contraindications, s)
			case PointInteraction:
				info.Interactions = appendUnique(info.Interactions, s)
			case PointIndication:
				info.Indications = appendUnique(info.Indications, s)
			case PointDosage:
				info.Dosage = appendUnique(info.Dosage, s)
			case PointMemoryTip:
				info.MemoryTips = appendUnique(info.MemoryTips, s)
			}
		}
	}
}

// Sentences splits text into clauses at CJK or ASCII punctuation and line
// breaks. Pieces are trimmed and capped at snippetMax runes.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '。', '！', '？', '；', ';', '，', '\n':
			return true
		}
		return false
	})
	out := parts[:0]
	for _, s := range parts {
		s = strings.ReplaceAll(s, "**", "")
		s = strings.TrimSpace(strings.Trim(strings.TrimSpace(s), ">#|"))
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) > snippetMax {
			s = string([]rune(s)[:snippetMax])
		}
		out = append(out, s)
	}
	return out
}

func appendUnique(list []string, s string) []string {
	for _, existing := range list {
		if existing == s {
			return list
		}
	}
	return append(list, s)
}
