// Package knowledge segments section prose into paragraphs and turns the
// relevant ones into classified, scored knowledge points.
package knowledge

import (
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/examkb/internal/doctree"
)

// Extractor applies a compiled Ruleset. It holds no mutable state.
type Extractor struct {
	r   *rules
	log *slog.Logger
}

// New compiles rs. A nil logger discards output.
func New(rs Ruleset, log *slog.Logger) (*Extractor, error) {
	r, err := compileRules(rs)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Extractor{r: r, log: log}, nil
}

// Fill extracts points for every section and clears the section buffers.
func (e *Extractor) Fill(chapters []doctree.Chapter) {
	for ci := range chapters {
		for si := range chapters[ci].Sections {
			sec := &chapters[ci].Sections[si]
			sec.Points = e.Extract(sec.ID, sec.Text)
			sec.Text = ""
		}
	}
}

// Extract returns the points found in one section's text. Point ids are
// sectionID.1, sectionID.2, ... in paragraph order.
func (e *Extractor) Extract(sectionID, text string) []doctree.KnowledgePoint {
	var points []doctree.KnowledgePoint
	short, irrelevant := 0, 0

	for _, para := range e.Segment(text) {
		switch {
		case utf8.RuneCountInString(para) < e.r.minLength:
			short++
			continue
		case !e.r.relevance.MatchString(para):
			irrelevant++
			continue
		}
		points = append(points, doctree.KnowledgePoint{
			ID:          sectionID + "." + strconv.Itoa(len(points)+1),
			Title:       e.title(para),
			Content:     truncate(para, e.r.contentMax, ""),
			FullContent: truncate(para, e.r.fullContentMax, ""),
			Types:       e.Classify(para),
			DrugName:    e.DetectDrug(para),
			Importance:  e.Score(para),
		})
	}

	e.log.Debug("section extracted", "section", sectionID, "points", len(points),
		"too_short", short, "no_keyword", irrelevant)
	return points
}

// Passes reports whether a paragraph clears both the length gate and the
// relevance gate.
func (e *Extractor) Passes(para string) bool {
	para = strings.TrimSpace(para)
	return utf8.RuneCountInString(para) >= e.r.minLength && e.r.relevance.MatchString(para)
}

// Segment splits text into candidate paragraphs. Each delimiter match
// starts a new paragraph; whitespace-only pieces are dropped.
func (e *Extractor) Segment(text string) []string {
	cuts := map[int]bool{}
	for _, re := range e.r.delimiters {
		for _, loc := range re.FindAllStringIndex(text, -1) {
			if loc[0] > 0 {
				cuts[loc[0]] = true
			}
		}
	}
	offsets := make([]int, 0, len(cuts)+2)
	offsets = append(offsets, 0)
	for off := range cuts {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)
	offsets = append(offsets, len(text))

	var paras []string
	for i := 0; i+1 < len(offsets); i++ {
		if p := strings.TrimSpace(text[offsets[i]:offsets[i+1]]); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// Classify returns every matching point type in rule order, or other.
func (e *Extractor) Classify(para string) []doctree.PointType {
	types := e.SentenceTypes(para)
	if len(types) == 0 {
		return []doctree.PointType{doctree.PointOther}
	}
	return types
}

// DetectDrug tries the curated names, then bold spans, then suffix
// patterns. The first hit wins.
func (e *Extractor) DetectDrug(para string) string {
	if e.r.drugNames != nil {
		if name := e.r.drugNames.FindString(para); name != "" {
			return name
		}
	}
	if e.r.drugBold != nil {
		if m := e.r.drugBold.FindStringSubmatch(para); m != nil {
			return m[1]
		}
	}
	for _, re := range e.r.suffixes {
		for _, m := range re.FindAllStringSubmatch(para, -1) {
			if name := e.trimStops(m[1]); utf8.RuneCountInString(name) >= minSuffixName {
				return name
			}
		}
	}
	return ""
}

// minSuffixName is the shortest suffix-matched name kept after trimming.
const minSuffixName = 3

// trimStops drops everything up to the end of the last stop word that
// still leaves minSuffixName runes, so 注射 inside 注射液 is not a cut.
func (e *Extractor) trimStops(name string) string {
	cut := 0
	for _, w := range e.r.drugStops {
		for off := 0; ; {
			i := strings.Index(name[off:], w)
			if i < 0 {
				break
			}
			off += i + len(w)
			if off > cut && utf8.RuneCountInString(name[off:]) >= minSuffixName {
				cut = off
			}
		}
	}
	return name[cut:]
}

// SentenceTypes returns the point types whose rules match s, without the
// fallback to other.
func (e *Extractor) SentenceTypes(s string) []doctree.PointType {
	var types []doctree.PointType
	for _, m := range e.r.types {
		if m.re.MatchString(s) {
			types = append(types, m.typ)
		}
	}
	return types
}

// Severity grades an adverse-reaction sentence; unknown wording is mild.
func (e *Extractor) Severity(s string) doctree.Severity {
	switch {
	case e.r.severe != nil && e.r.severe.MatchString(s):
		return doctree.SeveritySevere
	case e.r.moderate != nil && e.r.moderate.MatchString(s):
		return doctree.SeverityModerate
	default:
		return doctree.SeverityMild
	}
}

// IsPharmacokinetic reports whether s describes absorption, metabolism
// or elimination.
func (e *Extractor) IsPharmacokinetic(s string) bool {
	return e.r.pk != nil && e.r.pk.MatchString(s)
}

// Score computes the 1-5 importance of a paragraph.
func (e *Extractor) Score(para string) int {
	score := e.r.base
	for _, m := range e.r.scores {
		if m.re.MatchString(para) {
			score += m.weight
		}
	}
	if e.r.star != "" && e.r.starMin > 0 {
		if n := strings.Count(para, e.r.star); n >= e.r.starMin && float64(n) > score {
			score = float64(n)
		}
	}
	return clamp(int(math.Floor(score)), 1, 5)
}

// title is the text before the first sentence end or newline.
func (e *Extractor) title(para string) string {
	head := para
	if i := strings.IndexAny(para, "。！？\n"); i >= 0 {
		head = para[:i]
	}
	head = strings.TrimSpace(strings.ReplaceAll(head, "**", ""))
	if head == "" {
		head = para
	}
	return truncate(head, e.r.titleMax, "...")
}

// truncate cuts s to max runes, appending suffix when it cut.
func truncate(s string, max int, suffix string) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max]) + suffix
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
