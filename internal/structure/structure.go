// Package structure partitions a flat record stream into chapters and
// sections using heading marker patterns.
package structure

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/dgallion1/examkb/internal/doctree"
)

type state int

const (
	noChapter state = iota
	inChapterNoSection
	inSection
)

func (s state) String() string {
	switch s {
	case noChapter:
		return "no_chapter"
	case inChapterNoSection:
		return "in_chapter_no_section"
	default:
		return "in_section"
	}
}

// Parser scans records for chapter and section markers.
type Parser struct {
	cfg Config
	log *slog.Logger
}

// New returns a Parser. A nil logger discards output.
func New(cfg Config, log *slog.Logger) *Parser {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Parser{cfg: cfg, log: log}
}

// Parse returns the chapter skeleton of records. Each section carries its
// prose in Section.Text; points are filled in later. Output depends only
// on the records and the config.
//
// Heading levels mark chapters and sections only when no record matches
// ChapterPattern, so a titled note ("# 西药二" over "## 第一章 ...") keeps
// its numbered chapters.
func (p *Parser) Parse(records []doctree.TextRecord) []doctree.Chapter {
	b := &builder{chapter: -1, section: -1}
	byLevel := !p.hasChapterMarkers(records)

	for _, rec := range records {
		content := strings.TrimSpace(rec.Content)
		if content == "" {
			continue
		}

		if m := p.cfg.ChapterPattern.FindStringSubmatch(content); m != nil {
			n, _ := ParseNumeral(m[1])
			b.openChapter(n, p.cfg.cleanTitle(m[2]))
			continue
		}
		if byLevel && p.isHeading(rec, p.cfg.ChapterLevel) {
			b.openChapter(len(b.chapters)+1, p.cfg.cleanTitle(headingDecor.ReplaceAllString(content, "")))
			continue
		}

		title, ok := "", false
		if m := p.cfg.SectionPattern.FindStringSubmatch(content); m != nil {
			title, ok = m[2], true
		} else if byLevel && p.isHeading(rec, p.cfg.SectionLevel) {
			title, ok = headingDecor.ReplaceAllString(content, ""), true
		}
		if ok {
			if b.state() == noChapter {
				p.log.Warn("section marker before any chapter dropped", "page", rec.Page, "line", content)
				continue
			}
			b.openSection(p.cfg.cleanTitle(title))
			continue
		}

		if b.state() != inSection {
			b.discarded[b.state()]++
			continue
		}
		b.appendText(rec.Block, content)
	}
	b.commit()

	for st, n := range b.discarded {
		if n > 0 {
			p.log.Debug("prose outside a section discarded", "state", state(st).String(), "records", n)
		}
	}
	p.log.Info("structure parsed", "chapters", len(b.chapters), "sections", b.sections)
	return b.chapters
}

func (p *Parser) hasChapterMarkers(records []doctree.TextRecord) bool {
	for _, rec := range records {
		if p.cfg.ChapterPattern.MatchString(strings.TrimSpace(rec.Content)) {
			return true
		}
	}
	return false
}

func (p *Parser) isHeading(rec doctree.TextRecord, level int) bool {
	return level > 0 && rec.Type == doctree.BlockTitle && rec.Level == level
}

// builder holds the chapter arena and indices of the open chapter and
// section. The open section's prose lives in buf until commit.
type builder struct {
	chapters []doctree.Chapter
	chapter  int
	section  int
	sections int

	buf       strings.Builder
	lastBlock int

	discarded [2]int
}

func (b *builder) state() state {
	switch {
	case b.chapter < 0:
		return noChapter
	case b.section < 0:
		return inChapterNoSection
	default:
		return inSection
	}
}

func (b *builder) openChapter(n int, title string) {
	b.commit()
	b.chapters = append(b.chapters, doctree.Chapter{
		ID:      strconv.Itoa(len(b.chapters) + 1),
		Title:   title,
		Ordinal: n,
	})
	b.chapter = len(b.chapters) - 1
	b.section = -1
}

func (b *builder) openSection(title string) {
	b.commit()
	ch := &b.chapters[b.chapter]
	ch.Sections = append(ch.Sections, doctree.Section{
		ID:    ch.ID + "." + strconv.Itoa(len(ch.Sections)+1),
		Title: title,
	})
	b.section = len(ch.Sections) - 1
	b.sections++
}

// appendText joins lines with a newline, and with a blank line when the
// source paragraph changes.
func (b *builder) appendText(block int, content string) {
	if b.buf.Len() > 0 {
		if block != b.lastBlock {
			b.buf.WriteString("\n\n")
		} else {
			b.buf.WriteByte('\n')
		}
	}
	b.buf.WriteString(content)
	b.lastBlock = block
}

// commit flushes the buffer into the open section.
func (b *builder) commit() {
	if b.state() == inSection {
		b.chapters[b.chapter].Sections[b.section].Text = b.buf.String()
	}
	b.buf.Reset()
	b.lastBlock = 0
}
