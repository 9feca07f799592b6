package parser

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/examkb/internal/doctree"
	"golang.org/x/net/html"
)

// LayoutDoc is the OCR/layout JSON produced for a scanned PDF.
// Every field is optional; absent keys read as empty.
type LayoutDoc struct {
	PDFInfo []LayoutPage `json:"pdf_info"`
}

type LayoutPage struct {
	PageIdx    int           `json:"page_idx"`
	ParaBlocks []LayoutBlock `json:"para_blocks"`
}

// LayoutBlock holds lines and, for container blocks such as images or
// lists, nested sub-blocks.
type LayoutBlock struct {
	Type   string        `json:"type"`
	Lines  []LayoutLine  `json:"lines"`
	Blocks []LayoutBlock `json:"blocks"`
}

type LayoutLine struct {
	Spans []LayoutSpan `json:"spans"`
}

type LayoutSpan struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	HTML    string `json:"html,omitempty"`
}

// LayoutParser handles layout JSON files.
type LayoutParser struct{}

func (p *LayoutParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	var doc LayoutDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode layout json: %w", err)
	}
	return &doctree.Document{
		Title:   trimExt(filename, ".json"),
		Records: Flatten(doc),
	}, nil
}

// Flatten turns the page/block/line/span hierarchy into records in
// document order. Each non-empty line yields one record; table markup
// yields one record per row.
func Flatten(doc LayoutDoc) []doctree.TextRecord {
	var records []doctree.TextRecord
	for _, page := range doc.PDFInfo {
		for _, block := range page.ParaBlocks {
			records = flattenBlock(records, page.PageIdx, block, doctree.BlockText)
		}
	}
	return records
}

func flattenBlock(records []doctree.TextRecord, page int, block LayoutBlock, inherited doctree.BlockType) []doctree.TextRecord {
	bt := inherited
	if block.Type != "" {
		bt = doctree.ParseBlockType(block.Type)
	}

	for _, line := range block.Lines {
		var parts []string
		for _, span := range line.Spans {
			if span.HTML != "" {
				for _, row := range tableRows(span.HTML) {
					records = append(records, doctree.TextRecord{Page: page, Type: doctree.BlockTable, Content: row})
				}
				continue
			}
			if c := strings.TrimSpace(span.Content); c != "" {
				parts = append(parts, c)
			}
		}
		if len(parts) > 0 {
			records = append(records, doctree.TextRecord{Page: page, Type: bt, Content: strings.Join(parts, " ")})
		}
	}

	for _, sub := range block.Blocks {
		records = flattenBlock(records, page, sub, bt)
	}
	return records
}

// tableRows renders an HTML table as pipe-delimited rows.
func tableRows(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}

	var rows []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			if row := rowText(n); row != "" {
				rows = append(rows, row)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return rows
}
