package parser

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/examkb/internal/doctree"
)

// TextParser handles plain text files. Each non-blank line is a record;
// blank lines separate blocks.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	doc := &doctree.Document{Title: trimExt(filename, ".txt")}
	block := 1
	inBlock := false

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if inBlock {
				block++
				inBlock = false
			}
			continue
		}
		inBlock = true
		doc.Records = append(doc.Records, doctree.TextRecord{
			Type:    doctree.BlockText,
			Block:   block,
			Content: line,
		})
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return doc, nil
}
