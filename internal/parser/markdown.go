package parser

import (
	"bytes"
	"io"
	"strings"

	"github.com/dgallion1/examkb/internal/doctree"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// MemoTipPrefix marks blockquote content, which study notes use for mnemonics.
const MemoTipPrefix = "记忆口诀："

// MarkdownParser handles Markdown study notes using goldmark.
//
// Headings keep their level, bold spans keep their ** markers so drug
// names survive, blockquotes become mnemonic lines and pipe tables become
// one record per row.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New(goldmark.WithExtensions(extension.Table))
	root := md.Parser().Parse(text.NewReader(src))

	doc := &doctree.Document{Title: trimExt(filename, ".md", ".markdown")}

	// A level 3+ heading (drug heading) shares its block with the content
	// that follows it, so the heading and its body form one paragraph.
	block := 0
	carry := false
	next := func() int {
		if carry {
			carry = false
			return block
		}
		block++
		return block
	}
	emit := func(bt doctree.BlockType, level, b int, content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		doc.Records = append(doc.Records, doctree.TextRecord{Type: bt, Level: level, Block: b, Content: content})
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			emit(doctree.BlockTitle, node.Level, next(), inlineText(node, src))
			if node.Level >= 3 {
				carry = true
			}

		case *ast.Paragraph, *ast.TextBlock:
			b := next()
			for _, line := range strings.Split(inlineText(node, src), "\n") {
				emit(doctree.BlockText, 0, b, line)
			}

		case *ast.Blockquote:
			if block == 0 {
				block++
			}
			carry = false
			emit(doctree.BlockText, 0, block, MemoTipPrefix+strings.ReplaceAll(extractText(node, src), "\n", " "))

		case *ast.List:
			b := next()
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				emit(doctree.BlockList, 0, b, strings.ReplaceAll(extractText(item, src), "\n", " "))
			}

		case *east.Table:
			b := next()
			for row := node.FirstChild(); row != nil; row = row.NextSibling() {
				var cells []string
				for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
					cells = append(cells, strings.TrimSpace(inlineText(cell, src)))
				}
				emit(doctree.BlockTable, 0, b, "| "+strings.Join(cells, " | ")+" |")
			}

		case *ast.ThematicBreak:
			continue

		default:
			// Code blocks and anything else: keep the raw lines.
			b := next()
			for _, line := range strings.Split(extractText(n, src), "\n") {
				emit(doctree.BlockText, 0, b, line)
			}
		}
	}

	return doc, nil
}

// inlineText renders the inline children of n, keeping strong emphasis
// as **text** and soft/hard breaks as newlines.
func inlineText(n ast.Node, src []byte) string {
	var buf strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		switch node := c.(type) {
		case *ast.Text:
			buf.Write(node.Segment.Value(src))
			if node.HardLineBreak() || node.SoftLineBreak() {
				buf.WriteByte('\n')
			}
		case *ast.String:
			buf.Write(node.Value)
		case *ast.Emphasis:
			inner := inlineText(node, src)
			if node.Level >= 2 {
				buf.WriteString("**" + inner + "**")
			} else {
				buf.WriteString(inner)
			}
		default:
			buf.WriteString(inlineText(c, src))
		}
	}
	return buf.String()
}

// extractText gets the text content of a goldmark AST node.
func extractText(n ast.Node, src []byte) string {
	if fc := n.FirstChild(); fc != nil && fc.Type() == ast.TypeInline {
		return strings.TrimSpace(inlineText(n, src))
	}
	var buf bytes.Buffer
	if n.Type() == ast.TypeBlock {
		lines := n.Lines()
		for i := 0; i < lines.Len(); i++ {
			line := lines.At(i)
			buf.Write(line.Value(src))
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		t := extractText(c, src)
		if t == "" {
			continue
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(t)
	}
	return strings.TrimSpace(buf.String())
}
