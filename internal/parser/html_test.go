package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/examkb/internal/doctree"
)

func TestHTMLParser_Elements(t *testing.T) {
	input := `<html><head><title>药理学笔记</title><style>p{}</style></head><body>
<nav>目录</nav>
<h1>第一章 镇静催眠药</h1>
<h2>第一节 苯二氮䓬类</h2>
<p><b>地西泮</b>首选用于焦虑症。</p>
<blockquote>苯二氮䓬，抗焦虑</blockquote>
<ul><li>嗜睡</li><li>乏力</li></ul>
<table><tr><th>药物</th><th>特点</th></tr><tr><td>地西泮</td><td>长效</td></tr></table>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.html")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "药理学笔记" {
		t.Errorf("expected <title> as document title, got %q", doc.Title)
	}

	want := []struct {
		typ     doctree.BlockType
		level   int
		content string
	}{
		{doctree.BlockTitle, 1, "第一章 镇静催眠药"},
		{doctree.BlockTitle, 2, "第一节 苯二氮䓬类"},
		{doctree.BlockText, 0, "地西泮首选用于焦虑症。"},
		{doctree.BlockText, 0, MemoTipPrefix + "苯二氮䓬，抗焦虑"},
		{doctree.BlockList, 0, "嗜睡"},
		{doctree.BlockList, 0, "乏力"},
		{doctree.BlockTable, 0, "| 药物 | 特点 |"},
		{doctree.BlockTable, 0, "| 地西泮 | 长效 |"},
	}
	if len(doc.Records) != len(want) {
		t.Fatalf("expected %d records, got %d: %+v", len(want), len(doc.Records), doc.Records)
	}
	for i, w := range want {
		r := doc.Records[i]
		if r.Type != w.typ || r.Level != w.level || r.Content != w.content {
			t.Errorf("record[%d]: expected (%s,%d,%q), got (%s,%d,%q)", i, w.typ, w.level, w.content, r.Type, r.Level, r.Content)
		}
		if i > 0 && r.Block <= doc.Records[i-1].Block {
			t.Errorf("record[%d]: expected increasing block, got %d after %d", i, r.Block, doc.Records[i-1].Block)
		}
	}
}

func TestHTMLParser_TitleFallsBackToFilename(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<p>hello</p>"), "dir/page.htm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "page" {
		t.Errorf("expected title %q, got %q", "page", doc.Title)
	}
	if len(doc.Records) != 1 || doc.Records[0].Content != "hello" {
		t.Errorf("unexpected records %+v", doc.Records)
	}
}
