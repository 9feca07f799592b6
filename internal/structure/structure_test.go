package structure

import (
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/examkb/internal/doctree"
)

func lines(s string) []doctree.TextRecord {
	var out []doctree.TextRecord
	for _, l := range strings.Split(s, "\n") {
		out = append(out, doctree.TextRecord{Type: doctree.BlockText, Block: 1, Content: l})
	}
	return out
}

func TestParse_ChapterAndSection(t *testing.T) {
	input := "第一章 镇静催眠药\n第一节 苯二氮䓬类\n考点1 地西泮的临床用药评价\n地西泮通过增强GABA作用产生镇静催眠效果。"
	chapters := New(DefaultConfig(), nil).Parse(lines(input))

	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	ch := chapters[0]
	if ch.ID != "1" || ch.Title != "镇静催眠药" || ch.Ordinal != 1 {
		t.Errorf("unexpected chapter %+v", ch)
	}
	if len(ch.Sections) != 1 {
		t.Fatalf("expected 1 section, got %d", len(ch.Sections))
	}
	sec := ch.Sections[0]
	if sec.ID != "1.1" || sec.Title != "苯二氮䓬类" {
		t.Errorf("unexpected section %q %q", sec.ID, sec.Title)
	}
	want := "考点1 地西泮的临床用药评价\n地西泮通过增强GABA作用产生镇静催眠效果。"
	if sec.Text != want {
		t.Errorf("expected buffer %q, got %q", want, sec.Text)
	}
}

func TestParse_CountersAreMonotone(t *testing.T) {
	input := strings.Join([]string{
		"第三章 抗癫痫药",
		"第一节 概述",
		"正文一",
		"第五节 卡马西平",
		"正文二",
		"第十二章 消化系统疾病用药",
		"第二节 抑酸剂",
		"正文三",
	}, "\n")
	chapters := New(DefaultConfig(), nil).Parse(lines(input))

	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if chapters[0].ID != "1" || chapters[1].ID != "2" {
		t.Errorf("expected chapter ids 1,2; got %s,%s", chapters[0].ID, chapters[1].ID)
	}
	if chapters[0].Ordinal != 3 || chapters[1].Ordinal != 12 {
		t.Errorf("expected ordinals 3,12; got %d,%d", chapters[0].Ordinal, chapters[1].Ordinal)
	}
	gotIDs := []string{chapters[0].Sections[0].ID, chapters[0].Sections[1].ID, chapters[1].Sections[0].ID}
	wantIDs := []string{"1.1", "1.2", "2.1"}
	if !reflect.DeepEqual(gotIDs, wantIDs) {
		t.Errorf("expected section ids %v, got %v", wantIDs, gotIDs)
	}
	if chapters[0].Sections[1].Text != "正文二" || chapters[1].Sections[0].Text != "正文三" {
		t.Errorf("buffers not flushed to the right sections: %+v", chapters)
	}
}

func TestParse_SectionBeforeChapterDropped(t *testing.T) {
	input := "前言文字\n第一节 孤立小节\n孤立正文\n第一章 镇静催眠药\n章内无节文字\n第一节 苯二氮䓬类\n正文"
	chapters := New(DefaultConfig(), nil).Parse(lines(input))

	if len(chapters) != 1 {
		t.Fatalf("expected 1 chapter, got %d", len(chapters))
	}
	secs := chapters[0].Sections
	if len(secs) != 1 {
		t.Fatalf("expected 1 section, got %d", len(secs))
	}
	if secs[0].Title != "苯二氮䓬类" || secs[0].ID != "1.1" {
		t.Errorf("orphan section leaked into output: %+v", secs[0])
	}
	if secs[0].Text != "正文" {
		t.Errorf("expected only in-section prose, got %q", secs[0].Text)
	}
}

func TestParse_ChapterBeatsSection(t *testing.T) {
	// Custom patterns where one line matches both; chapter wins.
	cfg, err := NewConfig(`^(\d+)\s+(.+)$`, `^(\d+)\s+(.+)$`)
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	chapters := New(cfg, nil).Parse(lines("1 总论\n2 各论"))
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	for _, ch := range chapters {
		if len(ch.Sections) != 0 {
			t.Errorf("chapter %s should have no sections", ch.ID)
		}
	}
}

func TestParse_BlocksSeparateParagraphs(t *testing.T) {
	records := []doctree.TextRecord{
		{Block: 1, Content: "第一章 镇静催眠药"},
		{Block: 2, Content: "第一节 苯二氮䓬类"},
		{Block: 3, Content: "第一行"},
		{Block: 3, Content: "第二行"},
		{Block: 4, Content: "第三行"},
	}
	chapters := New(DefaultConfig(), nil).Parse(records)
	got := chapters[0].Sections[0].Text
	if got != "第一行\n第二行\n\n第三行" {
		t.Errorf("unexpected buffer %q", got)
	}
}

func TestParse_DecoratedMarkdownHeadings(t *testing.T) {
	input := "# 第一章 镇静催眠药\n## 💊 第二节 巴比妥类 ........ 15\n正文"
	chapters := New(DefaultConfig(), nil).Parse(lines(input))
	if len(chapters) != 1 || len(chapters[0].Sections) != 1 {
		t.Fatalf("unexpected structure %+v", chapters)
	}
	if got := chapters[0].Sections[0].Title; got != "巴比妥类" {
		t.Errorf("expected cleaned title, got %q", got)
	}
}

func heading(level, block int, content string) doctree.TextRecord {
	return doctree.TextRecord{Type: doctree.BlockTitle, Level: level, Block: block, Content: content}
}

func TestParse_HeadingLevels(t *testing.T) {
	records := []doctree.TextRecord{
		heading(1, 1, "镇静催眠药"),
		heading(2, 2, "💊 苯二氮䓬类"),
		{Type: doctree.BlockText, Block: 3, Content: "地西泮首选用于焦虑症。"},
		heading(3, 4, "地西泮"),
		{Type: doctree.BlockText, Block: 4, Content: "半衰期长。"},
		heading(1, 5, "抗癫痫药"),
		heading(2, 6, "卡马西平"),
		{Type: doctree.BlockText, Block: 7, Content: "可致剥脱性皮炎。"},
	}
	chapters := New(DefaultConfig(), nil).Parse(records)

	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	if ch := chapters[1]; ch.ID != "2" || ch.Title != "抗癫痫药" || ch.Ordinal != 2 {
		t.Errorf("unexpected chapter %+v", ch)
	}
	sec := chapters[0].Sections[0]
	if sec.Title != "苯二氮䓬类" {
		t.Errorf("expected decoration stripped, got %q", sec.Title)
	}
	if sec.Text != "地西泮首选用于焦虑症。\n\n地西泮\n半衰期长。" {
		t.Errorf("unexpected buffer %q", sec.Text)
	}
	if got := chapters[1].Sections[0].Title; got != "卡马西平" {
		t.Errorf("unexpected section %q", got)
	}
}

func TestParse_NumberedMarkersOverrideHeadingLevels(t *testing.T) {
	records := []doctree.TextRecord{
		heading(1, 1, "西药药二"),
		heading(2, 2, "第一章 镇静催眠药"),
		heading(3, 3, "第一节 苯二氮䓬类"),
		heading(2, 4, "要点速记"),
		{Type: doctree.BlockText, Block: 5, Content: "正文"},
	}
	chapters := New(DefaultConfig(), nil).Parse(records)

	if len(chapters) != 1 || chapters[0].Title != "镇静催眠药" {
		t.Fatalf("unexpected chapters %+v", chapters)
	}
	sec := chapters[0].Sections
	if len(sec) != 1 || sec[0].Title != "苯二氮䓬类" {
		t.Fatalf("unexpected sections %+v", sec)
	}
	if sec[0].Text != "要点速记\n\n正文" {
		t.Errorf("expected level-2 heading kept as prose, got %q", sec[0].Text)
	}
}

func TestParse_HeadingLevelsDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChapterLevel, cfg.SectionLevel = 0, 0
	chapters := New(cfg, nil).Parse([]doctree.TextRecord{
		heading(1, 1, "镇静催眠药"),
		heading(2, 2, "苯二氮䓬类"),
	})
	if len(chapters) != 0 {
		t.Errorf("expected no chapters, got %+v", chapters)
	}
}

func TestParse_Deterministic(t *testing.T) {
	input := lines("第一章 甲\n第一节 乙\n正文\n第二章 丙\n第一节 丁\n更多正文")
	p := New(DefaultConfig(), nil)
	a := p.Parse(input)
	b := p.Parse(input)
	if !reflect.DeepEqual(a, b) {
		t.Errorf("expected identical output across runs")
	}
}

func TestCleanTitle(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		in, want string
	}{
		{"镇静催眠药 // 12", "镇静催眠药"},
		{"苯二氮䓬类 ......23", "苯二氮䓬类"},
		{"巴比妥类 45", "巴比妥类"},
		{"  抗癫痫药  ", "抗癫痫药"},
	}
	for _, tt := range tests {
		if got := cfg.cleanTitle(tt.in); got != tt.want {
			t.Errorf("cleanTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewConfig_RequiresGroups(t *testing.T) {
	if _, err := NewConfig(`^第.章`, ""); err == nil {
		t.Error("expected error for pattern without capture groups")
	}
	if _, err := NewConfig(`([`, ""); err == nil {
		t.Error("expected error for invalid regexp")
	}
}

func TestParseNumeral(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"一", 1, true},
		{"十", 10, true},
		{"十二", 12, true},
		{"二十", 20, true},
		{"二十一", 21, true},
		{"两", 2, true},
		{"一百零五", 105, true},
		{"〇", 0, true},
		{"7", 7, true},
		{"", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseNumeral(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseNumeral(%q) = %d,%v; want %d,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
