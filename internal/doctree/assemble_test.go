package doctree

import (
	"reflect"
	"strings"
	"testing"
)

// cueClassifier matches a fixed keyword per type.
type cueClassifier struct{}

var cues = map[PointType]string{
	PointMechanism:        "作用机制",
	PointIndication:       "用于",
	PointContraindication: "禁忌",
	PointAdverseReaction:  "不良反应",
}

func (cueClassifier) SentenceTypes(s string) []PointType {
	var out []PointType
	for _, pt := range []PointType{PointMechanism, PointIndication, PointContraindication, PointAdverseReaction} {
		if strings.Contains(s, cues[pt]) {
			out = append(out, pt)
		}
	}
	return out
}

func (cueClassifier) Severity(s string) Severity {
	if strings.Contains(s, "剥脱性皮炎") {
		return SeveritySevere
	}
	return SeverityMild
}

func (cueClassifier) IsPharmacokinetic(s string) bool { return strings.Contains(s, "半衰期") }

func sampleChapters() []Chapter {
	return []Chapter{
		{
			ID: "1", Title: "镇静催眠药", Ordinal: 1,
			Sections: []Section{
				{
					ID: "1.1", Title: "苯二氮䓬类", Text: "buffered prose",
					Points: []KnowledgePoint{
						{ID: "1.1.1", Title: "地西泮的作用机制", FullContent: "地西泮的作用机制是增强GABA作用，半衰期长，用于焦虑症。", Types: []PointType{PointMechanism, PointIndication}, DrugName: "地西泮", Importance: 4},
						{ID: "1.1.2", Title: "地西泮禁忌", FullContent: "禁忌与中枢抑制药合用。", Types: []PointType{PointContraindication}, DrugName: "地西泮", Importance: 5},
					},
				},
				{ID: "1.2", Title: "巴比妥类"},
			},
		},
		{
			ID: "2", Title: "抗癫痫药", Ordinal: 2,
			Sections: []Section{
				{
					ID: "2.1", Title: "钠通道阻滞剂",
					Points: []KnowledgePoint{
						{ID: "2.1.1", Title: "卡马西平不良反应", FullContent: "卡马西平不良反应有头晕；严重不良反应为剥脱性皮炎。", Types: []PointType{PointAdverseReaction}, DrugName: "卡马西平", Importance: 3},
						{ID: "2.1.2", Title: "概述", Types: []PointType{PointOther}, Importance: 3},
					},
				},
			},
		},
	}
}

func TestAssemble_Counts(t *testing.T) {
	tree := Assemble(Meta{Title: "西药药二"}, sampleChapters(), cueClassifier{})

	if tree.Stats.TotalChapters != 2 {
		t.Errorf("expected 2 chapters, got %d", tree.Stats.TotalChapters)
	}
	if tree.Stats.TotalSections != 3 {
		t.Errorf("expected 3 sections, got %d", tree.Stats.TotalSections)
	}
	if tree.Stats.TotalPoints != 4 {
		t.Errorf("expected 4 points, got %d", tree.Stats.TotalPoints)
	}
	if tree.Stats.TotalDrugs != 2 {
		t.Errorf("expected 2 drugs, got %d", tree.Stats.TotalDrugs)
	}
}

func TestAssemble_DropsSectionBuffers(t *testing.T) {
	tree := Assemble(Meta{}, sampleChapters(), cueClassifier{})
	if got := tree.Chapters[0].Sections[0].Text; got != "" {
		t.Errorf("expected section text to be dropped, got %q", got)
	}
}

func TestAssemble_DrugView(t *testing.T) {
	tree := Assemble(Meta{}, sampleChapters(), cueClassifier{})

	info, ok := tree.Drugs["地西泮"]
	if !ok {
		t.Fatal("expected drug entry for 地西泮")
	}
	if info.Category != "苯二氮䓬类" {
		t.Errorf("expected category from first section, got %q", info.Category)
	}
	if info.Importance != 5 {
		t.Errorf("expected max importance 5, got %d", info.Importance)
	}
	if want := []string{"地西泮的作用机制是增强GABA作用"}; !reflect.DeepEqual(info.Mechanism, want) {
		t.Errorf("mechanism = %q, want %q", info.Mechanism, want)
	}
	if want := []string{"用于焦虑症"}; !reflect.DeepEqual(info.Indications, want) {
		t.Errorf("indications = %q, want %q", info.Indications, want)
	}
	if want := []string{"禁忌与中枢抑制药合用"}; !reflect.DeepEqual(info.Contraindications, want) {
		t.Errorf("contraindications = %q, want %q", info.Contraindications, want)
	}
	if want := []string{"半衰期长"}; !reflect.DeepEqual(info.Pharmacokinetics, want) {
		t.Errorf("pharmacokinetics = %q, want %q", info.Pharmacokinetics, want)
	}

	adr := tree.Drugs["卡马西平"]
	if len(adr.AdverseReactions) != 2 {
		t.Fatalf("expected 2 adverse reaction snippets, got %q", adr.AdverseReactions)
	}
	if want := []string{"严重不良反应为剥脱性皮炎"}; !reflect.DeepEqual(adr.AdverseLevels.Severe, want) {
		t.Errorf("severe = %q, want %q", adr.AdverseLevels.Severe, want)
	}
	if want := []string{"卡马西平不良反应有头晕"}; !reflect.DeepEqual(adr.AdverseLevels.Mild, want) {
		t.Errorf("mild = %q, want %q", adr.AdverseLevels.Mild, want)
	}
}

func TestAssemble_MultiTypePointSplitsSnippets(t *testing.T) {
	chapters := []Chapter{{ID: "1", Title: "c", Sections: []Section{{ID: "1.1", Title: "s", Points: []KnowledgePoint{{
		ID: "1.1.1", Title: "考点1 地西泮的临床用药评价", DrugName: "地西泮", Importance: 4,
		FullContent: "地西泮作用机制为增强GABA作用，禁忌与中枢抑制药合用。",
		Types:       []PointType{PointMechanism, PointContraindication},
	}}}}}}
	info := Assemble(Meta{}, chapters, cueClassifier{}).Drugs["地西泮"]
	if reflect.DeepEqual(info.Mechanism, info.Contraindications) {
		t.Errorf("expected distinct snippets, both are %q", info.Mechanism)
	}
}

func TestAssemble_NilClassifier(t *testing.T) {
	info := Assemble(Meta{}, sampleChapters(), nil).Drugs["地西泮"]
	if info == nil || info.Importance != 5 || info.Mechanism != nil {
		t.Errorf("expected name and importance only, got %+v", info)
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("**地西泮**作用强。\n> 口诀：镇静；催眠，\n\n")
	want := []string{"地西泮作用强", "口诀：镇静", "催眠"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %q, want %q", got, want)
	}
}

func TestRebuildDrugs_Idempotent(t *testing.T) {
	tree := Assemble(Meta{}, sampleChapters(), cueClassifier{})
	first := len(tree.Drugs["地西泮"].Mechanism)
	tree.RebuildDrugs(cueClassifier{})
	tree.RebuildDrugs(cueClassifier{})
	if got := len(tree.Drugs["地西泮"].Mechanism); got != first {
		t.Errorf("expected rebuild to be stable, got %d snippets want %d", got, first)
	}
}

func TestParseBlockType(t *testing.T) {
	tests := []struct {
		in   string
		want BlockType
	}{
		{"title", BlockTitle},
		{"text", BlockText},
		{"image_caption", BlockImage},
		{"table_body", BlockTable},
		{"list", BlockList},
		{"interline_equation", BlockText},
		{"", BlockText},
	}
	for _, tt := range tests {
		if got := ParseBlockType(tt.in); got != tt.want {
			t.Errorf("ParseBlockType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParsePointType(t *testing.T) {
	if got := ParsePointType("mechanism"); got != PointMechanism {
		t.Errorf("expected mechanism, got %q", got)
	}
	if got := ParsePointType("bogus"); got != PointOther {
		t.Errorf("expected other, got %q", got)
	}
}
