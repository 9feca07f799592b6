package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/examkb/internal/doctree"
	"gopkg.in/yaml.v3"
)

//go:embed default_rules.yaml
var defaultRulesYAML []byte

// Ruleset is the declarative form of the extraction heuristics.
// Keywords are matched literally; patterns are regular expressions.
type Ruleset struct {
	MinLength      int `yaml:"min_length"`
	ContentMax     int `yaml:"content_max"`
	FullContentMax int `yaml:"full_content_max"`
	TitleMax       int `yaml:"title_max"`

	Delimiters []string      `yaml:"delimiters"`
	Relevance  []string      `yaml:"relevance"`
	Types      []TypeRule    `yaml:"types"`
	Drugs      DrugRules     `yaml:"drugs"`
	Importance ScoreRuleset  `yaml:"importance"`
	DrugView   DrugViewRules `yaml:"drug_view"`
}

// TypeRule assigns Type when any keyword or pattern matches.
type TypeRule struct {
	Type     string   `yaml:"type"`
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
}

// DrugRules finds the drug a paragraph is about. Text before the last
// Stop word in a suffix match is not part of the name.
type DrugRules struct {
	Names    []string `yaml:"names"`
	Bold     string   `yaml:"bold"`
	Suffixes []string `yaml:"suffixes"`
	Stop     []string `yaml:"stop"`
}

// DrugViewRules sort point sentences into the per-drug view. Adverse
// reactions matching neither Severe nor Moderate are graded mild.
type DrugViewRules struct {
	Pharmacokinetics []string `yaml:"pharmacokinetics"`
	Severe           []string `yaml:"severe"`
	Moderate         []string `yaml:"moderate"`
}

type ScoreRuleset struct {
	Base    float64     `yaml:"base"`
	Rules   []ScoreRule `yaml:"rules"`
	Star    string      `yaml:"star"`
	StarMin int         `yaml:"star_min"`
}

// ScoreRule adds Weight once when any keyword or pattern matches.
type ScoreRule struct {
	Keywords []string `yaml:"keywords"`
	Patterns []string `yaml:"patterns"`
	Weight   float64  `yaml:"weight"`
}

// DefaultRuleset returns the built-in rules.
func DefaultRuleset() Ruleset {
	rs, err := ParseRuleset(nil)
	if err != nil {
		panic(fmt.Sprintf("built-in ruleset: %v", err))
	}
	return rs
}

// ParseRuleset merges YAML over the built-in rules. Keys present in data
// replace the default value wholesale.
func ParseRuleset(data []byte) (Ruleset, error) {
	var rs Ruleset
	if err := yaml.Unmarshal(defaultRulesYAML, &rs); err != nil {
		return Ruleset{}, fmt.Errorf("decode default rules: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &rs); err != nil {
			return Ruleset{}, fmt.Errorf("decode rules: %w", err)
		}
	}
	return rs, nil
}

// LoadRuleset reads a YAML rules file. An empty path yields the defaults.
func LoadRuleset(path string) (Ruleset, error) {
	if path == "" {
		return DefaultRuleset(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Ruleset{}, fmt.Errorf("read rules: %w", err)
	}
	return ParseRuleset(data)
}

// rules is the compiled, immutable form of a Ruleset.
type rules struct {
	minLength      int
	contentMax     int
	fullContentMax int
	titleMax       int

	delimiters []*regexp.Regexp
	relevance  *regexp.Regexp
	types      []typeMatcher
	drugNames  *regexp.Regexp
	drugBold   *regexp.Regexp
	suffixes   []*regexp.Regexp
	drugStops  []string
	pk         *regexp.Regexp
	severe     *regexp.Regexp
	moderate   *regexp.Regexp
	base       float64
	scores     []scoreMatcher
	star       string
	starMin    int
}

type typeMatcher struct {
	typ doctree.PointType
	re  *regexp.Regexp
}

type scoreMatcher struct {
	re     *regexp.Regexp
	weight float64
}

func compileRules(rs Ruleset) (*rules, error) {
	if rs.MinLength < 0 || rs.ContentMax <= 0 || rs.FullContentMax <= 0 || rs.TitleMax <= 0 {
		return nil, fmt.Errorf("length limits must be positive")
	}
	if len(rs.Relevance) == 0 {
		return nil, fmt.Errorf("relevance vocabulary is empty")
	}

	r := &rules{
		minLength:      rs.MinLength,
		contentMax:     rs.ContentMax,
		fullContentMax: rs.FullContentMax,
		titleMax:       rs.TitleMax,
		base:           rs.Importance.Base,
		star:           rs.Importance.Star,
		starMin:        rs.Importance.StarMin,
	}

	for _, d := range rs.Delimiters {
		re, err := regexp.Compile(d)
		if err != nil {
			return nil, fmt.Errorf("delimiter %q: %w", d, err)
		}
		r.delimiters = append(r.delimiters, re)
	}

	var err error
	if r.relevance, err = anyOf(rs.Relevance, nil); err != nil {
		return nil, fmt.Errorf("relevance: %w", err)
	}

	for _, tr := range rs.Types {
		pt := doctree.ParsePointType(tr.Type)
		if pt == doctree.PointOther {
			return nil, fmt.Errorf("unknown point type %q", tr.Type)
		}
		re, err := anyOf(tr.Keywords, tr.Patterns)
		if err != nil {
			return nil, fmt.Errorf("type %s: %w", tr.Type, err)
		}
		r.types = append(r.types, typeMatcher{typ: pt, re: re})
	}

	if len(rs.Drugs.Names) > 0 {
		// Longest names first so the leftmost hit is also the longest one.
		names := append([]string(nil), rs.Drugs.Names...)
		sort.SliceStable(names, func(i, j int) bool {
			return len([]rune(names[i])) > len([]rune(names[j]))
		})
		if r.drugNames, err = anyOf(names, nil); err != nil {
			return nil, fmt.Errorf("drug names: %w", err)
		}
	}
	if rs.Drugs.Bold != "" {
		if r.drugBold, err = compileGroup(rs.Drugs.Bold); err != nil {
			return nil, fmt.Errorf("drug bold: %w", err)
		}
	}
	for _, s := range rs.Drugs.Suffixes {
		re, err := compileGroup(s)
		if err != nil {
			return nil, fmt.Errorf("drug suffix: %w", err)
		}
		r.suffixes = append(r.suffixes, re)
	}

	for _, w := range rs.Drugs.Stop {
		if w != "" {
			r.drugStops = append(r.drugStops, w)
		}
	}

	for _, v := range []struct {
		name     string
		keywords []string
		dst      **regexp.Regexp
	}{
		{"pharmacokinetics", rs.DrugView.Pharmacokinetics, &r.pk},
		{"severe", rs.DrugView.Severe, &r.severe},
		{"moderate", rs.DrugView.Moderate, &r.moderate},
	} {
		if len(v.keywords) == 0 {
			continue
		}
		if *v.dst, err = anyOf(v.keywords, nil); err != nil {
			return nil, fmt.Errorf("drug view %s: %w", v.name, err)
		}
	}

	for i, sr := range rs.Importance.Rules {
		re, err := anyOf(sr.Keywords, sr.Patterns)
		if err != nil {
			return nil, fmt.Errorf("importance rule %d: %w", i, err)
		}
		r.scores = append(r.scores, scoreMatcher{re: re, weight: sr.Weight})
	}
	return r, nil
}

// anyOf compiles literal keywords and raw patterns into one alternation.
func anyOf(keywords, patterns []string) (*regexp.Regexp, error) {
	var alts []string
	for _, k := range keywords {
		if k != "" {
			alts = append(alts, regexp.QuoteMeta(k))
		}
	}
	for _, p := range patterns {
		if _, err := regexp.Compile(p); err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		alts = append(alts, "(?:"+p+")")
	}
	if len(alts) == 0 {
		return nil, fmt.Errorf("no keywords or patterns")
	}
	return regexp.Compile(strings.Join(alts, "|"))
}

func compileGroup(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", expr, err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("pattern %q has no capture group", expr)
	}
	return re, nil
}
