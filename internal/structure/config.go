package structure

import (
	"fmt"
	"regexp"
	"strings"
)

// Config holds the marker patterns used to segment a record stream.
// A Config is read-only once built and safe to share across runs.
type Config struct {
	// ChapterPattern and SectionPattern must capture the ordinal in
	// group 1 and the title in group 2.
	ChapterPattern *regexp.Regexp
	SectionPattern *regexp.Regexp

	// TitleCleanup patterns are deleted from marker titles in order.
	TitleCleanup []*regexp.Regexp

	// ChapterLevel and SectionLevel are the heading levels treated as
	// chapter and section markers when a document carries no 第X章
	// headings. Zero disables heading markers.
	ChapterLevel int
	SectionLevel int
}

const numeralClass = `[一二三四五六七八九十百零〇两\d]+`

// markerPattern tolerates Markdown hashes and emoji decoration before
// the ordinal, e.g. "## 💊 第一节 抗焦虑药".
func markerPattern(unit string) string {
	return `^[#\s]*[^\p{L}\d]*第(` + numeralClass + `)` + unit + `[\s:：]*(.+)$`
}

// DefaultConfig matches 第X章 / 第X节 headings.
func DefaultConfig() Config {
	return Config{
		ChapterPattern: regexp.MustCompile(markerPattern("章")),
		SectionPattern: regexp.MustCompile(markerPattern("节")),
		TitleCleanup: []*regexp.Regexp{
			regexp.MustCompile(`\s*//.*$`),               // "// 12" page refs
			regexp.MustCompile(`\s*[.·…]{2,}\s*\d*\s*$`), // table of contents leaders
			regexp.MustCompile(`\s+\d+$`),                // trailing page number
		},
		ChapterLevel: 1,
		SectionLevel: 2,
	}
}

// NewConfig compiles custom marker patterns on top of the default cleanup rules.
// Empty patterns keep the default.
func NewConfig(chapter, section string) (Config, error) {
	cfg := DefaultConfig()
	if chapter != "" {
		re, err := compileMarker(chapter)
		if err != nil {
			return Config{}, fmt.Errorf("chapter pattern: %w", err)
		}
		cfg.ChapterPattern = re
	}
	if section != "" {
		re, err := compileMarker(section)
		if err != nil {
			return Config{}, fmt.Errorf("section pattern: %w", err)
		}
		cfg.SectionPattern = re
	}
	return cfg, nil
}

func compileMarker(expr string) (*regexp.Regexp, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	if re.NumSubexp() < 2 {
		return nil, fmt.Errorf("%q needs an ordinal group and a title group", expr)
	}
	return re, nil
}

// headingDecor matches emoji and punctuation leading a heading title.
var headingDecor = regexp.MustCompile(`^[#\s]*[^\p{L}\d]*`)

// cleanTitle strips page references and decoration from a marker title.
func (c Config) cleanTitle(title string) string {
	title = strings.TrimSpace(title)
	for _, re := range c.TitleCleanup {
		title = re.ReplaceAllString(title, "")
	}
	return strings.TrimSpace(title)
}
