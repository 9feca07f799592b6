package doctree

// BlockType is the layout class of a text record.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockTitle BlockType = "title"
	BlockList  BlockType = "list"
	BlockImage BlockType = "image"
	BlockTable BlockType = "table"
)

// ParseBlockType maps a layout block type onto the record enum.
// Unknown types are treated as plain text.
func ParseBlockType(s string) BlockType {
	switch s {
	case "title":
		return BlockTitle
	case "list", "index":
		return BlockList
	case "image", "image_body", "image_caption", "image_footnote":
		return BlockImage
	case "table", "table_body", "table_caption", "table_footnote":
		return BlockTable
	default:
		return BlockText
	}
}

// TextRecord is one line of source text in document order.
type TextRecord struct {
	Page    int       // Source page index (0 if N/A)
	Type    BlockType // Layout class
	Level   int       // Heading level when the source marks one, else 0
	Block   int       // Records sharing a block belong to one source paragraph
	Content string
}

// Document is the flat output of a loader.
type Document struct {
	Title   string
	Records []TextRecord
}

// PointType classifies a knowledge point.
type PointType string

const (
	PointIndication       PointType = "indication"
	PointContraindication PointType = "contraindication"
	PointAdverseReaction  PointType = "adverse_reaction"
	PointInteraction      PointType = "interaction"
	PointMechanism        PointType = "mechanism"
	PointDosage           PointType = "dosage"
	PointMemoryTip        PointType = "memory_tip"
	PointComparison       PointType = "comparison"
	PointOther            PointType = "other"
)

// ParsePointType converts a string to a PointType.
// Returns PointOther if the string is not recognized.
func ParsePointType(s string) PointType {
	switch PointType(s) {
	case PointIndication, PointContraindication, PointAdverseReaction, PointInteraction,
		PointMechanism, PointDosage, PointMemoryTip, PointComparison:
		return PointType(s)
	default:
		return PointOther
	}
}

// Chapter is a top-level division of the document.
type Chapter struct {
	ID       string
	Title    string
	Ordinal  int // Numeral from the heading, informational only
	Sections []Section
}

// Section is a subdivision of a chapter.
type Section struct {
	ID     string
	Title  string
	Text   string // Buffered prose, consumed by the knowledge extractor
	Points []KnowledgePoint
}

// KnowledgePoint is one classified, scored paragraph.
type KnowledgePoint struct {
	ID          string
	Title       string
	Content     string
	FullContent string
	Types       []PointType
	DrugName    string
	Importance  int
}

// HasType reports whether the point carries t.
func (p KnowledgePoint) HasType(t PointType) bool {
	for _, pt := range p.Types {
		if pt == t {
			return true
		}
	}
	return false
}

// Severity grades an adverse reaction.
type Severity string

const (
	SeveritySevere   Severity = "severe"
	SeverityModerate Severity = "moderate"
	SeverityMild     Severity = "mild"
)

// SeverityLevels buckets adverse-reaction snippets by severity.
type SeverityLevels struct {
	Severe   []string `json:"severe"`
	Moderate []string `json:"moderate"`
	Mild     []string `json:"mild"`
}

// DrugInfo aggregates snippets about one drug across points. Each list
// holds the sentences of the points that speak to that aspect.
// It is derived data and can always be rebuilt from the tree.
type DrugInfo struct {
	Name              string         `json:"name"`
	Category          string         `json:"category"`
	Mechanism         []string       `json:"mechanism"`
	Pharmacokinetics  []string       `json:"pharmacokinetics"`
	AdverseReactions  []string       `json:"adverse_reactions"`
	AdverseLevels     SeverityLevels `json:"adverse_reaction_levels"`
	Contraindications []string       `json:"contraindications"`
	Interactions      []string       `json:"interactions"`
	Indications       []string       `json:"indications"`
	Dosage            []string       `json:"dosage"`
	MemoryTips        []string       `json:"memory_tips"`
	Importance        int            `json:"importance"`
}

// Stats are aggregate counters over a tree.
type Stats struct {
	TotalChapters int `json:"total_chapters"`
	TotalSections int `json:"total_sections"`
	TotalPoints   int `json:"total_points"`
	TotalDrugs    int `json:"total_drugs"`
}

// Tree is the assembled knowledge tree.
type Tree struct {
	Title       string
	Subject     string
	SubjectCode string
	Source      string
	SourceHash  string
	Stats       Stats
	Chapters    []Chapter
	Drugs       map[string]*DrugInfo
}
