package classifier

import (
	"regexp"
	"strings"

	"github.com/tagtalk/tagtalk/internal/validation"
)

// Confidence scoring constants. Explicit extractions start high because tag
// names are stated verbatim; implicit extractions are capped below explicit
// so the orchestrator's threshold can distinguish the two families.
const (
	explicitBase      = 0.9
	explicitPerTag    = 0.1
	statedConfidence  = 0.95
	implicitBase      = 0.6
	implicitPerTag    = 0.1
	implicitCap       = 0.85
	implicitNoTags    = 0.5
	unknownConfidence = 0.3
)

var (
	listTagsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^what tags do i have`),
		regexp.MustCompile(`(?i)^what are my tags`),
		regexp.MustCompile(`(?i)^(?:show|list)\s+(?:me\s+)?(?:all\s+)?(?:my\s+)?tags\b`),
	}

	createPattern = regexp.MustCompile(`(?i)^(?:add|create)\s+(?:a\s+)?(?:new\s+)?task\s+(?:to\s+|called\s+|named\s+)?(.+)$`)

	// Explicit tag clauses, shared by create and add_tag extraction
	explicitTagClauses = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\btagged\s+with\s+(.+)$`),
		regexp.MustCompile(`(?i)\bwith\s+tags?\s+(.+)$`),
		regexp.MustCompile(`(?i)\btags?:\s*(.+)$`),
	}

	addTagPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^tag\s+(?:this|it)\s+(?:with\s+|as\s+)?(.+)$`),
		regexp.MustCompile(`(?i)^add\s+(?:the\s+)?tags?\s+(.+?)(?:\s+to\s+(?:this|it)(?:\s+task)?)?$`),
	}

	removeAllPattern = regexp.MustCompile(`(?i)\b(?:remove|delete|clear)\s+all\s+(?:the\s+)?tags\b`)

	removeTagPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^remove\s+(?:the\s+)?(.+?)\s+tags?(?:\s+from\s+(?:this|it)(?:\s+task)?)?$`),
		regexp.MustCompile(`(?i)^(?:remove|delete)\s+tags?\s+(.+?)(?:\s+from\s+(?:this|it)(?:\s+task)?)?$`),
		regexp.MustCompile(`(?i)^untag\s+(?:this\s+from\s+)?(.+)$`),
	}

	completePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^mark\s+(?:this|it)\s+(?:as\s+)?(?:done|completed?|finished)\b`),
		regexp.MustCompile(`(?i)^(?:complete|finish)\s+(?:this|it)(?:\s+task)?\b`),
	}

	deletePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:delete|remove)\s+(?:this|it)(?:\s+task)?$`),
		regexp.MustCompile(`(?i)^(?:delete|remove)\s+(?:the\s+)?task$`),
	}

	bareListPattern = regexp.MustCompile(`(?i)^(?:show|list)\s+(?:me\s+)?(?:all\s+)?(?:my\s+)?tasks?$`)

	explicitFilterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:show|list)\s+(?:me\s+)?(?:my\s+)?tasks?\s+tagged\s+with\s+(.+)$`),
		regexp.MustCompile(`(?i)^tasks?\s+tagged\s+with\s+(.+)$`),
	}

	implicitFilterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^(?:show|list)\s+(?:me\s+)?(?:all\s+)?(?:my\s+)?(.+?)\s+tasks?$`),
		regexp.MustCompile(`(?i)^my\s+(.+?)\s+tasks?$`),
	}

	tagListSeparator = regexp.MustCompile(`(?i),\s*|\s+and\s+`)
)

// stopWords are dropped from tag candidates during parsing
var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "this": {}, "that": {}, "it": {},
	"from": {}, "to": {}, "and": {}, "or": {}, "with": {},
	"tagged": {}, "tag": {}, "tags": {}, "my": {}, "me": {}, "all": {},
}

// completionWords map to the completed filter instead of a tag
var completionWords = map[string]bool{
	"completed": true, "done": true, "finished": true,
	"pending": false, "incomplete": false, "unfinished": false, "open": false,
}

// PatternClassifier is the deterministic, regex-based Classifier. It matches
// an utterance against fixed pattern families in precedence order, so a single
// intent wins even when an utterance could read as several.
type PatternClassifier struct{}

// NewPatternClassifier creates a pattern-based classifier
func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{}
}

// Classify extracts intent, tag candidates, and a confidence score from text
func (c *PatternClassifier) Classify(text string) ExtractionResult {
	trimmed := strings.TrimSpace(text)

	if matchesAny(listTagsPatterns, trimmed) {
		return ExtractionResult{
			Intent:     IntentListTags,
			Confidence: statedConfidence,
			Source:     SourceExplicit,
			RawText:    text,
		}
	}

	if m := createPattern.FindStringSubmatch(trimmed); m != nil {
		return c.classifyCreate(text, m[1])
	}

	if removeAllPattern.MatchString(trimmed) {
		return ExtractionResult{
			Intent:     IntentRemoveTag,
			RemoveAll:  true,
			Confidence: 1.0,
			Source:     SourceExplicit,
			RawText:    text,
		}
	}

	for _, p := range removeTagPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			valid, invalid := parseTagList(m[1])
			return ExtractionResult{
				Intent:      IntentRemoveTag,
				Tags:        valid,
				InvalidTags: invalid,
				Confidence:  explicitConfidence(len(valid)),
				Source:      SourceExplicit,
				RawText:     text,
			}
		}
	}

	for _, p := range addTagPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			clause := m[1]
			// "tag this with urgent, work" may still carry an explicit clause
			for _, ec := range explicitTagClauses {
				if em := ec.FindStringSubmatch(clause); em != nil {
					clause = em[1]
					break
				}
			}
			valid, invalid := parseTagList(clause)
			return ExtractionResult{
				Intent:      IntentAddTag,
				Tags:        valid,
				InvalidTags: invalid,
				Confidence:  explicitConfidence(len(valid)),
				Source:      SourceExplicit,
				RawText:     text,
			}
		}
	}

	if matchesAny(completePatterns, trimmed) {
		return ExtractionResult{
			Intent:     IntentComplete,
			Confidence: statedConfidence,
			Source:     SourceExplicit,
			RawText:    text,
		}
	}

	if matchesAny(deletePatterns, trimmed) {
		return ExtractionResult{
			Intent:     IntentDelete,
			Confidence: statedConfidence,
			Source:     SourceExplicit,
			RawText:    text,
		}
	}

	if bareListPattern.MatchString(trimmed) {
		return ExtractionResult{
			Intent:     IntentList,
			Confidence: statedConfidence,
			Source:     SourceExplicit,
			RawText:    text,
		}
	}

	for _, p := range explicitFilterPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			valid, invalid := parseTagList(m[1])
			return ExtractionResult{
				Intent:      IntentList,
				Tags:        valid,
				InvalidTags: invalid,
				Confidence:  statedConfidence,
				Source:      SourceExplicit,
				RawText:     text,
			}
		}
	}

	for _, p := range implicitFilterPatterns {
		if m := p.FindStringSubmatch(trimmed); m != nil {
			valid, invalid, completed := parseImplicitSegment(m[1])
			if len(valid) == 0 && completed != nil {
				// "show completed tasks" is a plain status filter
				return ExtractionResult{
					Intent:     IntentList,
					Completed:  completed,
					Confidence: statedConfidence,
					Source:     SourceExplicit,
					RawText:    text,
				}
			}
			return ExtractionResult{
				Intent:      IntentList,
				Tags:        valid,
				InvalidTags: invalid,
				Completed:   completed,
				Confidence:  implicitConfidence(len(valid)),
				Source:      SourceImplicit,
				RawText:     text,
			}
		}
	}

	return ExtractionResult{
		Intent:     IntentUnknown,
		Confidence: unknownConfidence,
		Source:     SourceImplicit,
		RawText:    text,
	}
}

func (c *PatternClassifier) classifyCreate(raw, rest string) ExtractionResult {
	title := rest
	var valid, invalid []string

	for _, p := range explicitTagClauses {
		if loc := p.FindStringSubmatchIndex(rest); loc != nil {
			valid, invalid = parseTagList(rest[loc[2]:loc[3]])
			title = strings.TrimRight(strings.TrimSpace(rest[:loc[0]]), ",")
			break
		}
	}

	return ExtractionResult{
		Intent:      IntentCreate,
		Tags:        valid,
		InvalidTags: invalid,
		Title:       strings.TrimSpace(title),
		Confidence:  explicitConfidence(len(valid)),
		Source:      SourceExplicit,
		RawText:     raw,
	}
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, p := range patterns {
		if p.MatchString(s) {
			return true
		}
	}
	return false
}

// parseTagList parses an explicit tag clause ("work, urgent" or "work and
// urgent"). Multi-word pieces are joined with hyphens ("follow up" becomes
// "follow-up") after stop words are dropped.
func parseTagList(clause string) (valid []string, invalid []string) {
	pieces := tagListSeparator.Split(clause, -1)
	candidates := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		words := strings.Fields(strings.ToLower(piece))
		kept := words[:0]
		for _, w := range words {
			if _, stop := stopWords[w]; stop {
				continue
			}
			kept = append(kept, w)
		}
		if len(kept) == 0 {
			continue
		}
		candidates = append(candidates, strings.Join(kept, "-"))
	}
	return validation.ValidateTags(candidates)
}

// parseImplicitSegment parses an adjectival filter segment ("urgent work")
// into individual tag candidates, one per word, and pulls out completion
// status words.
func parseImplicitSegment(segment string) (valid []string, invalid []string, completed *bool) {
	normalized := tagListSeparator.ReplaceAllString(strings.ToLower(segment), " ")
	var candidates []string
	for _, w := range strings.Fields(normalized) {
		if _, stop := stopWords[w]; stop {
			continue
		}
		if done, ok := completionWords[w]; ok {
			d := done
			completed = &d
			continue
		}
		candidates = append(candidates, w)
	}
	valid, invalid = validation.ValidateTags(candidates)
	return valid, invalid, completed
}

func explicitConfidence(tagCount int) float64 {
	conf := explicitBase
	if tagCount > 0 {
		conf += explicitPerTag * float64(min(tagCount, 3))
	}
	return min(conf, 1.0)
}

func implicitConfidence(tagCount int) float64 {
	if tagCount == 0 {
		return implicitNoTags
	}
	conf := implicitBase + implicitPerTag*float64(min(tagCount, 2))
	return min(conf, implicitCap)
}
