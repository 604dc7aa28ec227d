package services

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"

	"ev-ad-insights/config"
	"ev-ad-insights/models"
	"ev-ad-insights/utils"
)

// sectionHeaderRegexp matches "**Section Name:**" and "**Section Name**:".
var sectionHeaderRegexp = regexp.MustCompile(`\*\*\s*([^*\n]+?)\s*(?::\s*\*\*|\*\*\s*:)`)

// listMarkerRegexp matches "1." or "2)" list numbering at a line start.
var listMarkerRegexp = regexp.MustCompile(`(?m)^[ \t]*\d{1,2}[.)][ \t]+`)

// snippetTrimSet is stripped from both ends of every snippet.
const snippetTrimSet = "-*•·–—\"'“”‘’:,()[] \t"

// A placeholder phrase may carry a short subject before it ("Safety features
// not mentioned") and one trailing word ("None highlighted").
const (
	maxPlaceholderSubject = 3
	maxPlaceholderTail    = 1
)

// Taxonomy is the ordered keyword → category table plus the placeholder
// phrases discarded before categorization.
type Taxonomy struct {
	Version      string
	entries      []taxonomyEntry
	placeholders []string
}

type taxonomyEntry struct {
	category string
	keywords []string
	sections map[string]struct{}
}

// NewTaxonomy builds a Taxonomy from the catalog. Keywords and section names
// are case-folded once here.
func NewTaxonomy(catalog *config.Catalog) *Taxonomy {
	t := &Taxonomy{Version: catalog.TaxonomyVersion}

	for _, e := range catalog.Taxonomy {
		entry := taxonomyEntry{
			category: strings.TrimSpace(e.Category),
			sections: make(map[string]struct{}, len(e.Sections)),
		}
		for _, kw := range e.Keywords {
			if k := foldKey(kw); k != "" {
				entry.keywords = append(entry.keywords, k)
			}
		}
		for _, s := range e.Sections {
			entry.sections[foldKey(s)] = struct{}{}
		}
		t.entries = append(t.entries, entry)
	}

	for _, p := range catalog.Placeholders {
		phrase := trimSnippetKey(foldKey(p))
		if phrase == "" {
			continue
		}
		t.placeholders = append(t.placeholders, phrase)
	}
	return t
}

// Categories returns every category a mention can carry, "Other" last.
func (t *Taxonomy) Categories() []string {
	out := make([]string, 0, len(t.entries)+1)
	for _, e := range t.entries {
		out = append(out, e.category)
	}
	return append(out, models.OtherCategory)
}

// HasCategory reports whether category is part of the taxonomy.
func (t *Taxonomy) HasCategory(category string) bool {
	for _, c := range t.Categories() {
		if c == category {
			return true
		}
	}
	return false
}

// IsPlaceholder reports whether a snippet only says that a topic is absent.
// The phrase must make up the snippet, apart from a short subject before it
// and one trailing word. A sentence that merely contains a phrase is content.
func (t *Taxonomy) IsPlaceholder(snippet string) bool {
	key := trimSnippetKey(foldKey(snippet))
	if key == "" {
		return false
	}
	for _, p := range t.placeholders {
		for _, i := range wordMatches(key, p) {
			if placeholderFrame(key[:i], key[i+len(p):]) {
				return true
			}
		}
	}
	return false
}

// placeholderFrame reports whether the text around a placeholder phrase is
// short enough to be its subject. A comma before the phrase means it ends a
// longer clause.
func placeholderFrame(before, after string) bool {
	if strings.ContainsAny(before, ",;") {
		return false
	}
	subject := len(strings.Fields(before))
	tail := len(strings.Fields(after))
	return subject <= maxPlaceholderSubject && tail <= maxPlaceholderTail
}

// categorize returns the categories a snippet belongs to, in taxonomy order.
func (t *Taxonomy) categorize(snippetKey, sectionKey string) []string {
	var matched []string
	for _, e := range t.entries {
		if _, ok := e.sections[sectionKey]; ok {
			matched = append(matched, e.category)
			continue
		}
		for _, kw := range e.keywords {
			if strings.Contains(snippetKey, kw) {
				matched = append(matched, e.category)
				break
			}
		}
	}
	if len(matched) == 0 {
		return []string{models.OtherCategory}
	}
	return matched
}

// Extractor turns a record's analysis text into feature mentions.
type Extractor struct {
	taxonomy *Taxonomy
	logger   *utils.Logger
}

// NewExtractor creates an Extractor over taxonomy.
func NewExtractor(taxonomy *Taxonomy, logger *utils.Logger) *Extractor {
	return &Extractor{taxonomy: taxonomy, logger: logger}
}

// Taxonomy returns the taxonomy the extractor categorizes with.
func (e *Extractor) Taxonomy() *Taxonomy { return e.taxonomy }

// Extract parses rec.AnalysisText into mentions. Every snippet that is not a
// placeholder yields at least one mention; identical (category, snippet)
// pairs within the record collapse to the first occurrence.
func (e *Extractor) Extract(rec *models.CanonicalRecord) []models.FeatureMention {
	if strings.TrimSpace(rec.AnalysisText) == "" {
		return nil
	}

	var mentions []models.FeatureMention
	seen := make(map[string]struct{})
	discarded := 0

	for _, block := range splitSections(rec.AnalysisText) {
		sectionKey := foldKey(block.name)
		for _, snippet := range splitSnippets(block.content) {
			if e.taxonomy.IsPlaceholder(snippet) {
				discarded++
				continue
			}

			snippetKey := trimSnippetKey(foldKey(snippet))
			for _, category := range e.taxonomy.categorize(snippetKey, sectionKey) {
				dedup := category + "\x00" + snippetKey
				if _, dup := seen[dedup]; dup {
					continue
				}
				seen[dedup] = struct{}{}

				mentions = append(mentions, models.FeatureMention{
					RecordID: rec.ID,
					Category: category,
					Section:  block.name,
					Snippet:  snippet,
				})
			}
		}
	}

	if discarded > 0 {
		e.logger.Debug("[extractor] Record %s: %d placeholder snippets discarded", rec.ID, discarded)
	}
	return mentions
}

type sectionBlock struct {
	name    string
	content string
}

// splitSections cuts text at section headers. Text before the first header
// becomes the "Unsectioned" block.
func splitSections(text string) []sectionBlock {
	locs := sectionHeaderRegexp.FindAllStringSubmatchIndex(text, -1)
	if len(locs) == 0 {
		return []sectionBlock{{name: models.UnsectionedLabel, content: text}}
	}

	blocks := make([]sectionBlock, 0, len(locs)+1)
	if lead := text[:locs[0][0]]; strings.TrimSpace(lead) != "" {
		blocks = append(blocks, sectionBlock{name: models.UnsectionedLabel, content: lead})
	}

	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		blocks = append(blocks, sectionBlock{
			name:    normaliseText(text[loc[2]:loc[3]]),
			content: text[loc[1]:end],
		})
	}
	return blocks
}

// splitSnippets segments content on semicolons, line breaks, and sentence
// punctuation followed by whitespace. "ID.4" or "3.5" therefore stay whole.
// List numbering is stripped first; fragments holding neither a letter nor a
// digit are dropped, so prices and figures survive.
func splitSnippets(content string) []string {
	content = strings.ReplaceAll(content, "**", "")
	content = listMarkerRegexp.ReplaceAllString(content, "")
	runes := []rune(content)

	var out []string
	start := 0
	flush := func(end int) {
		s := normaliseText(strings.Trim(string(runes[start:end]), snippetTrimSet))
		if hasWordRune(s) {
			out = append(out, s)
		}
	}

	for i, r := range runes {
		switch r {
		case ';', '\n', '\r':
			flush(i)
			start = i + 1
		case '.', '!', '?':
			if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
				flush(i)
				start = i + 1
			}
		}
	}
	if start < len(runes) {
		flush(len(runes))
	}
	return out
}

func hasWordRune(s string) bool {
	for _, r := range s {
		if isWordRune(r) {
			return true
		}
	}
	return false
}

// trimSnippetKey drops trailing sentence punctuation so "Sleek." and "sleek"
// share a key.
func trimSnippetKey(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!?;:, ")
}

// wordMatches returns the byte offsets where phrase occurs in s on word
// boundaries.
func wordMatches(s, phrase string) []int {
	var out []int
	for from := 0; from < len(s); {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			break
		}
		i += from
		if boundaryBefore(s, i) && boundaryAfter(s, i+len(phrase)) {
			out = append(out, i)
		}
		from = i + 1
	}
	return out
}

// boundaryBefore reports whether the rune ending at byte i-1 is not part of a word.
func boundaryBefore(s string, i int) bool {
	if i <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

// boundaryAfter reports whether the rune starting at byte i is not part of a word.
func boundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// MentionIndex memoizes each record's mentions for the lifetime of a dataset.
// Entries are computed on first access and dropped only when the taxonomy
// version changes. It is safe for concurrent use.
type MentionIndex struct {
	mu       sync.RWMutex
	version  string
	byRecord map[string][]models.FeatureMention
}

// NewMentionIndex creates an empty index.
func NewMentionIndex() *MentionIndex {
	return &MentionIndex{byRecord: make(map[string][]models.FeatureMention)}
}

// For returns rec's mentions, extracting them with e on first access.
func (m *MentionIndex) For(rec *models.CanonicalRecord, e *Extractor) []models.FeatureMention {
	version := e.Taxonomy().Version

	m.mu.RLock()
	if m.version == version {
		if mentions, ok := m.byRecord[rec.ID]; ok {
			m.mu.RUnlock()
			return mentions
		}
	}
	m.mu.RUnlock()

	mentions := e.Extract(rec)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.version != version {
		m.version = version
		m.byRecord = make(map[string][]models.FeatureMention)
	}
	if existing, ok := m.byRecord[rec.ID]; ok {
		return existing
	}
	m.byRecord[rec.ID] = mentions
	return mentions
}

// Collect returns the mentions of records, in record order.
func (m *MentionIndex) Collect(records []*models.CanonicalRecord, e *Extractor) []models.FeatureMention {
	var out []models.FeatureMention
	for _, rec := range records {
		out = append(out, m.For(rec, e)...)
	}
	return out
}

// Len returns the number of records whose mentions are memoized.
func (m *MentionIndex) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byRecord)
}
