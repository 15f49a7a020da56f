// Package keyword implements BM25-style relevance scoring tuned for
// financial filings: multi-word financial phrases are kept atomic, metric
// words survive stopword removal, and important term classes get boosted.
package keyword

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/finsight-ai/ragengine/pkg/config"
)

// BM25 parameters.
const (
	k1 = 1.5
	b  = 0.75

	// defaultAvgDocLength is used when corpus statistics are absent.
	defaultAvgDocLength = 100.0
)

// fallbackIDF is applied when no document-frequency statistics are
// available; ln(10) assumes a moderately common term.
var fallbackIDF = math.Log(10.0)

var (
	yearPattern    = regexp.MustCompile(`^\d{4}$`)
	specialCharsRe = regexp.MustCompile(`[^\w\s$%._]`)
)

// CorpusStats supplies document-frequency statistics for IDF. All fields are
// optional; the scorer degrades gracefully without them.
type CorpusStats struct {
	DocumentFreq   map[string]int
	TotalDocuments int
	AvgDocLength   float64
}

// Scorer computes query/document keyword relevance in [0,1].
// Safe for concurrent use; all state is immutable after construction.
type Scorer struct {
	stopWords     map[string]bool
	phrases       map[string]bool
	sortedPhrases []string
	abbreviations map[string]bool
	metrics       map[string]bool
	companies     map[string]bool
	stats         *CorpusStats
}

// NewScorer returns a scorer without corpus statistics.
func NewScorer() *Scorer {
	return NewScorerWithStats(nil)
}

// NewScorerWithStats returns a scorer that draws IDF from the given corpus
// statistics where present.
func NewScorerWithStats(stats *CorpusStats) *Scorer {
	s := &Scorer{
		stopWords:     toSet(stopWords),
		phrases:       toSet(financialPhrases),
		abbreviations: toSet(financialAbbreviations),
		metrics:       toSet(financialMetrics),
		companies:     toSet(config.Companies),
		stats:         stats,
	}
	// Protect longer phrases first so "cash flow from operations" is not
	// split by the shorter "cash flow".
	s.sortedPhrases = append(s.sortedPhrases, financialPhrases...)
	sort.Slice(s.sortedPhrases, func(i, j int) bool {
		return len(s.sortedPhrases[i]) > len(s.sortedPhrases[j])
	})
	return s
}

func toSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

// Tokenize lowercases, protects known financial phrases as atomic
// underscore-joined tokens (alongside their constituent words), strips
// punctuation except $ % . _ and drops stopwords unless the token is itself
// a financial metric word.
func (s *Scorer) Tokenize(text string) []string {
	protected := strings.ToLower(text)
	for _, phrase := range s.sortedPhrases {
		if strings.Contains(protected, phrase) {
			protected = strings.ReplaceAll(protected, phrase, strings.ReplaceAll(phrase, " ", "_"))
		}
	}

	protected = specialCharsRe.ReplaceAllString(protected, " ")

	var tokens []string
	for _, tok := range strings.Fields(protected) {
		if s.stopWords[tok] && !s.metrics[tok] {
			continue
		}
		if strings.Contains(tok, "_") && s.phrases[strings.ReplaceAll(tok, "_", " ")] {
			// Keep the phrase as a unit and also index its words.
			tokens = append(tokens, tok)
			tokens = append(tokens, strings.Split(strings.ReplaceAll(tok, "_", " "), " ")...)
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// ExtractPhrases returns candidate phrases from the text, known financial
// phrases first, then general n-grams between minLen and maxLen words.
func (s *Scorer) ExtractPhrases(text string, minLen, maxLen int) []string {
	textLower := strings.ToLower(text)
	var phrases []string
	seen := make(map[string]bool)

	for _, phrase := range financialPhrases {
		if strings.Contains(textLower, phrase) && !seen[phrase] {
			phrases = append(phrases, phrase)
			seen[phrase] = true
		}
	}

	var clean []string
	for _, tok := range s.Tokenize(text) {
		if !strings.Contains(tok, "_") {
			clean = append(clean, tok)
		} else if s.phrases[strings.ReplaceAll(tok, "_", " ")] {
			clean = append(clean, strings.ReplaceAll(tok, "_", " "))
		}
	}

	for length := minLen; length <= maxLen; length++ {
		for i := 0; i+length <= len(clean); i++ {
			phrase := strings.Join(clean[i:i+length], " ")
			if !seen[phrase] {
				phrases = append(phrases, phrase)
				seen[phrase] = true
			}
		}
	}
	return phrases
}

// termBoost weights term classes: financial phrases highest, then company
// names, then metric words, abbreviations and bare years.
func (s *Scorer) termBoost(term string) float64 {
	clean := strings.ReplaceAll(term, "_", " ")
	switch {
	case s.phrases[clean]:
		return 2.0
	case s.metrics[clean]:
		return 1.5
	case s.companies[clean]:
		return 1.8
	case s.abbreviations[clean]:
		return 1.5
	case yearPattern.MatchString(clean):
		return 1.3
	default:
		return 1.0
	}
}

func (s *Scorer) idf(term string) float64 {
	if s.stats == nil || s.stats.DocumentFreq == nil {
		return fallbackIDF
	}
	df, ok := s.stats.DocumentFreq[term]
	if !ok {
		return fallbackIDF
	}
	total := s.stats.TotalDocuments
	if total == 0 {
		// Estimate the corpus size from the highest observed frequency.
		for _, f := range s.stats.DocumentFreq {
			if f > total {
				total = f
			}
		}
		if total < df*2 {
			total = df * 2
		}
		if total < 10 {
			total = 10
		}
	}
	return math.Log((float64(total) + 1.0) / (float64(df) + 1.0))
}

// BM25 scores the document tokens against the query tokens with term
// boosting. Not normalized; see Relevance for the [0,1] contract.
func (s *Scorer) BM25(queryTokens, docTokens []string) float64 {
	if len(queryTokens) == 0 || len(docTokens) == 0 {
		return 0.0
	}

	docLength := float64(len(docTokens))
	avgLength := defaultAvgDocLength
	if s.stats != nil && s.stats.AvgDocLength > 0 {
		avgLength = s.stats.AvgDocLength
	}

	counts := make(map[string]int, len(docTokens))
	for _, t := range docTokens {
		counts[t]++
	}

	unique := make(map[string]bool, len(queryTokens))
	score := 0.0
	for _, term := range queryTokens {
		if unique[term] {
			continue
		}
		unique[term] = true

		tf := float64(counts[term])
		if tf == 0 {
			continue
		}

		numerator := s.idf(term) * tf * (k1 + 1) * s.termBoost(term)
		denominator := tf + k1*(1-b+b*(docLength/avgLength))
		score += numerator / denominator
	}
	return score
}

// Relevance returns the keyword relevance of content to query in [0,1]:
// sigmoid-normalized BM25 plus an exact-phrase-match bonus, capped at 1.0.
// An empty query scores 0.
func (s *Scorer) Relevance(query, content string) float64 {
	queryTokens := s.Tokenize(query)
	if len(queryTokens) == 0 {
		return 0.0
	}
	contentTokens := s.Tokenize(content)

	bm25 := s.BM25(queryTokens, contentTokens)
	normalized := 1.0 / (1.0 + math.Exp(-bm25/10.0))

	phraseBonus := 0.0
	contentLower := strings.ToLower(content)
	for _, phrase := range s.ExtractPhrases(query, 2, 3) {
		if strings.Contains(contentLower, phrase) {
			if s.phrases[phrase] {
				phraseBonus += 0.3
			} else {
				phraseBonus += float64(len(strings.Split(phrase, " "))) * 0.1
			}
		}
	}

	return math.Min(1.0, normalized+phraseBonus)
}

// FindMatches reports the query terms and phrases present in content with a
// frequency-based score each, dropping entries below minScore.
func (s *Scorer) FindMatches(query, content string, minScore float64) map[string]float64 {
	contentLower := strings.ToLower(content)
	matches := make(map[string]float64)

	seen := make(map[string]bool)
	for _, tok := range s.Tokenize(query) {
		if seen[tok] {
			continue
		}
		seen[tok] = true
		term := strings.ReplaceAll(tok, "_", " ")
		if count := strings.Count(contentLower, term); count > 0 {
			matches[term] = math.Min(1.0, float64(count)/10.0)
		}
	}

	for _, phrase := range s.ExtractPhrases(query, 2, 3) {
		if count := strings.Count(contentLower, phrase); count > 0 {
			matches[phrase] = math.Min(1.0, float64(count)*0.2)
		}
	}

	for k, v := range matches {
		if v < minScore {
			delete(matches, k)
		}
	}
	return matches
}
