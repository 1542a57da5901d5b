package diagnosis

import (
	"math"
	"strings"
)

// DefaultTopN is how many of the highest-ranked labels are considered.
const DefaultTopN = 5

// UnknownCondition names the result when there are no labels to describe.
const UnknownCondition = "Unknown condition"

// MatchPass records which stage produced the result.
type MatchPass string

const (
	PassSynonym MatchPass = "synonym"
	PassWord    MatchPass = "word"
	PassNone    MatchPass = "none"
)

var unknownAdvice = Advice{
	Symptoms:   "Visible plant damage or abnormal growth",
	Causes:     "Unknown or mixed causes",
	Treatment:  "Consult a local agricultural expert for specific treatment",
	Prevention: "Maintain good plant health through proper care and monitoring",
}

// Result is the best-guess condition for a set of labels.
type Result struct {
	Condition    string    `json:"condition"`
	Confidence   float64   `json:"confidence"`
	Known        bool      `json:"known"`
	Pass         MatchPass `json:"pass"`
	MatchedLabel string    `json:"matched_label,omitempty"`
	ColorHints   []string  `json:"-"`
	Details      Advice    `json:"details"`
}

// Percent is the confidence scaled to 0..100 and rounded.
func (r Result) Percent() int {
	return int(math.Round(r.Confidence * 100))
}

// Matcher scores labels against a condition table.
type Matcher struct {
	Table *Table
	// TopN limits the labels considered; zero or less means all labels.
	TopN int
}

func NewMatcher(table *Table, topN int) *Matcher {
	return &Matcher{Table: table, TopN: topN}
}

// Match uses the default top-5 window.
func Match(labels []Label, table *Table) Result {
	return NewMatcher(table, DefaultTopN).Match(labels)
}

// Match returns the condition whose synonym matches the highest-scoring label.
// A later hit replaces the best one only with a strictly higher score, so on ties
// the earlier label, then the earlier table entry, wins.
func (m *Matcher) Match(labels []Label) Result {
	top := TopLabels(labels, m.TopN)

	if r, ok := m.scan(top, PassSynonym, synonymHit); ok {
		return r
	}
	if r, ok := m.scan(top, PassWord, wordHit); ok {
		return r
	}

	r := Result{
		Condition: Descriptions(top),
		Pass:      PassNone,
		Details:   unknownAdvice,
	}
	if r.Condition == "" {
		r.Condition = UnknownCondition
	}
	if len(top) > 0 {
		r.Confidence = top[0].Score
	}
	return r
}

func (m *Matcher) scan(labels []Label, pass MatchPass, hit func(label, synonym string) bool) (Result, bool) {
	var (
		best  Result
		score float64
		found bool
	)
	if m.Table == nil {
		return best, false
	}
	for _, l := range labels {
		text := normalize(l.Description)
		if text == "" {
			continue
		}
		for _, c := range m.Table.conditions {
			for _, syn := range c.Synonyms {
				if !hit(text, syn) || l.Score <= score {
					continue
				}
				score = l.Score
				found = true
				best = Result{
					Condition:    c.Name,
					Confidence:   l.Score,
					Known:        true,
					Pass:         pass,
					MatchedLabel: l.Description,
					ColorHints:   c.ColorHints,
					Details:      c.Advice,
				}
			}
		}
	}
	return best, found
}

func synonymHit(label, synonym string) bool {
	return strings.Contains(label, synonym) || strings.Contains(synonym, label)
}

func wordHit(label, synonym string) bool {
	for _, w := range strings.Fields(label) {
		if strings.Contains(synonym, w) {
			return true
		}
	}
	for _, w := range strings.Fields(synonym) {
		if strings.Contains(label, w) {
			return true
		}
	}
	return false
}
