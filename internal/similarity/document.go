package similarity

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/steveyegge/dupsweep/internal/textnorm"
	"github.com/steveyegge/dupsweep/internal/types"
)

// Document is the normalized, score-ready view of an IssueRecord
type Document struct {
	Number       int
	Title        string
	TitleTokens  []string
	BodyTokens   []string
	TitleLen     int
	BodyLen      int
	Labels       []string
	Author       string
	CreatedAt    time.Time
	Milestone    string
	Assignees    []string
	CommentCount int
}

// NewDocument normalizes issue text with n
func NewDocument(issue types.IssueRecord, n *textnorm.Normalizer) Document {
	title := strings.TrimSpace(issue.Title)
	body := strings.TrimSpace(issue.Body)
	return Document{
		Number:       issue.Number,
		Title:        issue.Title,
		TitleTokens:  n.Tokens(title),
		BodyTokens:   n.Tokens(body),
		TitleLen:     utf8.RuneCountInString(title),
		BodyLen:      utf8.RuneCountInString(body),
		Labels:       foldAll(issue.Labels),
		Author:       strings.TrimSpace(issue.Author),
		CreatedAt:    issue.CreatedAt,
		Milestone:    strings.TrimSpace(issue.Milestone),
		Assignees:    foldAll(issue.Assignees),
		CommentCount: issue.CommentCount,
	}
}

// Tokens returns title followed by body tokens, the corpus view of a document
func (d Document) Tokens() []string {
	all := make([]string, 0, len(d.TitleTokens)+len(d.BodyTokens))
	all = append(all, d.TitleTokens...)
	return append(all, d.BodyTokens...)
}

// Prepare normalizes a batch in order and builds its corpus
func Prepare(issues []types.IssueRecord, n *textnorm.Normalizer) ([]Document, *Corpus) {
	docs := make([]Document, len(issues))
	tokens := make([][]string, len(issues))
	for i, issue := range issues {
		docs[i] = NewDocument(issue, n)
		tokens[i] = docs[i].Tokens()
	}
	return docs, NewCorpus(tokens)
}

// ComparePair scores two issues in isolation, using a corpus of just the pair
func ComparePair(a, b types.IssueRecord, n *textnorm.Normalizer, opts Options) types.SimilarityResult {
	docs, corpus := Prepare([]types.IssueRecord{a, b}, n)
	return NewScorer(opts, corpus).Score(docs[0], docs[1])
}
