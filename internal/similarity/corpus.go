package similarity

import "math"

// Corpus holds document frequencies for one batch of issues. It is built
// fresh for every run and never shared across runs.
type Corpus struct {
	documents int
	docFreq   map[string]int
}

// NewCorpus counts, for each term, how many documents contain it
func NewCorpus(docs [][]string) *Corpus {
	c := &Corpus{
		documents: len(docs),
		docFreq:   make(map[string]int),
	}
	for _, tokens := range docs {
		for term := range toSet(tokens) {
			c.docFreq[term]++
		}
	}
	return c
}

// Size returns the number of documents in the corpus
func (c *Corpus) Size() int {
	if c == nil {
		return 0
	}
	return c.documents
}

// DocumentFrequency returns how many documents contain term
func (c *Corpus) DocumentFrequency(term string) int {
	if c == nil {
		return 0
	}
	return c.docFreq[term]
}

// IDF is the smoothed inverse document frequency ln((1+N)/(1+df)) + 1.
// Terms present in every document still weigh 1, never 0.
func (c *Corpus) IDF(term string) float64 {
	if c == nil || c.documents == 0 {
		return 1.0
	}
	return math.Log(float64(1+c.documents)/float64(1+c.docFreq[term])) + 1.0
}

// Vector returns the TF-IDF weights of tokens
func (c *Corpus) Vector(tokens []string) map[string]float64 {
	v := TermFrequency(tokens)
	for term, tf := range v {
		v[term] = tf * c.IDF(term)
	}
	return v
}
