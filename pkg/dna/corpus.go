package dna

import (
	"sync"

	"branddna/pkg/apierr"
	"branddna/pkg/language"
)

// Corpus names the creator list match-making reads from. Each corpus is
// the creator store seen in one language.
type Corpus string

const (
	EnglishCreators Corpus = "English Creators"
	SpanishCreators Corpus = "Spanish Creators"
)

func Corpora() []Corpus {
	return []Corpus{EnglishCreators, SpanishCreators}
}

func ParseCorpus(s string) (Corpus, error) {
	for _, c := range Corpora() {
		if string(c) == s {
			return c, nil
		}
	}
	return "", apierr.InvalidInput("Invalid creator DNA list")
}

func (c Corpus) Language() language.Language {
	if c == SpanishCreators {
		return language.Spanish
	}
	return language.English
}

// CorpusSelection is the process-wide current creator list.
type CorpusSelection struct {
	mu  sync.RWMutex
	cur Corpus
}

func NewCorpusSelection(def Corpus) *CorpusSelection {
	if _, err := ParseCorpus(string(def)); err != nil {
		def = EnglishCreators
	}
	return &CorpusSelection{cur: def}
}

func (c *CorpusSelection) Get() Corpus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cur
}

func (c *CorpusSelection) Set(s string) (Corpus, error) {
	corpus, err := ParseCorpus(s)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	c.cur = corpus
	c.mu.Unlock()
	return corpus, nil
}
