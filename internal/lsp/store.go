package lsp

import "sync"

// Document is one open buffer and the analysis of its current text.
type Document struct {
	Text     string
	Analysis *Analysis
}

type Store struct {
	mu   sync.RWMutex
	docs map[string]*Document // uri -> document
}

func NewStore() *Store {
	return &Store{docs: map[string]*Document{}}
}

// Set replaces the text for uri and re-analyzes it.
func (s *Store) Set(uri, text string) *Document {
	doc := &Document{Text: text, Analysis: Analyze(text)}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[uri] = doc
	return doc
}

func (s *Store) Get(uri string) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.docs[uri]
	return d, ok
}

func (s *Store) Delete(uri string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, uri)
}
