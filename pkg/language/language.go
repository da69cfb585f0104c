package language

import (
	"strings"
	"sync"

	"branddna/pkg/apierr"
)

// Language is the user-facing language name used by the HTTP surface.
type Language string

// Code is the short key a projection is stored under.
type Code string

const (
	English Language = "english"
	Spanish Language = "spanish"

	EN Code = "en"
	ES Code = "es"
)

// Normalize maps anything other than the literal "spanish" to English.
func Normalize(s string) Language {
	if s == string(Spanish) {
		return Spanish
	}
	return English
}

// Resolve picks the request language: body first, then query, then def.
// Empty values are skipped, everything else is normalized.
func Resolve(body, query string, def Language) Language {
	switch {
	case body != "":
		return Normalize(body)
	case query != "":
		return Normalize(query)
	case def != "":
		return Normalize(string(def))
	}
	return English
}

// Parse is the strict variant used when the caller sets a language explicitly.
func Parse(s string) (Language, error) {
	switch Language(strings.ToLower(strings.TrimSpace(s))) {
	case English:
		return English, nil
	case Spanish:
		return Spanish, nil
	}
	return "", apierr.InvalidInput("Invalid language selection")
}

func (l Language) Code() Code {
	if l == Spanish {
		return ES
	}
	return EN
}

func (l Language) Opposite() Language {
	if l == Spanish {
		return English
	}
	return Spanish
}

// Name returns the language name used inside prompts.
func (l Language) Name() string {
	if l == Spanish {
		return "Spanish"
	}
	return "English"
}

func FromCode(c Code) Language {
	if c == ES {
		return Spanish
	}
	return English
}

func (c Code) String() string { return string(c) }

// Session holds the process-wide default language.
type Session struct {
	mu   sync.RWMutex
	lang Language
}

func NewSession(def Language) *Session {
	return &Session{lang: Normalize(string(def))}
}

func (s *Session) Get() Language {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lang
}

func (s *Session) Set(v string) (Language, error) {
	l, err := Parse(v)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.lang = l
	s.mu.Unlock()
	return l, nil
}
