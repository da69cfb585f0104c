package dna

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"branddna/pkg/apierr"
	"branddna/pkg/kv"
	"branddna/pkg/language"
	"branddna/pkg/schema"
)

// Translator produces the projection of a record in another language.
type Translator interface {
	Projection(ctx context.Context, entity schema.Entity, p Projection, from, to language.Language) (Projection, error)
}

// Spawner runs work in the background without blocking the caller.
type Spawner interface {
	Submit(ctx context.Context, name string, run func(ctx context.Context) error) (string, error)
}

type Store struct {
	backend    kv.Store
	entity     schema.Entity
	collection string
	translator Translator
	spawner    Spawner
	locks      keyedMutex
	now        func() time.Time
}

func NewStore(backend kv.Store, entity schema.Entity, translator Translator, spawner Spawner) *Store {
	collection := "brands"
	if entity == schema.Creator {
		collection = "creators"
	}
	return &Store{
		backend:    backend,
		entity:     entity,
		collection: collection,
		translator: translator,
		spawner:    spawner,
		locks:      keyedMutex{locks: make(map[string]*keyLock)},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) keyField() string {
	if s.entity == schema.Creator {
		return "channelName"
	}
	return "brandName"
}

func (s *Store) what() string {
	if s.entity == schema.Creator {
		return "Creator DNA"
	}
	return "Brand DNA"
}

// load reads a record; found is false for missing or never-populated keys.
func (s *Store) load(ctx context.Context, key string) (rec Record, found bool, err error) {
	k := kv.Key(s.collection, key)
	ok, err := s.backend.Exists(ctx, k)
	if err != nil || !ok {
		return Record{}, false, err
	}
	raw, err := s.backend.ReadJSON(ctx, k)
	if err != nil {
		return Record{}, false, err
	}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, false, fmt.Errorf("decode %s %q: %w", s.entity, key, err)
	}
	if rec.empty() {
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *Store) write(ctx context.Context, rec Record) error {
	return s.backend.WriteJSON(ctx, kv.Key(s.collection, rec.Key), rec)
}

// Get returns the record in lang, or in its base language when lang has
// not been materialised yet.
func (s *Store) Get(ctx context.Context, key string, lang language.Language) (View, error) {
	rec, found, err := s.load(ctx, key)
	if err != nil {
		return View{}, err
	}
	if !found {
		return View{}, apierr.NotFound(s.what())
	}
	return rec.view(lang), nil
}

// Document returns the full stored record with both projections.
func (s *Store) Document(ctx context.Context, key string) (Record, error) {
	rec, found, err := s.load(ctx, key)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, apierr.NotFound(s.what())
	}
	return rec, nil
}

// List returns every record in lang, sorted by display name.
func (s *Store) List(ctx context.Context, lang language.Language) ([]View, error) {
	keys, err := s.backend.List(ctx, kv.Prefix(s.collection))
	if err != nil {
		return nil, err
	}
	views := make([]View, 0, len(keys))
	for _, k := range keys {
		rec, found, err := s.load(ctx, kv.Name(k))
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		views = append(views, rec.view(lang))
	}
	slices.SortFunc(views, func(a, b View) int {
		return cmp.Or(
			strings.Compare(strings.ToLower(a.DisplayName), strings.ToLower(b.DisplayName)),
			strings.Compare(a.Key, b.Key),
		)
	})
	return views, nil
}

type saveMode int

const (
	upsert saveMode = iota
	createOnly
	updateOnly
)

// Save merges d into the projection for lang and writes the record. When
// background is set and the other language is missing, a translation is
// submitted to the spawner; Save does not wait for it.
func (s *Store) Save(ctx context.Context, d Draft, lang language.Language, background bool) (Record, error) {
	return s.save(ctx, d, lang, background, upsert)
}

// Create is Save for a key that must not exist yet; an existing record
// yields a Conflict error.
func (s *Store) Create(ctx context.Context, d Draft, lang language.Language, background bool) (Record, error) {
	return s.save(ctx, d, lang, background, createOnly)
}

// Update is Save for a key that must already exist. Empty draft fields
// keep their stored values.
func (s *Store) Update(ctx context.Context, d Draft, lang language.Language, background bool) (Record, error) {
	return s.save(ctx, d, lang, background, updateOnly)
}

func (s *Store) save(ctx context.Context, d Draft, lang language.Language, background bool, mode saveMode) (Record, error) {
	d.Key = strings.TrimSpace(d.Key)
	if d.Key == "" {
		return Record{}, apierr.MissingField(s.keyField())
	}
	lang = language.Normalize(string(lang))

	unlock := s.locks.Lock(d.Key)
	rec, found, err := s.load(ctx, d.Key)
	if err != nil {
		unlock()
		return Record{}, err
	}
	switch {
	case mode == createOnly && found:
		unlock()
		return Record{}, apierr.Conflict(fmt.Sprintf("%s for %q already exists", s.what(), d.Key))
	case mode == updateOnly && !found:
		unlock()
		return Record{}, apierr.NotFound(s.what())
	}
	now := s.now()
	if !found {
		rec = Record{
			Key:          d.Key,
			Entity:       s.entity,
			BaseLanguage: lang,
			Translations: make(map[language.Code]Projection),
			CreatedAt:    now,
		}
	}

	prev, had := rec.Translations[lang.Code()]
	other := lang.Opposite().Code()
	// An update carrying only language independent fields leaves the
	// projections alone.
	if !found || had || d.hasContent() {
		next := Projection{
			DisplayName: cmp.Or(strings.TrimSpace(d.DisplayName), prev.DisplayName, d.Key),
			Description: cmp.Or(d.Description, prev.Description),
			Fields:      slices.Clone(d.Fields),
			UpdatedAt:   now,
		}
		if next.Fields == nil {
			next.Fields = prev.Fields
		}
		rec.Translations[lang.Code()] = next

		if o, ok := rec.Translations[other]; ok && o.Source == lang.Code() && had {
			if changed := next.changes(prev); len(changed) > 0 {
				// The stored translation was derived from the old content.
				delete(rec.Translations, other)
				log.Info("dropping stale translation", "entity", s.entity, "key", d.Key, "language", other, "changed", changed)
			}
		}
	}

	if d.BrandColors != nil {
		rec.BrandColors = slices.Clone(d.BrandColors)
	}
	rec.Channel = rec.Channel.merge(d.Channel)
	if len(d.Meta) > 0 {
		if rec.Meta == nil {
			rec.Meta = make(map[string]any, len(d.Meta))
		}
		maps.Copy(rec.Meta, d.Meta)
	}
	rec.UpdatedAt = now

	if err := s.write(ctx, rec); err != nil {
		unlock()
		return Record{}, fmt.Errorf("save %s %q: %w", s.entity, d.Key, err)
	}
	_, hasOther := rec.Translations[other]
	unlock()

	log.Info("saved DNA", "entity", s.entity, "key", d.Key, "language", lang, "sections", len(rec.Translations[lang.Code()].Fields))

	if background && !hasOther && s.spawner != nil && s.translator != nil {
		id, err := s.spawner.Submit(ctx, "translate "+string(s.entity), s.translateTask(d.Key, lang))
		if err != nil {
			log.Error("failed to schedule translation", "entity", s.entity, "key", d.Key, "error", err)
		} else {
			log.Debug("translation scheduled", "entity", s.entity, "key", d.Key, "task", id)
		}
	}
	return rec, nil
}

// translateTask materialises the opposite projection of the record as it
// is when the task runs. The lock is not held during the translation
// itself; the result is merged only if the source is unchanged and the
// target is still missing.
func (s *Store) translateTask(key string, from language.Language) func(ctx context.Context) error {
	to := from.Opposite()
	return func(ctx context.Context) error {
		unlock := s.locks.Lock(key)
		rec, found, err := s.load(ctx, key)
		unlock()
		if err != nil {
			return err
		}
		src, ok := rec.Translations[from.Code()]
		if !found || !ok {
			return nil
		}
		if _, done := rec.Translations[to.Code()]; done {
			return nil
		}

		translated, err := s.translator.Projection(ctx, s.entity, src.clone(), from, to)
		if err != nil {
			return err
		}

		unlock = s.locks.Lock(key)
		defer unlock()
		rec, found, err = s.load(ctx, key)
		if err != nil {
			return err
		}
		if !found {
			log.Debug("record deleted during translation", "entity", s.entity, "key", key)
			return nil
		}
		if _, done := rec.Translations[to.Code()]; done {
			return nil
		}
		if cur := rec.Translations[from.Code()]; !cur.UpdatedAt.Equal(src.UpdatedAt) {
			log.Debug("source changed during translation", "entity", s.entity, "key", key)
			return nil
		}
		translated.Source = from.Code()
		translated.UpdatedAt = s.now()
		rec.Translations[to.Code()] = translated
		if err := s.write(ctx, rec); err != nil {
			return err
		}
		log.Info("translation stored", "entity", s.entity, "key", key, "language", to)
		return nil
	}
}

// Delete removes the record with every projection.
func (s *Store) Delete(ctx context.Context, key string) error {
	unlock := s.locks.Lock(key)
	defer unlock()
	k := kv.Key(s.collection, key)
	ok, err := s.backend.Exists(ctx, k)
	if err != nil {
		return err
	}
	if !ok {
		return apierr.NotFound(s.what())
	}
	if err := s.backend.Delete(ctx, k); err != nil {
		return fmt.Errorf("delete %s %q: %w", s.entity, key, err)
	}
	log.Info("deleted DNA", "entity", s.entity, "key", key)
	return nil
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Lock serialises work on one key and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
