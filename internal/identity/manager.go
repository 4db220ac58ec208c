package identity

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Profile keys. Together they make up the single logical identity record;
// each field is stored as its own user_profile row so SetField can update
// one without rewriting the rest.
const (
	KeyDisplayName      = "identity.display_name"
	KeyGender           = "identity.gender"
	KeyRelationshipGoal = "identity.relationship_goal"
	KeyPersona          = "identity.persona"
	KeyCustomPersona    = "identity.custom_persona"
	KeySpeakingStyle    = "identity.speaking_style"
	KeyTabooList        = "identity.taboo_list"
	KeyLanguage         = "identity.language"
)

// ProfileStore defines the storage operations the Manager needs.
// Implemented by storage.Store.
type ProfileStore interface {
	SetProfileKey(key, value string) error
	GetAllProfileKeys() (map[string]string, error)
	DeleteProfileKey(key string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Manager provides cached access to the user identity stored in SQLite.
type Manager struct {
	store ProfileStore
	clock Clock
	ttl   time.Duration

	mu       sync.RWMutex
	cached   *UserIdentity
	cachedAt time.Time
}

// NewManager creates a Manager with a 60-second cache TTL.
func NewManager(store ProfileStore) *Manager {
	return NewManagerWithClock(store, realClock{}, 60*time.Second)
}

// NewManagerWithClock creates a Manager with a custom clock (for testing).
func NewManagerWithClock(store ProfileStore, clock Clock, ttl time.Duration) *Manager {
	return &Manager{store: store, clock: clock, ttl: ttl}
}

// Get returns the stored identity. Missing keys take their default value;
// malformed keys are deleted and also take the default.
func (m *Manager) Get() (UserIdentity, error) {
	m.mu.RLock()
	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		id := m.cached.clone()
		m.mu.RUnlock()
		return id, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cached != nil && m.clock.Now().Before(m.cachedAt.Add(m.ttl)) {
		return m.cached.clone(), nil
	}

	keys, err := m.store.GetAllProfileKeys()
	if err != nil {
		return Default(), fmt.Errorf("loading identity keys: %w", err)
	}

	id, bad := build(keys)
	for _, key := range bad {
		if err := m.store.DeleteProfileKey(key); err != nil {
			slog.Warn("failed to delete malformed identity key", "key", key, "error", err)
		}
	}
	m.cached = &id
	m.cachedAt = m.clock.Now()
	return id.clone(), nil
}

// Save replaces every identity field.
func (m *Manager) Save(id UserIdentity) error {
	fields, err := encode(id)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil

	for _, key := range Keys() {
		if err := m.store.SetProfileKey(key, fields[key]); err != nil {
			return fmt.Errorf("setting identity key %q: %w", key, err)
		}
	}
	return nil
}

// SetField validates and persists a single field. value accepts the token
// or the display form for enum fields; the taboo list takes a JSON array or
// a comma/、 separated list.
func (m *Manager) SetField(key, value string) error {
	return m.SetFields(map[string]string{key: value})
}

// SetFields validates every field before writing any of them, so a bad
// value leaves the stored identity untouched.
func (m *Manager) SetFields(fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	encoded := make(map[string]string, len(keys))
	for _, key := range keys {
		id := Default()
		if err := apply(&id, key, fields[key]); err != nil {
			return err
		}
		enc, err := encode(id)
		if err != nil {
			return err
		}
		encoded[key] = enc[key]
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	for _, key := range keys {
		if err := m.store.SetProfileKey(key, encoded[key]); err != nil {
			return fmt.Errorf("setting identity key %q: %w", key, err)
		}
	}
	return nil
}

// Reset removes every stored identity field.
func (m *Manager) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cached = nil
	for _, key := range Keys() {
		if err := m.store.DeleteProfileKey(key); err != nil {
			return fmt.Errorf("deleting identity key %q: %w", key, err)
		}
	}
	return nil
}

// Keys lists the profile keys the identity record is stored under, sorted.
// Get, Save and Reset always treat them as one unit.
func Keys() []string {
	keys := []string{
		KeyDisplayName, KeyGender, KeyRelationshipGoal, KeyPersona,
		KeyCustomPersona, KeySpeakingStyle, KeyTabooList, KeyLanguage,
	}
	sort.Strings(keys)
	return keys
}

func encode(id UserIdentity) (map[string]string, error) {
	taboo := id.TabooList
	if taboo == nil {
		taboo = []string{}
	}
	b, err := json.Marshal(taboo)
	if err != nil {
		return nil, fmt.Errorf("marshalling taboo list: %w", err)
	}
	fields := map[string]string{
		KeyDisplayName:   id.DisplayName,
		KeyCustomPersona: id.CustomPersona,
		KeyTabooList:     string(b),
	}
	enums := map[string]interface{ MarshalText() ([]byte, error) }{
		KeyGender:           id.Gender,
		KeyRelationshipGoal: id.RelationshipGoal,
		KeyPersona:          id.Persona,
		KeySpeakingStyle:    id.SpeakingStyle,
		KeyLanguage:         id.Language,
	}
	for key, v := range enums {
		text, err := v.MarshalText()
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", key, err)
		}
		fields[key] = string(text)
	}
	return fields, nil
}

// build assembles an identity from flat key-value pairs and reports which
// keys could not be decoded.
func build(keys map[string]string) (UserIdentity, []string) {
	id := Default()
	var bad []string
	for _, key := range Keys() {
		v, ok := keys[key]
		if !ok {
			continue
		}
		if err := apply(&id, key, v); err != nil {
			slog.Warn("malformed identity key, using default", "key", key, "error", err)
			bad = append(bad, key)
		}
	}
	return id, bad
}

func apply(id *UserIdentity, key, value string) error {
	var err error
	switch key {
	case KeyDisplayName:
		id.DisplayName = strings.TrimSpace(value)
	case KeyCustomPersona:
		id.CustomPersona = strings.TrimSpace(value)
	case KeyGender:
		id.Gender, err = ParseGender(value)
	case KeyRelationshipGoal:
		id.RelationshipGoal, err = ParseRelationshipGoal(value)
	case KeyPersona:
		id.Persona, err = ParsePersona(value)
	case KeySpeakingStyle:
		id.SpeakingStyle, err = ParseSpeakingStyle(value)
	case KeyLanguage:
		id.Language, err = ParseLanguage(value)
	case KeyTabooList:
		id.TabooList, err = parseTaboo(value)
	default:
		return fmt.Errorf("unknown identity key %q", key)
	}
	if err != nil {
		restoreDefault(id, key)
	}
	return err
}

func restoreDefault(id *UserIdentity, key string) {
	def := Default()
	switch key {
	case KeyGender:
		id.Gender = def.Gender
	case KeyRelationshipGoal:
		id.RelationshipGoal = def.RelationshipGoal
	case KeyPersona:
		id.Persona = def.Persona
	case KeySpeakingStyle:
		id.SpeakingStyle = def.SpeakingStyle
	case KeyLanguage:
		id.Language = def.Language
	case KeyTabooList:
		id.TabooList = def.TabooList
	}
}

func parseTaboo(value string) ([]string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return []string{}, nil
	}
	var raw []string
	if strings.HasPrefix(value, "[") {
		if err := json.Unmarshal([]byte(value), &raw); err != nil {
			return nil, fmt.Errorf("taboo list: %w", err)
		}
	} else {
		raw = strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '，' || r == '、' })
	}
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}
