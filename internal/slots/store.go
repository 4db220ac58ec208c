// Package slots holds the user's five category slots, the active-slot
// selection, and the persisted store behind them.
package slots

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/kalambet/forlove/internal/storage"
)

const (
	// ConfigurationKey is the record holding the serialized configuration.
	ConfigurationKey = "forlove.slots.configuration"
	// ActiveIndexKey is the record holding the cursor into the active slots.
	ActiveIndexKey = "forlove.slots.activeIndex"
)

// RecordStore defines the key-value operations the Store needs.
// Implemented by storage.Store. GetRecord returns storage.ErrNotFound for
// missing keys.
type RecordStore interface {
	GetRecord(key string) ([]byte, error)
	SetRecord(key string, value []byte) error
	DeleteRecord(key string) error
}

// Store loads and mutates the slot configuration. Mutations are
// load-modify-save under a mutex, so concurrent callers in one process
// never lose each other's writes.
type Store struct {
	records RecordStore
	mu      sync.Mutex
}

func NewStore(records RecordStore) *Store {
	return &Store{records: records}
}

// Load returns the persisted configuration. Missing data yields the
// default. Data that fails to decode or violates the slot invariants is
// deleted and the default is returned; an invalid active list alone is
// reset to the default ids. This never fails.
func (s *Store) Load() UserSlotConfiguration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() UserSlotConfiguration {
	data, err := s.records.GetRecord(ConfigurationKey)
	if errors.Is(err, storage.ErrNotFound) {
		return Default()
	}
	if err != nil {
		slog.Warn("reading slot configuration failed, using defaults", "error", err)
		return Default()
	}

	var cfg UserSlotConfiguration
	if err := json.Unmarshal(data, &cfg); err == nil {
		err = cfg.validateSlots()
		if err == nil {
			return s.repairActive(cfg)
		}
		slog.Warn("stored slot configuration is invalid, resetting", "error", err)
	} else {
		slog.Warn("stored slot configuration is unreadable, resetting", "error", err)
	}

	if err := s.records.DeleteRecord(ConfigurationKey); err != nil {
		slog.Warn("clearing slot configuration failed", "error", err)
	}
	return Default()
}

// repairActive resets only the active ids when they are unusable, so the
// per-slot settings survive a bad SetActiveSlots call.
func (s *Store) repairActive(cfg UserSlotConfiguration) UserSlotConfiguration {
	err := cfg.validateActive()
	if err == nil {
		return cfg
	}
	slog.Warn("stored active slots are invalid, resetting them", "error", err)
	cfg.ActiveSlotIDs = Default().ActiveSlotIDs
	if err := s.save(cfg); err != nil {
		slog.Warn("saving repaired slot configuration failed", "error", err)
	}
	return cfg
}

// Save writes cfg in a single record update; readers see either the old
// or the new value.
func (s *Store) Save(cfg UserSlotConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(cfg)
}

func (s *Store) save(cfg UserSlotConfiguration) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding slot configuration: %w", err)
	}
	if err := s.records.SetRecord(ConfigurationKey, data); err != nil {
		return fmt.Errorf("saving slot configuration: %w", err)
	}
	return nil
}

// update applies fn to the current configuration and persists the result
// when fn reports a change.
func (s *Store) update(fn func(*UserSlotConfiguration) bool) (UserSlotConfiguration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := s.load()
	if !fn(&cfg) {
		return cfg, nil
	}
	if err := s.save(cfg); err != nil {
		return UserSlotConfiguration{}, err
	}
	return cfg, nil
}

// SelectSubCategory sets the sub-category of slot id to the entry at index.
// Unknown ids and out-of-range indexes leave the configuration untouched.
func (s *Store) SelectSubCategory(id, index int) (UserSlotConfiguration, error) {
	return s.update(func(c *UserSlotConfiguration) bool {
		return c.SelectSubCategory(id, index)
	})
}

// SetActiveSlots replaces the active ids, keeping at most three.
func (s *Store) SetActiveSlots(ids []int) (UserSlotConfiguration, error) {
	return s.update(func(c *UserSlotConfiguration) bool {
		c.SetActiveSlots(ids)
		return true
	})
}

// UpdateSlot replaces the stored slot with the same id. Unknown ids are
// ignored.
func (s *Store) UpdateSlot(slot CategorySlot) (UserSlotConfiguration, error) {
	return s.update(func(c *UserSlotConfiguration) bool {
		return c.UpdateSlot(slot)
	})
}

// PatchSlot applies fn to slot id under the store lock, so concurrent
// updates to other fields of the same slot are not lost. Unknown ids are
// ignored.
func (s *Store) PatchSlot(id int, fn func(*CategorySlot)) (UserSlotConfiguration, error) {
	return s.update(func(c *UserSlotConfiguration) bool {
		slot, ok := c.Slot(id)
		if !ok {
			return false
		}
		fn(&slot)
		return c.UpdateSlot(slot)
	})
}

// ActiveIndex returns the cursor into the active slots. A missing, corrupt
// or out-of-range value reads as 0.
func (s *Store) ActiveIndex(cfg UserSlotConfiguration) int {
	data, err := s.records.GetRecord(ActiveIndexKey)
	if err != nil {
		return 0
	}
	i, err := strconv.Atoi(string(data))
	if err != nil || i < 0 || i >= len(cfg.ActiveSlots()) {
		return 0
	}
	return i
}

// SetActiveIndex moves the cursor. Out-of-range indexes are ignored.
func (s *Store) SetActiveIndex(cfg UserSlotConfiguration, index int) bool {
	if index < 0 || index >= len(cfg.ActiveSlots()) {
		return false
	}
	if err := s.records.SetRecord(ActiveIndexKey, []byte(strconv.Itoa(index))); err != nil {
		slog.Warn("saving active slot index failed", "error", err)
		return false
	}
	return true
}

// CurrentSlot loads the configuration and returns the slot under the
// cursor, falling back to the first active slot.
func (s *Store) CurrentSlot() (CategorySlot, bool) {
	cfg := s.Load()
	active := cfg.ActiveSlots()
	if len(active) == 0 {
		return CategorySlot{}, false
	}
	return active[s.ActiveIndex(cfg)], true
}
