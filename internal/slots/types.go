package slots

import (
	"errors"
	"fmt"

	"github.com/kalambet/forlove/internal/catalog"
)

const (
	// SlotCount is the fixed number of slots, one per main category.
	SlotCount = 5
	// MaxActiveSlots caps how many slots the generation surface exposes.
	MaxActiveSlots = 3
)

// CategorySlot is the user's configuration for one main category.
type CategorySlot struct {
	ID                  int                  `json:"id"`
	MainCategory        catalog.MainCategory `json:"mainCategory"`
	SelectedSubCategory catalog.SubCategory  `json:"selectedSubCategory"`
	SelectedSubIndex    int                  `json:"selectedSubIndex"`
	CustomStyleParams   *catalog.StyleParams `json:"customStyleParams,omitempty"`
	ConfigV2            catalog.SlotConfigV2 `json:"configV2"`
	IsEnabled           bool                 `json:"isEnabled"`
	Order               int                  `json:"order"`
}

// NewSlot returns a slot at its category's default sub-category.
func NewSlot(id int, main catalog.MainCategory) CategorySlot {
	return CategorySlot{
		ID:                  id,
		MainCategory:        main,
		SelectedSubCategory: main.DefaultSubCategory(),
		SelectedSubIndex:    0,
		ConfigV2:            catalog.DefaultSlotConfigV2(),
		IsEnabled:           true,
		Order:               id,
	}
}

// EffectiveStyleParams is the custom override when set, else the selected
// sub-category's default.
func (s CategorySlot) EffectiveStyleParams() catalog.StyleParams {
	if s.CustomStyleParams != nil {
		return *s.CustomStyleParams
	}
	return s.SelectedSubCategory.DefaultStyleParams()
}

// SelectSubCategory moves the selection to index within the slot's own
// category list. An out-of-range index leaves the slot unchanged and
// reports false; UI callers rely on stray taps being harmless.
func (s *CategorySlot) SelectSubCategory(index int) bool {
	sc, ok := s.MainCategory.SubCategoryAt(index)
	if !ok {
		return false
	}
	s.SelectedSubIndex = index
	s.SelectedSubCategory = sc
	return true
}

// SubCategoryNames lists the display names of the slot's available
// sub-categories in order.
func (s CategorySlot) SubCategoryNames() []string {
	subs := s.MainCategory.SubCategories()
	names := make([]string, len(subs))
	for i, sc := range subs {
		names[i] = sc.DisplayName()
	}
	return names
}

func (s CategorySlot) validate() error {
	if !s.MainCategory.Valid() {
		return fmt.Errorf("slot %d: invalid main category", s.ID)
	}
	at, ok := s.MainCategory.SubCategoryAt(s.SelectedSubIndex)
	if !ok {
		return fmt.Errorf("slot %d: sub index %d out of range", s.ID, s.SelectedSubIndex)
	}
	if at != s.SelectedSubCategory {
		return fmt.Errorf("slot %d: sub category %s does not match index %d", s.ID, s.SelectedSubCategory, s.SelectedSubIndex)
	}
	return nil
}

// UserSlotConfiguration holds all five slots and the ordered ids of the
// active ones.
type UserSlotConfiguration struct {
	AllSlots      []CategorySlot `json:"allSlots"`
	ActiveSlotIDs []int          `json:"activeSlotIds"`
}

// Default returns the compiled-in configuration: every slot at its default
// sub-category, with reply, opener and polish active.
func Default() UserSlotConfiguration {
	mains := catalog.MainCategories()
	all := make([]CategorySlot, len(mains))
	for i, m := range mains {
		all[i] = NewSlot(i, m)
	}
	return UserSlotConfiguration{
		AllSlots:      all,
		ActiveSlotIDs: []int{0, 1, 2},
	}
}

// ActiveSlots projects ActiveSlotIDs onto AllSlots, preserving id order.
// Ids without a matching slot are skipped.
func (c UserSlotConfiguration) ActiveSlots() []CategorySlot {
	out := make([]CategorySlot, 0, len(c.ActiveSlotIDs))
	for _, id := range c.ActiveSlotIDs {
		if s, ok := c.Slot(id); ok {
			out = append(out, s)
		}
	}
	return out
}

// Slot returns the slot with the given id.
func (c UserSlotConfiguration) Slot(id int) (CategorySlot, bool) {
	for _, s := range c.AllSlots {
		if s.ID == id {
			return s, true
		}
	}
	return CategorySlot{}, false
}

// UpdateSlot replaces the slot with the same id. Unknown ids are ignored.
func (c *UserSlotConfiguration) UpdateSlot(slot CategorySlot) bool {
	for i := range c.AllSlots {
		if c.AllSlots[i].ID == slot.ID {
			c.AllSlots[i] = slot
			return true
		}
	}
	return false
}

// SetActiveSlots keeps at most the first MaxActiveSlots ids. Uniqueness is
// the caller's responsibility.
func (c *UserSlotConfiguration) SetActiveSlots(ids []int) {
	if len(ids) > MaxActiveSlots {
		ids = ids[:MaxActiveSlots]
	}
	c.ActiveSlotIDs = append([]int(nil), ids...)
}

// SelectSubCategory updates the sub-category of slot id. Unknown ids and
// out-of-range indexes are no-ops.
func (c *UserSlotConfiguration) SelectSubCategory(id, index int) bool {
	s, ok := c.Slot(id)
	if !ok || !s.SelectSubCategory(index) {
		return false
	}
	return c.UpdateSlot(s)
}

// Clone returns a deep copy.
func (c UserSlotConfiguration) Clone() UserSlotConfiguration {
	out := UserSlotConfiguration{
		AllSlots:      make([]CategorySlot, len(c.AllSlots)),
		ActiveSlotIDs: append([]int(nil), c.ActiveSlotIDs...),
	}
	for i, s := range c.AllSlots {
		if s.CustomStyleParams != nil {
			p := *s.CustomStyleParams
			s.CustomStyleParams = &p
		}
		out.AllSlots[i] = s
	}
	return out
}

var errMalformed = errors.New("malformed slot configuration")

// Validate checks the structural invariants: exactly one slot per main
// category in id order, consistent sub-category selections, and at most
// three distinct known active ids.
func (c UserSlotConfiguration) Validate() error {
	if err := c.validateSlots(); err != nil {
		return err
	}
	return c.validateActive()
}

func (c UserSlotConfiguration) validateSlots() error {
	if len(c.AllSlots) != SlotCount {
		return fmt.Errorf("%w: %d slots", errMalformed, len(c.AllSlots))
	}
	for i, s := range c.AllSlots {
		if s.ID != i || s.MainCategory != catalog.MainCategory(i) {
			return fmt.Errorf("%w: slot at position %d has id %d and category %s", errMalformed, i, s.ID, s.MainCategory)
		}
		if err := s.validate(); err != nil {
			return fmt.Errorf("%w: %v", errMalformed, err)
		}
	}
	return nil
}

func (c UserSlotConfiguration) validateActive() error {
	if len(c.ActiveSlotIDs) > MaxActiveSlots {
		return fmt.Errorf("%w: %d active slots", errMalformed, len(c.ActiveSlotIDs))
	}
	seen := make(map[int]bool, len(c.ActiveSlotIDs))
	for _, id := range c.ActiveSlotIDs {
		if id < 0 || id >= SlotCount {
			return fmt.Errorf("%w: unknown active slot %d", errMalformed, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate active slot %d", errMalformed, id)
		}
		seen[id] = true
	}
	return nil
}

// ErrInvalidActiveSlots is returned by CheckActiveIDs.
var ErrInvalidActiveSlots = errors.New("invalid active slot ids")

// CheckActiveIDs reports whether ids is an acceptable active set: at most
// three distinct ids of existing slots.
func CheckActiveIDs(ids []int) error {
	if len(ids) > MaxActiveSlots {
		return fmt.Errorf("%w: at most %d slots can be active", ErrInvalidActiveSlots, MaxActiveSlots)
	}
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id < 0 || id >= SlotCount {
			return fmt.Errorf("%w: unknown slot %d", ErrInvalidActiveSlots, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: slot %d listed twice", ErrInvalidActiveSlots, id)
		}
		seen[id] = true
	}
	return nil
}
