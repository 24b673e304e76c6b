package photobox

import (
	"fmt"

	"github.com/google/uuid"
)

// SlotState distinguishes "never captured" from "regenerating" from
// "restored" explicitly instead of leaning on empty-string checks.
type SlotState int

const (
	SlotEmpty SlotState = iota
	SlotRaw
	SlotPending
	SlotGenerated
	SlotAdjusted
)

func (s SlotState) String() string {
	switch s {
	case SlotEmpty:
		return "empty"
	case SlotRaw:
		return "raw"
	case SlotPending:
		return "pending"
	case SlotGenerated:
		return "generated"
	case SlotAdjusted:
		return "adjusted"
	}
	return "unknown"
}

// Slot is one fixed position in the chosen layout. Raw is the captured photo,
// Generated the durable cache of the last successful remote result, Active
// whatever previews and assembly should show right now. All images are data
// URLs.
type Slot struct {
	ID        string
	Raw       string
	Generated string
	Active    string
	Filter    string
	State     SlotState
}

// AIFlag reports whether the slot's visible result diverges from its capture.
func (s Slot) AIFlag() bool {
	return s.Active != "" && s.Active != s.Raw
}

// Registry is the fixed-length slot arena for one session. It is not
// self-locking: the session store serializes all access.
type Registry struct {
	slots []Slot
}

func NewRegistry(count int) *Registry {
	if count < 1 {
		count = 1
	}
	return &Registry{slots: make([]Slot, count)}
}

func (r *Registry) Len() int { return len(r.slots) }

// Slots returns a copy; callers never alias registry internals.
func (r *Registry) Slots() []Slot {
	out := make([]Slot, len(r.slots))
	copy(out, r.slots)
	return out
}

func (r *Registry) Slot(index int) (Slot, error) {
	if err := r.check(index); err != nil {
		return Slot{}, err
	}
	return r.slots[index], nil
}

func (r *Registry) check(index int) error {
	if index < 0 || index >= len(r.slots) {
		return fmt.Errorf("slot index %d out of range (0..%d)", index, len(r.slots)-1)
	}
	return nil
}

// SetCapture stores a freshly captured or uploaded photo. Capturing over an
// occupied slot is a retake: any previous generation for it is dropped.
func (r *Registry) SetCapture(index int, image string) error {
	if err := r.check(index); err != nil {
		return err
	}
	if image == "" {
		return fmt.Errorf("slot %d: empty capture", index)
	}

	r.slots[index] = Slot{ID: r.slots[index].ID, Raw: image, State: SlotRaw}
	return nil
}

func (r *Registry) ClearSlot(index int) error {
	if err := r.check(index); err != nil {
		return err
	}
	r.slots[index] = Slot{ID: r.slots[index].ID}
	return nil
}

// NextEmpty returns the lowest empty slot index, or -1 when full.
func (r *Registry) NextEmpty() int {
	for i, s := range r.slots {
		if s.State == SlotEmpty {
			return i
		}
	}
	return -1
}

func (r *Registry) EmptyIndices() []int {
	var out []int
	for i, s := range r.slots {
		if s.State == SlotEmpty {
			out = append(out, i)
		}
	}
	return out
}

func (r *Registry) AllCaptured() bool {
	for _, s := range r.slots {
		if s.Raw == "" {
			return false
		}
	}
	return true
}

// Finalize assigns each slot its session-unique identity. Index stays the
// key during capture; the identity is what selection and reordering use
// afterwards. Idempotent.
func (r *Registry) Finalize() {
	for i := range r.slots {
		if r.slots[i].ID == "" {
			r.slots[i].ID = uuid.NewString()
		}
	}
}

// InitActives seeds every slot's active image with its raw capture unless an
// active image already exists. Repeated calls never clobber generated or
// adjusted results.
func (r *Registry) InitActives() {
	for i := range r.slots {
		if r.slots[i].Active == "" && r.slots[i].Raw != "" {
			r.slots[i].Active = r.slots[i].Raw
			if r.slots[i].State == SlotEmpty {
				r.slots[i].State = SlotRaw
			}
		}
	}
}

// MarkPending flips the selected slots into the transient busy state so each
// one can show its own indicator. Untouched slots keep their active image.
func (r *Registry) MarkPending(selection *Selection) {
	for i := range r.slots {
		if selection.Has(r.slots[i].ID) {
			r.slots[i].Active = ""
			r.slots[i].State = SlotPending
		}
	}
}

// ApplyResult lands one generation outcome. Success updates both the durable
// cache and the active image; failure falls back to the raw capture and
// leaves the cache alone.
func (r *Registry) ApplyResult(index int, image string, ok bool) error {
	if err := r.check(index); err != nil {
		return err
	}

	s := &r.slots[index]
	if ok && image != "" {
		s.Generated = image
		s.Active = image
		s.State = SlotGenerated
		return nil
	}

	s.Active = s.Raw
	s.State = SlotRaw
	return nil
}

// RestoreOriginal reverts one slot to its capture and drops the cache.
// Restoration is free and never touches other slots.
func (r *Registry) RestoreOriginal(index int) error {
	if err := r.check(index); err != nil {
		return err
	}

	s := &r.slots[index]
	s.Generated = ""
	s.Active = s.Raw
	s.State = SlotRaw
	return nil
}

// AdjustSource is what crop/rotate/zoom operates on: the cached generation
// when one exists, otherwise the raw capture.
func (r *Registry) AdjustSource(index int) (string, error) {
	if err := r.check(index); err != nil {
		return "", err
	}
	if r.slots[index].Generated != "" {
		return r.slots[index].Generated, nil
	}
	return r.slots[index].Raw, nil
}

// ApplyAdjustment replaces the active image with an adjusted rendition. The
// cache stays untouched so the adjustment can be redone from the same source.
func (r *Registry) ApplyAdjustment(index int, adjusted string) error {
	if err := r.check(index); err != nil {
		return err
	}
	if adjusted == "" {
		return fmt.Errorf("slot %d: empty adjustment", index)
	}

	s := &r.slots[index]
	s.Active = adjusted
	s.State = SlotAdjusted
	return nil
}

// AllResolved is the forward gate out of the AI studio: every slot must show
// something and none may still be generating.
func (r *Registry) AllResolved() bool {
	for _, s := range r.slots {
		if s.Active == "" || s.State == SlotPending {
			return false
		}
	}
	return true
}

func (r *Registry) IndexByID(id string) int {
	for i, s := range r.slots {
		if s.ID != "" && s.ID == id {
			return i
		}
	}
	return -1
}

// Selection is the set of slot identities queued for the next regeneration
// batch. It is independent of slot state: slots with cached results may be
// re-selected and regenerated.
type Selection struct {
	ids []string
}

func (sel *Selection) Toggle(id string) {
	for i, v := range sel.ids {
		if v == id {
			sel.ids = append(sel.ids[:i], sel.ids[i+1:]...)
			return
		}
	}
	sel.ids = append(sel.ids, id)
}

func (sel *Selection) Has(id string) bool {
	if id == "" {
		return false
	}
	for _, v := range sel.ids {
		if v == id {
			return true
		}
	}
	return false
}

func (sel *Selection) Count() int { return len(sel.ids) }

func (sel *Selection) Clear() { sel.ids = nil }

func (sel *Selection) IDs() []string {
	out := make([]string, len(sel.ids))
	copy(out, sel.ids)
	return out
}

func (sel *Selection) clone() *Selection {
	c := &Selection{ids: make([]string, len(sel.ids))}
	copy(c.ids, sel.ids)
	return c
}
