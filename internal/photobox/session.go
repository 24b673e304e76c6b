package photobox

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"ceritanya-photobox/internal/config"
)

// Stage is the session's position in the photobooth flow. Strictly linear:
// Back decrements, completion events increment, the studio skip jumps
// straight to assembly.
type Stage int

const (
	StageModeSelect Stage = iota
	StageLayoutSelect
	StageCapture
	StageAIStudio
	StageAssembly
)

func (s Stage) String() string {
	switch s {
	case StageModeSelect:
		return "mode_select"
	case StageLayoutSelect:
		return "layout_select"
	case StageCapture:
		return "capture"
	case StageAIStudio:
		return "ai_studio"
	case StageAssembly:
		return "assembly"
	}
	return "unknown"
}

type Event int

const (
	EventSelectMode Event = iota
	EventSelectLayout
	EventCompleteCapture
	EventCompleteStudio
	EventSkipStudio
	EventBack
	EventRestart
)

func (e Event) String() string {
	switch e {
	case EventSelectMode:
		return "select_mode"
	case EventSelectLayout:
		return "select_layout"
	case EventCompleteCapture:
		return "complete_capture"
	case EventCompleteStudio:
		return "complete_studio"
	case EventSkipStudio:
		return "skip_studio"
	case EventBack:
		return "back"
	case EventRestart:
		return "restart"
	}
	return "unknown"
}

// EventInput carries the payload for transitions that need one.
type EventInput struct {
	Mode     Mode
	LayoutID string
}

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrModeDisabled      = errors.New("mode is not available yet")
	ErrUnknownMode       = errors.New("unknown mode")
	ErrUnknownLayout     = errors.New("unknown layout")
	ErrNoLayout          = errors.New("no layout selected")
	ErrCaptureIncomplete = errors.New("all slots must hold a photo")
	ErrSlotsUnresolved   = errors.New("all slots must be resolved")
	ErrBatchRunning      = errors.New("a generation batch is already running")
)

// StudioState is the AI-studio slice of session data. It lives on the
// session itself so backward navigation restores it exactly; the stage only
// ever works on snapshots pushed back through the store.
type StudioState struct {
	IdolPhoto        string
	StylePrompt      string
	BackgroundPrompt string
	Selection        Selection
}

// FinalPhoto is what the studio hands to assembly per slot: the capture, an
// optional AI override, and whether the visible result diverges from the
// capture.
type FinalPhoto struct {
	ID       string
	Raw      string
	Override string
	AIFlag   bool
	Filter   string
}

// Image is the slot's output at assembly time.
func (p FinalPhoto) Image() string {
	if p.Override != "" {
		return p.Override
	}
	return p.Raw
}

// AssemblyState is the assembly-stage slice of session data: theming,
// filtering and ordering of the finalized photos.
type AssemblyState struct {
	ThemeID  string
	FilterID string
	Order    []int
	ShowDate bool
}

type Session struct {
	ID    string
	Stage Stage

	Mode   Mode
	Layout Layout

	Registry *Registry
	Ledger   *Ledger
	Studio   StudioState

	FinalPhotos []FinalPhoto
	Assembly    AssemblyState

	// Reentrancy guards: the triggering controls stay disabled while an
	// operation is outstanding.
	Generating bool
	Enhancing  bool

	CreatedAt time.Time
	UpdatedAt time.Time

	newspaperEnabled bool
	costs            config.TokenCosts
	vault            *Vault
}

// stageAny matches any from-stage in the transition table.
const stageAny Stage = -1

type transition struct {
	from  Stage
	event Event
	to    Stage
	guard func(*Session, EventInput) error
	apply func(*Session, EventInput)
}

var transitions = []transition{
	{
		from: StageModeSelect, event: EventSelectMode, to: StageLayoutSelect,
		guard: guardMode,
		apply: func(s *Session, in EventInput) { s.Mode = in.Mode },
	},
	{
		from: StageLayoutSelect, event: EventSelectLayout, to: StageCapture,
		guard: guardLayout,
		apply: applyLayout,
	},
	{
		from: StageCapture, event: EventCompleteCapture, to: StageAIStudio,
		guard: guardCaptureComplete,
		apply: applyCaptureComplete,
	},
	{
		from: StageAIStudio, event: EventCompleteStudio, to: StageAssembly,
		guard: guardStudioComplete,
		apply: applyStudioComplete,
	},
	{
		from: StageAIStudio, event: EventSkipStudio, to: StageAssembly,
		guard: guardStudioIdle,
		apply: applyStudioSkip,
	},
	{from: StageLayoutSelect, event: EventBack, to: StageModeSelect},
	{from: StageCapture, event: EventBack, to: StageLayoutSelect},
	{from: StageAIStudio, event: EventBack, to: StageCapture, guard: guardStudioIdle},
	{from: StageAssembly, event: EventBack, to: StageAIStudio},
	{
		from: stageAny, event: EventRestart, to: StageModeSelect,
		apply: func(s *Session, _ EventInput) { s.reset() },
	},
}

func guardMode(s *Session, in EventInput) error {
	switch in.Mode {
	case ModeClassic:
		return nil
	case ModeNewspaper:
		if !s.newspaperEnabled {
			return ErrModeDisabled
		}
		return nil
	}
	return ErrUnknownMode
}

func guardLayout(_ *Session, in EventInput) error {
	if _, ok := LayoutByID(in.LayoutID); !ok {
		return ErrUnknownLayout
	}
	return nil
}

// applyLayout pins the layout. Re-selecting after backing out rebuilds the
// slot arena and drops any studio work sized to the old layout.
func applyLayout(s *Session, in EventInput) {
	layout, _ := LayoutByID(in.LayoutID)
	if s.Layout.ID == layout.ID && s.Registry != nil {
		return
	}

	s.Layout = layout
	s.Registry = NewRegistry(layout.Slots)
	s.Studio.Selection.Clear()
	s.FinalPhotos = nil
	s.Assembly = AssemblyState{}
}

func guardCaptureComplete(s *Session, _ EventInput) error {
	if s.Registry == nil {
		return ErrNoLayout
	}
	if !s.Registry.AllCaptured() {
		return ErrCaptureIncomplete
	}
	return nil
}

// applyCaptureComplete carries the finalized captures forward as both the
// originals and the current finals.
func applyCaptureComplete(s *Session, _ EventInput) {
	s.Registry.Finalize()
	s.Registry.InitActives()
}

func guardStudioComplete(s *Session, _ EventInput) error {
	if err := guardStudioIdle(s, EventInput{}); err != nil {
		return err
	}
	if !s.Registry.AllResolved() {
		return ErrSlotsUnresolved
	}
	return nil
}

func guardStudioIdle(s *Session, _ EventInput) error {
	if s.Generating {
		return ErrBatchRunning
	}
	return nil
}

func applyStudioComplete(s *Session, _ EventInput) {
	slots := s.Registry.Slots()
	out := make([]FinalPhoto, len(slots))
	for i, slot := range slots {
		p := FinalPhoto{ID: slot.ID, Raw: slot.Raw, Filter: slot.Filter}
		if slot.AIFlag() {
			p.Override = slot.Active
			p.AIFlag = true
		}
		out[i] = p
	}
	s.FinalPhotos = out
	s.resetAssemblyOrder()
}

// applyStudioSkip forces every slot back to its capture for the session's
// output. The generation caches stay in the registry for if the user returns.
func applyStudioSkip(s *Session, _ EventInput) {
	slots := s.Registry.Slots()
	out := make([]FinalPhoto, len(slots))
	for i, slot := range slots {
		out[i] = FinalPhoto{ID: slot.ID, Raw: slot.Raw, Filter: slot.Filter}
	}
	s.FinalPhotos = out
	s.resetAssemblyOrder()
}

func (s *Session) resetAssemblyOrder() {
	order := make([]int, len(s.FinalPhotos))
	for i := range order {
		order[i] = i
	}
	s.Assembly = AssemblyState{ThemeID: "", FilterID: "none", Order: order}
}

// Apply runs one event through the transition table. Unknown (stage, event)
// pairs are rejected; guards block without side effects.
func (s *Session) Apply(event Event, in EventInput) error {
	for _, t := range transitions {
		if t.event != event {
			continue
		}
		if t.from != stageAny && t.from != s.Stage {
			continue
		}

		if t.guard != nil {
			if err := t.guard(s, in); err != nil {
				return err
			}
		}
		if t.apply != nil {
			t.apply(s, in)
		}
		s.Stage = t.to
		return nil
	}
	return fmt.Errorf("no transition for event %s in stage %s", event, s.Stage)
}

// reset wipes all session data back to a fresh start. The voucher vault is
// shared process state and keeps its spent codes.
func (s *Session) reset() {
	s.Mode = ""
	s.Layout = Layout{}
	s.Registry = nil
	s.Ledger = NewLedger(s.costs, s.vault)
	s.Studio = StudioState{}
	s.FinalPhotos = nil
	s.Assembly = AssemblyState{}
	s.Generating = false
	s.Enhancing = false
}

// OrderedFinalPhotos returns the finalized photos in the assembly ordering.
func (s *Session) OrderedFinalPhotos() []FinalPhoto {
	if len(s.Assembly.Order) != len(s.FinalPhotos) {
		out := make([]FinalPhoto, len(s.FinalPhotos))
		copy(out, s.FinalPhotos)
		return out
	}

	out := make([]FinalPhoto, 0, len(s.FinalPhotos))
	for _, idx := range s.Assembly.Order {
		if idx < 0 || idx >= len(s.FinalPhotos) {
			continue
		}
		out = append(out, s.FinalPhotos[idx])
	}
	return out
}

// SwapFinalPhotos exchanges two positions in the assembly ordering.
func (s *Session) SwapFinalPhotos(a, b int) error {
	if len(s.Assembly.Order) != len(s.FinalPhotos) {
		s.resetAssemblyOrder()
	}
	if a < 0 || a >= len(s.Assembly.Order) || b < 0 || b >= len(s.Assembly.Order) {
		return fmt.Errorf("swap positions %d,%d out of range", a, b)
	}
	s.Assembly.Order[a], s.Assembly.Order[b] = s.Assembly.Order[b], s.Assembly.Order[a]
	return nil
}

type StoreOptions struct {
	Costs         config.TokenCosts
	Vault         *Vault
	NewspaperMode bool
}

// Store owns every live session. All reads hand out copies; all mutation goes
// through Update, which serializes access and stamps UpdatedAt — the
// snapshot-on-navigate contract in one place.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	opts     StoreOptions
}

func NewStore(opts StoreOptions) *Store {
	if opts.Vault == nil {
		opts.Vault = NewVault(nil)
	}
	return &Store{
		sessions: make(map[string]*Session),
		opts:     opts,
	}
}

func (st *Store) Create() Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	now := time.Now()
	s := &Session{
		ID:               uuid.NewString(),
		Stage:            StageModeSelect,
		CreatedAt:        now,
		UpdatedAt:        now,
		newspaperEnabled: st.opts.NewspaperMode,
		costs:            st.opts.Costs,
		vault:            st.opts.Vault,
	}
	s.Ledger = NewLedger(st.opts.Costs, st.opts.Vault)
	st.sessions[s.ID] = s
	return snapshot(s)
}

func (st *Store) Get(id string) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return snapshot(s), nil
}

// Update applies fn under the store lock and returns the resulting snapshot.
// An error from fn leaves UpdatedAt untouched but not necessarily the
// session: fn is expected to mutate only on success paths.
func (st *Store) Update(id string, fn func(*Session) error) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	s, ok := st.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}

	if fn != nil {
		if err := fn(s); err != nil {
			return snapshot(s), err
		}
	}
	s.UpdatedAt = time.Now()
	return snapshot(s), nil
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// snapshot deep-copies the mutable parts so callers can never reach store
// internals through a returned session.
func snapshot(s *Session) Session {
	out := *s
	if s.Registry != nil {
		out.Registry = &Registry{slots: s.Registry.Slots()}
	}
	if s.Ledger != nil {
		ledger := *s.Ledger
		out.Ledger = &ledger
	}
	out.Studio.Selection = *s.Studio.Selection.clone()
	out.FinalPhotos = make([]FinalPhoto, len(s.FinalPhotos))
	copy(out.FinalPhotos, s.FinalPhotos)
	out.Assembly.Order = make([]int, len(s.Assembly.Order))
	copy(out.Assembly.Order, s.Assembly.Order)
	return out
}
