package capture

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"ceritanya-photobox/internal/photobox"
)

var (
	ErrNoEmptySlot = errors.New("all slots are full")
	ErrNotCapture  = errors.New("session is not in the capture stage")
)

// Status is the visible countdown state for one session. Remaining counts
// down to zero; ShutterDue stays set until a shot arrives for the armed slot.
type Status struct {
	Active     bool `json:"active"`
	Slot       int  `json:"slot"`
	Remaining  int  `json:"remaining"`
	ShutterDue bool `json:"shutterDue"`
}

type countdownState struct {
	timer      *time.Timer
	generation int
	seconds    int
	slot       int
	remaining  int
	shutterDue bool
}

type Options struct {
	Store    *photobox.Store
	Logger   *slog.Logger
	Interval time.Duration
}

// Service runs the capture-stage timing for every session. At most one
// countdown is live per session; starting a new one first invalidates any
// pending timer, stale callbacks are dropped by generation check.
type Service struct {
	store    *photobox.Store
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	sessions map[string]*countdownState
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return &Service{
		store:    opts.Store,
		logger:   logger,
		interval: interval,
		sessions: make(map[string]*countdownState),
	}
}

// StartCountdown arms the timer at the first empty slot. A countdown already
// running for the session is cancelled and replaced.
func (svc *Service) StartCountdown(id string, seconds int) (Status, error) {
	sess, err := svc.store.Get(id)
	if err != nil {
		return Status{}, err
	}
	if sess.Stage != photobox.StageCapture {
		return Status{}, ErrNotCapture
	}
	slot := sess.Registry.NextEmpty()
	if slot < 0 {
		return Status{}, ErrNoEmptySlot
	}
	if seconds < 1 {
		seconds = 1
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.armLocked(id, slot, seconds), nil
}

func (svc *Service) armLocked(id string, slot, seconds int) Status {
	cs, ok := svc.sessions[id]
	if !ok {
		cs = &countdownState{}
		svc.sessions[id] = cs
	}
	if cs.timer != nil {
		cs.timer.Stop()
	}

	cs.generation++
	cs.seconds = seconds
	cs.slot = slot
	cs.remaining = seconds
	cs.shutterDue = false

	generation := cs.generation
	cs.timer = time.AfterFunc(svc.interval, func() {
		svc.tick(id, generation)
	})

	return Status{Active: true, Slot: slot, Remaining: seconds}
}

func (svc *Service) tick(id string, generation int) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cs, ok := svc.sessions[id]
	if !ok || cs.generation != generation {
		return
	}

	cs.remaining--
	if cs.remaining > 0 {
		cs.timer = time.AfterFunc(svc.interval, func() {
			svc.tick(id, generation)
		})
		return
	}

	cs.remaining = 0
	cs.shutterDue = true
	cs.timer = nil
}

// Stop cancels any pending countdown for the session.
func (svc *Service) Stop(id string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cs, ok := svc.sessions[id]
	if !ok {
		return
	}
	cs.generation++
	if cs.timer != nil {
		cs.timer.Stop()
		cs.timer = nil
	}
	delete(svc.sessions, id)
}

func (svc *Service) Status(id string) Status {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	cs, ok := svc.sessions[id]
	if !ok {
		return Status{}
	}
	return Status{
		Active:     true,
		Slot:       cs.slot,
		Remaining:  cs.remaining,
		ShutterDue: cs.shutterDue,
	}
}

// SubmitShot lands one still from the capture surface. With a countdown
// armed it fills the armed slot and, while empty slots remain, rearms the
// timer for the next one; without a countdown it fills the first empty slot.
func (svc *Service) SubmitShot(id, image string) (photobox.Session, Status, error) {
	svc.mu.Lock()
	cs, hasCountdown := svc.sessions[id]
	targetFromCountdown := -1
	if hasCountdown {
		targetFromCountdown = cs.slot
	}
	svc.mu.Unlock()

	var filled int
	sess, err := svc.store.Update(id, func(s *photobox.Session) error {
		if s.Stage != photobox.StageCapture {
			return ErrNotCapture
		}
		target := targetFromCountdown
		if target < 0 || target >= s.Registry.Len() {
			target = s.Registry.NextEmpty()
		}
		if target < 0 {
			return ErrNoEmptySlot
		}
		if err := s.Registry.SetCapture(target, image); err != nil {
			return err
		}
		filled = target
		return nil
	})
	if err != nil {
		return sess, svc.Status(id), err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	cs, ok := svc.sessions[id]
	if !ok {
		return sess, Status{}, nil
	}

	next := sess.Registry.NextEmpty()
	if next < 0 {
		// Arena full: the auto-capture run is over.
		cs.generation++
		if cs.timer != nil {
			cs.timer.Stop()
		}
		delete(svc.sessions, id)
		svc.logger.Info("capture run complete", "session", id, "last_slot", filled)
		return sess, Status{}, nil
	}

	return sess, svc.armLocked(id, next, cs.seconds), nil
}
