package photobox

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"ceritanya-photobox/internal/config"
)

func newTestStore(t *testing.T, codes ...config.VoucherCode) *Store {
	t.Helper()
	return NewStore(StoreOptions{
		Costs: testCosts,
		Vault: NewVault(codes),
	})
}

// advance walks a freshly created session to the requested stage through the
// regular transition table, filling slots along the way.
func advance(t *testing.T, store *Store, id string, target Stage) Session {
	t.Helper()

	steps := []struct {
		at    Stage
		event Event
		in    EventInput
		prep  func(s *Session)
	}{
		{StageModeSelect, EventSelectMode, EventInput{Mode: ModeClassic}, nil},
		{StageLayoutSelect, EventSelectLayout, EventInput{LayoutID: "strip-3"}, nil},
		{StageCapture, EventCompleteCapture, EventInput{}, func(s *Session) {
			for i := 0; i < s.Registry.Len(); i++ {
				if err := s.Registry.SetCapture(i, fmt.Sprintf("raw%d", i)); err != nil {
					t.Fatalf("SetCapture(%d): %v", i, err)
				}
			}
		}},
		{StageAIStudio, EventCompleteStudio, EventInput{}, nil},
	}

	var sess Session
	for _, step := range steps {
		var err error
		sess, err = store.Update(id, func(s *Session) error {
			if s.Stage != step.at {
				return nil
			}
			if step.prep != nil {
				step.prep(s)
			}
			return s.Apply(step.event, step.in)
		})
		if err != nil {
			t.Fatalf("advance via %s: %v", step.event, err)
		}
		if sess.Stage == target {
			return sess
		}
	}
	if sess.Stage != target {
		t.Fatalf("advance stopped at %s, want %s", sess.Stage, target)
	}
	return sess
}

func TestStageString(t *testing.T) {
	want := map[Stage]string{
		StageModeSelect:   "mode_select",
		StageLayoutSelect: "layout_select",
		StageCapture:      "capture",
		StageAIStudio:     "ai_studio",
		StageAssembly:     "assembly",
	}
	for stage, name := range want {
		if got := stage.String(); got != name {
			t.Errorf("%d.String() = %q, want %q", stage, got, name)
		}
	}
}

func TestApplyRejectsUnknownPairs(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()

	tests := []struct {
		name  string
		event Event
	}{
		{"layout before mode", EventSelectLayout},
		{"capture complete at start", EventCompleteCapture},
		{"studio complete at start", EventCompleteStudio},
		{"skip at start", EventSkipStudio},
		{"back from first stage", EventBack},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Update(sess.ID, func(s *Session) error {
				return s.Apply(tt.event, EventInput{})
			})
			if err == nil {
				t.Fatalf("Apply(%s) in mode_select succeeded", tt.event)
			}
			if !strings.Contains(err.Error(), "no transition") {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestModeGuard(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()

	_, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventSelectMode, EventInput{Mode: ModeNewspaper})
	})
	if !errors.Is(err, ErrModeDisabled) {
		t.Fatalf("newspaper while disabled: got %v, want ErrModeDisabled", err)
	}

	_, err = store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventSelectMode, EventInput{Mode: "vaporwave"})
	})
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("bogus mode: got %v, want ErrUnknownMode", err)
	}

	enabled := NewStore(StoreOptions{Costs: testCosts, NewspaperMode: true})
	sess2 := enabled.Create()
	got, err := enabled.Update(sess2.ID, func(s *Session) error {
		return s.Apply(EventSelectMode, EventInput{Mode: ModeNewspaper})
	})
	if err != nil {
		t.Fatalf("newspaper while enabled: %v", err)
	}
	if got.Stage != StageLayoutSelect || got.Mode != ModeNewspaper {
		t.Errorf("session = stage %s mode %q", got.Stage, got.Mode)
	}
}

func TestLayoutGuardAndRegistrySizing(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()

	if _, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventSelectMode, EventInput{Mode: ModeClassic})
	}); err != nil {
		t.Fatalf("select mode: %v", err)
	}

	_, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventSelectLayout, EventInput{LayoutID: "mega-9"})
	})
	if !errors.Is(err, ErrUnknownLayout) {
		t.Fatalf("bogus layout: got %v, want ErrUnknownLayout", err)
	}

	got, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventSelectLayout, EventInput{LayoutID: "grid-4"})
	})
	if err != nil {
		t.Fatalf("select layout: %v", err)
	}
	if got.Registry == nil || got.Registry.Len() != 4 {
		t.Fatalf("grid-4 registry len = %v, want 4", got.Registry)
	}
}

func TestCaptureCompleteGuard(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()
	advance(t, store, sess.ID, StageCapture)

	_, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventCompleteCapture, EventInput{})
	})
	if !errors.Is(err, ErrCaptureIncomplete) {
		t.Fatalf("incomplete capture: got %v, want ErrCaptureIncomplete", err)
	}
}

func TestBackRestoresStudioWork(t *testing.T) {
	store := newTestStore(t, config.VoucherCode{Code: "FUND", Value: 40})
	sess := store.Create()
	advance(t, store, sess.ID, StageAIStudio)

	if _, err := store.Update(sess.ID, func(s *Session) error {
		if _, err := s.Ledger.Redeem("FUND"); err != nil {
			return err
		}
		s.Studio.StylePrompt = "smiling"
		return s.Registry.ApplyResult(1, "gen1", true)
	}); err != nil {
		t.Fatalf("seed studio work: %v", err)
	}

	// Back to capture and forward again.
	for _, event := range []Event{EventBack, EventCompleteCapture} {
		if _, err := store.Update(sess.ID, func(s *Session) error {
			return s.Apply(event, EventInput{})
		}); err != nil {
			t.Fatalf("Apply(%s): %v", event, err)
		}
	}

	got, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != StageAIStudio {
		t.Fatalf("stage = %s, want ai_studio", got.Stage)
	}
	if got.Studio.StylePrompt != "smiling" {
		t.Errorf("prompt = %q, want smiling", got.Studio.StylePrompt)
	}
	if got.Ledger.Balance() != 40 {
		t.Errorf("balance = %d, want 40", got.Ledger.Balance())
	}
	slot, _ := got.Registry.Slot(1)
	if slot.Generated != "gen1" || slot.Active != "gen1" {
		t.Errorf("slot 1 after roundtrip = %+v", slot)
	}
}

func TestStudioCompleteBuildsFinalPhotos(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()
	advance(t, store, sess.ID, StageAIStudio)

	if _, err := store.Update(sess.ID, func(s *Session) error {
		return s.Registry.ApplyResult(0, "gen0", true)
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	got, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventCompleteStudio, EventInput{})
	})
	if err != nil {
		t.Fatalf("complete studio: %v", err)
	}
	if got.Stage != StageAssembly {
		t.Fatalf("stage = %s, want assembly", got.Stage)
	}
	if len(got.FinalPhotos) != 3 {
		t.Fatalf("final photos = %d, want 3", len(got.FinalPhotos))
	}
	if !got.FinalPhotos[0].AIFlag || got.FinalPhotos[0].Image() != "gen0" {
		t.Errorf("photo 0 = %+v", got.FinalPhotos[0])
	}
	if got.FinalPhotos[1].AIFlag || got.FinalPhotos[1].Image() != "raw1" {
		t.Errorf("photo 1 = %+v", got.FinalPhotos[1])
	}
	if got.Assembly.FilterID != "none" || len(got.Assembly.Order) != 3 {
		t.Errorf("assembly defaults = %+v", got.Assembly)
	}
}

func TestSkipStudioKeepsCache(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()
	advance(t, store, sess.ID, StageAIStudio)

	if _, err := store.Update(sess.ID, func(s *Session) error {
		return s.Registry.ApplyResult(0, "gen0", true)
	}); err != nil {
		t.Fatalf("seed generation: %v", err)
	}

	got, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventSkipStudio, EventInput{})
	})
	if err != nil {
		t.Fatalf("skip studio: %v", err)
	}

	// Skip ships the captures regardless of studio results.
	for i, p := range got.FinalPhotos {
		if p.AIFlag || p.Image() != fmt.Sprintf("raw%d", i) {
			t.Errorf("photo %d = %+v", i, p)
		}
	}

	// But the cache survives for if the user comes back.
	got, err = store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventBack, EventInput{})
	})
	if err != nil {
		t.Fatalf("back to studio: %v", err)
	}
	slot, _ := got.Registry.Slot(0)
	if slot.Generated != "gen0" {
		t.Errorf("skip dropped generation cache: %+v", slot)
	}
}

func TestGuardStudioIdleBlocksWhileGenerating(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()
	advance(t, store, sess.ID, StageAIStudio)

	if _, err := store.Update(sess.ID, func(s *Session) error {
		s.Generating = true
		return nil
	}); err != nil {
		t.Fatalf("set generating: %v", err)
	}

	for _, event := range []Event{EventBack, EventCompleteStudio, EventSkipStudio} {
		_, err := store.Update(sess.ID, func(s *Session) error {
			return s.Apply(event, EventInput{})
		})
		if !errors.Is(err, ErrBatchRunning) {
			t.Errorf("Apply(%s) while generating: got %v, want ErrBatchRunning", event, err)
		}
	}
}

func TestRestartResetsButKeepsSpentVouchers(t *testing.T) {
	store := newTestStore(t, config.VoucherCode{Code: "ONCE", Value: 30})
	sess := store.Create()
	advance(t, store, sess.ID, StageAIStudio)

	if _, err := store.Update(sess.ID, func(s *Session) error {
		_, err := s.Ledger.Redeem("ONCE")
		return err
	}); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	got, err := store.Update(sess.ID, func(s *Session) error {
		return s.Apply(EventRestart, EventInput{})
	})
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if got.Stage != StageModeSelect || got.Registry != nil || got.Mode != "" {
		t.Errorf("session after restart = stage %s mode %q", got.Stage, got.Mode)
	}
	if got.Ledger.Balance() != 0 {
		t.Errorf("balance after restart = %d, want 0", got.Ledger.Balance())
	}

	// Restart does not revive spent codes.
	_, err = store.Update(sess.ID, func(s *Session) error {
		_, err := s.Ledger.Redeem("ONCE")
		return err
	})
	if !errors.Is(err, ErrCodeUsed) {
		t.Fatalf("re-redeem after restart: got %v, want ErrCodeUsed", err)
	}
}

func TestRestartFromEveryStage(t *testing.T) {
	for _, target := range []Stage{StageModeSelect, StageLayoutSelect, StageCapture, StageAIStudio, StageAssembly} {
		store := newTestStore(t)
		sess := store.Create()
		if target != StageModeSelect {
			advance(t, store, sess.ID, target)
		}

		got, err := store.Update(sess.ID, func(s *Session) error {
			return s.Apply(EventRestart, EventInput{})
		})
		if err != nil {
			t.Errorf("restart from %s: %v", target, err)
			continue
		}
		if got.Stage != StageModeSelect {
			t.Errorf("restart from %s landed in %s", target, got.Stage)
		}
	}
}

func TestSwapAndOrderedFinalPhotos(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()
	advance(t, store, sess.ID, StageAssembly)

	got, err := store.Update(sess.ID, func(s *Session) error {
		return s.SwapFinalPhotos(0, 2)
	})
	if err != nil {
		t.Fatalf("swap: %v", err)
	}

	ordered := got.OrderedFinalPhotos()
	if ordered[0].Image() != "raw2" || ordered[2].Image() != "raw0" {
		t.Errorf("ordered = [%s %s %s]", ordered[0].Image(), ordered[1].Image(), ordered[2].Image())
	}

	if _, err := store.Update(sess.ID, func(s *Session) error {
		return s.SwapFinalPhotos(0, 7)
	}); err == nil {
		t.Fatal("out-of-range swap accepted")
	}
}

func TestStoreSnapshotsAreIsolated(t *testing.T) {
	store := newTestStore(t)
	sess := store.Create()
	advance(t, store, sess.ID, StageAIStudio)

	snap, err := store.Get(sess.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	// Mutating the snapshot must not leak into the store.
	snap.Studio.Selection.Toggle("ghost")
	if err := snap.Registry.SetCapture(0, "tampered"); err != nil {
		t.Fatalf("SetCapture on snapshot: %v", err)
	}

	fresh, _ := store.Get(sess.ID)
	if fresh.Studio.Selection.Count() != 0 {
		t.Error("snapshot selection leaked into store")
	}
	slot, _ := fresh.Registry.Slot(0)
	if slot.Raw != "raw0" {
		t.Errorf("snapshot registry leaked into store: %q", slot.Raw)
	}
}

func TestStoreGetUnknownSession(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.Get("nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Get unknown: got %v, want ErrSessionNotFound", err)
	}
	if _, err := store.Update("nope", nil); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("Update unknown: got %v, want ErrSessionNotFound", err)
	}
}
