package capture

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"ceritanya-photobox/internal/config"
	"ceritanya-photobox/internal/photobox"
)

func newCaptureFixture(t *testing.T) (*Service, *photobox.Store, string) {
	t.Helper()

	store := photobox.NewStore(photobox.StoreOptions{Costs: config.TokenCosts{
		BaseGeneration: 5, Partner: 15, Background: 10, Style: 10, Enhance: 2,
	}})
	sess := store.Create()

	if _, err := store.Update(sess.ID, func(s *photobox.Session) error {
		if err := s.Apply(photobox.EventSelectMode, photobox.EventInput{Mode: photobox.ModeClassic}); err != nil {
			return err
		}
		return s.Apply(photobox.EventSelectLayout, photobox.EventInput{LayoutID: "strip-3"})
	}); err != nil {
		t.Fatalf("advance to capture: %v", err)
	}

	svc := New(Options{Store: store, Interval: 2 * time.Millisecond})
	return svc, store, sess.ID
}

func waitForShutter(t *testing.T, svc *Service, id string) Status {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if status := svc.Status(id); status.ShutterDue {
			return status
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("shutter never became due: %+v", svc.Status(id))
	return Status{}
}

func TestStartCountdown(t *testing.T) {
	svc, _, id := newCaptureFixture(t)

	status, err := svc.StartCountdown(id, 3)
	if err != nil {
		t.Fatalf("StartCountdown: %v", err)
	}
	if !status.Active || status.Slot != 0 || status.Remaining != 3 {
		t.Errorf("status = %+v", status)
	}

	status = waitForShutter(t, svc, id)
	if status.Slot != 0 || status.Remaining != 0 {
		t.Errorf("due status = %+v", status)
	}
}

func TestStartCountdownStageAndSlotGuards(t *testing.T) {
	svc, store, id := newCaptureFixture(t)

	if _, err := store.Update(id, func(s *photobox.Session) error {
		return s.Apply(photobox.EventBack, photobox.EventInput{})
	}); err != nil {
		t.Fatalf("back: %v", err)
	}
	if _, err := svc.StartCountdown(id, 3); !errors.Is(err, ErrNotCapture) {
		t.Fatalf("wrong stage: got %v, want ErrNotCapture", err)
	}
	if _, err := store.Update(id, func(s *photobox.Session) error {
		return s.Apply(photobox.EventSelectLayout, photobox.EventInput{LayoutID: "strip-3"})
	}); err != nil {
		t.Fatalf("forward: %v", err)
	}

	for i := 0; i < 3; i++ {
		if _, _, err := svc.SubmitShot(id, fmt.Sprintf("raw%d", i)); err != nil {
			t.Fatalf("SubmitShot(%d): %v", i, err)
		}
	}
	if _, err := svc.StartCountdown(id, 3); !errors.Is(err, ErrNoEmptySlot) {
		t.Fatalf("full arena: got %v, want ErrNoEmptySlot", err)
	}

	if _, err := svc.StartCountdown("ghost", 3); !errors.Is(err, photobox.ErrSessionNotFound) {
		t.Fatalf("unknown session: got %v, want ErrSessionNotFound", err)
	}
}

func TestRestartInvalidatesPreviousCountdown(t *testing.T) {
	svc, _, id := newCaptureFixture(t)

	if _, err := svc.StartCountdown(id, 100); err != nil {
		t.Fatalf("first StartCountdown: %v", err)
	}
	status, err := svc.StartCountdown(id, 2)
	if err != nil {
		t.Fatalf("second StartCountdown: %v", err)
	}
	if status.Remaining != 2 {
		t.Errorf("replacement remaining = %d, want 2", status.Remaining)
	}

	// Only the replacement reaches the shutter; the first run's 100-second
	// clock is gone.
	status = waitForShutter(t, svc, id)
	if status.Slot != 0 {
		t.Errorf("due status = %+v", status)
	}
}

func TestSubmitShotAutoAdvances(t *testing.T) {
	svc, store, id := newCaptureFixture(t)

	if _, err := svc.StartCountdown(id, 1); err != nil {
		t.Fatalf("StartCountdown: %v", err)
	}
	waitForShutter(t, svc, id)

	sess, status, err := svc.SubmitShot(id, "raw0")
	if err != nil {
		t.Fatalf("SubmitShot: %v", err)
	}
	slot, _ := sess.Registry.Slot(0)
	if slot.Raw != "raw0" {
		t.Errorf("slot 0 raw = %q", slot.Raw)
	}
	// The run rearms itself at the next empty slot.
	if !status.Active || status.Slot != 1 || status.ShutterDue {
		t.Errorf("rearmed status = %+v", status)
	}

	waitForShutter(t, svc, id)
	if _, status, err = svc.SubmitShot(id, "raw1"); err != nil {
		t.Fatalf("SubmitShot: %v", err)
	}
	if status.Slot != 2 {
		t.Errorf("third arm slot = %d, want 2", status.Slot)
	}

	waitForShutter(t, svc, id)
	sess, status, err = svc.SubmitShot(id, "raw2")
	if err != nil {
		t.Fatalf("SubmitShot: %v", err)
	}
	// Arena full: the run ends and the countdown disappears.
	if status.Active {
		t.Errorf("final status = %+v", status)
	}
	if !sess.Registry.AllCaptured() {
		t.Error("arena not full after the run")
	}
	if got := svc.Status(id); got.Active {
		t.Errorf("lingering countdown: %+v", got)
	}

	fresh, _ := store.Get(id)
	if !fresh.Registry.AllCaptured() {
		t.Error("store session not fully captured")
	}
}

func TestSubmitShotWithoutCountdown(t *testing.T) {
	svc, _, id := newCaptureFixture(t)

	sess, status, err := svc.SubmitShot(id, "raw0")
	if err != nil {
		t.Fatalf("SubmitShot: %v", err)
	}
	if status.Active {
		t.Errorf("status = %+v, want inactive", status)
	}
	slot, _ := sess.Registry.Slot(0)
	if slot.Raw != "raw0" {
		t.Errorf("slot 0 raw = %q", slot.Raw)
	}

	// Manual shots fill left to right.
	sess, _, err = svc.SubmitShot(id, "raw1")
	if err != nil {
		t.Fatalf("second SubmitShot: %v", err)
	}
	slot, _ = sess.Registry.Slot(1)
	if slot.Raw != "raw1" {
		t.Errorf("slot 1 raw = %q", slot.Raw)
	}
}

func TestStopCountdown(t *testing.T) {
	svc, _, id := newCaptureFixture(t)

	if _, err := svc.StartCountdown(id, 100); err != nil {
		t.Fatalf("StartCountdown: %v", err)
	}
	svc.Stop(id)

	if status := svc.Status(id); status.Active {
		t.Errorf("status after stop = %+v", status)
	}
	// Stopping twice is harmless.
	svc.Stop(id)
}

func TestRetakeClearsSlotAndStopsCountdown(t *testing.T) {
	svc, _, id := newCaptureFixture(t)

	if _, _, err := svc.SubmitShot(id, "raw0"); err != nil {
		t.Fatalf("SubmitShot: %v", err)
	}
	if _, err := svc.StartCountdown(id, 100); err != nil {
		t.Fatalf("StartCountdown: %v", err)
	}

	sess, err := svc.Retake(id, 0)
	if err != nil {
		t.Fatalf("Retake: %v", err)
	}
	slot, _ := sess.Registry.Slot(0)
	if slot.Raw != "" || slot.State != photobox.SlotEmpty {
		t.Errorf("slot after retake = %+v", slot)
	}
	if status := svc.Status(id); status.Active {
		t.Errorf("countdown survived retake: %+v", status)
	}
}

func TestFillEmptySlots(t *testing.T) {
	svc, _, id := newCaptureFixture(t)

	if _, _, err := svc.SubmitShot(id, "raw0"); err != nil {
		t.Fatalf("SubmitShot: %v", err)
	}

	// Two empties left; the third upload is dropped.
	sess, err := svc.FillEmptySlots(id, []string{"up1", "up2", "up3"})
	if err != nil {
		t.Fatalf("FillEmptySlots: %v", err)
	}
	want := []string{"raw0", "up1", "up2"}
	for i, raw := range want {
		slot, _ := sess.Registry.Slot(i)
		if slot.Raw != raw {
			t.Errorf("slot %d raw = %q, want %q", i, slot.Raw, raw)
		}
	}

	if _, err := svc.FillEmptySlots(id, []string{"late"}); !errors.Is(err, ErrNoEmptySlot) {
		t.Fatalf("full arena: got %v, want ErrNoEmptySlot", err)
	}
}
