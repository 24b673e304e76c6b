package photobox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"ceritanya-photobox/internal/gemini"
)

// Generator is the remote image-generation boundary.
type Generator interface {
	ComposePhoto(ctx context.Context, req gemini.ComposeRequest) (gemini.ComposeResult, error)
}

// Enhancer is the remote prompt-rewrite boundary.
type Enhancer interface {
	Enhance(ctx context.Context, prompt string) (string, error)
}

// AdjustOptions are the crop/rotate/zoom parameters applied to a slot's
// source image. Center coordinates are relative (0..1).
type AdjustOptions struct {
	Zoom        float64
	RotationDeg float64
	CenterX     float64
	CenterY     float64
}

// Adjuster produces an adjusted rendition of a source image. Adjustment is
// free and local; failures must leave the slot untouched.
type Adjuster interface {
	Adjust(src string, opts AdjustOptions) (string, error)
}

var (
	ErrWrongStage       = errors.New("operation not available in this stage")
	ErrEmptyPrompt      = errors.New("style prompt is empty")
	ErrEnhanceRunning   = errors.New("enhancement already running")
	ErrUnknownSlot      = errors.New("unknown slot")
	ErrBatchNoSelection = errors.New("select at least one photo")
)

// BatchReport summarizes one regeneration batch.
type BatchReport struct {
	Cost      int
	Succeeded []int
	Failed    []int
}

type StudioOptions struct {
	Store     *Store
	Generator Generator
	Enhancer  Enhancer
	Adjuster  Adjuster
	Logger    *slog.Logger
}

// Studio drives the AI stage against the session store. Remote calls run
// outside the store lock; every result is pushed back through Update so the
// single-writer discipline holds.
type Studio struct {
	store     *Store
	generator Generator
	enhancer  Enhancer
	adjuster  Adjuster
	logger    *slog.Logger
}

func NewStudio(opts StudioOptions) *Studio {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Studio{
		store:     opts.Store,
		generator: opts.Generator,
		enhancer:  opts.Enhancer,
		adjuster:  opts.Adjuster,
		logger:    logger,
	}
}

func ensureStudioStage(s *Session) error {
	if s.Stage != StageAIStudio {
		return ErrWrongStage
	}
	return nil
}

// Redeem applies a voucher code to the session balance.
func (st *Studio) Redeem(id, code string) (Session, int, error) {
	var added int
	sess, err := st.store.Update(id, func(s *Session) error {
		value, err := s.Ledger.Redeem(code)
		if err != nil {
			return err
		}
		added = value
		return nil
	})
	return sess, added, err
}

func (st *Studio) SetPrompts(id, style, background string) (Session, error) {
	return st.store.Update(id, func(s *Session) error {
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		s.Studio.StylePrompt = style
		s.Studio.BackgroundPrompt = background
		return nil
	})
}

// SetIdolPhoto stores or clears the partner face photo.
func (st *Studio) SetIdolPhoto(id, image string) (Session, error) {
	return st.store.Update(id, func(s *Session) error {
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		s.Studio.IdolPhoto = strings.TrimSpace(image)
		return nil
	})
}

// ToggleSelection flips a slot in or out of the regeneration set. Ignored
// while a batch is running, matching the disabled controls.
func (st *Studio) ToggleSelection(id, slotID string) (Session, error) {
	return st.store.Update(id, func(s *Session) error {
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		if s.Generating {
			return nil
		}
		if s.Registry.IndexByID(slotID) < 0 {
			return ErrUnknownSlot
		}
		s.Studio.Selection.Toggle(slotID)
		return nil
	})
}

// EnhanceStyle rewrites the style prompt through the remote text model. The
// fee is deducted before the call and is not refunded when the call fails;
// on failure the prompt is left exactly as it was.
func (st *Studio) EnhanceStyle(ctx context.Context, id string) (Session, error) {
	var prompt string
	_, err := st.store.Update(id, func(s *Session) error {
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		if s.Enhancing {
			return ErrEnhanceRunning
		}
		prompt = strings.TrimSpace(s.Studio.StylePrompt)
		if prompt == "" {
			return ErrEmptyPrompt
		}
		if err := s.Ledger.DebitEnhance(); err != nil {
			return err
		}
		s.Enhancing = true
		return nil
	})
	if err != nil {
		sess, _ := st.store.Get(id)
		return sess, err
	}

	enhanced, enhanceErr := st.enhancer.Enhance(ctx, prompt)

	sess, updateErr := st.store.Update(id, func(s *Session) error {
		s.Enhancing = false
		if enhanceErr == nil && strings.TrimSpace(enhanced) != "" {
			s.Studio.StylePrompt = strings.TrimSpace(enhanced)
		}
		return nil
	})
	if updateErr != nil {
		return sess, updateErr
	}
	if enhanceErr != nil {
		st.logger.Warn("prompt enhancement failed, fee kept", "session", id, "err", enhanceErr)
		return sess, enhanceErr
	}
	return sess, nil
}

// batchInput is the copied-out work list for one regeneration batch.
type batchInput struct {
	indices    []int
	raws       map[int]string
	idol       string
	style      string
	background string
	cost       int
}

// RunBatch regenerates every selected slot, strictly in slot-index order with
// one remote call in flight at a time. After each completion the slot's
// visible image is updated, so partial progress is observable; onSlot (may be
// nil) fires with the fresh slot after each one. A failed slot falls back to
// its raw capture and the batch continues.
func (st *Studio) RunBatch(ctx context.Context, id string, onSlot func(index int, slot Slot)) (Session, BatchReport, error) {
	input, err := st.beginBatch(id)
	if err != nil {
		sess, _ := st.store.Get(id)
		return sess, BatchReport{}, err
	}

	report := BatchReport{Cost: input.cost}
	for _, index := range input.indices {
		result, genErr := st.generator.ComposePhoto(ctx, gemini.ComposeRequest{
			UserImage:        input.raws[index],
			IdolImage:        input.idol,
			StylePrompt:      input.style,
			BackgroundPrompt: input.background,
		})

		image := ""
		ok := genErr == nil && result.ImageBase64 != ""
		if ok {
			image = fmt.Sprintf("data:%s;base64,%s", result.MimeType, result.ImageBase64)
			report.Succeeded = append(report.Succeeded, index)
		} else {
			report.Failed = append(report.Failed, index)
			st.logger.Warn("slot generation failed, falling back to capture",
				"session", id, "slot", index, "err", genErr)
		}

		var updated Slot
		gone := false
		if _, err := st.store.Update(id, func(s *Session) error {
			// A restart mid-batch wipes the registry; the result has
			// nowhere to land.
			if s.Stage != StageAIStudio || s.Registry == nil {
				gone = true
				return nil
			}
			if applyErr := s.Registry.ApplyResult(index, image, ok); applyErr != nil {
				return applyErr
			}
			slot, _ := s.Registry.Slot(index)
			updated = slot
			return nil
		}); err != nil {
			st.finishBatch(id)
			sess, _ := st.store.Get(id)
			return sess, report, err
		}
		if gone {
			st.logger.Warn("session left the studio mid-batch, dropping remaining results",
				"session", id, "slot", index)
			sess, _ := st.store.Get(id)
			return sess, report, ErrWrongStage
		}

		if onSlot != nil {
			onSlot(index, updated)
		}
	}

	sess := st.finishBatch(id)
	return sess, report, nil
}

func (st *Studio) beginBatch(id string) (batchInput, error) {
	var input batchInput
	_, err := st.store.Update(id, func(s *Session) error {
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		if s.Generating {
			return ErrBatchRunning
		}
		if s.Studio.Selection.Count() == 0 {
			return ErrBatchNoSelection
		}

		cost, err := s.Ledger.DebitBatch(BatchOptions{
			SelectedSlots: s.Studio.Selection.Count(),
			Partner:       s.Studio.IdolPhoto != "",
			Background:    strings.TrimSpace(s.Studio.BackgroundPrompt) != "",
			Style:         strings.TrimSpace(s.Studio.StylePrompt) != "",
		})
		if err != nil {
			return err
		}

		input = batchInput{
			raws:       make(map[int]string),
			idol:       s.Studio.IdolPhoto,
			style:      s.Studio.StylePrompt,
			background: s.Studio.BackgroundPrompt,
			cost:       cost,
		}
		for i, slot := range s.Registry.Slots() {
			if s.Studio.Selection.Has(slot.ID) {
				input.indices = append(input.indices, i)
				input.raws[i] = slot.Raw
			}
		}
		sort.Ints(input.indices)

		s.Registry.MarkPending(&s.Studio.Selection)
		s.Generating = true
		return nil
	})
	return input, err
}

func (st *Studio) finishBatch(id string) Session {
	sess, _ := st.store.Update(id, func(s *Session) error {
		s.Generating = false
		s.Studio.Selection.Clear()
		return nil
	})
	return sess
}

// Adjust crops/rotates/zooms one slot. The source is the cached generation
// when present, otherwise the raw capture; the cache itself never changes,
// so the operation can be retried from the same source.
func (st *Studio) Adjust(id string, index int, opts AdjustOptions) (Session, error) {
	sess, err := st.store.Get(id)
	if err != nil {
		return sess, err
	}
	if err := ensureStudioStage(&sess); err != nil {
		return sess, err
	}

	source, err := sess.Registry.AdjustSource(index)
	if err != nil {
		return sess, err
	}
	if source == "" {
		return sess, fmt.Errorf("slot %d has no image to adjust", index)
	}

	adjusted, err := st.adjuster.Adjust(source, opts)
	if err != nil {
		st.logger.Error("adjustment failed, keeping previous image",
			"session", id, "slot", index, "err", err)
		return sess, err
	}

	return st.store.Update(id, func(s *Session) error {
		// The session may have restarted while the pipeline ran.
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		return s.Registry.ApplyAdjustment(index, adjusted)
	})
}

// Restore reverts one slot to its capture and clears its cache. Free.
func (st *Studio) Restore(id string, index int) (Session, error) {
	return st.store.Update(id, func(s *Session) error {
		if err := ensureStudioStage(s); err != nil {
			return err
		}
		return s.Registry.RestoreOriginal(index)
	})
}
