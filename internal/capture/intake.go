package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"

	"ceritanya-photobox/internal/photobox"
)

// Upload is one user-selected file headed for an empty slot.
type Upload struct {
	Data     []byte
	MimeType string
}

// EncodeUploads turns raw files into data URLs, sniffing the mime type when
// the client did not send a usable one. Files are independent, so encoding
// runs concurrently.
func EncodeUploads(ctx context.Context, uploads []Upload) ([]string, error) {
	if len(uploads) == 0 {
		return nil, errors.New("no files")
	}

	out := make([]string, len(uploads))
	eg, _ := errgroup.WithContext(ctx)
	for i, up := range uploads {
		i := i
		up := up
		eg.Go(func() error {
			if len(up.Data) == 0 {
				return fmt.Errorf("file %d is empty", i)
			}
			mimeType := cleanMime(up.MimeType)
			if mimeType == "" || mimeType == "application/octet-stream" {
				mimeType = cleanMime(http.DetectContentType(up.Data))
			}
			if !strings.HasPrefix(mimeType, "image/") {
				return fmt.Errorf("file %d is not an image (%s)", i, mimeType)
			}
			out[i] = fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(up.Data))
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func cleanMime(mimeType string) string {
	mimeType = strings.TrimSpace(mimeType)
	if idx := strings.IndexByte(mimeType, ';'); idx >= 0 {
		mimeType = strings.TrimSpace(mimeType[:idx])
	}
	return mimeType
}

// FillEmptySlots places uploaded images into the session's empty slots,
// left to right. Images beyond the number of empty slots are dropped.
func (svc *Service) FillEmptySlots(id string, images []string) (photobox.Session, error) {
	return svc.store.Update(id, func(s *photobox.Session) error {
		if s.Stage != photobox.StageCapture {
			return ErrNotCapture
		}

		empty := s.Registry.EmptyIndices()
		if len(empty) == 0 {
			return ErrNoEmptySlot
		}
		if len(images) > len(empty) {
			images = images[:len(empty)]
		}
		for i, img := range images {
			if err := s.Registry.SetCapture(empty[i], img); err != nil {
				return err
			}
		}
		return nil
	})
}

// Retake empties one slot so it can be shot again. Any running countdown is
// cancelled first so a pending shutter cannot land in the cleared slot.
func (svc *Service) Retake(id string, index int) (photobox.Session, error) {
	svc.Stop(id)
	return svc.store.Update(id, func(s *photobox.Session) error {
		if s.Stage != photobox.StageCapture {
			return ErrNotCapture
		}
		return s.Registry.ClearSlot(index)
	})
}
