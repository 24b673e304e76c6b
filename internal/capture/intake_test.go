package capture

import (
	"context"
	"strings"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}

func TestEncodeUploads(t *testing.T) {
	uploads := []Upload{
		{Data: pngMagic, MimeType: "image/png"},
		// Mime sniffed from content when the client sent nothing usable.
		{Data: pngMagic, MimeType: ""},
		{Data: pngMagic, MimeType: "application/octet-stream"},
		{Data: pngMagic, MimeType: "image/png; charset=binary"},
	}

	out, err := EncodeUploads(context.Background(), uploads)
	if err != nil {
		t.Fatalf("EncodeUploads: %v", err)
	}
	if len(out) != len(uploads) {
		t.Fatalf("got %d results, want %d", len(out), len(uploads))
	}
	for i, url := range out {
		if !strings.HasPrefix(url, "data:image/png;base64,") {
			t.Errorf("upload %d = %q", i, url)
		}
	}
}

func TestEncodeUploadsRejectsNonImages(t *testing.T) {
	_, err := EncodeUploads(context.Background(), []Upload{
		{Data: []byte("just some text"), MimeType: ""},
	})
	if err == nil {
		t.Fatal("text upload accepted")
	}

	_, err = EncodeUploads(context.Background(), []Upload{{Data: nil}})
	if err == nil {
		t.Fatal("empty upload accepted")
	}

	_, err = EncodeUploads(context.Background(), nil)
	if err == nil {
		t.Fatal("empty batch accepted")
	}
}
