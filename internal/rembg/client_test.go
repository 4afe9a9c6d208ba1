package rembg

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func maskedImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 10; x++ {
			if y < 5 {
				img.SetNRGBA(x, y, color.NRGBA{0, 255, 0, 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{0, 0, 0, 0})
			}
		}
	}
	return img
}

func TestNewClient_RejectsBadEndpoints(t *testing.T) {
	if _, err := NewClient("ftp://host/remove", time.Second); err == nil {
		t.Error("expected an error for a non-http scheme")
	}
	if _, err := NewClient("://broken", time.Second); err == nil {
		t.Error("expected an error for an unparsable URL")
	}
	if _, err := NewClient("http://localhost:7000/api/remove", 0); err != nil {
		t.Errorf("valid endpoint rejected: %v", err)
	}
}

func TestRemove_RoundTrip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method: got %s, want POST", r.Method)
		}

		f, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("missing file field: %v", err)
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		defer f.Close()

		if _, err := png.Decode(f); err != nil {
			t.Errorf("uploaded file is not a PNG: %v", err)
		}

		w.Header().Set("Content-Type", "image/png")
		if err := png.Encode(w, maskedImage()); err != nil {
			t.Errorf("failed to encode response: %v", err)
		}
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	src := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	out, err := c.Remove(context.Background(), src)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}

	if b := out.Bounds(); b.Dx() != 10 || b.Dy() != 10 {
		t.Fatalf("dimensions: got %dx%d, want 10x10", b.Dx(), b.Dy())
	}

	// The service's alpha mask must survive the round trip.
	if _, _, _, a := out.At(2, 2).RGBA(); a == 0 {
		t.Error("subject pixel should be opaque")
	}
	if _, _, _, a := out.At(2, 8).RGBA(); a != 0 {
		t.Error("background pixel should be transparent")
	}
}

func TestRemove_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Remove(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Error("expected an error for a 500 response")
	}
}

func TestRemove_UnexpectedContentType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("not an image"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Remove(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Error("expected an error for a non-image response")
	}
}

func TestRemove_UndecodableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("garbage"))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.Remove(context.Background(), image.NewNRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Error("expected an error for an undecodable response body")
	}
}
