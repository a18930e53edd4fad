// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package websink

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/GermanBionicSystems/tftport/rgb565"
)

func readFrames(t *testing.T, resp *http.Response, wantType string, size image.Point, onImage func(image.Image) bool) {
	t.Helper()
	if got, want := resp.StatusCode, http.StatusOK; got != want {
		t.Fatalf("status %d, want %d", got, want)
	}
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil {
		t.Fatal(err)
	}
	if mediaType != "multipart/x-mixed-replace" {
		t.Fatalf("Content-Type is %q", mediaType)
	}
	boundary := params["boundary"]
	if len(boundary) < 50 {
		t.Fatalf("boundary %q too short", boundary)
	}
	decode := png.Decode
	if wantType == "image/jpeg" {
		decode = jpeg.Decode
	}
	mr := multipart.NewReader(resp.Body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			// The stream ends right after a boundary line.
			if !strings.HasSuffix(err.Error(), "EOF") {
				t.Errorf("NextPart() failed: %v", err)
			}
			break
		}
		if got := part.Header.Get("Content-Type"); got != wantType {
			t.Errorf("part Content-Type %q, want %q", got, wantType)
		}
		n, err := strconv.Atoi(part.Header.Get("Content-Length"))
		if err != nil {
			t.Fatal(err)
		}
		b, err := io.ReadAll(part)
		if err != nil {
			t.Fatal(err)
		}
		if len(b) != n {
			t.Fatalf("read %d bytes, Content-Length is %d", len(b), n)
		}
		img, err := decode(bytes.NewReader(b))
		if err != nil {
			t.Fatal(err)
		}
		if got := img.Bounds().Size(); got != size {
			t.Fatalf("image size %v, want %v", got, size)
		}
		if !onImage(img) {
			return
		}
	}
}

func TestStream(t *testing.T) {
	for _, tc := range []struct {
		name     string
		opt      Options
		target   string
		wantType string
	}{
		{"default", Options{Width: 32, Height: 24}, "/", "image/png"},
		{"default JPEG", Options{Width: 32, Height: 24, Format: JPEG}, "/", "image/jpeg"},
		{"param PNG", Options{Width: 16, Height: 40, Format: JPEG}, "/?format=png", "image/png"},
		{"param JPEG", Options{Width: 40, Height: 16}, "/?format=jpg", "image/jpeg"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			t.Cleanup(cancel)

			s := New(&tc.opt)
			srv := httptest.NewServer(s)
			t.Cleanup(srv.Close)
			t.Cleanup(srv.CloseClientConnections)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+tc.target, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()

			// Transfer a full window band by band until enough frames came in.
			quit := make(chan struct{})
			var wg sync.WaitGroup
			wg.Add(1)
			go func() {
				defer wg.Done()
				band := rgb565.NewImage(image.Rect(0, 0, tc.opt.Width, 1))
				band.Fill(rgb565.New(0, 0xFF, 0))
				for y := 0; ; y = (y + 1) % tc.opt.Height {
					if err := s.SetWindow(0, y, tc.opt.Width-1, y); err != nil {
						t.Error(err)
						return
					}
					if err := s.Transfer(tc.opt.Width, 1, band.Pix); err != nil {
						t.Error(err)
						return
					}
					select {
					case <-quit:
						return
					case <-ctx.Done():
						return
					case <-time.After(5 * time.Millisecond):
					}
				}
			}()

			remaining := 5
			readFrames(t, resp, tc.wantType, image.Pt(tc.opt.Width, tc.opt.Height), func(image.Image) bool {
				remaining--
				if remaining == 0 {
					close(quit)
					if err := s.Halt(); err != nil {
						t.Error(err)
					}
				}
				return true
			})
			if remaining > 0 {
				t.Errorf("stream ended with %d frames missing", remaining)
			}
			wg.Wait()
		})
	}
}

func TestStreamContent(t *testing.T) {
	s := New(&Options{Width: 4, Height: 4})
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	t.Cleanup(srv.CloseClientConnections)

	resp, err := srv.Client().Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	white := rgb565.NewImage(image.Rect(0, 0, 2, 2))
	white.Fill(rgb565.New(0xFF, 0xFF, 0xFF))
	first := true
	readFrames(t, resp, "image/png", image.Pt(4, 4), func(img image.Image) bool {
		if first {
			first = false
			if r, _, _, _ := img.At(1, 1).RGBA(); r != 0 {
				t.Errorf("panel not blank: %v", img.At(1, 1))
			}
			if err := s.SetWindow(1, 1, 2, 2); err != nil {
				t.Fatal(err)
			}
			if err := s.Transfer(2, 2, white.Pix); err != nil {
				t.Fatal(err)
			}
			return true
		}
		for _, p := range []image.Point{{1, 1}, {2, 2}} {
			if r, g, b, _ := img.At(p.X, p.Y).RGBA(); r != 0xFFFF || g != 0xFFFF || b != 0xFFFF {
				t.Errorf("%v is %v, want white", p, img.At(p.X, p.Y))
			}
		}
		if r, _, _, _ := img.At(0, 0).RGBA(); r != 0 {
			t.Errorf("(0,0) is %v, want black", img.At(0, 0))
		}
		if err := s.Halt(); err != nil {
			t.Error(err)
		}
		return false
	})
}

func TestRequestStatus(t *testing.T) {
	for _, tc := range []struct {
		method     string
		target     string
		wantStatus int
	}{
		{http.MethodGet, "/?format=", http.StatusOK},
		{http.MethodGet, "/?format=bmp", http.StatusBadRequest},
		{http.MethodPost, "/", http.StatusMethodNotAllowed},
	} {
		t.Run(fmt.Sprint(tc), func(t *testing.T) {
			s := New(&Options{Width: 16, Height: 16})

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			t.Cleanup(cancel)

			srv := httptest.NewServer(s)
			t.Cleanup(srv.Close)
			t.Cleanup(srv.CloseClientConnections)

			req, err := http.NewRequestWithContext(ctx, tc.method, srv.URL+tc.target, nil)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := srv.Client().Do(req)
			if err != nil {
				t.Fatal(err)
			}
			resp.Body.Close()
			if got := resp.StatusCode; got != tc.wantStatus {
				t.Errorf("%s %s returned status %d, want %d", tc.method, tc.target, got, tc.wantStatus)
			}
		})
	}
}
