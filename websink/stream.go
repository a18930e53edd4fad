// Copyright 2023 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package websink

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
)

var (
	pngEncoder = png.Encoder{CompressionLevel: png.BestSpeed}
	jpegOpts   = jpeg.Options{Quality: 90}
)

// client is one streaming request. Both channels hold at most one signal.
type client struct {
	refresh   chan struct{}
	terminate chan struct{}
}

func newClient() *client {
	return &client{
		refresh:   make(chan struct{}, 1),
		terminate: make(chan struct{}, 1),
	}
}

// signal never blocks: a pending signal absorbs the new one.
func (c *client) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// changedLocked drops the cached frames and wakes up the clients.
func (s *Sink) changedLocked() {
	for f := range s.frames {
		delete(s.frames, f)
	}
	for c := range s.clients {
		c.signal(c.refresh)
	}
}

// frame returns the current panel content encoded as f. Encodings are cached
// until the next change so that clients sharing a format encode once.
func (s *Sink) frame(f ImageFormat) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.frames[f]; ok {
		return b, nil
	}
	var buf bytes.Buffer
	var err error
	switch f {
	case PNG:
		err = pngEncoder.Encode(&buf, s.ram)
	case JPEG:
		err = jpeg.Encode(&buf, s.ram, &jpegOpts)
	default:
		err = fmt.Errorf("websink: unhandled image format %s", f)
	}
	if err != nil {
		return nil, err
	}
	s.frames[f] = buf.Bytes()
	return s.frames[f], nil
}

// ServeHTTP streams the panel content to GET requests. Clients pick the
// encoding with "?format=png" or "?format=jpeg".
func (s *Sink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "", http.StatusMethodNotAllowed)
		return
	}
	f := s.format
	if v := r.URL.Query().Get("format"); v != "" {
		var err error
		if f, err = ParseImageFormat(v); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	st := newStream(w)
	w.Header().Set("Content-Type", mime.FormatMediaType("multipart/x-mixed-replace", map[string]string{"boundary": st.boundary}))

	c := newClient()
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	for {
		b, err := s.frame(f)
		if err != nil {
			log.Printf("websink: %v", err)
			return
		}
		// A failed write means the client went away; there is no way to
		// report it within the stream.
		if err := st.writeFrame(f.contentType(), b); err != nil {
			return
		}
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
		select {
		case <-c.refresh:
		case <-c.terminate:
			return
		case <-r.Context().Done():
			return
		}
	}
}

// stream writes the parts of a multipart/x-mixed-replace body.
//
// Each part is followed by its closing boundary right away so the client can
// show it without waiting for the next one; mime/multipart only writes it when
// the next part starts.
type stream struct {
	w        io.Writer
	boundary string
	open     bool
}

func newStream(w io.Writer) *stream {
	var b [32]byte
	if _, err := io.ReadFull(rand.Reader, b[:]); err != nil {
		panic(err)
	}
	return &stream{w: w, boundary: hex.EncodeToString(b[:])}
}

func (s *stream) writeFrame(contentType string, body []byte) error {
	var hdr bytes.Buffer
	if !s.open {
		hdr.WriteString("--" + s.boundary + "\r\n")
		s.open = true
	}
	hdr.WriteString("Content-Type: " + contentType + "\r\n")
	hdr.WriteString("Content-Length: " + strconv.Itoa(len(body)) + "\r\n\r\n")
	if _, err := hdr.WriteTo(s.w); err != nil {
		return err
	}
	if _, err := s.w.Write(body); err != nil {
		return err
	}
	_, err := io.WriteString(s.w, "\r\n--"+s.boundary+"\r\n")
	return err
}
