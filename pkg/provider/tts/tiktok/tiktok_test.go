package tiktok

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vexofm/vexo/pkg/provider/tts"
)

func TestProvider_OpenDecodesAudio(t *testing.T) {
	audio := []byte("mp3 bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		var req synthesisRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "hello" || req.Voice != "en_us_002" {
			t.Errorf("request = %+v", req)
		}
		fmt.Fprintf(w, `{"data":"%s"}`, base64.StdEncoding.EncodeToString(audio))
	}))
	defer srv.Close()

	p := New(srv.URL)
	rc, err := p.Open(context.Background(), "hello", "en_us_002")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != string(audio) {
		t.Fatalf("audio = %q, want %q", got, audio)
	}
}

func TestProvider_FollowsRedirects(t *testing.T) {
	var hits int
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		hits++
		if hits < 3 {
			http.Redirect(w, r, fmt.Sprintf("/hop?n=%d", hits), http.StatusFound)
			return
		}
		fmt.Fprint(w, `{"data":"SGVsbG8="}`)
	})

	p := New(srv.URL + "/hop")
	rc, err := p.Open(context.Background(), "hi", "en_us_001")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()

	got, _ := io.ReadAll(rc)
	if string(got) != "Hello" {
		t.Fatalf("audio = %q, want Hello", got)
	}
	if hits != 3 {
		t.Fatalf("hits = %d, want 3", hits)
	}
}

func TestProvider_RedirectLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/again", http.StatusMovedPermanently)
	}))
	defer srv.Close()

	p := New(srv.URL)
	_, err := p.Open(context.Background(), "hi", "en_us_001")
	var se *tts.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Code != http.StatusMovedPermanently {
		t.Fatalf("code = %d, want %d", se.Code, http.StatusMovedPermanently)
	}
}

func TestProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := New(srv.URL)
	_, err := p.Open(context.Background(), "hi", "en_us_001")
	var se *tts.StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StatusError", err)
	}
	if se.Code != http.StatusInternalServerError {
		t.Fatalf("code = %d, want 500", se.Code)
	}
}

func TestProvider_NullAudioSurfacesAtOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":null,"error":"voice offline"}`)
	}))
	defer srv.Close()

	p := New(srv.URL)
	_, err := p.Open(context.Background(), "hi", "en_us_001")
	if !errors.Is(err, tts.ErrNullAudio) {
		t.Fatalf("err = %v, want ErrNullAudio", err)
	}
}
