package verify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/harioms1522/bdecode/internal/bencode"
	"github.com/harioms1522/bdecode/internal/torrent"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "grab-hib" {
			http.Error(w, "bad agent", http.StatusForbidden)
			return
		}
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newChecker(buf *bytes.Buffer) *Checker {
	return &Checker{UserAgent: "grab-hib", Log: zerolog.New(buf)}
}

func TestCheck_Match(t *testing.T) {
	srv := serve(t, http.StatusOK, "d4:infod4:name8:game.zip6:lengthi5eee")
	var logs bytes.Buffer
	res := newChecker(&logs).Check(context.Background(), srv.URL+"/game.zip.torrent", "game.zip")
	if !res.UseTorrent || res.Mismatch || res.Err != nil {
		t.Fatalf("res = %+v", res)
	}
	if res.Claimed != "game.zip" {
		t.Errorf("Claimed = %q", res.Claimed)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected logs: %s", logs.String())
	}
}

func TestCheck_MismatchStillUsable(t *testing.T) {
	srv := serve(t, http.StatusOK, "d4:infod4:name9:other.zipee")
	var logs bytes.Buffer
	res := newChecker(&logs).Check(context.Background(), srv.URL, "game.zip")
	if !res.UseTorrent || !res.Mismatch {
		t.Fatalf("res = %+v", res)
	}
	if !strings.Contains(logs.String(), "other.zip") {
		t.Errorf("logs = %s, want claimed name", logs.String())
	}
}

func TestCheck_HTTPError(t *testing.T) {
	srv := serve(t, http.StatusNotFound, "")
	var logs bytes.Buffer
	res := newChecker(&logs).Check(context.Background(), srv.URL, "game.zip")
	if res.UseTorrent || !errors.Is(res.Err, ErrHTTPStatus) {
		t.Fatalf("res = %+v", res)
	}
}

func TestCheck_DecodeError(t *testing.T) {
	srv := serve(t, http.StatusOK, "d4:infod4:name50:shortee")
	var logs bytes.Buffer
	res := newChecker(&logs).Check(context.Background(), srv.URL, "game.zip")
	if res.UseTorrent {
		t.Fatalf("res = %+v", res)
	}
	if !errors.Is(res.Err, bencode.TruncatedString) {
		t.Errorf("Err = %v, want TruncatedString", res.Err)
	}
}

func TestCheck_NotATorrent(t *testing.T) {
	srv := serve(t, http.StatusOK, "<html></html>")
	res := newChecker(&bytes.Buffer{}).Check(context.Background(), srv.URL, "game.zip")
	if res.UseTorrent || !errors.Is(res.Err, bencode.UnexpectedByte) {
		t.Fatalf("res = %+v", res)
	}
}

func TestInspect_MissingName(t *testing.T) {
	c := &Checker{}
	if _, err := c.Inspect([]byte("d4:infod6:lengthi1eee")); !errors.Is(err, torrent.ErrMissingName) {
		t.Errorf("err = %v", err)
	}
}

func TestInspect_DepthLimit(t *testing.T) {
	c := &Checker{Decoder: bencode.Decoder{MaxDepth: 2}}
	if _, err := c.Inspect([]byte("d4:infod4:namel1:aeee")); !errors.Is(err, bencode.DepthExceeded) {
		t.Errorf("err = %v, want DepthExceeded", err)
	}
}

func TestFetch_TooLarge(t *testing.T) {
	srv := serve(t, http.StatusOK, strings.Repeat("x", 64))
	c := &Checker{UserAgent: "grab-hib", MaxBytes: 10}
	if _, err := c.Fetch(context.Background(), srv.URL); !errors.Is(err, ErrTooLarge) {
		t.Errorf("err = %v, want ErrTooLarge", err)
	}
}
