// Package verify checks that a torrent link is usable before a download
// plan relies on it: the link must answer 200 OK and the body must decode
// to a torrent whose info.name can be read.
package verify

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/harioms1522/bdecode/internal/bencode"
	"github.com/harioms1522/bdecode/internal/torrent"
)

const (
	DefaultTimeout  = 30 * time.Second
	DefaultMaxBytes = 16 << 20
)

var (
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrTooLarge   = errors.New("torrent body too large")
)

// Checker fetches and inspects torrent links. Without a Client it builds
// one per request, timed out by DefaultTimeout or the context deadline.
type Checker struct {
	Client    *http.Client
	UserAgent string
	MaxBytes  int64
	Decoder   bencode.Decoder
	Log       zerolog.Logger
}

// Result describes one checked link. UseTorrent is false when the link
// could not be fetched or decoded; a name mismatch alone only sets
// Mismatch.
type Result struct {
	URL        string
	Expected   string
	Claimed    string
	Mismatch   bool
	UseTorrent bool
	Err        error
}

// Fetch downloads a torrent body.
func (c *Checker) Fetch(ctx context.Context, torrentURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, torrentURL, nil)
	if err != nil {
		return nil, err
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	resp, err := c.client(ctx).Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}
	limit := c.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read torrent body: %w", err)
	}
	if int64(len(body)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return body, nil
}

func (c *Checker) client(ctx context.Context) *http.Client {
	if c.Client != nil {
		return c.Client
	}
	timeout := DefaultTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout && d > 0 {
			timeout = d
		}
	}
	return &http.Client{Timeout: timeout}
}

// Check fetches torrentURL and compares the torrent's info.name with
// expectedFile.
func (c *Checker) Check(ctx context.Context, torrentURL, expectedFile string) Result {
	res := Result{URL: torrentURL, Expected: expectedFile}
	data, err := c.Fetch(ctx, torrentURL)
	if err != nil {
		res.Err = err
		c.Log.Error().Err(err).Str("url", torrentURL).Str("file", expectedFile).Msg("fetch failed")
		return res
	}
	res.Claimed, res.Err = c.Inspect(data)
	if res.Err != nil {
		c.Log.Error().Err(res.Err).Str("url", torrentURL).Str("file", expectedFile).Msg("decode failed")
		return res
	}
	res.UseTorrent = true
	if res.Claimed != expectedFile {
		res.Mismatch = true
		c.Log.Warn().Str("url", torrentURL).Str("claimed", res.Claimed).Str("file", expectedFile).
			Msg("torrent claims a different filename")
	}
	return res
}

// Inspect decodes a torrent body and returns its info.name.
func (c *Checker) Inspect(data []byte) (string, error) {
	values, err := c.Decoder.DecodeAll(data)
	if err != nil {
		return "", fmt.Errorf("invalid torrent: %w", err)
	}
	return torrent.NameOf(values)
}
