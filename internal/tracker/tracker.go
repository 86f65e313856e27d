// Package tracker reads bencoded tracker announce responses, including
// captures holding several responses back to back.
package tracker

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/harioms1522/bdecode/internal/bencode"
)

// MaxPeers caps the peers kept from one response.
const MaxPeers = 200

// Peer is a single peer address.
type Peer struct {
	IP   string
	Port uint16
}

func (p Peer) String() string {
	return net.JoinHostPort(p.IP, fmt.Sprint(p.Port))
}

// Response is one decoded announce response.
type Response struct {
	Interval    time.Duration
	MinInterval time.Duration
	Complete    int64 // seeders, when reported
	Incomplete  int64 // leechers, when reported
	Warning     string
	Peers       []Peer
}

var (
	ErrNoPeers        = errors.New("tracker response has no peers")
	ErrNotDict        = errors.New("tracker response root is not a dictionary")
	ErrTrackerFailure = errors.New("tracker reported failure")
	ErrCompactLength  = errors.New("compact peer string has a partial entry")
)

// ParseResponse decodes the first response in data.
func ParseResponse(dec bencode.Decoder, data []byte) (*Response, error) {
	root, _, err := dec.DecodeValue(data, 0)
	if err != nil {
		return nil, fmt.Errorf("decode tracker response: %w", err)
	}
	return responseFrom(root)
}

// ParseResponses decodes every response in data, in order. The whole
// buffer must decode.
func ParseResponses(dec bencode.Decoder, data []byte) ([]*Response, error) {
	values, err := dec.DecodeAll(data)
	if err != nil {
		return nil, fmt.Errorf("decode tracker responses: %w", err)
	}
	out := make([]*Response, 0, len(values))
	for i, v := range values {
		resp, err := responseFrom(v)
		if err != nil {
			return nil, fmt.Errorf("response %d: %w", i, err)
		}
		out = append(out, resp)
	}
	return out, nil
}

func responseFrom(root bencode.Value) (*Response, error) {
	dict, ok := root.Dict()
	if !ok {
		return nil, ErrNotDict
	}
	if v, ok := dict.Get("failure reason"); ok {
		reason, _ := v.Str()
		return nil, fmt.Errorf("%w: %s", ErrTrackerFailure, reason)
	}
	resp := &Response{
		Interval:    seconds(dict, "interval"),
		MinInterval: seconds(dict, "min interval"),
		Complete:    count(dict, "complete"),
		Incomplete:  count(dict, "incomplete"),
	}
	if v, ok := dict.Get("warning message"); ok {
		resp.Warning, _ = v.Str()
	}

	v4, has4 := dict.Get("peers")
	v6, has6 := dict.Get("peers6")
	if !has4 && !has6 {
		return nil, ErrNoPeers
	}
	if has4 {
		peers, err := parsePeers(v4, net.IPv4len)
		if err != nil {
			return nil, fmt.Errorf("peers: %w", err)
		}
		resp.Peers = append(resp.Peers, peers...)
	}
	if has6 {
		peers, err := parsePeers(v6, net.IPv6len)
		if err != nil {
			return nil, fmt.Errorf("peers6: %w", err)
		}
		resp.Peers = append(resp.Peers, peers...)
	}
	if len(resp.Peers) > MaxPeers {
		resp.Peers = resp.Peers[:MaxPeers]
	}
	return resp, nil
}

func seconds(d *bencode.Dictionary, key string) time.Duration {
	v, _ := d.Get(key)
	if n, ok := v.Int(); ok && n > 0 {
		return time.Duration(n) * time.Second
	}
	return 0
}

func count(d *bencode.Dictionary, key string) int64 {
	v, _ := d.Get(key)
	n, _ := v.Int()
	return max(n, 0)
}

// parsePeers accepts the compact form (ipLen address bytes plus a
// big-endian port per peer) or a list of {"ip", "port"} dicts.
func parsePeers(v bencode.Value, ipLen int) ([]Peer, error) {
	if b, ok := v.Bytes(); ok {
		return parseCompact(b, ipLen)
	}
	if list, ok := v.List(); ok {
		return parseDicts(list), nil
	}
	return nil, ErrNoPeers
}

func parseCompact(b []byte, ipLen int) ([]Peer, error) {
	stride := ipLen + 2
	if len(b)%stride != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCompactLength, len(b))
	}
	peers := make([]Peer, 0, len(b)/stride)
	for off := 0; off < len(b); off += stride {
		entry := b[off : off+stride]
		peers = append(peers, Peer{
			IP:   net.IP(entry[:ipLen]).String(),
			Port: uint16(entry[ipLen])<<8 | uint16(entry[ipLen+1]),
		})
	}
	return peers, nil
}

// parseDicts skips entries without a string ip or an in-range port.
func parseDicts(list []bencode.Value) []Peer {
	var peers []Peer
	for _, e := range list {
		ipVal, _ := e.Lookup("ip")
		ip, ok := ipVal.Str()
		if !ok {
			continue
		}
		portVal, _ := e.Lookup("port")
		port, ok := portVal.Int()
		if !ok || port < 0 || port > 65535 {
			continue
		}
		peers = append(peers, Peer{IP: ip, Port: uint16(port)})
	}
	return peers
}
