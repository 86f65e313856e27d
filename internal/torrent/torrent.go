package torrent

import (
	"errors"
	"fmt"

	"github.com/anacrolix/torrent/metainfo"

	"github.com/harioms1522/bdecode/internal/bencode"
)

var (
	ErrNotDict     = errors.New("invalid torrent: root is not a dictionary")
	ErrMissingInfo = errors.New("invalid torrent: missing info dictionary")
	ErrInfoNotDict = errors.New("invalid torrent: info is not a dictionary")
	ErrMissingName = errors.New("invalid torrent: info has no name")
)

// Meta holds the fields of a .torrent file a download planner cares about.
type Meta struct {
	Announce     string     // primary tracker URL
	AnnounceList [][]string // backup trackers (optional)
	Info         Info
	InfoHash     metainfo.Hash // SHA-1 of bencoded info dict
}

// Info is the parsed "info" dictionary.
type Info struct {
	Name        string
	PieceLength int64
	Pieces      []byte // concatenated 20-byte SHA-1 hashes
	Length      int64  // single-file: total file size
	Files       []File // multi-file: list of path + length
}

// File is one entry in info.files (multi-file torrent).
type File struct {
	Path   []string
	Length int64
}

// ParseFile decodes a .torrent and returns its metadata and info hash.
// Bytes after the root dictionary are ignored.
func ParseFile(data []byte) (*Meta, error) {
	return ParseFileWith(bencode.Decoder{}, data)
}

// ParseFileWith is ParseFile under the limits of dec.
func ParseFileWith(dec bencode.Decoder, data []byte) (*Meta, error) {
	root, infoRaw, err := dec.DecodeWithInfo(data)
	if err != nil {
		return nil, fmt.Errorf("invalid torrent: %w", err)
	}
	dict, ok := root.Dict()
	if !ok {
		return nil, ErrNotDict
	}
	infoVal, ok := dict.Get("info")
	if !ok || infoRaw == nil {
		return nil, ErrMissingInfo
	}
	infoDict, ok := infoVal.Dict()
	if !ok {
		return nil, ErrInfoNotDict
	}

	mi := metainfo.MetaInfo{InfoBytes: infoRaw}
	meta := &Meta{InfoHash: mi.HashInfoBytes()}
	meta.Announce = str(dict, "announce")
	if v, ok := dict.Get("announce-list"); ok {
		tiers, _ := v.List()
		for _, tier := range tiers {
			urls := strList(tier)
			if len(urls) > 0 {
				meta.AnnounceList = append(meta.AnnounceList, urls)
			}
		}
	}

	meta.Info.Name = str(infoDict, "name")
	meta.Info.PieceLength = num(infoDict, "piece length")
	if v, ok := infoDict.Get("pieces"); ok {
		meta.Info.Pieces, _ = v.Bytes()
	}
	meta.Info.Length = num(infoDict, "length")
	if v, ok := infoDict.Get("files"); ok {
		list, ok := v.List()
		if !ok {
			return nil, errors.New("invalid torrent: info.files is not a list")
		}
		for _, fv := range list {
			fd, ok := fv.Dict()
			if !ok {
				continue
			}
			f := File{Length: num(fd, "length")}
			if pv, ok := fd.Get("path"); ok {
				f.Path = strList(pv)
			}
			meta.Info.Files = append(meta.Info.Files, f)
		}
	}
	return meta, nil
}

// Name returns info.name of the first value in data. It is the check the
// download planner runs on a fetched torrent before trusting its link.
func Name(data []byte) (string, error) {
	values, err := bencode.DecodeAll(data)
	if err != nil {
		return "", fmt.Errorf("invalid torrent: %w", err)
	}
	return NameOf(values)
}

// NameOf is Name for values that were already decoded.
func NameOf(values []bencode.Value) (string, error) {
	if len(values) == 0 {
		return "", ErrNotDict
	}
	if _, ok := values[0].Dict(); !ok {
		return "", ErrNotDict
	}
	v, ok := values[0].Lookup("info", "name")
	if !ok {
		return "", ErrMissingName
	}
	name, ok := v.Str()
	if !ok {
		return "", ErrMissingName
	}
	return name, nil
}

func str(d *bencode.Dictionary, key string) string {
	v, _ := d.Get(key)
	s, _ := v.Str()
	return s
}

func num(d *bencode.Dictionary, key string) int64 {
	v, _ := d.Get(key)
	n, _ := v.Int()
	return n
}

func strList(v bencode.Value) []string {
	list, _ := v.List()
	var out []string
	for _, e := range list {
		if s, ok := e.Str(); ok {
			out = append(out, s)
		}
	}
	return out
}

// InfoHashHex returns the info hash as a 40-character hex string.
func (m *Meta) InfoHashHex() string {
	return m.InfoHash.HexString()
}

// TrackerURLs returns the primary announce URL followed by every backup tier.
func (m *Meta) TrackerURLs() []string {
	var urls []string
	if m.Announce != "" {
		urls = append(urls, m.Announce)
	}
	for _, tier := range m.AnnounceList {
		urls = append(urls, tier...)
	}
	return urls
}

// PieceCount returns the number of pieces (length of pieces / 20).
func (m *Meta) PieceCount() int {
	if len(m.Info.Pieces)%20 != 0 {
		return 0
	}
	return len(m.Info.Pieces) / 20
}

// TotalSize returns total content length (single-file: info.length; multi-file: sum of file lengths).
// Negative lengths count as zero.
func (m *Meta) TotalSize() int64 {
	if len(m.Info.Files) == 0 {
		return max(m.Info.Length, 0)
	}
	var total int64
	for _, f := range m.Info.Files {
		total += max(f.Length, 0)
	}
	return total
}

// FileCount returns 1 for single-file, len(info.files) for multi-file.
func (m *Meta) FileCount() int {
	if len(m.Info.Files) == 0 {
		return 1
	}
	return len(m.Info.Files)
}
