// Package loader fetches PDB text from files, URLs or memory and hands
// it to the parser.
//
// Input files in the wild are frequently gzip-compressed and sometimes
// carry Latin-1 bytes in free-text records. The loader sniffs compression
// from content rather than trusting file extensions, and decodes through
// ISO 8859-1 so no byte sequence can fail the load.
package loader

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/charmap"

	"github.com/gogpu/molview/internal/logging"
	"github.com/gogpu/molview/pdb"
)

// ErrBadID is returned for malformed RCSB identifiers.
var ErrBadID = errors.New("loader: PDB ID must be 4 alphanumeric characters")

// Progress receives load progress as a fraction in [0,1]. Values are
// monotonically non-decreasing; 1 is reported exactly once, on success.
// When the source size is unknown only 0 and 1 are reported.
type Progress func(fraction float64)

// Source is a fetchable origin of PDB text.
type Source interface {
	// Open returns the raw stream and its size in bytes, or -1 when the
	// size is unknown.
	Open(ctx context.Context) (io.ReadCloser, int64, error)
	// Name identifies the source in logs and errors.
	Name() string
}

// FileSource reads a structure from the local filesystem.
type FileSource string

func (f FileSource) Name() string { return string(f) }

func (f FileSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	file, err := os.Open(string(f))
	if err != nil {
		return nil, 0, fmt.Errorf("loader: open %s: %w", f, err)
	}
	size := int64(-1)
	if info, err := file.Stat(); err == nil {
		size = info.Size()
	}
	return file, size, nil
}

// BytesSource serves a structure already held in memory.
type BytesSource struct {
	ID   string
	Data []byte
}

func (b BytesSource) Name() string { return b.ID }

func (b BytesSource) Open(context.Context) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(b.Data)), int64(len(b.Data)), nil
}

// URLSource fetches a structure over HTTP. A nil Client uses
// http.DefaultClient.
type URLSource struct {
	URL    string
	Client *http.Client
}

func (u URLSource) Name() string { return u.URL }

func (u URLSource) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.URL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("loader: %w", err)
	}
	client := u.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("loader: fetch %s: %w", u.URL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("loader: fetch %s: unexpected status %s", u.URL, resp.Status)
	}
	return resp.Body, resp.ContentLength, nil
}

// RCSB returns a source for a structure in the RCSB public archive.
// The ID is validated here so a typo fails fast instead of as a 404.
func RCSB(id string) (Source, error) {
	if len(id) != 4 {
		return nil, ErrBadID
	}
	for _, r := range id {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return nil, ErrBadID
		}
	}
	return URLSource{URL: fmt.Sprintf("https://files.rcsb.org/download/%s.pdb.gz", id)}, nil
}

// Fetch retrieves, decompresses, decodes and parses a structure. The
// progress callback may be nil.
func Fetch(ctx context.Context, src Source, progress Progress) (*pdb.Molecule, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	progress(0)

	rc, size, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	counted := &countingReader{r: rc, size: size, progress: progress}
	raw, err := readMaybeGzip(counted)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", src.Name(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("loader: decode %s: %w", src.Name(), err)
	}

	mol, err := pdb.Parse(text)
	if err != nil {
		return nil, err
	}
	if mol.ID == "" {
		mol.ID = src.Name()
	}
	logging.Logger().Info("loader: structure loaded",
		"source", src.Name(), "atoms", mol.AtomCount(), "bonds", mol.BondCount())
	progress(1)
	return mol, nil
}

// readMaybeGzip sniffs the two-byte gzip magic and decompresses when
// present. File extensions lie often enough that content decides.
func readMaybeGzip(r io.Reader) ([]byte, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	}
	return io.ReadAll(br)
}

// decodeText returns the structure text as UTF-8. Valid UTF-8 passes
// through; anything else is treated as ISO 8859-1, which maps every byte
// and therefore cannot fail.
func decodeText(raw []byte) (string, error) {
	if utf8.Valid(raw) {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// countingReader reports read progress against a known total. Fractions
// are clamped below 1; completion is reported by Fetch once parsing
// succeeds.
type countingReader struct {
	r        io.Reader
	size     int64
	read     int64
	last     float64
	progress Progress
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.size > 0 {
		f := float64(c.read) / float64(c.size)
		if f > 0.99 {
			f = 0.99
		}
		if f > c.last {
			c.last = f
			c.progress(f)
		}
	}
	return n, err
}
