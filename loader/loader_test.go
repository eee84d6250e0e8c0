package loader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
)

func sampleText(atoms int) []byte {
	var buf bytes.Buffer
	buf.WriteString("HEADER    OXYGEN STORAGE                          01-JAN-00   1ABC\n")
	for i := 0; i < atoms; i++ {
		fmt.Fprintf(&buf, "HETATM%5d %-4s %3s A%4d    %8.3f%8.3f%8.3f  1.00  0.00\n",
			i+1, "C", "LIG", 1, float64(i)*5, 0.0, 0.0)
	}
	return buf.Bytes()
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestFetch_Bytes(t *testing.T) {
	mol, err := Fetch(context.Background(), BytesSource{ID: "mem", Data: sampleText(3)}, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mol.AtomCount() != 3 {
		t.Errorf("AtomCount() = %d, want 3", mol.AtomCount())
	}
	if mol.ID != "1ABC" {
		t.Errorf("ID = %q, want header ID to win over source name", mol.ID)
	}
}

func TestFetch_GzipSniffedFromContent(t *testing.T) {
	// Deliberately no .gz hint anywhere: the magic bytes decide.
	src := BytesSource{ID: "mem", Data: gzipped(t, sampleText(5))}
	mol, err := Fetch(context.Background(), src, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mol.AtomCount() != 5 {
		t.Errorf("AtomCount() = %d, want 5", mol.AtomCount())
	}
}

func TestFetch_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.pdb")
	if err := os.WriteFile(path, sampleText(2), 0o644); err != nil {
		t.Fatal(err)
	}
	mol, err := Fetch(context.Background(), FileSource(path), nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mol.AtomCount() != 2 {
		t.Errorf("AtomCount() = %d, want 2", mol.AtomCount())
	}
}

func TestFetch_URL(t *testing.T) {
	body := gzipped(t, sampleText(4))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	mol, err := Fetch(context.Background(), URLSource{URL: srv.URL, Client: srv.Client()}, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mol.AtomCount() != 4 {
		t.Errorf("AtomCount() = %d, want 4", mol.AtomCount())
	}
}

func TestFetch_URLNotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	if _, err := Fetch(context.Background(), URLSource{URL: srv.URL, Client: srv.Client()}, nil); err == nil {
		t.Errorf("Fetch() of 404 succeeded, want error")
	}
}

func TestFetch_ProgressMonotonicReachingOne(t *testing.T) {
	var fractions []float64
	src := BytesSource{ID: "mem", Data: sampleText(200)}
	if _, err := Fetch(context.Background(), src, func(f float64) {
		fractions = append(fractions, f)
	}); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(fractions) < 2 {
		t.Fatalf("progress reported %d times, want at least start and finish", len(fractions))
	}
	if fractions[0] != 0 {
		t.Errorf("first fraction = %v, want 0", fractions[0])
	}
	if last := fractions[len(fractions)-1]; last != 1 {
		t.Errorf("final fraction = %v, want 1", last)
	}
	ones := 0
	for i := 1; i < len(fractions); i++ {
		if fractions[i] < fractions[i-1] {
			t.Errorf("progress went backwards: %v after %v", fractions[i], fractions[i-1])
		}
		if fractions[i] < 0 || fractions[i] > 1 {
			t.Errorf("fraction %v out of range", fractions[i])
		}
		if fractions[i] == 1 {
			ones++
		}
	}
	if ones != 1 {
		t.Errorf("completion reported %d times, want exactly once", ones)
	}
}

func TestFetch_Latin1Tolerated(t *testing.T) {
	text := sampleText(1)
	// 0xC5 is a Latin-1 Angstrom-ish byte, invalid as standalone UTF-8.
	text = append(text, []byte("TITLE     RESOLUTION 1.2 \xc5NGSTROM\n")...)

	mol, err := Fetch(context.Background(), BytesSource{ID: "mem", Data: text}, nil)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if mol.AtomCount() != 1 {
		t.Errorf("AtomCount() = %d, want 1", mol.AtomCount())
	}
}

func TestFetch_ParseFailurePropagates(t *testing.T) {
	if _, err := Fetch(context.Background(), BytesSource{ID: "mem", Data: []byte("REMARK nothing\n")}, nil); err == nil {
		t.Errorf("Fetch() of atomless input succeeded, want error")
	}
}

func TestRCSB_IDValidation(t *testing.T) {
	if _, err := RCSB("1abc"); err != nil {
		t.Errorf("RCSB(1abc) error = %v", err)
	}
	for _, bad := range []string{"", "1ab", "12345", "1a_c"} {
		if _, err := RCSB(bad); !errors.Is(err, ErrBadID) {
			t.Errorf("RCSB(%q) = %v, want ErrBadID", bad, err)
		}
	}
	src, _ := RCSB("4HHB")
	if got := src.Name(); got != "https://files.rcsb.org/download/4HHB.pdb.gz" {
		t.Errorf("RCSB URL = %q", got)
	}
}
