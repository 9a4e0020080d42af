package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/title-recommender/pkg/errors"
)

func TestCleanTrimsDropsAndDedups(t *testing.T) {
	raw := []string{"  Love Song ", "", "Love Story", "   ", "Love Song", "Hate Song", "Love Story\t"}
	got, stats := Clean(raw, 0, 1)
	want := []string{"Love Song", "Love Story", "Hate Song"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Clean() = %q, want %q", got, want)
	}
	if stats.Empty != 2 || stats.Duplicates != 2 || stats.Kept != 3 || stats.Raw != 7 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestCleanSampleIsDeterministicAndOrdered(t *testing.T) {
	raw := make([]string, 100)
	pos := make(map[string]int, len(raw))
	for i := range raw {
		raw[i] = fmt.Sprintf("Track %03d", i)
		pos[raw[i]] = i
	}
	a, stats := Clean(raw, 10, 7)
	b, _ := Clean(raw, 10, 7)
	if len(a) != 10 || stats.Sampled != 90 {
		t.Fatalf("len = %d, sampled = %d", len(a), stats.Sampled)
	}
	if !reflect.DeepEqual(a, b) {
		t.Error("same seed should give the same sample")
	}
	for i := 1; i < len(a); i++ {
		if pos[a[i-1]] >= pos[a[i]] {
			t.Fatalf("sample not in catalog order: %q before %q", a[i-1], a[i])
		}
	}
}

func TestSearch(t *testing.T) {
	corpus := []string{"Café del Mar", "Love Song", "Cafe Tacvba", "Lovely Day"}
	if got := Search(corpus, "cafe", 0); !reflect.DeepEqual(got, []string{"Café del Mar", "Cafe Tacvba"}) {
		t.Errorf("Search(cafe) = %q", got)
	}
	if got := Search(corpus, "LOVE", 1); !reflect.DeepEqual(got, []string{"Love Song"}) {
		t.Errorf("Search(LOVE, 1) = %q", got)
	}
	if got := Search(corpus, "", 0); len(got) != len(corpus) {
		t.Errorf("empty query returned %d titles", len(got))
	}
	if got := Search(corpus, "zzz", 0); got == nil || len(got) != 0 {
		t.Errorf("no match should be an empty, non-nil slice, got %#v", got)
	}
}

func TestReadCSV(t *testing.T) {
	data := "Artist,Title,Views\n" +
		"Gorillaz,Feel Good Inc.,100\n" +
		"Queen,\"Don't Stop Me Now\",200\n" +
		"Nobody\n" +
		"Queen,\"Bohemian Rhapsody, Live\",300\n"
	got, err := ReadCSV(context.Background(), strings.NewReader(data), "title")
	if err != nil {
		t.Fatalf("ReadCSV() error: %v", err)
	}
	want := []string{"Feel Good Inc.", "Don't Stop Me Now", "", "Bohemian Rhapsody, Live"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadCSV() = %q, want %q", got, want)
	}
}

func TestReadCSVErrors(t *testing.T) {
	if _, err := ReadCSV(context.Background(), strings.NewReader(""), "Title"); !errors.Is(err, apperrors.ErrEmptyCatalog) {
		t.Errorf("empty input error = %v, want ErrEmptyCatalog", err)
	}
	if _, err := ReadCSV(context.Background(), strings.NewReader("Artist,Track\n"), "Title"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Errorf("missing column error = %v, want ErrInvalidInput", err)
	}
}

func TestCSVSourceFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "songs.csv")
	if err := os.WriteFile(path, []byte("\ufeffTitle\nLove Song\nHate Song\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	src := NewCSVSource(path, "")
	got, err := src.Titles(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []string{"Love Song", "Hate Song"}) {
		t.Errorf("Titles() = %q", got)
	}
	if _, err := NewCSVSource(filepath.Join(t.TempDir(), "missing.csv"), "").Titles(context.Background()); err == nil {
		t.Error("expected error for missing file")
	}
}
