package chunker

import (
	"errors"
	"strings"
	"testing"

	"github.com/ziadkadry99/regqa/internal/config"
	"github.com/ziadkadry99/regqa/internal/loader"
)

func mustNew(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := New(size, overlap)
	if err != nil {
		t.Fatalf("New(%d, %d): %v", size, overlap, err)
	}
	return c
}

func TestNewRejectsBadParameters(t *testing.T) {
	tests := []struct {
		size, overlap int
	}{
		{10, 10},
		{10, 11},
		{10, -1},
		{0, 0},
	}
	for _, tt := range tests {
		_, err := New(tt.size, tt.overlap)
		if !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("New(%d, %d): expected ErrInvalidConfig, got %v", tt.size, tt.overlap, err)
		}
	}
}

func TestSplitShortPageIsOneChunk(t *testing.T) {
	c := mustNew(t, 1000, 100)
	text := "Arm's length principle requires that transactions between associated enterprises..."
	chunks := c.Split("guide.pdf", []loader.Page{{Number: 1, Text: text}})

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	ch := chunks[0]
	if ch.Source != "guide.pdf" || ch.Page != 1 {
		t.Errorf("metadata: got source=%q page=%d", ch.Source, ch.Page)
	}
	if ch.Text != text {
		t.Errorf("text: got %q", ch.Text)
	}
	if ch.Start != 0 || ch.End != len([]rune(text)) {
		t.Errorf("range: got [%d,%d)", ch.Start, ch.End)
	}
	if ch.ID() != "guide.pdf#p1#0" {
		t.Errorf("ID: got %q", ch.ID())
	}
}

func TestSplitStride(t *testing.T) {
	c := mustNew(t, 10, 3)
	text := strings.Repeat("abcdefghij", 3) // 30 runes
	chunks := c.Split("doc.pdf", []loader.Page{{Number: 2, Text: text}})

	wantStarts := []int{0, 7, 14, 21}
	if len(chunks) != len(wantStarts) {
		t.Fatalf("expected %d chunks, got %d", len(wantStarts), len(chunks))
	}
	for i, ch := range chunks {
		if ch.Start != wantStarts[i] {
			t.Errorf("chunk %d start: got %d, want %d", i, ch.Start, wantStarts[i])
		}
		if ch.Index != i {
			t.Errorf("chunk %d index: got %d", i, ch.Index)
		}
		if n := len([]rune(ch.Text)); n > 10 {
			t.Errorf("chunk %d longer than size: %d", i, n)
		}
		if ch.Page != 2 {
			t.Errorf("chunk %d page: got %d", i, ch.Page)
		}
	}
	last := chunks[len(chunks)-1]
	if last.End != 30 || last.Text != "bcdefghij" {
		t.Errorf("last chunk: got [%d,%d) %q", last.Start, last.End, last.Text)
	}
	if chunks[1].Text[:3] != chunks[0].Text[7:] {
		t.Errorf("consecutive chunks should share %d runes", 3)
	}
}

func TestSplitZeroOverlap(t *testing.T) {
	c := mustNew(t, 4, 0)
	chunks := c.Split("d.pdf", []loader.Page{{Number: 1, Text: "abcdefgh"}})
	if len(chunks) != 2 || chunks[0].Text != "abcd" || chunks[1].Text != "efgh" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}

func TestSplitPagesIndependently(t *testing.T) {
	c := mustNew(t, 5, 1)
	pages := []loader.Page{
		{Number: 1, Text: "hello world"},
		{Number: 2, Text: "   \n\t "},
		{Number: 3, Text: "bye"},
	}
	chunks := c.Split("d.pdf", pages)

	for _, ch := range chunks {
		if ch.Page == 2 && ch.HasText() {
			t.Errorf("whitespace-only page chunk reports text: %+v", ch)
		}
		if ch.Page != 2 && !ch.HasText() {
			t.Errorf("chunk without text: %+v", ch)
		}
	}
	last := chunks[len(chunks)-1]
	if last.Page != 3 || last.Text != "bye" {
		t.Errorf("last chunk: %+v", last)
	}
	wantStart := len([]rune(pages[0].Text)) + len([]rune(pages[1].Text))
	if last.Start != wantStart {
		t.Errorf("page 3 offset: got %d, want %d", last.Start, wantStart)
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("index %d: got %d", i, ch.Index)
		}
	}
}

func TestSplitCountsRunes(t *testing.T) {
	c := mustNew(t, 3, 1)
	chunks := c.Split("d.pdf", []loader.Page{{Number: 1, Text: "§§§§§"}})
	for _, ch := range chunks {
		if n := len([]rune(ch.Text)); n > 3 {
			t.Errorf("chunk exceeds size in runes: %q", ch.Text)
		}
	}
	if got := Reconstruct(chunks); got != "§§§§§" {
		t.Errorf("Reconstruct: got %q", got)
	}
}

func TestSplitEmpty(t *testing.T) {
	c := mustNew(t, 10, 2)
	if chunks := c.Split("d.pdf", nil); len(chunks) != 0 {
		t.Errorf("expected no chunks, got %d", len(chunks))
	}
	if chunks := c.Split("d.pdf", []loader.Page{{Number: 1, Text: ""}}); len(chunks) != 0 {
		t.Errorf("expected no chunks for empty page, got %d", len(chunks))
	}
}

func TestReconstructRoundTrip(t *testing.T) {
	pageTexts := []string{
		"The arm's length principle is the international standard that OECD member countries have agreed should be used for determining transfer prices.",
		"Paragraph 1 of Article 9 of the OECD Model Tax Convention.",
		"x",
		" \n ",
		"Annex I",
	}
	params := []struct{ size, overlap int }{
		{1000, 100}, {10, 0}, {10, 9}, {7, 3}, {1, 0}, {50, 25},
	}
	for _, p := range params {
		c := mustNew(t, p.size, p.overlap)
		var pages []loader.Page
		for i, text := range pageTexts {
			pages = append(pages, loader.Page{Number: i + 1, Text: text})
		}
		got := Reconstruct(c.Split("oecd.pdf", pages))
		want := strings.Join(pageTexts, "")
		if got != want {
			t.Errorf("size=%d overlap=%d: reconstruction mismatch\n got %q\nwant %q", p.size, p.overlap, got, want)
		}
	}
}

func TestReconstructKeepsBlankPages(t *testing.T) {
	c := mustNew(t, 10, 2)
	pages := []loader.Page{
		{Number: 1, Text: "alpha beta gamma"},
		{Number: 2, Text: "   "},
		{Number: 3, Text: "delta"},
	}
	chunks := c.Split("d.pdf", pages)
	if got, want := Reconstruct(chunks), "alpha beta gamma   delta"; got != want {
		t.Errorf("Reconstruct: got %q, want %q", got, want)
	}
	for i := 1; i < len(chunks); i++ {
		if chunks[i].Page != chunks[i-1].Page && chunks[i].Start != chunks[i-1].End {
			t.Errorf("gap between pages at chunk %d: %d != %d", i, chunks[i].Start, chunks[i-1].End)
		}
	}
}

func TestSplitDeterministicIDs(t *testing.T) {
	c := mustNew(t, 20, 5)
	pages := []loader.Page{{Number: 1, Text: strings.Repeat("regulation ", 10)}}
	a := c.Split("r.pdf", pages)
	b := c.Split("r.pdf", pages)
	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	seen := map[string]bool{}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			t.Errorf("chunk %d ID not deterministic: %q vs %q", i, a[i].ID(), b[i].ID())
		}
		if seen[a[i].ID()] {
			t.Errorf("duplicate ID %q", a[i].ID())
		}
		seen[a[i].ID()] = true
	}
}
