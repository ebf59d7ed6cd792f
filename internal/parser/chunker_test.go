package parser

import (
	"strings"
	"testing"
)

func TestChunkText_ShortContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		wantLen  int
		wantZero bool
	}{
		{
			name:     "completely empty",
			content:  "",
			wantZero: true,
		},
		{
			name:     "whitespace only",
			content:  "   \n\n\t  ",
			wantZero: true,
		},
		{
			name:    "short content single chunk",
			content: "A short paragraph that fits in one chunk.",
			wantLen: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := ChunkText(tt.content, DefaultChunkConfig())

			if tt.wantZero {
				if len(chunks) != 0 {
					t.Errorf("ChunkText() got %d chunks, want 0", len(chunks))
				}
				return
			}

			if len(chunks) != tt.wantLen {
				t.Errorf("ChunkText() got %d chunks, want %d", len(chunks), tt.wantLen)
			}
			if chunks[0].Content != strings.TrimSpace(tt.content) {
				t.Errorf("single chunk should carry the full content, got %q", chunks[0].Content)
			}
			if chunks[0].Position != 0 {
				t.Errorf("single chunk position = %d, want 0", chunks[0].Position)
			}
		})
	}
}

func TestChunkText_FixedSizeWindows(t *testing.T) {
	config := ChunkConfig{Size: 100, Overlap: 20}
	text := strings.Repeat("abcdefghij", 35) // 350 chars

	chunks := ChunkText(text, config)

	if len(chunks) == 0 {
		t.Fatal("expected chunks for long content")
	}

	for i, chunk := range chunks {
		if CharCount(chunk.Content) > config.Size {
			t.Errorf("chunk[%d] length %d exceeds size %d", i, CharCount(chunk.Content), config.Size)
		}
		if strings.TrimSpace(chunk.Content) == "" {
			t.Errorf("chunk[%d] is empty", i)
		}
		if chunk.Position != i {
			t.Errorf("chunk[%d].Position = %d, want %d", i, chunk.Position, i)
		}
	}

	// Windows advance by size-overlap, so the step between chunk starts is 80.
	// 350 chars with step 80 gives starts at 0, 80, 160, 240, 320.
	if len(chunks) != 5 {
		t.Errorf("got %d chunks, want 5", len(chunks))
	}

	// Last chunk holds the tail and may be shorter than Size.
	last := chunks[len(chunks)-1]
	if CharCount(last.Content) != 30 {
		t.Errorf("last chunk length = %d, want 30", CharCount(last.Content))
	}
}

func TestChunkText_OverlapSharesContent(t *testing.T) {
	config := ChunkConfig{Size: 100, Overlap: 20}
	text := strings.Repeat("x", 90) + strings.Repeat("y", 90)

	chunks := ChunkText(text, config)
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	// The first chunk ends with the 20 characters the second chunk starts with.
	tail := chunks[0].Content[len(chunks[0].Content)-config.Overlap:]
	if !strings.HasPrefix(chunks[1].Content, tail) {
		t.Errorf("second chunk should start with the overlap %q, got %q...", tail, chunks[1].Content[:30])
	}
}

func TestChunkText_Deterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 50)
	config := DefaultChunkConfig()

	first := ChunkText(text, config)
	second := ChunkText(text, config)

	if len(first) != len(second) {
		t.Fatalf("chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chunk[%d] differs between runs", i)
		}
	}
}

func TestChunkText_DegenerateConfig(t *testing.T) {
	text := strings.Repeat("z", 2000)

	// Overlap >= size must not loop forever or produce duplicates of the
	// whole input.
	chunks := ChunkText(text, ChunkConfig{Size: 100, Overlap: 100})
	if len(chunks) == 0 {
		t.Fatal("expected chunks")
	}
	for i, chunk := range chunks {
		if CharCount(chunk.Content) > 100 {
			t.Errorf("chunk[%d] length %d exceeds size", i, CharCount(chunk.Content))
		}
	}

	// Zero size falls back to defaults.
	chunks = ChunkText(text, ChunkConfig{})
	if len(chunks) == 0 {
		t.Fatal("expected chunks with default fallback")
	}
	if CharCount(chunks[0].Content) != 800 {
		t.Errorf("first chunk length = %d, want default 800", CharCount(chunks[0].Content))
	}
}
