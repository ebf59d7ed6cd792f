package parser

import (
	"strings"
	"unicode/utf8"
)

// ChunkResult represents a chunk of document content.
type ChunkResult struct {
	Content  string
	Position int
}

// ChunkConfig defines chunking parameters.
type ChunkConfig struct {
	// Size: chunk length in characters
	Size int
	// Overlap: characters shared between adjacent chunks
	Overlap int
}

// DefaultChunkConfig returns the standard chunk geometry.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		Size:    800,
		Overlap: 150,
	}
}

// ChunkText splits text into fixed-size chunks with overlap. Chunking is
// deterministic: the same input always yields the same chunks in the same
// order. Positions are contiguous from zero; whitespace-only windows are
// dropped without consuming a position. The final chunk may be shorter
// than Size.
func ChunkText(text string, config ChunkConfig) []ChunkResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	size := config.Size
	if size <= 0 {
		size = DefaultChunkConfig().Size
	}
	overlap := config.Overlap
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []ChunkResult{{Content: text, Position: 0}}
	}

	step := size - overlap
	var chunks []ChunkResult
	position := 0

	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}

		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			chunks = append(chunks, ChunkResult{
				Content:  content,
				Position: position,
			})
			position++
		}

		if end == len(runes) {
			break
		}
	}

	return chunks
}

// CharCount returns the chunk length in runes, matching the unit ChunkText
// measures windows in.
func CharCount(s string) int {
	return utf8.RuneCountInString(s)
}
