package service

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"github.com/cloo-solutions/postcraft/internal/domain"
)

// ChunkConfig controls chunking for content embeddings.
type ChunkConfig struct {
	MaxChars  int
	MinChars  int
	Overlap   int
	MaxChunks int
}

// DefaultChunkConfig provides sane defaults for chunking.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChars:  1200,
		MinChars:  400,
		Overlap:   200,
		MaxChunks: 40,
	}
}

var (
	scriptPattern  = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</\s*(script|style|noscript)\s*>`)
	commentPattern = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockPattern   = regexp.MustCompile(`(?is)<(h1|h2|h3|p|li|blockquote)[^>]*>(.*?)</\s*(h1|h2|h3|p|li|blockquote)\s*>`)
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
)

// ChunkHTML splits a page into retrieval chunks along its structural
// boundaries. Headings start a new section and label the chunks that follow
// them; each chunk carries the tag of the block it came from. Whitespace-only
// blocks are dropped and chunk indexes are contiguous from zero.
func ChunkHTML(pageHTML string, fields map[string]string, cfg ChunkConfig) []domain.Chunk {
	if cfg.MaxChars <= 0 {
		cfg = DefaultChunkConfig()
	}

	clean := scriptPattern.ReplaceAllString(pageHTML, " ")
	clean = commentPattern.ReplaceAllString(clean, " ")

	blocks := blockPattern.FindAllStringSubmatch(clean, -1)
	if len(blocks) == 0 {
		// No recognizable structure: chunk the stripped text as one section.
		return chunkSection(stripTags(clean), "", "", fields, cfg, nil)
	}

	var chunks []domain.Chunk
	heading := ""
	for _, block := range blocks {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		tag := strings.ToLower(block[1])
		text := stripTags(block[2])
		if text == "" {
			continue
		}

		if tag == "h1" || tag == "h2" || tag == "h3" {
			heading = text
			continue
		}

		chunks = chunkSection(text, heading, tag, fields, cfg, chunks)
	}
	return chunks
}

// chunkSection window-splits one block of text and appends the resulting
// chunks, continuing the running chunk index.
func chunkSection(text, heading, parentTag string, fields map[string]string, cfg ChunkConfig, chunks []domain.Chunk) []domain.Chunk {
	for _, piece := range chunkText(text, cfg) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}
		chunks = append(chunks, domain.Chunk{
			Text: piece,
			Metadata: domain.ChunkMetadata{
				Fields:     fields,
				ChunkIndex: len(chunks),
				Heading:    heading,
				ParentTag:  parentTag,
			},
		})
	}
	return chunks
}

func stripTags(fragment string) string {
	text := tagPattern.ReplaceAllString(fragment, " ")
	text = html.UnescapeString(text)
	return strings.Join(strings.Fields(text), " ")
}

// chunkText splits text into windows of at most MaxChars runes, preferring to
// cut on whitespace past MinChars, with Overlap runes carried between
// consecutive windows.
func chunkText(text string, cfg ChunkConfig) []string {
	clean := strings.TrimSpace(text)
	if clean == "" {
		return nil
	}
	runes := []rune(clean)
	if len(runes) <= cfg.MaxChars {
		return []string{clean}
	}

	chunks := make([]string, 0, 8)
	start := 0
	for start < len(runes) {
		if cfg.MaxChunks > 0 && len(chunks) >= cfg.MaxChunks {
			break
		}

		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 {
			if end-start > cfg.Overlap {
				nextStart = end - cfg.Overlap
			}
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}

	return chunks
}
