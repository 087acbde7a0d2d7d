package postprocessors

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/askdoc-labs/askdoc-core/internal/core/domain"
	"github.com/askdoc-labs/askdoc-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// Pipeline implements PostProcessorPipeline.
// It chains multiple post-processors in order, starting with a Chunker.
type Pipeline struct {
	mu         sync.RWMutex
	processors []driven.PostProcessor
	sorted     bool
}

// NewPipeline creates a new post-processor pipeline.
func NewPipeline() *Pipeline {
	return &Pipeline{
		processors: make([]driven.PostProcessor, 0),
	}
}

// Add adds a processor to the pipeline.
// Processors are sorted by Order() before processing.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.processors = append(p.processors, processor)
	p.sorted = false
}

// Process applies all processors in order.
// Input is the normalised document content.
// Output is the processed chunks ready for embedding/indexing.
// Empty or whitespace-only content yields no chunks.
func (p *Pipeline) Process(content string) []driven.Chunk {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	p.mu.Lock()
	if !p.sorted {
		sort.Slice(p.processors, func(i, j int) bool {
			return p.processors[i].Order() < p.processors[j].Order()
		})
		p.sorted = true
	}
	p.mu.Unlock()

	p.mu.RLock()
	processors := make([]driven.PostProcessor, len(p.processors))
	copy(processors, p.processors)
	p.mu.RUnlock()

	// Start with a single chunk containing all content
	chunks := []driven.Chunk{
		{
			Content:     content,
			Position:    0,
			StartOffset: 0,
			EndOffset:   len(content),
		},
	}

	for _, proc := range processors {
		chunks = proc.Process(chunks)
	}

	return chunks
}

// List returns processor names in order.
func (p *Pipeline) List() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}

// DefaultPipeline creates a pipeline with the default chunker.
func DefaultPipeline() *Pipeline {
	p, _ := NewPipelineWith(DefaultChunkConfig()) // defaults are always valid
	return p
}

// NewPipelineWith creates a pipeline with a chunker for the given config.
func NewPipelineWith(cfg ChunkConfig) (*Pipeline, error) {
	chunker, err := NewChunker(cfg)
	if err != nil {
		return nil, err
	}
	p := NewPipeline()
	p.Add(chunker)
	return p, nil
}

// ChunkConfig configures the chunker behavior.
type ChunkConfig struct {
	// MaxChunkSize is the maximum characters per chunk
	MaxChunkSize int

	// Overlap is the character overlap carried from the tail of one chunk
	// into the head of the next
	Overlap int

	// PreserveSentences tries to break at sentence boundaries
	PreserveSentences bool

	// PreserveParagraphs tries to break at paragraph boundaries
	PreserveParagraphs bool
}

// DefaultChunkConfig returns sensible defaults.
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{
		MaxChunkSize:       1200,
		Overlap:            150,
		PreserveSentences:  true,
		PreserveParagraphs: true,
	}
}

// Chunker splits content into overlapping chunks.
// This is the first processor in the pipeline (Order = 0).
//
// Guarantees: each chunk's Content equals the input slice
// [StartOffset:EndOffset]; chunk spans cover the whole input; start offsets
// strictly increase; every cut lands on a rune boundary, so chunks are
// valid UTF-8 whenever the input is; no chunk exceeds MaxChunkSize unless
// a single rune is wider than the budget.
type Chunker struct {
	config ChunkConfig
}

// Verify interface compliance
var _ driven.PostProcessor = (*Chunker)(nil)

// NewChunker creates a new chunker with the given config.
// The overlap must be non-negative and strictly smaller than the chunk
// size, otherwise chunking could never make progress.
func NewChunker(config ChunkConfig) (*Chunker, error) {
	if config.MaxChunkSize <= 0 {
		return nil, fmt.Errorf("max chunk size must be positive, got %d: %w",
			config.MaxChunkSize, domain.ErrInvalidConfig)
	}
	if config.Overlap < 0 || config.Overlap >= config.MaxChunkSize {
		return nil, fmt.Errorf("overlap %d must be in [0, %d): %w",
			config.Overlap, config.MaxChunkSize, domain.ErrInvalidConfig)
	}
	return &Chunker{config: config}, nil
}

// Process splits content into chunks.
func (c *Chunker) Process(chunks []driven.Chunk) []driven.Chunk {
	var result []driven.Chunk
	position := 0

	for _, chunk := range chunks {
		newChunks := c.splitContent(chunk.Content, chunk.StartOffset, &position)
		result = append(result, newChunks...)
	}

	return result
}

// Name returns the processor name.
func (c *Chunker) Name() string {
	return "chunker"
}

// Order returns 0 - chunker runs first.
func (c *Chunker) Order() int {
	return 0
}

// splitContent splits content into overlapping chunks.
func (c *Chunker) splitContent(content string, baseOffset int, position *int) []driven.Chunk {
	if len(content) <= c.config.MaxChunkSize {
		chunk := driven.Chunk{
			Content:     content,
			Position:    *position,
			StartOffset: baseOffset,
			EndOffset:   baseOffset + len(content),
		}
		*position++
		return []driven.Chunk{chunk}
	}

	var chunks []driven.Chunk
	start := 0

	for start < len(content) {
		end := start + c.config.MaxChunkSize
		if end > len(content) {
			end = len(content)
		}
		end = snapToRuneStart(content, start, end)

		// Try to find a good break point
		if end < len(content) && c.config.PreserveSentences {
			breakPoint := c.findBreakPoint(content, start, end)
			if breakPoint > start {
				end = breakPoint
			}
		}

		chunk := driven.Chunk{
			Content:     content[start:end],
			Position:    *position,
			StartOffset: baseOffset + start,
			EndOffset:   baseOffset + end,
		}
		chunks = append(chunks, chunk)
		*position++

		if end >= len(content) {
			break
		}

		// Move start with overlap, ensuring we always advance
		nextStart := end - c.config.Overlap
		if nextStart <= start {
			nextStart = start + 1
		}
		// Never begin a chunk mid-rune
		for nextStart < end && !utf8.RuneStart(content[nextStart]) {
			nextStart++
		}
		start = nextStart
	}

	return chunks
}

// snapToRuneStart moves end back to the nearest rune boundary so a hard
// cut never splits a multi-byte rune. When the window is narrower than
// the rune at start, the cut moves forward past it instead.
func snapToRuneStart(content string, start, end int) int {
	for end > start && end < len(content) && !utf8.RuneStart(content[end]) {
		end--
	}
	if end == start {
		_, size := utf8.DecodeRuneInString(content[start:])
		end = start + size
	}
	return end
}

// findBreakPoint finds a good break point for chunking.
func (c *Chunker) findBreakPoint(content string, start, maxEnd int) int {
	searchStart := maxEnd - 100
	if searchStart < start {
		searchStart = start
	}

	searchContent := content[searchStart:maxEnd]

	// Try to break at paragraph boundary (double newline)
	if c.config.PreserveParagraphs {
		if idx := strings.LastIndex(searchContent, "\n\n"); idx != -1 {
			return searchStart + idx + 2 // After the double newline
		}
	}

	// Try to break at sentence boundary
	if c.config.PreserveSentences {
		sentenceEnders := []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}
		bestIdx := -1

		for _, ender := range sentenceEnders {
			if idx := strings.LastIndex(searchContent, ender); idx != -1 {
				endPos := idx + len(ender)
				if endPos > bestIdx {
					bestIdx = endPos
				}
			}
		}

		if bestIdx > 0 {
			return searchStart + bestIdx
		}
	}

	// Try to break at word boundary
	if idx := strings.LastIndex(searchContent, " "); idx != -1 {
		return searchStart + idx + 1
	}

	// No good break point found, use maxEnd
	return maxEnd
}
