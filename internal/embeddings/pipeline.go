package embeddings

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// defaultChunkSize bounds how many texts go to the provider per call. One
// oversized batch failing poisons only its own chunk.
const defaultChunkSize = 10

// Chunk retry bounds. Retrying lives here, at the batch wrapper, so
// providers stay simple.
const (
	chunkMaxRetries   = 2
	chunkRetryBackoff = 200 * time.Millisecond
)

// Request asks for one record's text to be embedded.
type Request struct {
	// Class selects the target collection and cache partition.
	Class vectorstore.Class

	// SourceID is the graph record id.
	SourceID string

	// Text is the content to embed.
	Text string

	// Payload is carried through to the resulting vector point.
	Payload map[string]any
}

// Result is one successfully embedded request.
type Result struct {
	Request

	// Vector is the embedding.
	Vector []float32

	// Hash is the content hash of Text.
	Hash string

	// Cached reports whether the vector came from the cache rather than
	// the provider.
	Cached bool
}

// Point converts the result to a vector store point.
func (r Result) Point() vectorstore.Point {
	return vectorstore.Point{
		SourceID: r.SourceID,
		Class:    r.Class,
		Vector:   r.Vector,
		Hash:     r.Hash,
		Payload:  r.Payload,
	}
}

// Failure is one request that could not be embedded.
type Failure struct {
	Class    vectorstore.Class
	SourceID string
	Err      error
}

// BatchOutcome reports a batch embedding run. Every request lands in
// exactly one of Results or Failures; a provider outage fails requests, it
// never fails the batch call itself.
type BatchOutcome struct {
	Results  []Result
	Failures []Failure
}

// Points converts all successful results to vector store points.
func (o BatchOutcome) Points() []vectorstore.Point {
	points := make([]vectorstore.Point, len(o.Results))
	for i, r := range o.Results {
		points[i] = r.Point()
	}
	return points
}

// Pipeline embeds record text through a provider with content-hash caching
// and chunked batching.
type Pipeline struct {
	provider  Provider
	cache     *Cache
	chunkSize int
	log       *logging.Logger
}

// NewPipeline creates a Pipeline. A nil cache disables caching; chunkSize
// of zero selects the default.
func NewPipeline(provider Provider, cache *Cache, chunkSize int, log *logging.Logger) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &Pipeline{
		provider:  provider,
		cache:     cache,
		chunkSize: chunkSize,
		log:       log.Named("embeddings"),
	}
}

// Dimension returns the provider's embedding dimension.
func (p *Pipeline) Dimension() int {
	return p.provider.Dimension()
}

// EmbedQuery embeds ad-hoc query text. Queries are not cached: they rarely
// repeat and would crowd record vectors out of the cache.
func (p *Pipeline) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return p.provider.EmbedQuery(ctx, text)
}

// Embed embeds a single request through the cache. Errors propagate, unlike
// EmbedBatch where they become per-item failures.
func (p *Pipeline) Embed(ctx context.Context, req Request) (Result, error) {
	out := p.EmbedBatch(ctx, []Request{req})
	if len(out.Failures) > 0 {
		return Result{}, out.Failures[0].Err
	}
	return out.Results[0], nil
}

// embedChunk invokes the provider with bounded retries.
func (p *Pipeline) embedChunk(ctx context.Context, texts []string) ([][]float32, error) {
	backoff := chunkRetryBackoff
	var lastErr error
	for attempt := 0; attempt <= chunkMaxRetries; attempt++ {
		vectors, err := p.provider.EmbedDocuments(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if attempt == chunkMaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil, lastErr
}

// EmbedBatch embeds all requests, serving unchanged texts from the cache
// and chunking the rest through the provider. Provider errors mark the
// affected chunk's requests as failed; the rest of the batch proceeds.
func (p *Pipeline) EmbedBatch(ctx context.Context, reqs []Request) BatchOutcome {
	var out BatchOutcome
	var pending []Request

	for _, req := range reqs {
		if !req.Class.Valid() {
			out.Failures = append(out.Failures, Failure{
				Class: req.Class, SourceID: req.SourceID,
				Err: fmt.Errorf("%w: %q", vectorstore.ErrInvalidClass, req.Class),
			})
			continue
		}
		if req.Text == "" {
			out.Failures = append(out.Failures, Failure{
				Class: req.Class, SourceID: req.SourceID, Err: ErrEmptyInput,
			})
			continue
		}

		hash := ContentHash(req.Text)
		if p.cache != nil {
			if vec := p.cache.Get(CacheKey{Class: req.Class, SourceID: req.SourceID, Hash: hash}); vec != nil {
				out.Results = append(out.Results, Result{
					Request: req, Vector: vec, Hash: hash, Cached: true,
				})
				continue
			}
		}
		pending = append(pending, req)
	}

	for start := 0; start < len(pending); start += p.chunkSize {
		end := start + p.chunkSize
		if end > len(pending) {
			end = len(pending)
		}
		chunk := pending[start:end]

		texts := make([]string, len(chunk))
		for i, req := range chunk {
			texts[i] = req.Text
		}

		vectors, err := p.embedChunk(ctx, texts)
		if err == nil && len(vectors) != len(chunk) {
			err = fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(vectors), len(chunk))
		}
		if err != nil {
			p.log.Warn(ctx, "embedding chunk failed",
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			for _, req := range chunk {
				out.Failures = append(out.Failures, Failure{
					Class: req.Class, SourceID: req.SourceID, Err: err,
				})
			}
			continue
		}

		for i, req := range chunk {
			hash := ContentHash(req.Text)
			if p.cache != nil {
				p.cache.Put(CacheKey{Class: req.Class, SourceID: req.SourceID, Hash: hash}, vectors[i])
			}
			out.Results = append(out.Results, Result{
				Request: req, Vector: vectors[i], Hash: hash,
			})
		}
	}

	return out
}
