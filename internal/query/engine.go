package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/medleyre/leasehound/internal/ai"
	qerrors "github.com/medleyre/leasehound/internal/errors"
	"github.com/medleyre/leasehound/internal/search"
	"github.com/medleyre/leasehound/internal/session"
	"github.com/medleyre/leasehound/internal/store"
)

// ErrNilDependency is returned when a required dependency is nil.
var ErrNilDependency = errors.New("nil dependency")

// Config holds engine tuning parameters.
type Config struct {
	// TopN is the number of passages handed to the generator.
	TopN int

	// ContextWindow is the number of recent turns used for reformulation
	// and generation.
	ContextWindow int

	// SessionIdleTimeout evicts sessions idle longer than this. Each chat
	// turn runs a sweep. Zero disables eviction.
	SessionIdleTimeout time.Duration

	// MaxSessions caps live sessions; past the cap the least recently
	// active session is evicted. Zero means unlimited.
	MaxSessions int
}

// DefaultEngineConfig returns the engine defaults.
func DefaultEngineConfig() Config {
	return Config{
		TopN:          10,
		ContextWindow: session.DefaultContextWindow,
	}
}

// Engine orchestrates retrieval, conversation state, and generation.
type Engine struct {
	lexical   store.LexicalIndex
	vector    store.VectorIndex
	chunks    store.ChunkStore
	embedder  ai.Embedder
	generator ai.Generator

	retriever    *search.Retriever
	reformulator *Reformulator
	sessions     *session.Manager

	config Config
	logger *slog.Logger
}

// NewEngine creates the query engine. All dependencies are required.
func NewEngine(
	lexical store.LexicalIndex,
	vector store.VectorIndex,
	chunks store.ChunkStore,
	embedder ai.Embedder,
	generator ai.Generator,
	retriever *search.Retriever,
	config Config,
) (*Engine, error) {
	if lexical == nil {
		return nil, fmt.Errorf("%w: lexical index is required", ErrNilDependency)
	}
	if vector == nil {
		return nil, fmt.Errorf("%w: vector index is required", ErrNilDependency)
	}
	if chunks == nil {
		return nil, fmt.Errorf("%w: chunk store is required", ErrNilDependency)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: embedder is required", ErrNilDependency)
	}
	if generator == nil {
		return nil, fmt.Errorf("%w: generator is required", ErrNilDependency)
	}
	if retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", ErrNilDependency)
	}

	if config.TopN <= 0 {
		config.TopN = DefaultEngineConfig().TopN
	}
	if config.ContextWindow <= 0 {
		config.ContextWindow = DefaultEngineConfig().ContextWindow
	}

	sessions := session.NewManager()
	sessions.SetMaxSessions(config.MaxSessions)

	return &Engine{
		lexical:      lexical,
		vector:       vector,
		chunks:       chunks,
		embedder:     embedder,
		generator:    generator,
		retriever:    retriever,
		reformulator: NewReformulator(generator),
		sessions:     sessions,
		config:       config,
		logger:       slog.Default().With("component", "query-engine"),
	}, nil
}

// Sessions exposes the session manager for listing and eviction.
func (e *Engine) Sessions() *session.Manager {
	return e.sessions
}

// Query answers a standalone question with no conversation state.
func (e *Engine) Query(ctx context.Context, question string, opts QueryOptions) (*AnswerResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "question is empty", nil)
	}

	var filter store.Filter
	if opts.Tenant != "" {
		filter = store.Filter{store.MetadataKeyTenant: opts.Tenant}
	}

	results, err := e.retriever.Retrieve(ctx, question, search.Options{
		TopN:   opts.TopN,
		Filter: filter,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, qerrors.NoRelevantContext(question)
	}

	answer, err := e.generate(ctx, question, results, nil)
	if err != nil {
		return nil, err
	}

	// ActiveEntity stays empty: it is session-derived state and a one-shot
	// query has no session.
	return &AnswerResult{
		Answer:             answer,
		SupportingChunkIDs: chunkIDs(results),
		UsedQuery:          question,
	}, nil
}

// Chat answers an utterance within a conversation. The turn is appended to
// the session only after the full pipeline succeeds; a failure at any
// stage leaves the history untouched.
func (e *Engine) Chat(ctx context.Context, sessionID, utterance string) (*AnswerResult, error) {
	start := time.Now()

	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "utterance is empty", nil)
	}

	if e.config.SessionIdleTimeout > 0 {
		if evicted := e.sessions.EvictStale(e.config.SessionIdleTimeout); evicted > 0 {
			e.logger.Debug("stale sessions evicted", slog.Int("count", evicted))
		}
	}

	sess := e.sessions.GetOrCreate(sessionID)

	// The entity transition is only peeked at here, to build the retrieval
	// filter; it commits with the turn in AppendTurn so a failed turn
	// leaves the session untouched.
	mentioned := session.ExtractEntities(utterance, e.knownTenants(ctx))
	plannedEntity, focused := sess.PeekEntity(mentioned)

	history := sess.RecentContext(e.config.ContextWindow)

	// Retrieval uses the reformulated query; generation below uses the
	// original utterance so the answer addresses what was actually asked.
	usedQuery, degraded := e.reformulator.Reformulate(ctx, utterance, history)
	if degraded {
		e.logger.Warn("reformulation degraded",
			slog.String("session_id", sess.ID),
			slog.String("utterance", utterance))
	}

	var filter store.Filter
	if focused {
		filter = store.Filter{store.MetadataKeyTenant: plannedEntity}
	}

	results, err := e.retriever.Retrieve(ctx, usedQuery, search.Options{
		TopN:   e.config.TopN,
		Filter: filter,
	})
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, qerrors.NoRelevantContext(usedQuery)
	}

	answer, err := e.generate(ctx, utterance, results, history)
	if err != nil {
		return nil, err
	}

	turn := sess.AppendTurn(utterance, answer, mentioned, session.ExtractTopics(utterance))
	activeEntity, _ := sess.ActiveEntity()

	e.logger.Info("chat_turn_complete",
		slog.String("session_id", sess.ID),
		slog.Int("ordinal", turn.Ordinal),
		slog.String("active_entity", activeEntity),
		slog.Int("passages", len(results)),
		slog.Duration("duration", time.Since(start)))

	return &AnswerResult{
		Answer:             answer,
		SupportingChunkIDs: chunkIDs(results),
		UsedQuery:          usedQuery,
		ActiveEntity:       activeEntity,
		SessionID:          sess.ID,
		Suggestions:        sess.SuggestFollowUps(),
	}, nil
}

// Search runs raw hybrid retrieval without generation.
func (e *Engine) Search(ctx context.Context, query string, opts QueryOptions) ([]*search.Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "query is empty", nil)
	}

	var filter store.Filter
	if opts.Tenant != "" {
		filter = store.Filter{store.MetadataKeyTenant: opts.Tenant}
	}

	return e.retriever.Retrieve(ctx, query, search.Options{
		TopN:   opts.TopN,
		Filter: filter,
		Mode:   opts.Mode,
	})
}

// CompareTenants answers a question against each tenant's lease separately
// and generates a comparison over the combined evidence.
func (e *Engine) CompareTenants(ctx context.Context, question string, tenants []string) (*Comparison, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, qerrors.New(qerrors.ErrCodeQueryEmpty, "question is empty", nil)
	}
	if len(tenants) < 2 {
		return nil, qerrors.New(qerrors.ErrCodeInvalidInput,
			"comparison requires at least two tenants", nil)
	}

	// Per-tenant retrievals are independent, so they run in parallel.
	perTenant := make([][]*search.Result, len(tenants))
	g, gctx := errgroup.WithContext(ctx)
	for i, tenant := range tenants {
		g.Go(func() error {
			results, err := e.retriever.Retrieve(gctx, question, search.Options{
				TopN:   e.config.TopN,
				Filter: store.Filter{store.MetadataKeyTenant: tenant},
			})
			if err != nil {
				return err
			}
			perTenant[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sources := make(map[string][]*search.Result, len(tenants))
	var passages []string
	for i, tenant := range tenants {
		sources[tenant] = perTenant[i]
		for _, r := range perTenant[i] {
			passages = append(passages, fmt.Sprintf("(%s) %s", tenant, r.Chunk.Text))
		}
	}

	if len(passages) == 0 {
		return nil, qerrors.NoRelevantContext(question)
	}

	prompt := fmt.Sprintf("Compare the tenants %s on this question: %s",
		strings.Join(tenants, ", "), question)

	answer, err := e.generator.GenerateAnswer(ctx, prompt, passages, nil)
	if err != nil {
		return nil, wrapGenerationError(err)
	}

	return &Comparison{Answer: answer, Sources: sources}, nil
}

// Index embeds chunks and adds them to all three stores. The chunk store
// is written first: it is the source of truth, and a chunk known to an
// index but missing from the store is a retrieval error.
func (e *Engine) Index(ctx context.Context, chunks []*store.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
		ids[i] = c.ID
	}

	embeddings, err := e.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("generate embeddings: %w", err)
	}

	if err := e.chunks.SaveChunks(ctx, chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}

	if err := e.lexical.Index(ctx, chunks); err != nil {
		return fmt.Errorf("index in lexical: %w", err)
	}

	if err := e.vector.Add(ctx, ids, embeddings); err != nil {
		return fmt.Errorf("add vectors: %w", err)
	}

	e.logger.Info("chunks_indexed", slog.Int("count", len(chunks)))

	return nil
}

// Delete removes chunks everywhere. Indices are cleared before the chunk
// store: an id still present in an index but gone from the store would
// surface as a dangling-chunk retrieval error, so that window is never
// opened.
func (e *Engine) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	if err := e.lexical.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete from lexical: %w", err)
	}

	if err := e.vector.Delete(ctx, ids); err != nil {
		return fmt.Errorf("delete from vector: %w", err)
	}

	if err := e.chunks.DeleteChunks(ctx, ids); err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	return nil
}

// Stats returns engine statistics.
func (e *Engine) Stats(ctx context.Context) (*Stats, error) {
	chunkCount, err := e.chunks.Count(ctx)
	if err != nil {
		return nil, err
	}

	lexicalCount, err := e.lexical.Count()
	if err != nil {
		return nil, err
	}

	tenants, err := e.chunks.Tenants(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		ChunkCount:   chunkCount,
		LexicalCount: lexicalCount,
		VectorCount:  e.vector.Count(),
		Tenants:      tenants,
		SessionCount: e.sessions.Count(),
	}, nil
}

// Close releases all store resources.
func (e *Engine) Close() error {
	var errs []error

	if err := e.lexical.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.vector.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := e.chunks.Close(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// generate produces an answer over the retrieved passages.
func (e *Engine) generate(ctx context.Context, question string, results []*search.Result, history []ai.Exchange) (string, error) {
	passages := make([]string, len(results))
	for i, r := range results {
		passages[i] = r.Chunk.Text
	}

	answer, err := e.generator.GenerateAnswer(ctx, question, passages, history)
	if err != nil {
		return "", wrapGenerationError(err)
	}
	if strings.TrimSpace(answer) == "" {
		return "", qerrors.GenerationFailed(fmt.Errorf("empty answer"))
	}

	return answer, nil
}

// knownTenants returns the tenants in the store, or nil when the lookup
// fails. Entity tracking degrades gracefully without it.
func (e *Engine) knownTenants(ctx context.Context) []string {
	tenants, err := e.chunks.Tenants(ctx)
	if err != nil {
		e.logger.Warn("tenant lookup failed, entity tracking disabled for turn",
			slog.String("error", err.Error()))
		return nil
	}
	return tenants
}

func wrapGenerationError(err error) error {
	if qerrors.GetCode(err) != "" {
		return err
	}
	return qerrors.GenerationFailed(err)
}

func chunkIDs(results []*search.Result) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}
	return ids
}
