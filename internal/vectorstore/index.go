package vectorstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	grpccodes "google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("memoryd.vectorstore.qdrant")

// Config holds configuration for the Qdrant gRPC client.
type Config struct {
	// Host is the Qdrant server hostname or IP address.
	Host string

	// Port is the Qdrant gRPC port (6334, not the 6333 REST port).
	Port int

	// VectorSize is the dimensionality of embeddings. Must match the
	// embedding provider's output dimension.
	VectorSize uint64

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// MaxRetries is the maximum number of retry attempts for transient
	// failures. Default: 3.
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per retry. Default: 1s.
	RetryBackoff time.Duration

	// MaxMessageSize is the maximum gRPC message size in bytes.
	// Default: 50MB.
	MaxMessageSize int

	// CircuitBreakerThreshold is the failure count that opens the
	// circuit. Default: 5.
	CircuitBreakerThreshold int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: invalid port: %d", ErrInvalidConfig, c.Port)
	}
	if c.VectorSize == 0 {
		return fmt.Errorf("%w: vector size required", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults sets default values for unset fields.
func (c *Config) ApplyDefaults() {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBackoff == 0 {
		c.RetryBackoff = time.Second
	}
	if c.MaxMessageSize == 0 {
		c.MaxMessageSize = 50 * 1024 * 1024 // 50MB
	}
	if c.CircuitBreakerThreshold == 0 {
		c.CircuitBreakerThreshold = 5
	}
}

// IsTransientError checks if an error is transient (should retry).
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return false
	}
	switch st.Code() {
	case grpccodes.Unavailable, grpccodes.DeadlineExceeded, grpccodes.Aborted, grpccodes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func isNotFound(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.NotFound
}

// Index maintains per-tenant, per-class Qdrant collections over gRPC.
type Index struct {
	client *qdrant.Client
	config Config
	log    *logging.Logger

	// collections caches collection existence to avoid repeated checks.
	collections sync.Map

	circuitBreaker struct {
		failures int
		lastFail time.Time
		mu       sync.Mutex
	}
}

// New creates an Index and verifies connectivity.
func New(config Config, log *logging.Logger) (*Index, error) {
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	if log == nil {
		log = logging.NewNop()
	}
	log = log.Named("vectorstore")

	if !config.UseTLS {
		log.Warn(context.Background(), "qdrant grpc using plaintext, insecure for production")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   config.Host,
		Port:   config.Port,
		UseTLS: config.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(config.MaxMessageSize),
				grpc.MaxCallSendMsgSize(config.MaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	idx := &Index{client: client, config: config, log: log}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := idx.HealthCheck(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("health check failed: %w", err)
	}
	return idx, nil
}

// Close closes the Qdrant gRPC connection.
func (ix *Index) Close() error {
	if ix.client != nil {
		return ix.client.Close()
	}
	return nil
}

// HealthCheck verifies the Qdrant connection.
func (ix *Index) HealthCheck(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Index.HealthCheck")
	defer span.End()

	if _, err := ix.client.HealthCheck(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("health check failed: %w", err)
	}
	span.SetStatus(codes.Ok, "healthy")
	return nil
}

// retryOperation retries an operation with exponential backoff.
func (ix *Index) retryOperation(ctx context.Context, operationName string, operation func() error) error {
	backoff := ix.config.RetryBackoff

	for attempt := 0; attempt <= ix.config.MaxRetries; attempt++ {
		err := operation()
		if err == nil {
			ix.resetCircuitBreaker()
			return nil
		}

		if ix.isCircuitOpen() {
			return fmt.Errorf("%w: %s: circuit breaker open", ErrUnavailable, operationName)
		}
		if !IsTransientError(err) {
			return fmt.Errorf("%s failed (permanent): %w", operationName, err)
		}
		ix.recordFailure()

		if attempt == ix.config.MaxRetries {
			return fmt.Errorf("%w: %s failed after %d retries: %v", ErrUnavailable, operationName, ix.config.MaxRetries, err)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s canceled: %w", operationName, ctx.Err())
		case <-time.After(backoff):
			backoff *= 2
		}
	}
	return nil
}

func (ix *Index) recordFailure() {
	ix.circuitBreaker.mu.Lock()
	defer ix.circuitBreaker.mu.Unlock()
	ix.circuitBreaker.failures++
	ix.circuitBreaker.lastFail = time.Now()
}

func (ix *Index) resetCircuitBreaker() {
	ix.circuitBreaker.mu.Lock()
	defer ix.circuitBreaker.mu.Unlock()
	ix.circuitBreaker.failures = 0
}

func (ix *Index) isCircuitOpen() bool {
	ix.circuitBreaker.mu.Lock()
	defer ix.circuitBreaker.mu.Unlock()

	if ix.circuitBreaker.failures >= ix.config.CircuitBreakerThreshold {
		// Allow retry after 30 seconds
		if time.Since(ix.circuitBreaker.lastFail) > 30*time.Second {
			ix.circuitBreaker.failures = 0
			return false
		}
		return true
	}
	return false
}

// EnsureCollection creates the tenant/class collection if absent, with the
// class's HNSW tuning.
func (ix *Index) EnsureCollection(ctx context.Context, tenantID string, class Class) (string, error) {
	name, err := CollectionFor(tenantID, class)
	if err != nil {
		return "", err
	}
	if _, ok := ix.collections.Load(name); ok {
		return name, nil
	}

	ctx, span := tracer.Start(ctx, "Index.EnsureCollection")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.String("class", string(class)),
	)

	var exists bool
	err = ix.retryOperation(ctx, "collection_exists", func() error {
		ok, err := ix.client.CollectionExists(ctx, name)
		if err != nil {
			return err
		}
		exists = ok
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("checking collection %s: %w", name, err)
	}

	if !exists {
		tuning := classTuning[class]
		err = ix.retryOperation(ctx, "create_collection", func() error {
			return ix.client.CreateCollection(ctx, &qdrant.CreateCollection{
				CollectionName: name,
				VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
					Size:     ix.config.VectorSize,
					Distance: qdrant.Distance_Cosine,
				}),
				HnswConfig: &qdrant.HnswConfigDiff{
					M:           qdrant.PtrOf(tuning.m),
					EfConstruct: qdrant.PtrOf(tuning.efConstruct),
				},
			})
		})
		if err != nil {
			// Lost a create race with a concurrent writer; treat
			// already-exists as success.
			if !isAlreadyExists(err) {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				return "", fmt.Errorf("creating collection %s: %w", name, err)
			}
		}
		ix.log.Info(ctx, "created vector collection",
			zap.String("collection", name),
			zap.String("class", string(class)),
		)
	}

	ix.collections.Store(name, true)
	span.SetStatus(codes.Ok, "success")
	return name, nil
}

func isAlreadyExists(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == grpccodes.AlreadyExists
}

// Upsert writes points into the tenant's collections, grouped by class.
// Point ids are derived from (class, source id), so re-embedding a record
// replaces its previous point.
func (ix *Index) Upsert(ctx context.Context, tenantID string, points []Point) error {
	ctx, span := tracer.Start(ctx, "Index.Upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("point_count", len(points)))

	if len(points) == 0 {
		return nil
	}

	byClass := make(map[Class][]*qdrant.PointStruct)
	for _, p := range points {
		if !p.Class.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidClass, p.Class)
		}
		if len(p.Vector) == 0 {
			return fmt.Errorf("%w: point %s", ErrEmptyVector, p.SourceID)
		}
		byClass[p.Class] = append(byClass[p.Class], &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(pointID(p.Class, p.SourceID)),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: buildPayload(tenantID, p),
		})
	}

	for class, classPoints := range byClass {
		name, err := ix.EnsureCollection(ctx, tenantID, class)
		if err != nil {
			UpsertsTotal.WithLabelValues(string(class), "error").Add(float64(len(classPoints)))
			return err
		}

		err = ix.retryOperation(ctx, "upsert", func() error {
			_, err := ix.client.Upsert(ctx, &qdrant.UpsertPoints{
				CollectionName: name,
				Points:         classPoints,
			})
			return err
		})
		UpsertsTotal.WithLabelValues(string(class), resultLabel(err)).Add(float64(len(classPoints)))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return fmt.Errorf("upserting %d points to %s: %w", len(classPoints), name, err)
		}
	}

	span.SetStatus(codes.Ok, "success")
	return nil
}

// Get fetches the stored point for a source record, or (nil, nil) if the
// point or its collection does not exist. A point whose payload names a
// different tenant is treated as absent.
func (ix *Index) Get(ctx context.Context, tenantID string, class Class, sourceID string) (*StoredPoint, error) {
	name, err := CollectionFor(tenantID, class)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Index.Get")
	defer span.End()
	span.SetAttributes(attribute.String("collection", name))

	var points []*qdrant.RetrievedPoint
	err = ix.retryOperation(ctx, "get", func() error {
		res, err := ix.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: name,
			Ids:            []*qdrant.PointId{qdrant.NewIDUUID(pointID(class, sourceID))},
			WithPayload:    qdrant.NewWithPayload(true),
			WithVectors:    qdrant.NewWithVectors(true),
		})
		if err != nil {
			if isNotFound(err) {
				res = nil
				return nil
			}
			return err
		}
		points = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("getting point from %s: %w", name, err)
	}
	if len(points) == 0 {
		return nil, nil
	}

	payload := fromQdrantPayload(points[0].Payload)
	if owner, _ := payload[payloadKeyTenant].(string); owner != tenantID {
		ix.log.Warn(ctx, "point tenant mismatch, treating as absent",
			zap.String("collection", name),
			zap.String("source_id", sourceID),
		)
		return nil, nil
	}

	sp := &StoredPoint{SourceID: sourceID, Payload: payload}
	if hash, ok := payload[payloadKeyHash].(string); ok {
		sp.Hash = hash
	}
	if v := points[0].GetVectors().GetVector(); v != nil {
		sp.Vector = v.GetData()
	}
	span.SetStatus(codes.Ok, "success")
	return sp, nil
}

// matchCondition builds an exact-match payload condition for one filter
// entry. Only scalar keyword/integer/boolean matches are supported.
func matchCondition(key string, value any) (*qdrant.Condition, error) {
	var match *qdrant.Match
	switch v := value.(type) {
	case string:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: v}}
	case bool:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Boolean{Boolean: v}}
	case int:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: int64(v)}}
	case int64:
		match = &qdrant.Match{MatchValue: &qdrant.Match_Integer{Integer: v}}
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T for key %q", ErrInvalidFilter, value, key)
	}
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{Key: key, Match: match},
		},
	}, nil
}

// Search performs similarity search within one tenant/class collection.
// The tenant filter is always conjoined with caller-supplied filters, even
// though collections are already per-tenant; filters on the reserved tenant
// key are rejected rather than overridden. Hits scoring below
// scoreThreshold are dropped (zero disables the threshold). A missing
// collection yields no hits, not an error.
func (ix *Index) Search(ctx context.Context, tenantID string, class Class, vector []float32, k int, scoreThreshold float32, filters map[string]any) ([]SearchHit, error) {
	name, err := CollectionFor(tenantID, class)
	if err != nil {
		return nil, err
	}
	if len(vector) == 0 {
		return nil, ErrEmptyVector
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidConfig, k)
	}
	const maxK = 1000
	if k > maxK {
		k = maxK
	}

	ctx, span := tracer.Start(ctx, "Index.Search")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("k", k),
	)

	conditions := make([]*qdrant.Condition, 0, len(filters)+1)
	tenantCond, err := matchCondition(payloadKeyTenant, tenantID)
	if err != nil {
		return nil, err
	}
	conditions = append(conditions, tenantCond)
	for key, value := range filters {
		if key == payloadKeyTenant {
			return nil, fmt.Errorf("%w: key %q is reserved", ErrInvalidFilter, key)
		}
		cond, err := matchCondition(key, value)
		if err != nil {
			return nil, err
		}
		conditions = append(conditions, cond)
	}
	filter := &qdrant.Filter{Must: conditions}

	query := &qdrant.QueryPoints{
		CollectionName: name,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         filter,
	}
	if scoreThreshold > 0 {
		query.ScoreThreshold = qdrant.PtrOf(scoreThreshold)
	}

	start := time.Now()
	var results []*qdrant.ScoredPoint
	err = ix.retryOperation(ctx, "search", func() error {
		res, err := ix.client.Query(ctx, query)
		if err != nil {
			if isNotFound(err) {
				res = nil
				return nil
			}
			return err
		}
		results = res
		return nil
	})
	SearchDuration.Observe(time.Since(start).Seconds())
	SearchesTotal.WithLabelValues(string(class), resultLabel(err)).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("searching %s: %w", name, err)
	}

	hits := make([]SearchHit, 0, len(results))
	for _, point := range results {
		payload := fromQdrantPayload(point.Payload)
		hit := SearchHit{Score: point.Score, Payload: payload}
		if id, ok := payload[payloadKeyID].(string); ok {
			hit.SourceID = id
		}
		if hash, ok := payload[payloadKeyHash].(string); ok {
			hit.Hash = hash
		}
		hits = append(hits, hit)
	}

	span.SetAttributes(attribute.Int("results_count", len(hits)))
	span.SetStatus(codes.Ok, "success")
	return hits, nil
}

// Delete removes the point for one source record. Missing points and
// missing collections are not errors.
func (ix *Index) Delete(ctx context.Context, tenantID string, class Class, sourceID string) error {
	_, err := ix.DeleteBatch(ctx, tenantID, class, []string{sourceID})
	return err
}

// DeleteBatch removes points for several source records in one call and
// reports how many of the named points the tenant actually owned. Points
// whose payload names a different tenant are left untouched and not
// counted.
func (ix *Index) DeleteBatch(ctx context.Context, tenantID string, class Class, sourceIDs []string) (int, error) {
	name, err := CollectionFor(tenantID, class)
	if err != nil {
		return 0, err
	}
	if len(sourceIDs) == 0 {
		return 0, nil
	}

	ctx, span := tracer.Start(ctx, "Index.DeleteBatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("collection", name),
		attribute.Int("id_count", len(sourceIDs)),
	)

	candidates := make([]*qdrant.PointId, len(sourceIDs))
	for i, sourceID := range sourceIDs {
		candidates[i] = qdrant.NewIDUUID(pointID(class, sourceID))
	}

	var retrieved []*qdrant.RetrievedPoint
	err = ix.retryOperation(ctx, "delete_lookup", func() error {
		res, err := ix.client.Get(ctx, &qdrant.GetPoints{
			CollectionName: name,
			Ids:            candidates,
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			if isNotFound(err) {
				res = nil
				return nil
			}
			return err
		}
		retrieved = res
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("resolving points in %s: %w", name, err)
	}

	owned := make([]*qdrant.PointId, 0, len(retrieved))
	for _, point := range retrieved {
		payload := fromQdrantPayload(point.Payload)
		if owner, _ := payload[payloadKeyTenant].(string); owner == tenantID {
			owned = append(owned, point.Id)
		}
	}
	if len(owned) == 0 {
		span.SetStatus(codes.Ok, "success")
		return 0, nil
	}

	err = ix.retryOperation(ctx, "delete", func() error {
		_, err := ix.client.Delete(ctx, &qdrant.DeletePoints{
			CollectionName: name,
			Points: &qdrant.PointsSelector{
				PointsSelectorOneOf: &qdrant.PointsSelector_Points{
					Points: &qdrant.PointsIdsList{Ids: owned},
				},
			},
		})
		if err != nil && isNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("deleting points from %s: %w", name, err)
	}

	span.SetAttributes(attribute.Int("deleted_count", len(owned)))
	span.SetStatus(codes.Ok, "success")
	return len(owned), nil
}

// DeleteAllForTenant drops every collection owned by the tenant. Used by
// whole-tenant erasure; the graph delete has already committed by the time
// this runs.
func (ix *Index) DeleteAllForTenant(ctx context.Context, tenantID string) error {
	ctx, span := tracer.Start(ctx, "Index.DeleteAllForTenant")
	defer span.End()

	var firstErr error
	for _, class := range Classes() {
		name, err := CollectionFor(tenantID, class)
		if err != nil {
			return err
		}

		err = ix.retryOperation(ctx, "delete_collection", func() error {
			err := ix.client.DeleteCollection(ctx, name)
			if err != nil && isNotFound(err) {
				return nil
			}
			return err
		})
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("deleting collection %s: %w", name, err)
		}
		ix.collections.Delete(name)
	}

	TenantErasures.WithLabelValues(resultLabel(firstErr)).Inc()
	if firstErr != nil {
		span.RecordError(firstErr)
		span.SetStatus(codes.Error, firstErr.Error())
		return firstErr
	}
	span.SetStatus(codes.Ok, "success")
	return nil
}
