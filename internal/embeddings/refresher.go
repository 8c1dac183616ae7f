package embeddings

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memoryd/internal/logging"
	"github.com/fyrsmithlabs/memoryd/internal/vectorstore"
)

// Upserter receives freshly embedded points. Satisfied by
// *vectorstore.Index.
type Upserter interface {
	Upsert(ctx context.Context, tenantID string, points []vectorstore.Point) error
}

// refreshJob is one tenant's pending re-embedding work.
type refreshJob struct {
	tenantID string
	requests []Request
}

// AsyncRefresher keeps the vector index converging with the graph without
// putting embedding latency on the write path. Graph writes enqueue refresh
// jobs; a single worker embeds and upserts them in the background. When the
// queue is full the job is dropped and logged: the index is derived state
// and a dropped refresh only delays convergence until the next write or a
// rebuild.
type AsyncRefresher struct {
	pipeline *Pipeline
	sink     Upserter
	log      *logging.Logger

	jobs chan refreshJob
	wg   sync.WaitGroup
	stop chan struct{}
	once sync.Once
}

// defaultQueueDepth bounds in-flight refresh jobs.
const defaultQueueDepth = 256

// NewAsyncRefresher creates a refresher. queueDepth of zero selects the
// default.
func NewAsyncRefresher(pipeline *Pipeline, sink Upserter, queueDepth int, log *logging.Logger) *AsyncRefresher {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	if log == nil {
		log = logging.NewNop()
	}
	return &AsyncRefresher{
		pipeline: pipeline,
		sink:     sink,
		log:      log.Named("refresher"),
		jobs:     make(chan refreshJob, queueDepth),
		stop:     make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (r *AsyncRefresher) Start() {
	r.wg.Add(1)
	go r.run()
}

// Stop drains queued jobs and waits for the worker to exit.
func (r *AsyncRefresher) Stop() {
	r.once.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// Enqueue schedules requests for background embedding. It never blocks the
// caller: a full queue drops the job with a warning.
func (r *AsyncRefresher) Enqueue(tenantID string, requests []Request) {
	if len(requests) == 0 {
		return
	}
	select {
	case r.jobs <- refreshJob{tenantID: tenantID, requests: requests}:
	default:
		r.log.Warn(context.Background(), "refresh queue full, dropping job",
			zap.String("tenant_id", tenantID),
			zap.Int("request_count", len(requests)),
		)
	}
}

func (r *AsyncRefresher) run() {
	defer r.wg.Done()
	for {
		select {
		case job := <-r.jobs:
			r.process(job)
		case <-r.stop:
			// Drain whatever was queued before the stop.
			for {
				select {
				case job := <-r.jobs:
					r.process(job)
				default:
					return
				}
			}
		}
	}
}

func (r *AsyncRefresher) process(job refreshJob) {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	outcome := r.pipeline.EmbedBatch(ctx, job.requests)
	for _, f := range outcome.Failures {
		r.log.Warn(ctx, "background embedding failed",
			zap.String("tenant_id", job.tenantID),
			zap.String("class", string(f.Class)),
			zap.String("source_id", f.SourceID),
			zap.Error(f.Err),
		)
	}
	if len(outcome.Results) == 0 {
		return
	}

	if err := r.sink.Upsert(ctx, job.tenantID, outcome.Points()); err != nil {
		r.log.Error(ctx, "background upsert failed",
			zap.String("tenant_id", job.tenantID),
			zap.Int("point_count", len(outcome.Results)),
			zap.Error(err),
		)
	}
}
