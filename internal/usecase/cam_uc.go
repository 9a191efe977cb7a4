package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

// DefaultPollInterval matches the 2 s cadence the backend documents for
// CAM job status polling.
const DefaultPollInterval = 2 * time.Second

// CAMUC creates manufacturing-file jobs and tracks each one with an
// explicit, cancellable polling loop. The loop stops deterministically on a
// terminal status, per-job cancellation, or Close - never by being garbage
// collected.
type CAMUC struct {
	backend  domain.Backend
	interval time.Duration

	rootCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.RWMutex
	jobs    map[string]*domain.CAMJob
	cancels map[string]context.CancelFunc
}

func NewCAMUC(b domain.Backend, interval time.Duration) *CAMUC {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &CAMUC{
		backend:  b,
		interval: interval,
		rootCtx:  ctx,
		stop:     cancel,
		jobs:     make(map[string]*domain.CAMJob),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// CreateDXF submits a DXF cut-layout job and starts tracking it.
func (uc *CAMUC) CreateDXF(ctx context.Context, productConfigID, orderID string) (*domain.CAMJob, error) {
	job, err := uc.backend.CreateCAMJob(ctx, domain.CAMJobRequest{
		Kind:            domain.JobKindDXF,
		ProductConfigID: productConfigID,
		OrderID:         orderID,
	})
	if err != nil {
		return nil, fmt.Errorf("создание DXF-задачи: %w", err)
	}
	uc.track(job)
	return job, nil
}

// CreateGCode submits a G-code job. It requires the referenced DXF job to
// have completed: G-code is cut from the DXF layout, so a missing or failed
// DXF blocks generation.
func (uc *CAMUC) CreateGCode(ctx context.Context, productConfigID, dxfJobID string) (*domain.CAMJob, error) {
	dxf, ok := uc.Status(dxfJobID)
	if !ok || dxf.Status != domain.JobCompleted {
		return nil, domain.ErrGCodeNeedsDXF
	}
	job, err := uc.backend.CreateCAMJob(ctx, domain.CAMJobRequest{
		Kind:            domain.JobKindGCode,
		ProductConfigID: productConfigID,
		DXFJobID:        dxfJobID,
	})
	if err != nil {
		return nil, fmt.Errorf("создание G-code задачи: %w", err)
	}
	uc.track(job)
	return job, nil
}

// Status returns the latest observed state of a tracked job.
func (uc *CAMUC) Status(jobID string) (*domain.CAMJob, bool) {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	job, ok := uc.jobs[jobID]
	if !ok {
		return nil, false
	}
	cp := *job
	return &cp, true
}

// StopJob cancels the polling loop of one job without touching its last
// observed status.
func (uc *CAMUC) StopJob(jobID string) {
	uc.mu.Lock()
	cancel, ok := uc.cancels[jobID]
	delete(uc.cancels, jobID)
	uc.mu.Unlock()
	if ok {
		cancel()
	}
}

// Close cancels every active poller and waits for them to exit.
func (uc *CAMUC) Close() {
	uc.stop()
	uc.wg.Wait()
}

func (uc *CAMUC) track(job *domain.CAMJob) {
	ctx, cancel := context.WithCancel(uc.rootCtx)
	uc.mu.Lock()
	cp := *job
	uc.jobs[job.JobID] = &cp
	uc.cancels[job.JobID] = cancel
	uc.mu.Unlock()

	if cp.Status.Terminal() {
		cancel()
		return
	}

	uc.wg.Add(1)
	go uc.poll(ctx, cancel, job.JobID)
}

// poll issues one status request per tick until a terminal status is
// observed or the context is cancelled. A failed poll keeps the last
// observed status; only a backend-reported Failed fails the job.
func (uc *CAMUC) poll(ctx context.Context, cancel context.CancelFunc, jobID string) {
	defer uc.wg.Done()
	defer cancel()
	ticker := time.NewTicker(uc.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := uc.backend.JobStatus(ctx, jobID)
			if err != nil {
				log.Warn().Err(err).Str("job", jobID).Msg("cam poll failed, keeping last status")
				continue
			}
			uc.mu.Lock()
			cp := *job
			uc.jobs[jobID] = &cp
			uc.mu.Unlock()
			if job.Status.Terminal() {
				log.Info().Str("job", jobID).Str("status", string(job.Status)).Msg("cam job finished")
				return
			}
		}
	}
}
