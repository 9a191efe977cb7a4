package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kirill552/firniture-sub001/internal/domain"
)

func TestCAMPollStopsOnTerminalStatus(t *testing.T) {
	fb := &fakeBackend{statusSeq: []*domain.CAMJob{
		{Status: domain.JobCreated},
		{Status: domain.JobProcessing},
		{Status: domain.JobCompleted, ArtifactID: "art-17"},
	}}
	uc := NewCAMUC(fb, 5*time.Millisecond)
	defer uc.Close()

	job, err := uc.CreateDXF(context.Background(), "cfg-1", "order-1")
	require.NoError(t, err)
	require.Equal(t, domain.JobCreated, job.Status)

	require.Eventually(t, func() bool {
		got, ok := uc.Status(job.JobID)
		return ok && got.Status == domain.JobCompleted
	}, time.Second, time.Millisecond)

	got, ok := uc.Status(job.JobID)
	require.True(t, ok)
	assert.Equal(t, "art-17", got.ArtifactID)

	// the loop exits on the terminal status: no further requests
	calls := fb.statusCount()
	assert.Equal(t, 3, calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fb.statusCount())
}

func TestCAMPollKeepsLastStatusOnTransientError(t *testing.T) {
	fb := &fakeBackend{
		statusSeq: []*domain.CAMJob{
			{Status: domain.JobProcessing},
			{Status: domain.JobProcessing}, // skipped, replaced by error
			{Status: domain.JobCompleted},
		},
		statusErrAt: map[int]error{1: errors.New("timeout")},
	}
	uc := NewCAMUC(fb, 5*time.Millisecond)
	defer uc.Close()

	job, err := uc.CreateDXF(context.Background(), "cfg-1", "order-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := uc.Status(job.JobID)
		return ok && got.Status == domain.JobCompleted
	}, time.Second, time.Millisecond)

	// the transient failure never surfaced as Failed
	got, _ := uc.Status(job.JobID)
	assert.Equal(t, domain.JobCompleted, got.Status)
}

func TestCAMFailedJobCarriesBackendError(t *testing.T) {
	fb := &fakeBackend{statusSeq: []*domain.CAMJob{
		{Status: domain.JobProcessing},
		{Status: domain.JobFailed, Error: "invalid geometry"},
	}}
	uc := NewCAMUC(fb, 5*time.Millisecond)
	defer uc.Close()

	job, err := uc.CreateDXF(context.Background(), "cfg-1", "order-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		got, ok := uc.Status(job.JobID)
		return ok && got.Status.Terminal()
	}, time.Second, time.Millisecond)

	got, _ := uc.Status(job.JobID)
	assert.Equal(t, domain.JobFailed, got.Status)
	assert.Equal(t, "invalid geometry", got.Error)
}

func TestCAMGCodeRequiresCompletedDXF(t *testing.T) {
	fb := &fakeBackend{statusSeq: []*domain.CAMJob{{Status: domain.JobProcessing}}}
	uc := NewCAMUC(fb, time.Hour) // ticks never fire during the test
	defer uc.Close()

	// no DXF tracked at all
	_, err := uc.CreateGCode(context.Background(), "cfg-1", "missing-dxf")
	require.ErrorIs(t, err, domain.ErrGCodeNeedsDXF)

	dxf, err := uc.CreateDXF(context.Background(), "cfg-1", "order-1")
	require.NoError(t, err)

	// still in flight
	_, err = uc.CreateGCode(context.Background(), "cfg-1", dxf.JobID)
	require.ErrorIs(t, err, domain.ErrGCodeNeedsDXF)

	uc.mu.Lock()
	uc.jobs[dxf.JobID].Status = domain.JobCompleted
	uc.mu.Unlock()

	gcode, err := uc.CreateGCode(context.Background(), "cfg-1", dxf.JobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobKindGCode, gcode.Kind)
}

func TestCAMStopJobCancelsPolling(t *testing.T) {
	fb := &fakeBackend{statusSeq: []*domain.CAMJob{{Status: domain.JobProcessing}}}
	uc := NewCAMUC(fb, 5*time.Millisecond)
	defer uc.Close()

	job, err := uc.CreateDXF(context.Background(), "cfg-1", "order-1")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return fb.statusCount() > 0 }, time.Second, time.Millisecond)
	uc.StopJob(job.JobID)
	time.Sleep(15 * time.Millisecond)

	calls := fb.statusCount()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, fb.statusCount())

	// the last observed status survives the stop
	got, ok := uc.Status(job.JobID)
	require.True(t, ok)
	assert.Equal(t, domain.JobProcessing, got.Status)
}

func TestCAMTrackSkipsPollingForTerminalJob(t *testing.T) {
	fb := &fakeBackend{camJob: &domain.CAMJob{JobID: "job-9", Status: domain.JobCompleted}}
	uc := NewCAMUC(fb, 5*time.Millisecond)
	defer uc.Close()

	job, err := uc.CreateDXF(context.Background(), "cfg-1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobCompleted, job.Status)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, fb.statusCount())
}
