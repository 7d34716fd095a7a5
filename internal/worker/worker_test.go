package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/store"
	"github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/internal/job"
	"github.com/akolanti/TutorAPI/internal/rag"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockRagService tracks executed jobs; methods the worker never calls come from the nil embedded interface
type MockRagService struct {
	rag.Service
	ProcessedCount int32
	OnProcess      func(j jobModel.Job, hist []jobModel.ChatTurn) jobModel.Job
	OnIngest       func(j jobModel.Job) jobModel.Job
}

func (m *MockRagService) ProcessRequest(ctx context.Context, j jobModel.Job, hist []jobModel.ChatTurn) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnProcess != nil {
		return m.OnProcess(j, hist)
	}
	return j
}

func (m *MockRagService) IngestDocument(ctx context.Context, j jobModel.Job) jobModel.Job {
	atomic.AddInt32(&m.ProcessedCount, 1)
	if m.OnIngest != nil {
		return m.OnIngest(j)
	}
	return j
}

type MockJobStore struct {
	mu        sync.Mutex
	OnSaveJob func(ctx context.Context, job jobModel.Job) error
	saved     []jobModel.Job
}

func (m *MockJobStore) GetJob(ctx context.Context, jobId string) (jobModel.Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].Id == jobId {
			return m.saved[i], true
		}
	}
	return jobModel.Job{}, false
}

func (m *MockJobStore) DeleteJob(ctx context.Context, jobID string) {}

func (m *MockJobStore) SaveJob(ctx context.Context, j jobModel.Job) error {
	m.mu.Lock()
	m.saved = append(m.saved, j)
	m.mu.Unlock()
	if m.OnSaveJob != nil {
		return m.OnSaveJob(ctx, j)
	}
	return nil
}

func (m *MockJobStore) statuses() []jobModel.JobStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]jobModel.JobStatus, 0, len(m.saved))
	for _, j := range m.saved {
		out = append(out, j.Status)
	}
	return out
}

func setup(t *testing.T, rs *MockRagService) (*MockJobStore, *store.InMemoryMessageStore) {
	t.Helper()
	logger = logger_i.NewLogger("TestWorkerPool")
	js := &MockJobStore{}
	ms := store.InitMessageStore()
	InitServices(&job.Service{
		JobChannel:        make(chan jobModel.Job, 10),
		DispatcherChannel: make(chan bool, 10),
		JobStore:          js,
		MessageStore:      ms,
	}, rs)
	return js, ms
}

func TestWorkerPool_Flow(t *testing.T) {
	mockRag := &MockRagService{}
	setup(t, mockRag)
	stopChan := make(chan bool)
	wg := &sync.WaitGroup{}

	// Reset global state for test
	atomic.StoreInt64(&currentWorkerCount, 0)
	InitWorkerPool(stopChan, wg)

	t.Run("Dispatcher creates worker on signal", func(t *testing.T) {
		_jobService.DispatcherChannel <- true

		assert.Eventually(t, func() bool {
			return atomic.LoadInt64(&currentWorkerCount) >= 2
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Worker processes a job", func(t *testing.T) {
		_jobService.JobChannel <- jobModel.Job{Id: "test-1", JobType: jobModel.JobTypeQuery}

		assert.Eventually(t, func() bool {
			return atomic.LoadInt32(&mockRag.ProcessedCount) == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("Stop signal retires workers", func(t *testing.T) {
		close(stopChan)

		done := make(chan struct{})
		go func() {
			wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("Workers did not stop within timeout")
		}
	})
}

func TestExecuteJob_QuerySavesTurn(t *testing.T) {
	rs := &MockRagService{OnProcess: func(j jobModel.Job, hist []jobModel.ChatTurn) jobModel.Job {
		require.Len(t, hist, 1)
		assert.Equal(t, "first?", hist[0].Question)
		j.JobPayload.Answer = "second answer"
		j.CurrentStep = jobModel.Complete
		return j
	}}
	js, ms := setup(t, rs)
	ctx := context.Background()
	require.NoError(t, ms.InitNewChat(ctx, "chat-1"))
	require.NoError(t, ms.TrySaveChat(ctx, "chat-1", jobModel.ChatTurn{Question: "first?", Answer: "first answer"}))

	executeJob(jobModel.Job{Id: "j1", ChatId: "chat-1", JobType: jobModel.JobTypeQuery, JobPayload: jobModel.JobPayload{Question: "second?"}})

	assert.Equal(t, []jobModel.JobStatus{jobModel.JobStatusRunning, jobModel.JobStatusComplete}, js.statuses())
	final, _ := js.GetJob(ctx, "j1")
	assert.Equal(t, "second answer", final.JobPayload.Answer)
	assert.False(t, final.EndTime.IsZero())

	history, err := ms.GetMessageHistory(ctx, "chat-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, jobModel.ChatTurn{Question: "second?", Answer: "second answer"}, history[1])
}

func TestExecuteJob_ErrorKeepsStatusAndSkipsHistory(t *testing.T) {
	rs := &MockRagService{OnProcess: func(j jobModel.Job, hist []jobModel.ChatTurn) jobModel.Job {
		j.Status = jobModel.JobStatusError
		j.Error = jobModel.JobError{Code: 502, Message: "LLM_GENERATION_FAILURE", Retry: true}
		return j
	}}
	js, ms := setup(t, rs)
	ctx := context.Background()
	require.NoError(t, ms.InitNewChat(ctx, "chat-2"))

	executeJob(jobModel.Job{Id: "j2", ChatId: "chat-2", JobType: jobModel.JobTypeQuery})

	assert.Equal(t, []jobModel.JobStatus{jobModel.JobStatusRunning, jobModel.JobStatusError}, js.statuses())
	final, _ := js.GetJob(ctx, "j2")
	assert.Equal(t, 502, final.Error.Code)

	history, err := ms.GetMessageHistory(ctx, "chat-2")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestExecuteJob_IngestKeepsResult(t *testing.T) {
	rs := &MockRagService{OnIngest: func(j jobModel.Job) jobModel.Job {
		j.JobPayload.ChunkCount = 7
		j.JobPayload.Message = "indexed 7 chunks"
		j.CurrentStep = jobModel.Complete
		return j
	}}
	js, _ := setup(t, rs)

	executeJob(jobModel.Job{Id: "j3", JobType: jobModel.JobTypeIngest, JobPayload: jobModel.JobPayload{DocumentId: "d1"}})

	final, found := js.GetJob(context.Background(), "j3")
	require.True(t, found)
	assert.Equal(t, jobModel.JobStatusComplete, final.Status)
	assert.Equal(t, 7, final.JobPayload.ChunkCount)
	assert.Equal(t, jobModel.Complete, final.CurrentStep)
}

func TestWorker_IdleTimeout(t *testing.T) {
	setup(t, &MockRagService{})
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 0)
	idleTimeout = 20 * time.Millisecond
	t.Cleanup(func() {
		atomic.StoreInt64(&minWorkerCount, config.MinWorkerCount)
		idleTimeout = config.IdleWorkerTimeout
	})

	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stopWorkerChannel = make(chan bool)

	createWorker()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 0
	}, time.Second, 10*time.Millisecond, "worker should have timed out and retired")
}

func TestWorker_IdleTimeoutKeepsFloor(t *testing.T) {
	setup(t, &MockRagService{})
	atomic.StoreInt64(&currentWorkerCount, 0)
	atomic.StoreInt64(&minWorkerCount, 1)
	idleTimeout = 10 * time.Millisecond
	t.Cleanup(func() {
		atomic.StoreInt64(&minWorkerCount, config.MinWorkerCount)
		idleTimeout = config.IdleWorkerTimeout
	})

	wg := &sync.WaitGroup{}
	workerWaitGroup = wg
	stop := make(chan bool)
	stopWorkerChannel = stop

	createWorker()
	createWorker()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) == 1
	}, time.Second, 5*time.Millisecond, "one idle worker should retire")
	assert.Never(t, func() bool {
		return atomic.LoadInt64(&currentWorkerCount) < 1
	}, 100*time.Millisecond, 5*time.Millisecond, "idle workers must not retire below the floor")

	close(stop)
	wg.Wait()
	assert.Equal(t, int64(0), atomic.LoadInt64(&currentWorkerCount))
}
