package worker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/akolanti/TutorAPI/internal/config"
	jobmodel "github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

func executeJob(job jobmodel.Job) {
	start := time.Now()
	defer func() {
		// Record total time at the end
		metrics.CaptureJobMetrics(string(job.Status), time.Since(start))
	}()
	ctxTrace := context.WithValue(context.Background(), config.TRACE_ID_KEY, job.TraceId)
	ctx, cancel := context.WithTimeout(ctxTrace, config.JobExecutionTimeout)
	defer cancel()
	log := logger.FromContext(ctx, config.TRACE_ID_KEY).With("jobId", job.Id)
	log.Debug("Processing job")

	job = saveJobState(ctx, job, jobmodel.JobStatusRunning)

	if job.JobType == jobmodel.JobTypeIngest {
		job = ingestDocument(ctx, job, log)
	} else {
		job = processQuery(ctx, job, log)
	}

	job.EndTime = time.Now()
	if job.Status == jobmodel.JobStatusError {
		saveJobState(ctx, job, jobmodel.JobStatusError)
		return
	}
	job = saveJobState(ctx, job, jobmodel.JobStatusComplete)
}

func removeWorker(reason string) {
	retireWorker(reason, atomic.AddInt64(&currentWorkerCount, -1))
}

// reserveIdleRetirement takes one worker off the count only while the pool stays above its floor.
func reserveIdleRetirement() (int64, bool) {
	for {
		count := atomic.LoadInt64(&currentWorkerCount)
		if count <= atomic.LoadInt64(&minWorkerCount) {
			return count, false
		}
		if atomic.CompareAndSwapInt64(&currentWorkerCount, count, count-1) {
			return count - 1, true
		}
	}
}

// retireWorker finishes a worker whose slot is already released from currentWorkerCount.
func retireWorker(reason string, count int64) {
	workerWaitGroup.Done()
	logger.Info("Removed worker ", "reason", reason, "workerCount", count)
	metrics.DecrementActiveWorkerCount()
}

func ingestDocument(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	job = _ragService.IngestDocument(ctx, job)
	log.Info("Ingest finished", "documentId", job.JobPayload.DocumentId, "chunks", job.JobPayload.ChunkCount, "step", job.CurrentStep)
	return job
}

func processQuery(ctx context.Context, job jobmodel.Job, log *logger_i.Logger) jobmodel.Job {
	job.CurrentStep = jobmodel.RedisCall
	history, err := _jobService.MessageStore.GetMessageHistory(ctx, job.ChatId)
	if err != nil {
		log.Error("Failed to get message history", "err", err)
	}
	job = _ragService.ProcessRequest(ctx, job, history)
	if job.Status == jobmodel.JobStatusError {
		return job
	}

	turn := jobmodel.ChatTurn{Question: job.JobPayload.Question, Answer: job.JobPayload.Answer}
	if err := _jobService.MessageStore.TrySaveChat(ctx, job.ChatId, turn); err != nil {
		log.Error("Failed to save chat history", "err", err)
	}
	return job
}

func saveJobState(ctx context.Context, job jobmodel.Job, jobStatus jobmodel.JobStatus) jobmodel.Job {
	job.Status = jobStatus
	// the final state must land even when the job ran out of time
	if err := _jobService.JobStore.SaveJob(context.WithoutCancel(ctx), job); err != nil {
		logger.Error("Failed to update job status", "jobId", job.Id, "err", err)
	}
	return job
}
