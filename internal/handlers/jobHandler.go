package handlers

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akolanti/TutorAPI/internal/api"
	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/data/blob"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/domain/jobModel"
	"github.com/akolanti/TutorAPI/internal/job"
	"github.com/akolanti/TutorAPI/internal/metrics"
	"github.com/akolanti/TutorAPI/internal/rag"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

var (
	handlerInstance *JobHandler //private singleton
	once            sync.Once
	logJH           *logger_i.Logger
)

type JobHandler struct {
	service *job.Service
	rag     rag.Service
	blobs   blob.Storage
}

func InitJobHandler(jobService *job.Service, ragService rag.Service, blobs blob.Storage) {
	once.Do(func() {
		handlerInstance = &JobHandler{service: jobService, rag: ragService, blobs: blobs}

		logJH = logger_i.NewLogger("JobHandler")
		logRH = logger_i.NewLogger("RequestHandler")
		logJH.Info("Starting job handler")
	})

}

func CreateNewJob(newJob newJobData) {
	log := logJH.With("traceId", newJob.traceId, "job id", newJob.id)
	log.Info("To create new job")
	if newJob.isNewChat {
		log.Info("Create new chat")
		handlerInstance.initNewChat(newJob.chatId, newJob.traceId)
	}
	handlerInstance.pushToJobChannel(newJob)
}

func GetJobStatus(id string, traceId string) (result jobModel.Job, isFound bool) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	if handlerInstance != nil {
		return handlerInstance.service.JobStore.GetJob(ctxC, id)
	}
	return result, false
}

func ValidateChatRequest(ctx context.Context, chatReq api.ChatRequest) bool {
	if handlerInstance == nil {
		return false
	}
	logJH.Debug(" Validating chat id ", "chatId :", chatReq.ChatID)
	if chatReq.Message == "" {
		return false
	}
	if _, ok := commonModels.ParsePurpose(chatReq.Purpose); !ok {
		return false
	}
	if chatReq.ChatID == "" {
		return true
	}
	return handlerInstance.service.MessageStore.ValidateChatId(ctx, chatReq.ChatID)
}

// GetOwnedDocument returns the document when ownerId may see it. Shared documents are visible to everyone.
func GetOwnedDocument(ctx context.Context, ownerId, documentId string) (commonModels.Document, bool) {
	if handlerInstance == nil || documentId == "" {
		return commonModels.Document{}, false
	}
	doc, found, err := handlerInstance.service.DocumentStore.GetDocument(ctx, documentId)
	if err != nil {
		logJH.FromContext(ctx, config.TRACE_ID_KEY).Error("document lookup failed", "documentId", documentId, "error", err)
		return commonModels.Document{}, false
	}
	if !found {
		return commonModels.Document{}, false
	}
	if doc.OwnerId != ownerId && doc.Visibility != commonModels.VisibilityShared {
		return commonModels.Document{}, false
	}
	return doc, true
}

// private methods
func (h *JobHandler) pushToJobChannel(newJob newJobData) {

	_job := jobModel.Job{}
	_job.Id = newJob.id
	_job.CreatedTime = time.Now()
	_job.TraceId = newJob.traceId
	_job.Status = jobModel.JobStatusQueued
	_job.JobPayload.OwnerId = newJob.ownerId

	if newJob.isDocumentIngest {
		_job.CurrentStep = jobModel.IngestInit
		_job.JobType = jobModel.JobTypeIngest
		_job.JobPayload.DocumentId = newJob.documentId
	} else {
		_job.JobType = jobModel.JobTypeQuery
		_job.ChatId = newJob.chatId
		_job.JobPayload.Question = newJob.message
		_job.JobPayload.Purpose = newJob.purpose
		_job.CurrentStep = jobModel.UserQueryInit
	}

	//status lookups work before a worker picks the job up
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, newJob.traceId)
	if err := h.service.JobStore.SaveJob(ctxC, _job); err != nil {
		logJH.Warn("Could not save queued job", "jobId", _job.Id, "error", err)
	}

	//metrics
	metrics.IncrementJobsInQueue()

	h.service.JobChannel <- _job //this is a blocking send to prevent the system from being overwhelmed
	logJH.Info("Created new job")

	//a new worker every RequestsPerNewWorkerCount requests, and one per ingest job
	//since extraction and embedding hold a worker for a long time
	//idle workers are removed, so most of the time only one is running
	accurateCount := atomic.AddInt64(&h.service.RequestCount, 1) //after sending a request increment counter
	if accurateCount%config.RequestsPerNewWorkerCount == 0 || _job.JobType == jobModel.JobTypeIngest {
		metrics.StartDispatcherSignalCount() //metrics
		logJH.Debug("Worker count ", "count", accurateCount)
		h.service.DispatcherChannel <- true
	}
}

func (h *JobHandler) initNewChat(chatId string, traceId string) {
	ctxC := context.WithValue(context.Background(), config.TRACE_ID_KEY, traceId)
	err := h.service.MessageStore.InitNewChat(ctxC, chatId)
	if err != nil {
		logJH.Error("Error initiating new chat", "chatId", chatId, "error", err)
		return
	}
}
