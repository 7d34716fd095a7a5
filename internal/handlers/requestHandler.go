package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/akolanti/TutorAPI/internal/adapter"
	"github.com/akolanti/TutorAPI/internal/adapter/utils"
	"github.com/akolanti/TutorAPI/internal/api"
	"github.com/akolanti/TutorAPI/internal/config"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/akolanti/TutorAPI/internal/rag/generation"
	"github.com/akolanti/TutorAPI/pkg/logger_i"
)

var logRH *logger_i.Logger

// newJobData decouples the request shape from the queued job
type newJobData struct {
	id               string
	chatId           string
	message          string
	purpose          string
	ownerId          string
	isNewChat        bool
	traceId          string
	isDocumentIngest bool
	documentId       string
}

func GetHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a message, initializes a background processing job, and returns a job ID to track status.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Chat Message, optional Chat ID and purpose"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {
	if !validateContext(request.Context()) {
		logRH.Warn("Invalid Context by request ", "remote", request.RemoteAddr)
		return
	}

	var requestData api.ChatRequest
	defer closeBody(request.Body)
	if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(request.Context(), requestData) {
		logRH.Warn("Bad Chat Request: ", "error:", err, "request data:", requestData)
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	chatID := requestData.ChatID
	isNewChat := chatID == ""
	if isNewChat {
		chatID = utils.GetNewUUID()
		logRH.Debug(" New Chat request : ", "chatID:", chatID)
	}

	newJob := newJobData{
		id:        utils.GetNewUUID(),
		chatId:    chatID,
		message:   requestData.Message,
		purpose:   requestData.Purpose,
		ownerId:   ownerOf(request),
		isNewChat: isNewChat,
		traceId:   traceOf(request),
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, ""))
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	//use chi get the url id
	idString := utils.GetChiURLParam(r, "id")
	result, isFound := validateId(idString, traceOf(r))

	logRH.Debug("Get Status Request:", "URL path", r.URL.Path)
	if !isFound {
		WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
		return
	}

	writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
}

// PostDocumentHandler godoc
// @Summary      Upload a document for indexing
// @Description  Stores the file and queues a job that extracts, chunks, embeds and indexes it.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        title       formData  string  true   "Display name of the document"
// @Param        purpose     formData  string  false  "chat, test or knowledge"
// @Param        visibility  formData  string  false  "private or shared"
// @Param        document    formData  file    true   "PDF, DOCX or text file"
// @Success      202  {object}  api.InitJobResponse "Accepted"
// @Failure      400  {object}  api.JobResponse "Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse "Storage error"
// @Router       /documents [post]
func PostDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remote", r.RemoteAddr)
		return
	}
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadSize)
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}

	fileReader, fileMetadata, err := r.FormFile("document")
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not retrieve file")
		return
	}
	defer closeBody(fileReader)

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = strings.TrimSuffix(fileMetadata.Filename, filepath.Ext(fileMetadata.Filename))
	}
	purpose, ok := commonModels.ParsePurpose(r.FormValue("purpose"))
	if !ok {
		WriteErrorResponse(w, http.StatusBadRequest, "", "purpose must be chat, test or knowledge")
		return
	}
	ownerId := ownerOf(r)
	visibility, ok := parseVisibility(r.FormValue("visibility"), ownerId)
	if !ok {
		WriteErrorResponse(w, http.StatusBadRequest, "", "visibility must be private or shared")
		return
	}

	data, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Could not read file")
		return
	}

	documentId := utils.GetNewUUID()
	fileName := filepath.Base(fileMetadata.Filename)
	location := fmt.Sprintf("documents/%s/%s", documentId, fileName)
	if err := handlerInstance.blobs.Upload(ctx, location, data); err != nil {
		logRH.FromContext(ctx, config.TRACE_ID_KEY).Error("blob upload failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	now := time.Now()
	doc := commonModels.Document{
		Id:              documentId,
		OwnerId:         ownerId,
		Title:           title,
		FileName:        fileName,
		StorageLocation: location,
		Purpose:         purpose,
		Visibility:      visibility,
		Status:          commonModels.DocumentProcessing,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := handlerInstance.service.DocumentStore.SaveDocument(ctx, doc); err != nil {
		logRH.FromContext(ctx, config.TRACE_ID_KEY).Error("saving document failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Storage error")
		return
	}

	queueIndexJob(w, r, ownerId, documentId)
}

// PostIndexHandler godoc
// @Summary      Re-index a document
// @Description  Queues a job that rebuilds the chunks of an uploaded document.
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      202  {object}  api.InitJobResponse "Accepted"
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id}/index [post]
func PostIndexHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	documentId := utils.GetChiURLParam(r, "id")
	ownerId := ownerOf(r)
	doc, found := GetOwnedDocument(r.Context(), ownerId, documentId)
	if !found || doc.OwnerId != ownerId {
		WriteErrorResponse(w, http.StatusNotFound, documentId, "Document not found")
		return
	}
	queueIndexJob(w, r, ownerId, documentId)
}

// GetDocumentHandler godoc
// @Summary      Get a document and its indexing status
// @Tags         Documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  api.DocumentResponse
// @Failure      404  {object}  api.JobResponse "Document not found"
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	documentId := utils.GetChiURLParam(r, "id")
	doc, found := GetOwnedDocument(r.Context(), ownerOf(r), documentId)
	if !found {
		WriteErrorResponse(w, http.StatusNotFound, documentId, "Document not found")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentResponse(doc))
}

// SearchHandler godoc
// @Summary      Search indexed material
// @Tags         Retrieval
// @Accept       json
// @Produce      json
// @Param        request  body      api.SearchRequest  true  "Query"
// @Success      200      {object}  api.SearchResponse
// @Failure      400      {object}  api.JobResponse "Bad request"
// @Router       /search [post]
func SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.SearchRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "query is required")
		return
	}
	purpose, ok := commonModels.ParsePurpose(req.Purpose)
	if !ok {
		WriteErrorResponse(w, http.StatusBadRequest, "", "purpose must be chat, test or knowledge")
		return
	}

	results := handlerInstance.rag.Search(r.Context(), req.Query, ownerOf(r), purpose, req.TopK)
	writeJsonResponse(w, http.StatusOK, adapter.ToSearchResponse(results))
}

// GenerateTestHandler godoc
// @Summary      Generate a practice test
// @Tags         Generation
// @Accept       json
// @Produce      json
// @Param        request  body      api.GenerateTestRequest  true  "Topic"
// @Success      200      {object}  api.GenerateTestResponse
// @Failure      502      {object}  api.JobResponse "Model unavailable or unusable output"
// @Router       /tests/generate [post]
func GenerateTestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.GenerateTestRequest
	defer closeBody(r.Body)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Topic) == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "", "topic is required")
		return
	}

	res, err := handlerInstance.rag.GenerateTest(r.Context(), ownerOf(r), req.Topic)
	if err != nil {
		logRH.FromContext(r.Context(), config.TRACE_ID_KEY).Warn("test generation failed", "error", err)
		var genErr *generation.Error
		if errors.As(err, &genErr) {
			WriteErrorResponse(w, http.StatusBadGateway, "", fmt.Sprintf("test generation failed at %s", genErr.Stage))
			return
		}
		WriteErrorResponse(w, http.StatusBadGateway, "", "test generation failed")
		return
	}
	writeJsonResponse(w, http.StatusOK, api.GenerateTestResponse{Test: res.JSON()})
}

func queueIndexJob(w http.ResponseWriter, r *http.Request, ownerId, documentId string) {
	newJob := newJobData{
		id:               utils.GetNewUUID(),
		ownerId:          ownerId,
		traceId:          traceOf(r),
		isDocumentIngest: true,
		documentId:       documentId,
	}
	CreateNewJob(newJob)
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(newJob.id, documentId))
}
