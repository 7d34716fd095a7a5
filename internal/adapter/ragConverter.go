package adapter

import (
	"github.com/akolanti/TutorAPI/internal/api"
	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
)

func ToDocumentResponse(doc commonModels.Document) api.DocumentResponse {
	return api.DocumentResponse{
		Id:         doc.Id,
		Title:      doc.Title,
		FileName:   doc.FileName,
		Purpose:    string(doc.Purpose),
		Visibility: string(doc.Visibility),
		Status:     string(doc.Status),
		ChunkCount: doc.ChunkCount,
		LastError:  doc.LastError,
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

func ToSearchResponse(results []commonModels.RetrievalResult) api.SearchResponse {
	out := api.SearchResponse{Results: make([]api.SearchResult, 0, len(results))}
	for _, r := range results {
		out.Results = append(out.Results, api.SearchResult{
			DocumentId: r.DocumentId,
			Title:      r.Title,
			Source:     r.Source,
			Content:    r.Content,
			Score:      r.Score,
		})
	}
	return out
}
