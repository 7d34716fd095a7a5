package mcpserver

import (
	"context"
	"fmt"

	"github.com/akolanti/TutorAPI/internal/domain/commonModels"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type SearchInput struct {
	Query   string `json:"query" jsonschema:"what to look for in the course material"`
	OwnerId string `json:"owner_id,omitempty" jsonschema:"student whose private material is searched; empty searches shared material only"`
	Purpose string `json:"purpose,omitempty" jsonschema:"chat, test or knowledge (default chat)"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"maximum number of passages (default 5)"`
}

type SearchOutput struct {
	Results []PassageOutput `json:"results"`
	Count   int             `json:"count"`
}

type PassageOutput struct {
	DocumentId string  `json:"document_id"`
	Title      string  `json:"title"`
	Source     string  `json:"source,omitempty"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

type IndexInput struct {
	OwnerId    string `json:"owner_id,omitempty" jsonschema:"owner of the document; empty for shared material"`
	DocumentId string `json:"document_id" jsonschema:"id of an uploaded document"`
}

type IndexOutput struct {
	Success    bool   `json:"success"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_materials",
		Description: "Find the passages of indexed course material closest to a question",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "index_document",
		Description: "Rebuild the search index of an uploaded document",
	}, s.handleIndex)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	if input.Query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}
	purpose, ok := commonModels.ParsePurpose(input.Purpose)
	if !ok {
		return nil, SearchOutput{}, fmt.Errorf("unknown purpose %q", input.Purpose)
	}

	results := s.rag.Search(ctx, input.Query, input.OwnerId, purpose, input.TopK)
	output := SearchOutput{Results: make([]PassageOutput, len(results)), Count: len(results)}
	for i, r := range results {
		output.Results[i] = PassageOutput{
			DocumentId: r.DocumentId,
			Title:      r.Title,
			Source:     r.Source,
			Content:    r.Content,
			Score:      r.Score,
		}
	}
	return nil, output, nil
}

func (s *Server) handleIndex(ctx context.Context, _ *mcp.CallToolRequest, input IndexInput) (*mcp.CallToolResult, IndexOutput, error) {
	if input.DocumentId == "" {
		return nil, IndexOutput{}, fmt.Errorf("document_id is required")
	}
	res := s.rag.IndexDocument(ctx, input.OwnerId, input.DocumentId)
	return nil, IndexOutput{Success: res.Success, ChunkCount: res.ChunkCount, Message: res.Message}, nil
}
