// Package mcpserver exposes the RAG pipeline as MCP tools over streamable HTTP.
package mcpserver

import (
	"errors"
	"net/http"

	"github.com/akolanti/TutorAPI/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const Version = "0.1.0"

type Server struct {
	rag    rag.Service
	server *mcp.Server
}

func NewServer(ragService rag.Service) (*Server, error) {
	if ragService == nil {
		return nil, errors.New("mcpserver: rag service is required")
	}
	s := &Server{
		rag:    ragService,
		server: mcp.NewServer(&mcp.Implementation{Name: "tutor-rag", Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Handler serves the MCP streamable HTTP transport; mount it at /mcp.
func (s *Server) Handler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)
}
