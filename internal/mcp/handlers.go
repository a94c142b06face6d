package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/regqa/internal/answer"
	"github.com/ziadkadry99/regqa/internal/knowledge"
	"github.com/ziadkadry99/regqa/internal/vectordb"
)

const notReadyHint = "The documents have not been ingested yet. Run `regqa ingest` first."

// handleAskDocuments answers a question with citations.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil || strings.TrimSpace(question) == "" {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.kb.Query(ctx, question)
	if err != nil {
		return toolError("question failed", err), nil
	}
	return mcp.NewToolResultText(formatAnswer(ans)), nil
}

// handleSearchDocuments returns the closest passages without an answer.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	results, err := s.kb.Search(ctx, query, request.GetInt("limit", 0))
	if err != nil {
		return toolError("search failed", err), nil
	}
	return mcp.NewToolResultText(vectordb.FormatResults(results)), nil
}

// handleListDocuments lists the ingested document names.
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.kb.ListDocuments(ctx)
	if err != nil {
		return toolError("listing documents failed", err), nil
	}
	if len(docs) == 0 {
		return mcp.NewToolResultText("No documents ingested. " + notReadyHint), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d document(s):\n", len(docs)))
	for _, d := range docs {
		sb.WriteString("- " + d + "\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func toolError(prefix string, err error) *mcp.CallToolResult {
	if errors.Is(err, knowledge.ErrNotReady) {
		return mcp.NewToolResultError(notReadyHint)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

// formatAnswer renders an answer followed by its numbered sources.
func formatAnswer(ans *answer.Answer) string {
	var sb strings.Builder
	sb.WriteString(ans.Text)
	sb.WriteString("\n")
	if len(ans.Sources) == 0 {
		return sb.String()
	}

	sb.WriteString("\nSources:\n")
	for i, src := range ans.Sources {
		sb.WriteString(fmt.Sprintf("[%d] %s, page %d\n    %s\n", i+1, src.Source, src.Page, src.Content))
	}
	return sb.String()
}
