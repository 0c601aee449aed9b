package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/interview"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/profile"
	"github.com/Mapleeeeeeeeeee/ai-interview-twin/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Profiles *profile.Store
	Engine   *interview.Engine
	Turns    *storage.Store // optional; if nil, recent_turns resource is empty
}

// NewMCPServer creates an MCP server exposing the interview twins to agent
// hosts over stdio.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"twind",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("twind is a digital-twin interview assistant. Ask stored candidate profiles interview questions."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("ask_candidate",
			mcp.WithDescription("Ask a stored candidate's digital twin an interview question. Pass session_id to continue a conversation."),
			mcp.WithString("profile_id", mcp.Description("Candidate profile id"), mcp.Required()),
			mcp.WithString("question", mcp.Description("The interview question"), mcp.Required()),
			mcp.WithString("session_id", mcp.Description("Existing session id; omitted starts a new session")),
		),
		mcpAskCandidate(deps),
	)

	s.AddTool(
		mcp.NewTool("list_candidates",
			mcp.WithDescription("List the stored candidate profiles."),
		),
		mcpListCandidates(deps),
	)

	s.AddTool(
		mcp.NewTool("session_history",
			mcp.WithDescription("Return the message history of an interview session."),
			mcp.WithString("session_id", mcp.Description("Session id"), mcp.Required()),
		),
		mcpSessionHistory(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"twin://profiles",
			"Candidate Profiles",
			mcp.WithResourceDescription("Stored candidate summaries as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceProfiles(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"twin://recent-turns",
			"Recent Interview Turns",
			mcp.WithResourceDescription("Last 10 audited interview turns (questions only)"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecentTurns(deps),
	)

	return s
}

func mcpAskCandidate(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		profileID, err := req.RequireString("profile_id")
		if err != nil {
			return mcpError("profile_id is required"), nil
		}
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		sessionID := req.GetString("session_id", "")

		turn, err := deps.Engine.Respond(ctx, profileID, sessionID, question)
		if errors.Is(err, interview.ErrProfileNotFound) {
			return mcpError(fmt.Sprintf("profile %s not found", profileID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("interview turn failed: %v", err)), nil
		}

		b, err := json.Marshal(turn)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal turn: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListCandidates(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		b, err := json.Marshal(deps.Profiles.List())
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal candidates: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSessionHistory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return mcpError("session_id is required"), nil
		}

		msgs, err := deps.Engine.History(sessionID)
		if errors.Is(err, interview.ErrSessionNotFound) {
			return mcpError(fmt.Sprintf("session %s not found", sessionID)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("failed to load history: %v", err)), nil
		}

		b, err := json.Marshal(msgs)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal history: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpResourceProfiles(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Profiles.List())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal profiles: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecentTurns(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var turns []storage.Turn
		if deps.Turns != nil {
			var err error
			turns, err = deps.Turns.RecentTurns(10)
			if err != nil {
				return nil, fmt.Errorf("failed to load recent turns: %w", err)
			}
		}

		type turnSummary struct {
			ID        string `json:"id"`
			SessionID string `json:"session_id"`
			CreatedAt string `json:"created_at"`
			Question  string `json:"question"`
		}

		summaries := make([]turnSummary, len(turns))
		for i, t := range turns {
			question := t.Question
			if utf8.RuneCountInString(question) > 200 {
				runes := []rune(question)
				question = string(runes[:200]) + "..."
			}
			summaries[i] = turnSummary{
				ID:        t.ID,
				SessionID: t.SessionID,
				CreatedAt: t.CreatedAt.Format(time.RFC3339),
				Question:  question,
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal turns: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
