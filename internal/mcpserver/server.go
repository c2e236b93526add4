// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Haven article tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/articleservice"
	"github.com/starford/haven/internal/models"
	"github.com/starford/haven/internal/reminders"
	"github.com/starford/haven/internal/scheduling"
)

// FormatURI is the resource URI of the article format contract.
const FormatURI = "haven://article-format"

// Server wraps the MCP server with Haven tools.
type Server struct {
	mcp       *server.MCPServer
	svc       *articleservice.Service
	scheduler *scheduling.Engine
	reminders *reminders.Engine
	now       func() time.Time
}

// New creates a new MCP server with all Haven tools registered.
func New(svc *articleservice.Service, scheduler *scheduling.Engine, rem *reminders.Engine) *Server {
	s := &Server{svc: svc, scheduler: scheduler, reminders: rem, now: time.Now}

	s.mcp = server.NewMCPServer(
		"Haven",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_articles",
		mcp.WithDescription("List all articles with title, word count and workflow fields, ordered by file name."),
	), s.listArticles)

	s.mcp.AddTool(mcp.NewTool("get_article",
		mcp.WithDescription("Read one article: Markdown content plus workflow metadata."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Article id (file name without extension)")),
	), s.getArticle)

	s.mcp.AddTool(mcp.NewTool("save_article",
		mcp.WithDescription("Create or partially update an article. Omitted fields are left unchanged. "+
			"Read the format contract first via get_article_format or the "+FormatURI+" resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString("title", mcp.Description("New title; only applied together with content")),
		mcp.WithString("content", mcp.Description("Full Markdown body")),
		mcp.WithString("status", mcp.Description("Workflow status"), mcp.Enum(statusNames()...)),
		mcp.WithArray("sources", mcp.Description("Replacement source list"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("publishDate", mcp.Description("Publish date as 2006-01-02T15:04; empty clears it")),
		mcp.WithNumber("wordGoal", mcp.Description("Target word count, at least 1")),
	), s.saveArticle)

	s.mcp.AddTool(mcp.NewTool("set_article_status",
		mcp.WithDescription("Move an article to a workflow status. The publish date is replaced only when given."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString("status", mcp.Required(), mcp.Description("New status"), mcp.Enum(statusNames()...)),
		mcp.WithString("publishDate", mcp.Description("Optional publish date as 2006-01-02T15:04")),
	), s.setArticleStatus)

	s.mcp.AddTool(mcp.NewTool("schedule_article",
		mcp.WithDescription("Schedule an article: sets status to scheduled and the publish date."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString("publishDate", mcp.Required(), mcp.Description("Publish date as 2006-01-02T15:04")),
	), s.scheduleArticle)

	s.mcp.AddTool(mcp.NewTool("bulk_schedule",
		mcp.WithDescription("Schedule several articles in order, one every intervalDays calendar days from startDate."),
		mcp.WithArray("articles", mcp.Required(), mcp.Description("Article ids in publishing order"), mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("startDate", mcp.Required(), mcp.Description("Publish date of the first article")),
		mcp.WithNumber("intervalDays", mcp.Description("Days between articles (default 1)")),
	), s.bulkSchedule)

	s.mcp.AddTool(mcp.NewTool("pending_reminders",
		mcp.WithDescription("Reminders for articles publishing in exactly 1 or 7 days."),
		mcp.WithString("now", mcp.Description("Reference time; defaults to the current time")),
	), s.pendingReminders)

	s.mcp.AddTool(mcp.NewTool("get_article_format",
		mcp.WithDescription("Returns the Haven article format contract. "+
			"Call this before creating or updating articles."),
	), s.getArticleFormat)

	s.mcp.AddResource(
		mcp.NewResource(FormatURI, "Article Format Contract",
			mcp.WithResourceDescription("How articles are stored and which workflow fields exist."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readArticleFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func statusNames() []string {
	out := make([]string, 0, len(models.Statuses))
	for _, st := range models.Statuses {
		out = append(out, string(st))
	}
	return out
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(id string, err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listArticles(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items, err := s.svc.List(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(items)
}

func (s *Server) getArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.svc.Get(ctx, id)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(a)
}

func (s *Server) saveArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := req.GetArguments()
	has := func(key string) bool {
		v, ok := args[key]
		return ok && v != nil
	}

	var in articleservice.SaveInput
	if has("title") {
		v := req.GetString("title", "")
		in.Title = &v
	}
	if has("content") {
		v := req.GetString("content", "")
		in.Content = &v
	}
	if has("status") {
		v := models.Status(req.GetString("status", ""))
		in.Status = &v
	}
	if has("sources") {
		in.Sources = req.GetStringSlice("sources", []string{})
	}
	if has("publishDate") {
		d, err := models.ParseOptionalDate(req.GetString("publishDate", ""))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		in.PublishDate = d
		in.ClearPublishDate = d == nil
	}
	if has("wordGoal") {
		v := req.GetInt("wordGoal", 0)
		in.WordGoal = &v
	}

	a, err := s.svc.Save(ctx, id, in)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(a)
}

func (s *Server) setArticleStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	status, err := req.RequireString("status")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := models.ParseOptionalDate(req.GetString("publishDate", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.SetStatus(ctx, id, models.Status(status), date)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(res)
}

func (s *Server) scheduleArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("publishDate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	date, err := models.ParseDate(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.scheduler.Schedule(ctx, id, date)
	if err != nil {
		return errorResult(id, err), nil
	}
	return jsonResult(a)
}

func (s *Server) bulkSchedule(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids, err := req.RequireStringSlice("articles")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := req.RequireString("startDate")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := models.ParseOptionalDate(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, err := s.scheduler.BulkSchedule(ctx, ids, start, req.GetInt("intervalDays", 1))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v (scheduled %d of %d)", err, len(items), len(ids))), nil
	}
	return jsonResult(items)
}

func (s *Server) pendingReminders(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := s.now()
	if raw := req.GetString("now", ""); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		now = d.Time
	}
	list, err := s.reminders.Pending(ctx, now)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(list)
}

func (s *Server) getArticleFormat(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ArticleFormatContract), nil
}

func (s *Server) readArticleFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      FormatURI,
			MIMEType: "text/markdown",
			Text:     ArticleFormatContract,
		},
	}, nil
}
