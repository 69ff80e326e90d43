// Package mcptool serves timeline analysis to MCP clients over stdio.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/TobiSchelling/histline/internal/logging"
	"github.com/TobiSchelling/histline/internal/timeline"
)

// ToolName is the name clients call.
const ToolName = "analyze_timeline"

// Analyzer runs a timeline analysis.
type Analyzer interface {
	Analyze(text string, opts timeline.Options) (*timeline.Result, error)
}

// Server wraps an MCP server exposing the timeline tool.
type Server struct {
	analyzer Analyzer
	defaults timeline.Options
	logger   *zap.SugaredLogger
	server   *server.MCPServer
}

// New creates the MCP server. defaults seed options the caller leaves out.
func New(analyzer Analyzer, defaults timeline.Options, version string, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	s := &Server{
		analyzer: analyzer,
		defaults: defaults,
		logger:   logger,
		server: server.NewMCPServer(
			"histline",
			version,
			server.WithToolCapabilities(true),
		),
	}

	tool := mcp.NewTool(ToolName,
		mcp.WithDescription("Extract dated events from Chinese historical text and group them into a timeline"),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Text to analyse"),
		),
		mcp.WithString("group_by",
			mcp.Description("Bucket events by year, century or dynasty (default: century)"),
			mcp.Enum(string(timeline.GroupByYear), string(timeline.GroupByCentury), string(timeline.GroupByDynasty)),
		),
		mcp.WithNumber("min_confidence",
			mcp.Description("Drop events below this confidence, 0 to 1"),
		),
		mcp.WithNumber("max_events",
			mcp.Description("Keep at most this many events"),
		),
	)
	s.server.AddTool(tool, s.handleAnalyze)
	return s
}

func (s *Server) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	opts := s.defaults
	opts.GroupBy = timeline.GroupBy(request.GetString("group_by", string(opts.GroupBy)))
	opts.MinConfidence = request.GetFloat("min_confidence", opts.MinConfidence)
	opts.MaxEvents = request.GetInt("max_events", opts.MaxEvents)

	result, err := s.analyzer.Analyze(text, opts)
	if err != nil {
		if errors.Is(err, timeline.ErrConfiguration) {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid options: %v", err)), nil
		}
		s.logger.Warnw("Timeline analysis failed", logging.FieldError, err)
		return mcp.NewToolResultError(fmt.Sprintf("Analysis failed: %v", err)), nil
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encoding result")
	}
	s.logger.Infow("Timeline analysis complete", "events", result.Summary.EventsCount)
	return mcp.NewToolResultText(string(data)), nil
}

// Serve blocks serving the protocol on stdin/stdout.
func (s *Server) Serve() error {
	return server.ServeStdio(s.server)
}
