// Package mcp exposes the TFG report pipeline as MCP tools over stdio.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/tfg-report-server/internal/domain"
)

// Tool names.
const (
	ToolEstimateDecline = "estimate_tfg_decline"
	ToolGenerateReport  = "generate_tfg_report"
)

// Pipeline is the part of the report service the tools drive.
type Pipeline interface {
	Generate(ctx context.Context, req *domain.ReportRequest) (*domain.Report, error)
	Analyze(ctx context.Context, req *domain.ReportRequest) (*domain.Analysis, error)
}

// Server represents the TFG report MCP server
type Server struct {
	mcpServer *mcp.Server
	pipeline  Pipeline
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance with both tools registered.
func NewServer(cfg domain.MCPConfig, logger *logrus.Logger, pipeline Pipeline) *Server {
	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	server := &Server{
		mcpServer: mcp.NewServer(serverInfo, nil),
		pipeline:  pipeline,
		logger:    logger,
	}
	server.registerTools()
	return server
}

// Start runs the server on stdin/stdout until ctx is canceled or the client
// disconnects.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting TFG report MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolEstimateDecline,
		Description: "Estimate the linear monthly and annual decline of a patient's eGFR (TFG) series " +
			"and classify it as slow, moderate or rapid.",
	}, s.handleEstimateDecline)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name: ToolGenerateReport,
		Description: "Generate the one-page TFG evolution report: decline statistics, a chart against " +
			"the reference trajectories (returned as an image) and the PDF document (base64).",
	}, s.handleGenerateReport)

	s.logger.WithField("tool_count", 2).Debug("Registered MCP tools")
}

// errorResult reports a tool failure to the client without failing the call.
func errorResult(message string, err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("%s: %v", message, err)},
		},
	}
}
