// Package mcp exposes the risk engine as Model Context Protocol tools.
package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/neorisk-server/internal/conversation"
	"github.com/neorisk-server/internal/domain"
)

// Tool names
const (
	ToolAssessTransportRisk = "assess_transport_risk"
	ToolScoreParameter      = "score_parameter"
	ToolClassifyScore       = "classify_score"
	ToolListParameters      = "list_parameters"
	ToolChatMessage         = "chat_message"
)

// Server represents the neonatal transport risk MCP server
type Server struct {
	config    domain.MCPConfig
	assessor  domain.Assessor
	shell     *conversation.Shell
	mcpServer *mcp.Server
	logger    *logrus.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg domain.MCPConfig, assessor domain.Assessor, shell *conversation.Shell, logger *logrus.Logger) *Server {
	if cfg.ServerName == "" {
		cfg.ServerName = "neorisk"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "1.0.0"
	}

	serverInfo := &mcp.Implementation{
		Name:    cfg.ServerName,
		Version: cfg.ServerVersion,
	}

	server := &Server{
		config:    cfg,
		assessor:  assessor,
		shell:     shell,
		mcpServer: mcp.NewServer(serverInfo, nil),
		logger:    logger,
	}
	server.registerTools()

	return server
}

// MCPServer returns the underlying SDK server
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

// Start serves MCP over stdio until ctx is cancelled or the client disconnects
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithFields(logrus.Fields{
		"name":    s.config.ServerName,
		"version": s.config.ServerVersion,
	}).Info("Starting MCP server on stdio")

	if err := s.mcpServer.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("MCP server failed: %w", err)
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolAssessTransportRisk,
		Description: "Score all seven neonatal parameters, estimate mortality probability and return the transport risk report",
	}, s.handleAssessTransportRisk)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolScoreParameter,
		Description: "Validate and score a single neonatal parameter against its configured ranges",
	}, s.handleScoreParameter)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolClassifyScore,
		Description: "Map a total risk score to its risk level, diagnosis and recommendation",
	}, s.handleClassifyScore)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        ToolListParameters,
		Description: "List the scored parameters with units, accepted ranges and precision",
	}, s.handleListParameters)

	if s.shell != nil {
		mcp.AddTool(s.mcpServer, &mcp.Tool{
			Name:        ToolChatMessage,
			Description: "Send one message to the step-by-step assessment conversation identified by chat_id",
		}, s.handleChatMessage)
	}

	s.logger.Debug("Registered MCP tools")
}
