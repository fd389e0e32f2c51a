package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	slackclient "github.com/matillion/slack-export/internal/slack"
)

// errorWrappingHandler wraps a ToolHandler to provide enhanced error messages
type errorWrappingHandler struct {
	handler ToolHandler
	logger  *zap.Logger
}

func (h *errorWrappingHandler) ListChannels(ctx context.Context, req *mcp.CallToolRequest, input slackclient.ListChannelsInput) (*mcp.CallToolResult, slackclient.ListChannelsOutput, error) {
	result, output, err := h.handler.ListChannels(ctx, req, input)
	return result, output, slackclient.WrapError(h.logger, "list_channels", err)
}

func (h *errorWrappingHandler) ExportChannel(ctx context.Context, req *mcp.CallToolRequest, input slackclient.ExportChannelInput) (*mcp.CallToolResult, slackclient.ExportChannelOutput, error) {
	result, output, err := h.handler.ExportChannel(ctx, req, input)
	return result, output, slackclient.WrapError(h.logger, "export_channel", err)
}

// ToolHandler defines the interface for Slack tool operations
//
//go:generate go tool mockgen -source=$GOFILE -destination=mcp_mocks.go -package=mcp
type ToolHandler interface {
	ListChannels(ctx context.Context, req *mcp.CallToolRequest, input slackclient.ListChannelsInput) (*mcp.CallToolResult, slackclient.ListChannelsOutput, error)
	ExportChannel(ctx context.Context, req *mcp.CallToolRequest, input slackclient.ExportChannelInput) (*mcp.CallToolResult, slackclient.ExportChannelOutput, error)
}

// CreateServer creates an MCP server with the export tools registered
func CreateServer(logger *zap.Logger, handler ToolHandler, version string) *mcp.Server {
	logger.Info("Starting MCP server")
	server := mcp.NewServer(
		&mcp.Implementation{
			Name:    "slack-export",
			Version: version,
		},
		nil,
	)

	// Wrap handler to provide enhanced error messages for auth failures
	wrappedHandler := &errorWrappingHandler{handler: handler, logger: logger}
	registerTools(server, wrappedHandler)
	logger.Info("Slack export server initialized, starting transport")
	return server
}

// registerTools registers all Slack tools with the MCP server
func registerTools(server *mcp.Server, handler ToolHandler) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "slack_list_channels",
		Description: "List Slack channels the token has access to. Returns channel names, IDs, topics, and member counts, for choosing a channel to export.",
	}, handler.ListChannels)

	mcp.AddTool(server, &mcp.Tool{
		Name: "slack_export_channel",
		Description: "Export a Slack channel's messages for a period (UTC+9 dates, end exclusive) to a plain text and a markdown transcript. " +
			"Thread replies are fetched slowly to respect rate limits and are indented under their parent; set skip_threads for a fast export without them. " +
			"Returns an export ID immediately; set wait to get the written file paths and message counts instead.",
	}, handler.ExportChannel)
}
