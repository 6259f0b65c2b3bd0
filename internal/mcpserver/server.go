package mcpserver

import (
	"context"
	"time"

	"github.com/ENiaC-Space/stake7/internal/refresh"
	"github.com/ethereum/go-ethereum/common"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DaemonInfo provides read-only access to daemon state for MCP tools.
type DaemonInfo interface {
	NodeID() string
	Uptime() time.Duration
	ChainStatus() map[string]interface{}
	TokenSymbol() string
}

// Yield is the refresh service as seen by the tools.
type Yield interface {
	Dashboard() *refresh.Dashboard
	Progress() refresh.Progress
	View(ctx context.Context, addr common.Address) (refresh.WalletView, error)
}

// MCPServer wraps the MCP protocol server with stake7 tools.
type MCPServer struct {
	server *mcp.Server
	daemon DaemonInfo
	yield  Yield
}

// New creates an MCP server with all stake7 tools registered.
func New(version string, daemon DaemonInfo, yield Yield) *MCPServer {
	s := &MCPServer{
		daemon: daemon,
		yield:  yield,
		server: mcp.NewServer(
			&mcp.Implementation{
				Name:    "stake7",
				Version: version,
			},
			&mcp.ServerOptions{
				Instructions: "Staking yield calculator for a MasterChef pool. Provides tools to read pool APR/APY, per-wallet reward projections and the watched wallet list.",
			},
		),
	}
	s.registerTools()
	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects.
func (s *MCPServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
