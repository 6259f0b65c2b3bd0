package mcpserver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ENiaC-Space/stake7/internal/db"
	"github.com/ENiaC-Space/stake7/internal/preflight"
	"github.com/ENiaC-Space/stake7/internal/report"
	"github.com/ENiaC-Space/stake7/internal/wallet"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// --- Input types ---

type emptyInput struct{}

type addressInput struct {
	Address string `json:"address" jsonschema:"0x-prefixed EVM wallet address"`
}

type checkInput struct {
	Address string `json:"address" jsonschema:"0x-prefixed EVM wallet address"`
	Action  string `json:"action" jsonschema:"stake, unstake or claim"`
	Amount  string `json:"amount,omitempty" jsonschema:"amount in staked-token units, e.g. 100.5 (not needed for claim)"`
}

type watchInput struct {
	Address string `json:"address" jsonschema:"0x-prefixed EVM wallet address"`
	Label   string `json:"label,omitempty" jsonschema:"optional label for the wallet"`
}

// registerTools adds all stake7 MCP tools to the server.
func (s *MCPServer) registerTools() {
	// Read-only tools

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_status",
		Description: "Node status: ID, uptime, chain endpoint, contracts and refresh loop state",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_pool",
		Description: "Pool yield: allocation share, reward per block, total staked, APR, APY and tier",
	}, s.handlePool)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_wallet",
		Description: "Balances, staked amount, pending reward and projected rewards for any wallet",
	}, s.handleWallet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_check",
		Description: "Check whether a stake, unstake or claim would pass the wallet's balance, allowance and staked-amount checks. Read-only; sends nothing",
	}, s.handleCheck)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_watchlist",
		Description: "Wallets recomputed on every refresh cycle",
	}, s.handleWatchlist)

	// Watchlist edits

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_watch",
		Description: "Add a wallet to the watchlist (takes effect on the next refresh cycle)",
	}, s.handleWatch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stake7_unwatch",
		Description: "Remove a wallet from the watchlist",
	}, s.handleUnwatch)
}

// --- Handlers ---

func (s *MCPServer) handleStatus(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	p := s.yield.Progress()
	watched, _ := db.GetWatched()

	var b strings.Builder
	fmt.Fprintf(&b, "# stake7 Status\n\n")
	fmt.Fprintf(&b, "**Node ID:** `%s`\n", s.daemon.NodeID())
	fmt.Fprintf(&b, "**Uptime:** %s\n\n", s.daemon.Uptime().Round(1e9))

	fmt.Fprintf(&b, "## Chain\n")
	chain := s.daemon.ChainStatus()
	keys := make([]string, 0, len(chain))
	for k := range chain {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "- %s: %v\n", k, chain[k])
	}

	fmt.Fprintf(&b, "\n## Refresh\n")
	fmt.Fprintf(&b, "- Running: %v\n", p.Running)
	fmt.Fprintf(&b, "- Cycles: %d (%d failed)\n", p.Cycles, p.Failures)
	fmt.Fprintf(&b, "- Block: %d\n", p.Block)
	fmt.Fprintf(&b, "- Wallets: %d (%d on watchlist)\n", p.Wallets, len(watched))
	if p.LastError != "" {
		fmt.Fprintf(&b, "- Last error: %s\n", p.LastError)
	}

	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handlePool(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	dash := s.yield.Dashboard()
	if dash == nil {
		return errResult("No pool data yet. The first refresh cycle has not completed."), nil, nil
	}
	return textResult(renderPool(report.NewPool(dash, s.daemon.TokenSymbol()))), nil, nil
}

func (s *MCPServer) handleWallet(ctx context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	addr, err := wallet.ParseAddress(input.Address)
	if err != nil {
		return errResult(err.Error()), nil, nil
	}
	view, err := s.yield.View(ctx, addr)
	if err != nil {
		return errResult(fmt.Sprintf("read failed: %v", err)), nil, nil
	}
	rep := report.NewWallet(view, s.daemon.TokenSymbol())
	if rep.Watched, err = db.IsWatched(rep.Address); err != nil {
		return errResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	return textResult(renderWallet(rep)), nil, nil
}

func (s *MCPServer) handleCheck(ctx context.Context, _ *mcp.CallToolRequest, input checkInput) (*mcp.CallToolResult, any, error) {
	action, err := preflight.ParseAction(input.Action)
	if err != nil {
		return errResult(err.Error()), nil, nil
	}
	addr, err := wallet.ParseAddress(input.Address)
	if err != nil {
		return errResult(err.Error()), nil, nil
	}
	view, err := s.yield.View(ctx, addr)
	if err != nil {
		return errResult(fmt.Sprintf("read failed: %v", err)), nil, nil
	}
	res, err := preflight.Check(action, input.Amount, view, s.daemon.TokenSymbol())
	if err != nil {
		return errResult(err.Error()), nil, nil
	}

	amt := amountLabel(res)
	if !res.OK {
		return textResult(fmt.Sprintf("%s %s from `%s` would fail: %s.", action, amt, wallet.Short(addr), res.Reason)), nil, nil
	}
	return textResult(fmt.Sprintf("%s %s from `%s` passes the wallet checks.", action, amt, wallet.Short(addr))), nil, nil
}

func (s *MCPServer) handleWatchlist(_ context.Context, _ *mcp.CallToolRequest, _ emptyInput) (*mcp.CallToolResult, any, error) {
	watched, err := db.GetWatched()
	if err != nil {
		return errResult(fmt.Sprintf("Error: %v", err)), nil, nil
	}
	if len(watched) == 0 {
		return textResult("No watched wallets."), nil, nil
	}

	dash := s.yield.Dashboard()
	var b strings.Builder
	fmt.Fprintf(&b, "# Watchlist (%d)\n\n", len(watched))
	fmt.Fprintf(&b, "| Address | Label | Staked | Pending | Daily |\n")
	fmt.Fprintf(&b, "|---------|-------|--------|---------|-------|\n")
	for _, ww := range watched {
		label := "-"
		if ww.Label != nil {
			label = *ww.Label
		}
		short, staked, pending, daily := ww.Address, "-", "-", "-"
		if addr, err := wallet.ParseAddress(ww.Address); err == nil {
			short = wallet.Short(addr)
			if v, ok := dash.Wallet(addr); ok {
				rep := report.NewWallet(v, s.daemon.TokenSymbol())
				staked, pending, daily = rep.Display.Staked, rep.Display.Pending, rep.Display.DailyReward
			}
		}
		fmt.Fprintf(&b, "| `%s` | %s | %s | %s | %s |\n", short, label, staked, pending, daily)
	}
	return textResult(b.String()), nil, nil
}

func (s *MCPServer) handleWatch(_ context.Context, _ *mcp.CallToolRequest, input watchInput) (*mcp.CallToolResult, any, error) {
	addr, err := wallet.ParseAddress(input.Address)
	if err != nil {
		return errResult(err.Error()), nil, nil
	}
	var label *string
	if input.Label != "" {
		label = &input.Label
	}
	if err := db.AddWatched(addr.Hex(), label); err != nil {
		return errResult(fmt.Sprintf("watch failed: %v", err)), nil, nil
	}
	return textResult(fmt.Sprintf("Watching `%s`. It will be included from the next refresh cycle.", addr.Hex())), nil, nil
}

func (s *MCPServer) handleUnwatch(_ context.Context, _ *mcp.CallToolRequest, input addressInput) (*mcp.CallToolResult, any, error) {
	addr, err := wallet.ParseAddress(input.Address)
	if err != nil {
		return errResult(err.Error()), nil, nil
	}
	removed, err := db.RemoveWatched(addr.Hex())
	if err != nil {
		return errResult(fmt.Sprintf("unwatch failed: %v", err)), nil, nil
	}
	if !removed {
		return errResult(fmt.Sprintf("`%s` is not on the watchlist", wallet.Short(addr))), nil, nil
	}
	return textResult(fmt.Sprintf("Removed `%s` from the watchlist.", wallet.Short(addr))), nil, nil
}

// --- Rendering ---

func renderPool(p report.Pool) string {
	d := p.Display
	var b strings.Builder
	fmt.Fprintf(&b, "# Pool %d\n\n", p.PoolID)
	fmt.Fprintf(&b, "**APR:** %s (%s)\n", d.APR, d.Tier)
	fmt.Fprintf(&b, "**APY:** %s (daily compounding)\n", d.APY)
	fmt.Fprintf(&b, "**Daily rate:** %s\n\n", d.DailyRate)
	fmt.Fprintf(&b, "- Allocation: %s of emissions (%s / %s)\n", d.PoolShare, p.AllocPoint, p.TotalAllocPoint)
	fmt.Fprintf(&b, "- Emission per block: %s\n", d.EmissionPerBlock)
	fmt.Fprintf(&b, "- Pool reward per block: %s\n", d.RewardPerBlock)
	fmt.Fprintf(&b, "- Annual pool rewards: %s\n", d.AnnualRewards)
	fmt.Fprintf(&b, "- Total staked: %s\n", d.TotalStaked)
	fmt.Fprintf(&b, "- Block: %d\n", p.Block)
	return b.String()
}

func renderWallet(w report.Wallet) string {
	d := w.Display
	var b strings.Builder
	fmt.Fprintf(&b, "# Wallet `%s`\n\n", d.Address)
	if w.Watched {
		fmt.Fprintf(&b, "_On the watchlist._\n\n")
	}
	fmt.Fprintf(&b, "- Balance: %s\n", d.Balance)
	fmt.Fprintf(&b, "- Allowance: %s\n", d.Allowance)
	fmt.Fprintf(&b, "- Staked: %s\n", d.Staked)
	fmt.Fprintf(&b, "- Pending rewards: %s\n", d.Pending)

	if w.Projection == nil {
		fmt.Fprintf(&b, "\nNothing staked; no reward projection.\n")
		return b.String()
	}
	fmt.Fprintf(&b, "\n## Projected rewards\n")
	fmt.Fprintf(&b, "- Pool share: %s\n", d.Share)
	fmt.Fprintf(&b, "- Daily: %s (%s)\n", d.DailyReward, d.DailyRate)
	fmt.Fprintf(&b, "- Weekly: %s\n", d.WeeklyReward)
	fmt.Fprintf(&b, "- Monthly: %s\n", d.MonthlyReward)
	fmt.Fprintf(&b, "- Yearly: %s\n", d.YearlyReward)
	return b.String()
}

// --- Helpers ---

func amountLabel(r preflight.Result) string {
	return r.Amount.String() + " " + r.Symbol
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
