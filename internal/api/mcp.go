package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/forlove/internal/candidate"
	"github.com/kalambet/forlove/internal/identity"
	"github.com/kalambet/forlove/internal/orchestrator"
	"github.com/kalambet/forlove/internal/slots"
)

// MCPGenerator runs one generation. Implemented by *orchestrator.Orchestrator.
type MCPGenerator interface {
	Generate(ctx context.Context, in orchestrator.Input) orchestrator.Outcome
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Slots     *slots.Store
	Identity  *identity.Manager
	History   *candidate.Archive
	Generator MCPGenerator
}

// NewMCPServer creates an MCP server with the forlove tools and resources
// registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"forlove",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("forlove writes chat replies, openers and polished text in three candidates, shaped by the user's slots and identity."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_candidates",
			mcp.WithDescription("Generate three candidate texts with a slot's selected sub-category. Falls back to local templates when the generation service is unreachable."),
			mcp.WithString("content", mcp.Description("The message to reply to, or the text to polish")),
			mcp.WithNumber("slot_id", mcp.Description("Slot id 0-4 (default: the current active slot)")),
			mcp.WithString("chat_context", mcp.Description("Optional earlier conversation")),
		),
		mcpGenerateCandidates(deps),
	)

	s.AddTool(
		mcp.NewTool("select_sub_category",
			mcp.WithDescription("Select the sub-category of a slot by its index in the slot's list. Out-of-range indexes leave the slot unchanged."),
			mcp.WithNumber("slot_id", mcp.Description("Slot id 0-4"), mcp.Required()),
			mcp.WithNumber("index", mcp.Description("Index into the slot's sub-categories"), mcp.Required()),
		),
		mcpSelectSubCategory(deps),
	)

	s.AddTool(
		mcp.NewTool("set_active_slots",
			mcp.WithDescription("Choose up to three slots to expose, in order."),
			mcp.WithArray("ids", mcp.Description("Distinct slot ids 0-4"), mcp.Required()),
		),
		mcpSetActiveSlots(deps),
	)

	s.AddTool(
		mcp.NewTool("set_identity_field",
			mcp.WithDescription("Update one field of the user's identity profile."),
			mcp.WithString("key", mcp.Description("Identity key, e.g. identity.speaking_style"), mcp.Required()),
			mcp.WithString("value", mcp.Description("Value to set"), mcp.Required()),
		),
		mcpSetIdentityField(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"slots://configuration",
			"Slot Configuration",
			mcp.WithResourceDescription("All five slots and the active slot ids as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceSlots(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"user://identity",
			"User Identity",
			mcp.WithResourceDescription("Current identity profile as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceIdentity(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"history://recent",
			"Recent Candidates",
			mcp.WithResourceDescription("Last 20 committed candidate texts"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

type generateResult struct {
	Kind       orchestrator.Kind   `json:"kind"`
	Reason     orchestrator.Reason `json:"reason,omitempty"`
	Advisory   string              `json:"advisory,omitempty"`
	SlotID     int                 `json:"slot_id"`
	Sub        string              `json:"sub_category"`
	Candidates []string            `json:"candidates"`
	Risky      []int               `json:"risk_flagged,omitempty"`
}

func mcpGenerateCandidates(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Generator == nil {
			return mcpError("generation not available"), nil
		}

		slot, ok := deps.Slots.CurrentSlot()
		if id := req.GetInt("slot_id", -1); id >= 0 {
			slot, ok = deps.Slots.Load().Slot(id)
		}
		if !ok {
			return mcpError("no such slot"), nil
		}

		id, err := deps.Identity.Get()
		if err != nil {
			return mcpError(fmt.Sprintf("loading identity: %v", err)), nil
		}

		out := deps.Generator.Generate(ctx, orchestrator.Input{
			Slot:        slot,
			Content:     req.GetString("content", ""),
			Identity:    id,
			ChatContext: req.GetString("chat_context", ""),
		})
		if !out.Delivered() {
			msg := string(out.Kind)
			if out.Err != nil {
				msg = out.Err.Error()
			}
			return mcpError(msg), nil
		}

		res := generateResult{
			Kind:       out.Kind,
			Reason:     out.Reason,
			Advisory:   out.Advisory,
			SlotID:     slot.ID,
			Sub:        slot.SelectedSubCategory.DisplayName(),
			Candidates: candidate.Texts(out.Candidates),
		}
		for i, c := range out.Candidates {
			if c.RiskFlagged {
				res.Risky = append(res.Risky, i)
			}
		}
		b, err := json.Marshal(res)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSelectSubCategory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireInt("slot_id")
		if err != nil {
			return mcpError("slot_id is required"), nil
		}
		index, err := req.RequireInt("index")
		if err != nil {
			return mcpError("index is required"), nil
		}

		cfg, err := deps.Slots.SelectSubCategory(id, index)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save selection: %v", err)), nil
		}
		slot, ok := cfg.Slot(id)
		if !ok {
			return mcpError(fmt.Sprintf("slot %d not found", id)), nil
		}
		return mcpText(fmt.Sprintf("Slot %d (%s): %s", id, slot.MainCategory.DisplayName(), slot.SelectedSubCategory.DisplayName())), nil
	}
}

func mcpSetActiveSlots(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, ok := req.GetArguments()["ids"].([]any)
		if !ok {
			return mcpError("ids must be an array of slot ids"), nil
		}
		ids := make([]int, 0, len(raw))
		for _, v := range raw {
			f, ok := v.(float64)
			if !ok || f != float64(int(f)) {
				return mcpError(fmt.Sprintf("invalid slot id %v", v)), nil
			}
			ids = append(ids, int(f))
		}
		if err := slots.CheckActiveIDs(ids); err != nil {
			return mcpError(err.Error()), nil
		}

		cfg, err := deps.Slots.SetActiveSlots(ids)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to save active slots: %v", err)), nil
		}
		names := make([]string, 0, len(cfg.ActiveSlotIDs))
		for _, s := range cfg.ActiveSlots() {
			names = append(names, s.MainCategory.DisplayName())
		}
		return mcpText("Active slots: " + strings.Join(names, ", ")), nil
	}
}

func mcpSetIdentityField(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		key, err := req.RequireString("key")
		if err != nil {
			return mcpError("key is required"), nil
		}
		value, err := req.RequireString("value")
		if err != nil {
			return mcpError("value is required"), nil
		}

		if err := deps.Identity.SetField(key, value); err != nil {
			return mcpError(fmt.Sprintf("failed to set identity field: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Set %s = %s", key, value)), nil
	}
}

func mcpResourceSlots(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		cfg := deps.Slots.Load()
		return jsonResource(req.Params.URI, slotsResponse{
			Configuration: cfg,
			ActiveIndex:   deps.Slots.ActiveIndex(cfg),
		})
	}
}

func mcpResourceIdentity(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		id, err := deps.Identity.Get()
		if err != nil {
			return nil, fmt.Errorf("failed to get identity: %w", err)
		}
		return jsonResource(req.Params.URI, id)
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		items, err := deps.History.Recent(20)
		if err != nil {
			return nil, fmt.Errorf("failed to get history: %w", err)
		}
		return jsonResource(req.Params.URI, items)
	}
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
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
