package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
// Every tool call is funneled through runner.
type Handlers struct {
	env    *ops.Env
	runner *dispatch.Runner
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(env *ops.Env, runner *dispatch.Runner) *Handlers {
	return &Handlers{env: env, runner: runner}
}

// SaveRequest represents the arguments for capture_save.
type SaveRequest struct {
	URL string `json:"url,omitempty"`
}

// CommandRequest represents the arguments for capture_command.
type CommandRequest struct {
	Command string `json:"command"`
	URL     string `json:"url,omitempty"`
}

// ListRequest represents the arguments for capture_list.
type ListRequest struct {
	Limit  int `json:"limit,omitempty"`
	Offset int `json:"offset,omitempty"`
}

// ExportRequest represents the arguments for capture_export.
type ExportRequest struct {
	Filename string `json:"filename,omitempty"`
}

// ImportRequest represents the arguments for capture_import.
type ImportRequest struct {
	Path string `json:"path"`
}

// SettingsSetRequest represents the arguments for settings_set.
type SettingsSetRequest struct {
	AutoExportEnabled *bool   `json:"auto_export_enabled,omitempty"`
	AutoExportSubdir  *string `json:"auto_export_subdir,omitempty"`
}

// HandleSave handles the capture_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := dispatch.Run(ctx, h.runner, "capture", func(ctx context.Context) (*ops.CaptureOutput, error) {
		return ops.Capture(ctx, h.env, ops.CaptureInput{URL: input.URL})
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCommand handles the capture_command tool call.
func (h *Handlers) HandleCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommandRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Command == "" {
		return errorResult(errors.NewInvalidRequest("command is required")), nil
	}

	result, err := dispatch.Run(ctx, h.runner, "command", func(ctx context.Context) (*ops.CaptureOutput, error) {
		if input.Command == ops.CommandSaveCurrentTab && input.URL != "" {
			return ops.Capture(ctx, h.env, ops.CaptureInput{URL: input.URL})
		}
		return ops.RunCommand(ctx, h.env, input.Command)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleCount handles the capture_count tool call.
func (h *Handlers) HandleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := dispatch.Run(ctx, h.runner, "count", func(ctx context.Context) (*ops.CountOutput, error) {
		return ops.CountQueue(ctx, h.env)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleList handles the capture_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := dispatch.Run(ctx, h.runner, "list", func(ctx context.Context) (*ops.ListOutput, error) {
		return ops.ListQueue(ctx, h.env, ops.ListInput{Limit: input.Limit, Offset: input.Offset})
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleExport handles the capture_export tool call.
func (h *Handlers) HandleExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := dispatch.Run(ctx, h.runner, "export", func(ctx context.Context) (*ops.ExportOutput, error) {
		return ops.ExportQueue(ctx, h.env, ops.ExportInput{Filename: input.Filename})
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleImport handles the capture_import tool call.
func (h *Handlers) HandleImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ImportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := dispatch.Run(ctx, h.runner, "import", func(ctx context.Context) (*ops.ImportOutput, error) {
		return ops.Import(ctx, h.env, ops.ImportInput{Path: input.Path})
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleClear handles the capture_clear tool call.
func (h *Handlers) HandleClear(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := dispatch.Run(ctx, h.runner, "clear", func(ctx context.Context) (*ops.ClearOutput, error) {
		return ops.ClearQueue(ctx, h.env)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSettingsGet handles the settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := dispatch.Run(ctx, h.runner, "settings_get", func(ctx context.Context) (capture.Settings, error) {
		return ops.GetSettings(ctx, h.env)
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleSettingsSet handles the settings_set tool call.
func (h *Handlers) HandleSettingsSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingsSetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := dispatch.Run(ctx, h.runner, "settings_set", func(ctx context.Context) (*ops.SettingsOutput, error) {
		return ops.UpdateSettings(ctx, h.env, capture.SettingsPatch{
			AutoExportEnabled: input.AutoExportEnabled,
			AutoExportSubdir:  input.AutoExportSubdir,
		})
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Note: Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cErr *errors.CaptureError
	if stderrors.As(err, &cErr) && cErr.Code != errors.ErrInternal {
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": cErr.Message,
			"status":  cErr.Status,
		}
		if cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
