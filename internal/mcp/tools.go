package mcp

import "github.com/mark3labs/mcp-go/mcp"

var saveToolDef = mcp.NewTool("capture_save",
	mcp.WithDescription("Append a URL to the capture queue, as clicking the extension icon on that tab would. "+
		"Internal browser pages (about:, chrome:, moz-extension:) are rejected. "+
		"When auto-export is enabled the item is also written to the auto-export folder. "+
		"Without url, the focused tab of the configured DevTools endpoint is used."),
	mcp.WithString("url",
		mcp.Description("URL to capture, stored verbatim"),
	),
)

var commandToolDef = mcp.NewTool("capture_command",
	mcp.WithDescription("Run a hotkey command. The only command is save-current-tab."),
	mcp.WithString("command",
		mcp.Required(),
		mcp.Description("Command name (save-current-tab)"),
	),
	mcp.WithString("url",
		mcp.Description("URL of the current tab; defaults to the DevTools focused tab"),
	),
)

var countToolDef = mcp.NewTool("capture_count",
	mcp.WithDescription("Return the number of queued captures."),
)

var listToolDef = mcp.NewTool("capture_list",
	mcp.WithDescription("List queued captures in capture order."),
	mcp.WithNumber("limit",
		mcp.Description("Maximum items to return (default 20, max 500)"),
	),
	mcp.WithNumber("offset",
		mcp.Description("Items to skip"),
	),
)

var exportToolDef = mcp.NewTool("capture_export",
	mcp.WithDescription("Export the whole queue as a JSON array into the downloads directory. "+
		"Existing files are never overwritten; a numbered name is chosen instead."),
	mcp.WithString("filename",
		mcp.Description("Relative .json filename (default aku_capture_queue_<timestamp>.json)"),
	),
)

var importToolDef = mcp.NewTool("capture_import",
	mcp.WithDescription("Append the url items of an exported JSON array to the queue. Invalid entries are skipped."),
	mcp.WithString("path",
		mcp.Required(),
		mcp.Description("Path to a .json export file directly in the downloads directory, the auto-export folder or an allowed_paths entry"),
	),
)

var clearToolDef = mcp.NewTool("capture_clear",
	mcp.WithDescription("Remove every item from the capture queue. Settings are kept."),
)

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Return the auto-export settings."),
)

var settingsSetToolDef = mcp.NewTool("settings_set",
	mcp.WithDescription("Update auto-export settings. Omitted fields keep their current value. "+
		"The folder is sanitized (backslashes become slashes, outer slashes and spaces are trimmed, "+
		"empty falls back to any2ebook/inbox)."),
	mcp.WithBoolean("auto_export_enabled",
		mcp.Description("Export each capture as its own file"),
	),
	mcp.WithString("auto_export_subdir",
		mcp.Description("Folder under the downloads directory for auto-exported items"),
	),
)
