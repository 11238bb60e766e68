package ops

import (
	"context"

	"github.com/hpungsan/tinycapture/internal/browser"
	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/errors"
)

// CaptureStatus is the outcome of a capture.
type CaptureStatus string

const (
	StatusNoTab             CaptureStatus = "no_tab"
	StatusRejected          CaptureStatus = "rejected"
	StatusSaved             CaptureStatus = "saved"
	StatusSavedExported     CaptureStatus = "saved_exported"
	StatusSavedExportFailed CaptureStatus = "saved_export_failed"
)

// Status messages shown to the user.
const (
	MessageRejected          = "Cannot save internal browser pages."
	MessageSaved             = "Saved ✓"
	MessageSavedExported     = "Saved + auto-exported ✓"
	MessageSavedExportFailed = "Saved, auto-export failed."
)

// CaptureInput contains parameters for the Capture operation.
type CaptureInput struct {
	// URL, when set, is taken as the active tab's URL instead of asking env.Tabs.
	URL string
}

// CaptureOutput contains the result of the Capture operation.
type CaptureOutput struct {
	Status      CaptureStatus `json:"status"`
	Message     string        `json:"message"`
	Count       int           `json:"count"`
	Item        *capture.Item `json:"item,omitempty"`
	Export      *ExportOutput `json:"export,omitempty"`
	ExportError string        `json:"export_error,omitempty"`
}

// Saved reports whether the capture appended an item.
func (o *CaptureOutput) Saved() bool {
	switch o.Status {
	case StatusSaved, StatusSavedExported, StatusSavedExportFailed:
		return true
	}
	return false
}

// Capture appends the active tab's URL to the queue and, when enabled,
// auto-exports the new item.
//
// No tab and internal pages are outcomes, not errors: the queue is left
// untouched and the status says why. A failed auto-export never undoes the
// append.
func Capture(ctx context.Context, env *Env, input CaptureInput) (*CaptureOutput, error) {
	var tabs browser.TabQuerier = browser.StaticTab{URL: input.URL}
	if input.URL == "" && env.Tabs != nil {
		tabs = env.Tabs
	}
	tab, err := tabs.ActiveTab(ctx)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if tab == nil || tab.URL == "" {
		env.logger().Debug("capture skipped: no active tab")
		return &CaptureOutput{Status: StatusNoTab}, nil
	}

	if capture.IsInternalURL(tab.URL) {
		env.logger().Info("capture rejected", "url", tab.URL)
		return &CaptureOutput{Status: StatusRejected, Message: MessageRejected}, nil
	}

	item := capture.NewItem(tab.URL, env.now())
	count, err := appendItems(ctx, env, item)
	if err != nil {
		return nil, err
	}
	env.logger().Info("captured", "url", item.PayloadRef, "count", count)

	out := &CaptureOutput{
		Status:  StatusSaved,
		Message: MessageSaved,
		Count:   count,
		Item:    &item,
	}

	settings, err := GetSettings(ctx, env)
	if err != nil {
		return nil, err
	}
	if !settings.AutoExportEnabled {
		return out, nil
	}

	export, err := ExportItem(ctx, env, item, settings.AutoExportSubdir)
	if err != nil {
		env.logger().Warn("auto-export failed", "url", item.PayloadRef, "error", err)
		out.Status = StatusSavedExportFailed
		out.Message = MessageSavedExportFailed
		out.ExportError = errors.As(err).Message
		return out, nil
	}

	out.Status = StatusSavedExported
	out.Message = MessageSavedExported
	out.Export = export
	return out, nil
}
