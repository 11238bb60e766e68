package web

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/hpungsan/tinycapture/internal/capture"
	"github.com/hpungsan/tinycapture/internal/dispatch"
	"github.com/hpungsan/tinycapture/internal/errors"
	"github.com/hpungsan/tinycapture/internal/ops"
)

// maxAPIBodyBytes caps JSON request bodies on the extension API.
const maxAPIBodyBytes = 1 << 20

// Handlers contains HTTP route handlers for the popup panel.
// Every operation goes through the runner so overlapping requests never
// interleave queue mutations.
type Handlers struct {
	env      *ops.Env
	runner   *dispatch.Runner
	renderer *Renderer
}

// popupState is what the popup shows besides the status line.
type popupState struct {
	Items    []capture.Item
	Settings capture.Settings
}

// APIStatus is the GET /api/status response.
type APIStatus struct {
	Count    int              `json:"count"`
	Settings capture.Settings `json:"settings"`
}

// HandlePopup handles GET /: count, settings and the queue.
func (h *Handlers) HandlePopup(w http.ResponseWriter, r *http.Request) {
	h.renderPopup(w, r, "", "")
}

// HandleCapture handles POST /capture: the popup's save button.
// An empty url field asks the configured tab source for the focused tab.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	input := ops.CaptureInput{URL: strings.TrimSpace(r.FormValue("url"))}
	result, err := dispatch.Run(r.Context(), h.runner, "capture", func(ctx context.Context) (*ops.CaptureOutput, error) {
		return ops.Capture(ctx, h.env, input)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.respondCapture(w, r, result)
}

// HandleCommand handles POST /commands/{name}: the hotkey binding.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	result, err := dispatch.Run(r.Context(), h.runner, "command", func(ctx context.Context) (*ops.CaptureOutput, error) {
		return ops.RunCommand(ctx, h.env, name)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.respondCapture(w, r, result)
}

// HandleClear handles POST /clear: empty the queue.
func (h *Handlers) HandleClear(w http.ResponseWriter, r *http.Request) {
	result, err := dispatch.Run(r.Context(), h.runner, "clear", func(ctx context.Context) (*ops.ClearOutput, error) {
		return ops.ClearQueue(ctx, h.env)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderPopup(w, r, result.Message, "ok")
}

// HandleSettings handles POST /settings: the auto-export checkbox and the
// folder field. Fields that are absent from the form keep their stored value.
// The response carries the sanitized folder so the field shows what was saved.
func (h *Handlers) HandleSettings(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}

	patch, err := settingsPatchFromForm(r)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	result, err := dispatch.Run(r.Context(), h.runner, "settings", func(ctx context.Context) (*ops.SettingsOutput, error) {
		return ops.UpdateSettings(ctx, h.env, patch)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderPopup(w, r, result.Message, "ok")
}

// HandleExport handles GET /export: the export trigger page.
// Loading it exports the whole queue once and returns it as an attachment.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	result, err := dispatch.Run(r.Context(), h.runner, "export", func(ctx context.Context) (*ops.RenderedExport, error) {
		return ops.RenderQueueExport(ctx, h.env)
	})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.logger.Info("queue exported", "filename", result.Filename, "count", result.Count)

	w.Header().Set("Content-Type", ops.JSONMediaType+"; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// HandleAPICapture handles POST /api/capture: {"url": "..."} from an
// extension background script. Omitting url uses the configured tab source.
func (h *Handlers) HandleAPICapture(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}
	if err := decodeJSONBody(w, r, &body); err != nil {
		renderJSONError(w, errors.As(err))
		return
	}

	input := ops.CaptureInput{URL: strings.TrimSpace(body.URL)}
	result, err := dispatch.Run(r.Context(), h.runner, "capture", func(ctx context.Context) (*ops.CaptureOutput, error) {
		return ops.Capture(ctx, h.env, input)
	})
	if err != nil {
		h.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAPIExport handles POST /api/export: write the queue to the downloads
// directory. The optional JSON body is {"filename": "..."}.
func (h *Handlers) HandleAPIExport(w http.ResponseWriter, r *http.Request) {
	var input ops.ExportInput
	if r.ContentLength != 0 {
		var body struct {
			Filename string `json:"filename"`
		}
		if err := decodeJSONBody(w, r, &body); err != nil {
			renderJSONError(w, errors.As(err))
			return
		}
		input.Filename = body.Filename
	}

	result, err := dispatch.Run(r.Context(), h.runner, "export", func(ctx context.Context) (*ops.ExportOutput, error) {
		return ops.ExportQueue(ctx, h.env, input)
	})
	if err != nil {
		h.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, result)
}

// HandleAPIStatus handles GET /api/status: count and settings.
func (h *Handlers) HandleAPIStatus(w http.ResponseWriter, r *http.Request) {
	state, err := h.loadState(r.Context())
	if err != nil {
		h.renderAPIError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, APIStatus{Count: len(state.Items), Settings: state.Settings})
}

// respondCapture renders a capture outcome. Outcomes are never HTTP errors:
// a rejected page or a failed auto-export is reported in the status line.
func (h *Handlers) respondCapture(w http.ResponseWriter, r *http.Request, result *ops.CaptureOutput) {
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}
	h.renderPopup(w, r, result.Message, statusKind(result.Status))
}

func (h *Handlers) renderPopup(w http.ResponseWriter, r *http.Request, status, kind string) {
	state, err := h.loadState(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "popup", PopupPageData{
		PageData: PageData{
			Title:   "Capture",
			Version: h.renderer.version,
		},
		Count:      len(state.Items),
		Status:     status,
		StatusKind: kind,
		Settings:   state.Settings,
		QueueHTML:  queueHTML(state.Items),
	})
}

// loadState reads queue and settings in one runner task so the two agree.
func (h *Handlers) loadState(ctx context.Context) (*popupState, error) {
	return dispatch.Run(ctx, h.runner, "status", func(ctx context.Context) (*popupState, error) {
		items, err := ops.LoadQueue(ctx, h.env)
		if err != nil {
			return nil, err
		}
		settings, err := ops.GetSettings(ctx, h.env)
		if err != nil {
			return nil, err
		}
		return &popupState{Items: items, Settings: settings}, nil
	})
}

func (h *Handlers) renderAPIError(w http.ResponseWriter, r *http.Request, err error) {
	cErr := errors.As(err)
	if cErr.Code == errors.ErrInternal {
		h.renderer.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	renderJSONError(w, cErr)
}

func queueHTML(items []capture.Item) template.HTML {
	if len(items) == 0 {
		return ""
	}
	return renderMarkdown(queueMarkdown(items))
}

// settingsPatchFromForm reads auto_export_enabled and auto_export_subdir.
// A checkbox posts nothing when unchecked, so the form pairs it with a hidden
// "false" input and the last value wins.
func settingsPatchFromForm(r *http.Request) (capture.SettingsPatch, error) {
	var patch capture.SettingsPatch

	if values, ok := r.Form["auto_export_enabled"]; ok && len(values) > 0 {
		enabled, err := parseFormBool(values[len(values)-1])
		if err != nil {
			return patch, errors.NewInvalidRequest("auto_export_enabled must be a boolean")
		}
		patch.AutoExportEnabled = &enabled
	}
	if values, ok := r.Form["auto_export_subdir"]; ok && len(values) > 0 {
		subdir := values[len(values)-1]
		patch.AutoExportSubdir = &subdir
	}
	return patch, nil
}

func parseFormBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no", "":
		return false, nil
	}
	return strconv.ParseBool(s)
}

// decodeJSONBody decodes a single JSON object, rejecting oversized bodies and unknown fields.
// The body must be declared application/json, which a cross-site form or
// simple request cannot send.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst any) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		return errors.NewUnsupportedMediaType("application/json")
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxAPIBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid JSON body: %v", err))
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.NewInvalidRequest("invalid JSON body: trailing data")
	}
	return nil
}

func statusKind(status ops.CaptureStatus) string {
	switch status {
	case ops.StatusSaved, ops.StatusSavedExported:
		return "ok"
	case ops.StatusRejected, ops.StatusSavedExportFailed:
		return "warn"
	default:
		return ""
	}
}
