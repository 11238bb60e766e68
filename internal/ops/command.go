package ops

import (
	"context"
	"fmt"

	"github.com/hpungsan/tinycapture/internal/errors"
)

// CommandSaveCurrentTab is the hotkey command bound to Capture.
const CommandSaveCurrentTab = "save-current-tab"

// RunCommand dispatches a named hotkey command.
func RunCommand(ctx context.Context, env *Env, name string) (*CaptureOutput, error) {
	switch name {
	case CommandSaveCurrentTab:
		return Capture(ctx, env, CaptureInput{})
	default:
		return nil, errors.NewInvalidRequest(fmt.Sprintf("unknown command %q", name))
	}
}
