package socketio

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/registry"
	"github.com/specialistvlad/buildgridgo/internal/socketioevents"
	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/zishang520/engine.io/v2/types"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Input defines the arguments of a `socketio` action block.
type Input struct {
	URL                string            `hcl:"url"`
	Namespace          string            `hcl:"namespace,optional"`
	EmitEvent          string            `hcl:"emit_event"`
	EmitData           map[string]string `hcl:"emit_data,optional"`
	OnEvent            string            `hcl:"on_event,optional"`
	Timeout            string            `hcl:"timeout,optional"`
	InsecureSkipVerify bool              `hcl:"insecure_skip_verify,optional"`
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	data any
	err  error
}

// Emit connects, emits the event and, when on_event is set, waits for that
// reply and writes it to the task's stdout.
func Emit(ctx context.Context, ec *task.ExecContext, input *Input) error {
	logger := ctxlog.FromContext(ctx).With("url", input.URL, "emitEvent", input.EmitEvent, "onEvent", input.OnEvent)
	logger.Debug("Handler started")
	defer logger.Debug("Handler finished")

	timeout := 10 * time.Second
	if input.Timeout != "" {
		parsed, err := time.ParseDuration(input.Timeout)
		if err != nil {
			return fmt.Errorf("failed to parse timeout: %w", err)
		}
		timeout = parsed
	}
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	io, err := socketioevents.Dial(opCtx, socketioevents.DialOptions{
		URL:                input.URL,
		Namespace:          input.Namespace,
		InsecureSkipVerify: input.InsecureSkipVerify,
		Timeout:            timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	done := make(chan opResult, 1)
	if input.OnEvent != "" {
		io.Once(types.EventName(input.OnEvent), func(data ...any) {
			var res opResult
			if len(data) > 0 {
				res.data = data[0]
			}
			select {
			case done <- res:
			default:
			}
		})
	}

	logger.Debug("Emitting event", "data", input.EmitData)
	io.Emit(input.EmitEvent, input.EmitData)
	if input.OnEvent == "" {
		return nil
	}

	select {
	case <-opCtx.Done():
		return fmt.Errorf("timed out after connecting while waiting for event '%s'", input.OnEvent)
	case res := <-done:
		if res.err != nil {
			return res.err
		}
		if ec.Stdout != nil && res.data != nil {
			raw, err := json.Marshal(res.data)
			if err != nil {
				return fmt.Errorf("failed to encode reply: %w", err)
			}
			fmt.Fprintf(ec.Stdout, "%s\n", raw)
		}
		return nil
	}
}

// Register registers the action with the engine.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterAction("socketio", registry.Decoded(Emit))
}
