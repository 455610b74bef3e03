package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/arrsync/internal/domain"
)

const (
	commandHookTimeout = 30 * time.Second
	webhookTimeout     = 5 * time.Second
)

// Handler reacts to an emitted event
type Handler func(ctx context.Context, event string, payload map[string]any) error

type namedHandler struct {
	name string
	fn   Handler
}

// EventBus dispatches lifecycle events to registered hooks. It is built once
// per process and passed to whatever emits events.
type EventBus struct {
	handlers map[string][]namedHandler
	logger   *slog.Logger
}

// NewEventBus creates an empty bus
func NewEventBus(logger *slog.Logger) *EventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventBus{
		handlers: make(map[string][]namedHandler),
		logger:   logger,
	}
}

// NewEventBusFromConfig registers the hooks declared under `hooks:`
func NewEventBusFromConfig(hooks map[string][]HookConfig, logger *slog.Logger) (*EventBus, error) {
	bus := NewEventBus(logger)
	client := &http.Client{Timeout: webhookTimeout}

	for event, configs := range hooks {
		for i, hc := range configs {
			switch hc.Type {
			case "command":
				if hc.Command == "" {
					return nil, fmt.Errorf("%w: hooks.%s[%d]: command is required", domain.ErrConfiguration, event, i)
				}
				bus.Register(event, "command:"+hc.Command, CommandHook(hc.Command))
			case "webhook":
				if hc.URL == "" {
					return nil, fmt.Errorf("%w: hooks.%s[%d]: url is required", domain.ErrConfiguration, event, i)
				}
				bus.Register(event, "webhook:"+hc.URL, WebhookHook(hc.URL, client))
			default:
				return nil, fmt.Errorf("%w: hooks.%s[%d]: unknown hook type %q", domain.ErrConfiguration, event, i, hc.Type)
			}
		}
	}
	return bus, nil
}

// Register adds a handler for event
func (b *EventBus) Register(event, name string, fn Handler) {
	b.handlers[event] = append(b.handlers[event], namedHandler{name: name, fn: fn})
	b.logger.Debug("registered hook", "event", event, "hook", name)
}

// Emit runs every handler for event in registration order. Handler
// failures are logged and never returned to the caller.
func (b *EventBus) Emit(ctx context.Context, event string, payload map[string]any) {
	handlers := b.handlers[event]
	if len(handlers) == 0 {
		return
	}

	b.logger.Debug("triggering event", "event", event, "hooks", len(handlers))
	for _, h := range handlers {
		if err := h.fn(ctx, event, payload); err != nil {
			b.logger.Error("hook failed", "event", event, "hook", h.name, "error", err)
		}
	}
}

// CommandHook runs command through the platform shell with the payload
// exported as ARRSYNC_* environment variables
func CommandHook(command string) Handler {
	return func(ctx context.Context, event string, payload map[string]any) error {
		ctx, cancel := context.WithTimeout(ctx, commandHookTimeout)
		defer cancel()

		var cmd *exec.Cmd
		if runtime.GOOS == "windows" {
			cmd = exec.CommandContext(ctx, "cmd", "/C", command)
		} else {
			cmd = exec.CommandContext(ctx, "sh", "-c", command)
		}
		cmd.Env = append(os.Environ(), hookEnv(event, payload)...)

		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("command %q: %w: %s", command, err, strings.TrimSpace(string(out)))
		}
		return nil
	}
}

// hookEnv converts the payload into sorted KEY=value pairs
func hookEnv(event string, payload map[string]any) []string {
	env := []string{"ARRSYNC_EVENT=" + event}
	for _, k := range slices.Sorted(maps.Keys(payload)) {
		env = append(env, fmt.Sprintf("ARRSYNC_%s=%v", strings.ToUpper(k), payload[k]))
	}
	return env
}

// WebhookHook POSTs the payload as JSON with an "event" field added
func WebhookHook(url string, client *http.Client) Handler {
	return func(ctx context.Context, event string, payload map[string]any) error {
		body := make(map[string]any, len(payload)+1)
		maps.Copy(body, payload)
		body["event"] = event

		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode webhook payload: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("webhook request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 300 {
			return fmt.Errorf("webhook returned status %d", resp.StatusCode)
		}
		return nil
	}
}
