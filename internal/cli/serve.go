package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/decision"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/estimate"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/events"
	"github.com/mustafanordflytt/nordflytt-offerthantering-sub015/internal/schedule"
)

const maxRequestBytes = 1 << 20

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	Workers int
	Events  bool
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Answer JSON-lines requests on stdin",
		Long: `Run the engine as a long-lived process. Each stdin line is one request,
each stdout line one response carrying the request id. Requests are handled
concurrently, so responses may arrive out of order.

Operations:
  {"id":"1","op":"estimate","input":{"volume":25,"teamSize":3,"distance":12}}
  {"id":"2","op":"feedback","decisionId":"...","actual":6.5}
  {"id":"3","op":"show","decisionId":"..."}
  {"id":"4","op":"metrics"}

With --events every engine event is also written as {"event":{...}}.
Daily metrics are reset on daily_reset_schedule.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Workers, "workers", 8, "maximum concurrent requests")
	cmd.Flags().BoolVar(&opts.Events, "events", false, "stream engine events to stdout")

	return cmd
}

type serveRequest struct {
	ID         string          `json:"id,omitempty"`
	Op         string          `json:"op"`
	Input      json.RawMessage `json:"input,omitempty"`
	DecisionID string          `json:"decisionId,omitempty"`
	Actual     *float64        `json:"actual,omitempty"`
}

type serveResponse struct {
	ID     string    `json:"id,omitempty"`
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type eventLine struct {
	Event events.Event `json:"event"`
}

// lineWriter serialises JSON lines from concurrent goroutines.
type lineWriter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func (w *lineWriter) write(v any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(v); err != nil {
		slog.Error("write response failed", "error", err)
	}
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	f := opts.formatter(cmd)
	if opts.Workers < 1 {
		return f.fail(NewExitError(ExitCommandError, "--workers must be at least 1"))
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := openApp(ctx, opts.RootOptions, opts.deps)
	if err != nil {
		return f.fail(err)
	}
	defer closeApp(app)

	out := &lineWriter{enc: json.NewEncoder(cmd.OutOrStdout())}

	if opts.Events {
		if _, err := app.Engine.Bus().Subscribe("serve-stdout", events.HandlerFunc(func(e events.Event) {
			out.write(eventLine{Event: e})
		})); err != nil {
			return f.fail(WrapExitError(ExitCommandError, "failed to subscribe to events", err))
		}
	}

	reset, err := schedule.NewDailyReset(app.Config.DailyResetSchedule, app.Config.Location, app.Engine)
	if err != nil {
		return f.fail(WrapExitError(ExitCommandError, "invalid daily reset schedule", err))
	}
	resetCtx, cancelReset := context.WithCancel(ctx)
	var resetDone sync.WaitGroup
	resetDone.Add(1)
	go func() {
		defer resetDone.Done()
		if err := reset.Run(resetCtx); err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("daily reset stopped", "error", err)
		}
	}()
	defer func() {
		cancelReset()
		resetDone.Wait()
	}()

	slog.Info("serving", "workers", opts.Workers, "store", app.Config.Store.Driver, "ml", app.Config.MLFallbackEnabled)
	err = serveLines(ctx, app, cmd.InOrStdin(), out, opts.Workers)
	slog.Info("serve stopped")
	if err != nil {
		return f.fail(WrapExitError(ExitCommandError, "read requests", err))
	}
	return nil
}

// serveLines handles requests until in is exhausted or ctx is done, then
// waits for in-flight requests.
func serveLines(ctx context.Context, app *App, in io.Reader, out *lineWriter, workers int) error {
	lines := make(chan []byte)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		sc.Buffer(make([]byte, 0, 64*1024), maxRequestBytes)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
	}()

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				wg.Wait()
				select {
				case err := <-scanErr:
					return err
				default:
					return nil
				}
			}
			if len(line) == 0 {
				continue
			}
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer func() {
					<-sem
					wg.Done()
				}()
				out.write(handleRequest(ctx, app, line))
			}()
		}
	}
}

func handleRequest(ctx context.Context, app *App, line []byte) serveResponse {
	var req serveRequest
	if err := json.Unmarshal(line, &req); err != nil {
		return errorResponse("", fmt.Errorf("malformed request: %w", err))
	}

	switch req.Op {
	case "estimate":
		in, err := estimate.ParseInput(req.Input)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		d, err := app.Engine.Estimate(ctx, in)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return serveResponse{ID: req.ID, Status: "ok", Data: d}

	case "feedback":
		if req.Actual == nil {
			return errorResponse(req.ID, &estimate.ValidationError{Fields: []estimate.FieldError{
				{Field: "actual", Message: "required"},
			}})
		}
		if err := app.Engine.RecordOutcome(ctx, req.DecisionID, *req.Actual); err != nil {
			return errorResponse(req.ID, err)
		}
		return serveResponse{ID: req.ID, Status: "ok", Data: app.Engine.Snapshot()}

	case "show":
		d, found, err := app.Engine.Store().Get(ctx, req.DecisionID)
		if err != nil && !errors.Is(err, decision.ErrNotFound) {
			return errorResponse(req.ID, err)
		}
		if !found {
			return serveResponse{ID: req.ID, Status: "error", Error: &CLIError{
				Code: CodeNotFound, Message: "no decision with this id", DecisionID: req.DecisionID,
			}}
		}
		return serveResponse{ID: req.ID, Status: "ok", Data: d}

	case "metrics":
		return serveResponse{ID: req.ID, Status: "ok", Data: app.Engine.Snapshot()}

	default:
		return serveResponse{ID: req.ID, Status: "error", Error: &CLIError{
			Code: CodeInternal, Message: fmt.Sprintf("unknown op %q", req.Op),
		}}
	}
}

func errorResponse(id string, err error) serveResponse {
	e, _ := describeError(err)
	return serveResponse{ID: id, Status: "error", Error: &e}
}
