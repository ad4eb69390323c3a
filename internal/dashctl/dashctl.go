// Package dashctl implements the dashctl command line client, which loads a
// dashboard page against a running service and prints or saves the result.
package dashctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/okian/mlgate/internal/adapters/http/site"
	"github.com/okian/mlgate/internal/dashboard"
	"github.com/okian/mlgate/pkg/logger"
)

// ErrLoadFailed is returned when a load ends in the errored state.
var ErrLoadFailed = errors.New("dashboard load failed")

const defaultURL = "http://127.0.0.1:9080"

// LoadOptions holds the flags of the load command.
type LoadOptions struct {
	URL     string
	Page    string
	Out     string
	Text    bool
	Strict  bool
	Watch   time.Duration
	Timeout time.Duration
}

// NewRootCommand builds the dashctl command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	var logFormat, logLevel string

	root := &cobra.Command{
		Use:           "dashctl",
		Short:         "Load and render the mlgate dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := logger.InitWithFormat(logFormat, cmd.ErrOrStderr()); err != nil {
				return err
			}
			return logger.SetLevelString(logLevel)
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatConsole, "log format: text, json or console")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	root.AddCommand(loadCmd(clockwork.NewRealClock()))
	return root
}

func loadCmd(clock clockwork.Clock) *cobra.Command {
	opts := LoadOptions{}

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Fetch the dashboard payload and render it into a page",
		Long: `Fetch GET <url>/dashboard once and render it into the page's display regions.

With --watch the page is reloaded on the given interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return NewRunner(opts, WithClock(clock)).Run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.URL, "url", defaultURL, "base URL of the mlgate service")
	f.StringVar(&opts.Page, "page", "", "HTML page to render into (defaults to the built-in page)")
	f.StringVarP(&opts.Out, "out", "o", "", "write the rendered page to this file")
	f.BoolVar(&opts.Text, "text", false, "print the text of each display region")
	f.BoolVar(&opts.Strict, "strict", false, "treat HTTP error statuses as load failures")
	f.DurationVar(&opts.Watch, "watch", 0, "reload on this interval")
	f.DurationVar(&opts.Timeout, "timeout", 30*time.Second, "request timeout")

	return cmd
}

// Runner executes loads for one set of options.
type Runner struct {
	opts   LoadOptions
	clock  clockwork.Clock
	loader *dashboard.Loader
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock sets the clock driving --watch.
func WithClock(c clockwork.Clock) RunnerOption {
	return func(r *Runner) {
		if c != nil {
			r.clock = c
		}
	}
}

// NewRunner creates a runner. A single loader is shared by every reload.
func NewRunner(opts LoadOptions, ro ...RunnerOption) *Runner {
	r := &Runner{opts: opts, clock: clockwork.NewRealClock()}
	for _, o := range ro {
		o(r)
	}
	fetcher := dashboard.NewHTTPFetcher(opts.URL,
		dashboard.WithStatusCheck(opts.Strict),
		dashboard.WithHTTPClient(&http.Client{Timeout: opts.Timeout}),
	)
	r.loader = dashboard.NewLoader(fetcher,
		dashboard.WithLogger(logger.Get().Named("dashctl")),
		dashboard.WithClock(r.clock),
	)
	return r
}

// Run loads once, or repeatedly when watching, writing results to w.
func (r *Runner) Run(ctx context.Context, w io.Writer) error {
	page, err := r.page()
	if err != nil {
		return err
	}

	if r.opts.Watch <= 0 {
		return r.once(ctx, page, w)
	}

	log := logger.Get().Named("dashctl")
	ticker := r.clock.NewTicker(r.opts.Watch)
	defer ticker.Stop()

	for {
		if err := r.once(ctx, page, w); err != nil {
			if !errors.Is(err, ErrLoadFailed) && !errors.Is(err, dashboard.ErrLoadInFlight) {
				return err
			}
			log.Warn(ctx, "reload failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}

func (r *Runner) page() ([]byte, error) {
	if r.opts.Page == "" {
		return site.Page()
	}
	b, err := os.ReadFile(r.opts.Page)
	if err != nil {
		return nil, fmt.Errorf("read page: %w", err)
	}
	return b, nil
}

func (r *Runner) once(ctx context.Context, page []byte, w io.Writer) error {
	doc, err := dashboard.ParseDocumentString(string(page))
	if err != nil {
		return err
	}

	state, loadErr := r.loader.Load(ctx, doc)
	if errors.Is(loadErr, dashboard.ErrLoadInFlight) {
		return loadErr
	}
	if errors.Is(loadErr, dashboard.ErrRegionNotFound) {
		return fmt.Errorf("%w: %w", ErrLoadFailed, loadErr)
	}

	if err := r.write(doc, w); err != nil {
		return err
	}
	if state == dashboard.StateErrored {
		return fmt.Errorf("%w: %w", ErrLoadFailed, loadErr)
	}
	return nil
}

func (r *Runner) write(doc *dashboard.Document, w io.Writer) error {
	if r.opts.Out != "" {
		if err := os.WriteFile(r.opts.Out, []byte(doc.String()), 0o644); err != nil {
			return fmt.Errorf("write page: %w", err)
		}
	}
	if r.opts.Text {
		return writeText(doc, w)
	}
	if r.opts.Out == "" {
		return doc.Render(w)
	}
	return nil
}

func writeText(doc *dashboard.Document, w io.Writer) error {
	for _, id := range dashboard.Regions {
		region, err := doc.Region(id)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "[%s]\n%s\n", id, region.Text()); err != nil {
			return err
		}
	}
	return nil
}
