// Package cmd implements the retrojsvice-demo CLI: a cobra-based command
// that wires a vicecontext.Context up to either a frame.Checkerboard test
// source or, when --browse-url is set, a real headless Chrome tab
// (internal/browserframe) in place of a synthetic pattern, exercising the
// full HTTP bridge end to end. Grounded on the har-capture CLI's
// Options/Complete/Validate/Run command shape (internal/cmd/serve.go),
// adapted from a one-shot capture job to a long-running server loop.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ttalvitie/retrojsvice/internal/corelog"
	"github.com/ttalvitie/retrojsvice/internal/vicecontext"
)

// DemoOptions holds the flags accepted by retrojsvice-demo.
type DemoOptions struct {
	HTTPListenAddr  string
	HTTPAuth        string
	DefaultQuality  string
	HTTPMaxThreads  int
	HTTPRateLimit   float64
	UploadGCSBucket string
	AuditDB         string
	DebugWSAddr     string
	BrowseURL       string
}

// NewDemoOptions returns a DemoOptions populated with the same defaults
// Context itself would apply, so --help output reflects reality.
func NewDemoOptions() *DemoOptions {
	return &DemoOptions{
		HTTPListenAddr: "127.0.0.1:8080",
		DefaultQuality: "PNG",
		HTTPMaxThreads: 100,
	}
}

// NewRootCommand creates the retrojsvice-demo command.
func NewRootCommand() *cobra.Command {
	o := NewDemoOptions()

	cmd := &cobra.Command{
		Use:           "retrojsvice-demo",
		Short:         "Run a standalone retrojsvice HTTP bridge against a checkerboard test frame",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.Run()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&o.HTTPListenAddr, "http-listen-addr", o.HTTPListenAddr, "address to listen for HTTP connections on")
	flags.StringVar(&o.HTTPAuth, "http-auth", o.HTTPAuth, "USER:PASSWORD, 'env', or empty to disable HTTP Basic auth")
	flags.StringVar(&o.DefaultQuality, "default-quality", o.DefaultQuality, "10..100 for JPEG, or PNG")
	flags.IntVar(&o.HTTPMaxThreads, "http-max-threads", o.HTTPMaxThreads, "maximum concurrent HTTP worker threads")
	flags.Float64Var(&o.HTTPRateLimit, "http-rate-limit", o.HTTPRateLimit, "new-window requests/sec per remote IP, 0 disables")
	flags.StringVar(&o.UploadGCSBucket, "upload-gcs-bucket", o.UploadGCSBucket, "GCS bucket to mirror uploads into, empty disables")
	flags.StringVar(&o.AuditDB, "audit-db", o.AuditDB, "path to a SQLite audit log of uploads/downloads, empty disables")
	flags.StringVar(&o.DebugWSAddr, "debug-ws-addr", o.DebugWSAddr, "address for the debug introspection websocket, empty disables")
	flags.StringVar(&o.BrowseURL, "browse-url", o.BrowseURL, "URL each window should drive a real headless Chrome tab to, empty uses a checkerboard test pattern")

	return cmd
}

func (o *DemoOptions) rawOptions() [][2]string {
	pairs := [][2]string{
		{"http-listen-addr", o.HTTPListenAddr},
		{"default-quality", o.DefaultQuality},
		{"http-max-threads", fmt.Sprint(o.HTTPMaxThreads)},
	}
	if o.HTTPAuth != "" {
		pairs = append(pairs, [2]string{"http-auth", o.HTTPAuth})
	}
	if o.HTTPRateLimit > 0 {
		pairs = append(pairs, [2]string{"http-rate-limit", fmt.Sprint(o.HTTPRateLimit)})
	}
	if o.UploadGCSBucket != "" {
		pairs = append(pairs, [2]string{"upload-gcs-bucket", o.UploadGCSBucket})
	}
	if o.AuditDB != "" {
		pairs = append(pairs, [2]string{"audit-db", o.AuditDB})
	}
	if o.DebugWSAddr != "" {
		pairs = append(pairs, [2]string{"debug-ws-addr", o.DebugWSAddr})
	}
	return pairs
}

// Run constructs a Context against a checkerboard frame source and serves
// until interrupted.
func (o *DemoOptions) Run() error {
	host := newDemoHost(o.BrowseURL)

	vctx, err := vicecontext.Init(o.rawOptions(), host, "retrojsvice-demo")
	if err != nil {
		return fmt.Errorf("retrojsvice-demo: %w", err)
	}

	done := make(chan struct{})
	if err := vctx.Start(vicecontext.Callbacks{
		OnShutdownComplete: func() { close(done) },
	}); err != nil {
		return fmt.Errorf("retrojsvice-demo: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	corelog.Info("retrojsvice-demo: serving on ", o.HTTPListenAddr, ", press Ctrl-C to stop")
	runPumpLoop(sigCtx, vctx)

	vctx.Shutdown()
	<-done
	return nil
}

// runPumpLoop stands in for the host event loop a real embedding program
// would drive from its own message pump: it calls PumpEvents on a short
// fixed tick until ctx is cancelled.
func runPumpLoop(ctx context.Context, vctx *vicecontext.Context) {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vctx.PumpEvents()
		}
	}
}

// Execute runs the command, writing any error to stderr.
func Execute() int {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
