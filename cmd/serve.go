package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the WebDriver wire-protocol server",
	Long: `Start an HTTP server speaking the WebDriver JSON wire protocol. Clients
create a session, locate elements and drive input through it.

Without --fixture the server drives the device adapter linked into the
binary. With --fixture it serves an in-memory tree loaded from a hierarchy
dump, which is useful for exercising clients without a device.

Examples:
  uiautomator-server serve
  uiautomator-server serve --port 4723 --base-path /
  uiautomator-server serve --fixture window_dump.xml --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "Listen address")
	serveCmd.Flags().Int("port", 6790, "Listen port")
	serveCmd.Flags().String("base-path", "/wd/hub", "Path prefix of every route")
	serveCmd.Flags().String("fixture", "", "Serve an in-memory tree loaded from a hierarchy dump")
	serveCmd.Flags().Duration("implicit-wait", 0, "Implicit wait of new sessions")
	serveCmd.Flags().Duration("poll-interval", 0, "Retry spacing of timed lookups (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	prov, err := newProvider(appConfig.Platform.Fixture)
	if err != nil {
		return fmt.Errorf("failed to open platform: %w", err)
	}
	srv := newServer(prov, appConfig, logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	err = g.Wait()
	logger.Info("server exited", zap.Error(err))
	return err
}
