// Command rdesk-server runs the three listeners (auth, screen, input)
// that make up the remote-desktop server core. The interactive terminal
// menu and the desktop GUI shell are out of this repository's scope
// (spec §1); this binary starts the protocol engine and blocks until
// interrupted.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remotedesk/core/internal/authsvc"
	"github.com/remotedesk/core/internal/config"
	"github.com/remotedesk/core/internal/connlog"
	"github.com/remotedesk/core/internal/frameencoder"
	"github.com/remotedesk/core/internal/inputserver"
	"github.com/remotedesk/core/internal/inputsink"
	"github.com/remotedesk/core/internal/logging"
	"github.com/remotedesk/core/internal/screenserver"
	"github.com/remotedesk/core/internal/screensource"
	"github.com/remotedesk/core/internal/userstore"
	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	cfgFile string
)

var log = logging.L("main")

var rootCmd = &cobra.Command{
	Use:   "rdesk-server",
	Short: "Remote desktop server: auth, screen, and input channels",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start all three listeners and block until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rdesk-server v%s\n", version)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		data, err := cfg.YAML()
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		os.Stdout.Write(data)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is /etc/rdesk/rdesk-server.yaml)")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *config.Config) {
	var output io.Writer = os.Stdout
	if cfg.LogFile != "" {
		rw, err := logging.NewRotatingWriter(cfg.LogFile, 50, 3)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file %s: %v (logging to stdout)\n", cfg.LogFile, err)
		} else {
			output = logging.TeeWriter(os.Stdout, rw)
		}
	}
	logging.Init(cfg.LogFormat, cfg.LogLevel, output)
	log = logging.L("main")
}

// runServer is the "run" subcommand's body: bring up the user store and
// connection log, start the three listeners, and block until a shutdown
// signal arrives. On shutdown the listeners' context is cancelled and
// the three listeners are closed first; then in-flight auth connections
// are drained (up to 10s), while screen and input sessions end on their
// own once they see the cancelled context. The store is not saved again
// here: every mutation was already persisted when it happened.
func runServer() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	initLogging(cfg)

	store, err := userstore.Open(cfg.DBFile, time.Duration(cfg.SessionTTLHours)*time.Hour)
	if err != nil {
		log.Error("failed to open user store", "error", err)
		os.Exit(1)
	}

	connLog, err := connlog.New(cfg.ConnectionLogDir)
	if err != nil {
		log.Error("failed to open connection log", "error", err)
		os.Exit(1)
	}
	defer connLog.Close()

	authLn, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.AuthPort))
	if err != nil {
		log.Error("failed to bind auth listener", "error", err)
		os.Exit(1)
	}
	screenLn, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.ScreenPort))
	if err != nil {
		log.Error("failed to bind screen listener", "error", err)
		os.Exit(1)
	}
	inputLn, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Host, cfg.InputPort))
	if err != nil {
		log.Error("failed to bind input listener", "error", err)
		os.Exit(1)
	}

	auth := authsvc.New(store, connLog, cfg.MaxConcurrentAuthConns, time.Duration(cfg.AuthReadTimeoutSeconds)*time.Second)

	// No platform screen-capture/input-injection binding is wired into this
	// repository (spec §1 wraps both behind capability interfaces and treats
	// the OS bindings as external collaborators); Synthetic and Recorded
	// stand in as the seam a real backend plugs into.
	source := screensource.NewSynthetic(1920, 1080)
	encoder := frameencoder.NewJPEGEncoder(cfg.FrameQuality)
	screen := screenserver.New(store, source, encoder, connLog,
		time.Duration(cfg.HandshakeTimeoutSeconds)*time.Second,
		time.Duration(cfg.FrameIntervalMS)*time.Millisecond,
		cfg.FrameScalePercent)

	sink := &inputsink.Recorded{}
	input := inputserver.New(store, sink, connLog,
		time.Duration(cfg.HandshakeTimeoutSeconds)*time.Second,
		time.Duration(cfg.InputReadTimeoutSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		if err := auth.Serve(ctx, authLn); err != nil {
			log.Error("auth listener stopped", "error", err)
		}
	}()
	go func() {
		if err := screen.Serve(ctx, screenLn); err != nil {
			log.Error("screen listener stopped", "error", err)
		}
	}()
	go func() {
		if err := input.Serve(ctx, inputLn); err != nil {
			log.Error("input listener stopped", "error", err)
		}
	}()

	log.Info("rdesk-server is running", "host", cfg.Host, "authPort", cfg.AuthPort, "screenPort", cfg.ScreenPort, "inputPort", cfg.InputPort)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("shutting down rdesk-server")

	cancel()
	authLn.Close()
	screenLn.Close()
	inputLn.Close()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	auth.Shutdown(drainCtx)

	log.Info("rdesk-server stopped")
}
