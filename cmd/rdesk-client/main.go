// Command rdesk-client authenticates against the auth channel and
// demultiplexes the screen and input channels from a terminal. The
// desktop GUI shell and the interactive login/register menu are out of
// this repository's scope (spec §1); this binary exercises the
// client-side protocol engine and prints a received-frame counter.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/remotedesk/core/internal/authclient"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var (
	authAddr   string
	screenAddr string
	inputAddr  string
	username   string
	password   string
)

var rootCmd = &cobra.Command{
	Use:   "rdesk-client",
	Short: "Remote desktop client: authenticate and stream a remote session",
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Authenticate, then stream the screen channel and relay input",
	Run: func(cmd *cobra.Command, args []string) {
		runConnect()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("rdesk-client v%s\n", version)
	},
}

func init() {
	connectCmd.Flags().StringVar(&authAddr, "auth", "127.0.0.1:5002", "auth channel address")
	connectCmd.Flags().StringVar(&screenAddr, "screen", "127.0.0.1:5000", "screen channel address")
	connectCmd.Flags().StringVar(&inputAddr, "input", "127.0.0.1:5001", "input channel address")
	connectCmd.Flags().StringVar(&username, "username", "", "account username")
	connectCmd.Flags().StringVar(&password, "password", "", "account password")

	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// runConnect logs in over the auth channel, then starts the screen and
// input clients, printing counters until interrupted. It is the
// client-side counterpart to cmd/rdesk-server's listener trio; the
// actual renderer and OS input bindings are capability-boundary seams
// this binary does not implement (spec §1).
func runConnect() {
	if username == "" || password == "" {
		fmt.Fprintln(os.Stderr, "--username and --password are required")
		os.Exit(1)
	}

	resp, err := authclient.Login(authAddr, username, password, 10*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "login request failed: %v\n", err)
		os.Exit(1)
	}
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "login rejected: %s\n", resp.Message)
		os.Exit(1)
	}
	fmt.Printf("logged in as %s, token acquired\n", username)

	screen, frameCount, screenErr := startScreenClient(resp.Token)
	if screenErr != nil {
		fmt.Fprintf(os.Stderr, "screen channel connect failed: %v\n", screenErr)
		os.Exit(1)
	}
	defer screen.Close()

	input, inputErr := startInputClient(resp.Token, screen)
	if inputErr != nil {
		fmt.Fprintf(os.Stderr, "input channel connect failed: %v\n", inputErr)
		os.Exit(1)
	}
	defer input.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-sigChan:
			_, _ = authclient.Logout(authAddr, resp.Token, 5*time.Second)
			fmt.Println("\ndisconnected")
			return
		case <-ticker.C:
			fmt.Printf("frames received: %d\n", frameCount.Load())
		}
	}
}
