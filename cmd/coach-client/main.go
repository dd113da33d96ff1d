// Command coach-client is an interactive terminal client for a running
// careercoach server.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/peterh/liner"
	"github.com/spf13/cobra"
)

const historyFile = ".careercoach_history"

var rootCmd = &cobra.Command{
	Use:   "coach-client",
	Short: "Interactive client for the careercoach server",
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		serverURL, _ := cmd.Flags().GetString("server")
		userID, _ := cmd.Flags().GetString("user")
		timeout, _ := cmd.Flags().GetDuration("timeout")
		stdinMode, _ := cmd.Flags().GetBool("stdin")

		if serverURL == "" {
			serverURL = os.Getenv("COACH_SERVER_URL")
		}
		if serverURL == "" {
			serverURL = "http://localhost:8005"
		}

		s := newSession(newAPIClient(serverURL, timeout), userID, cmd.OutOrStdout())
		if stdinMode {
			return runScript(cmd.Context(), s, cmd.InOrStdin())
		}
		return runInteractive(cmd.Context(), s, serverURL)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().String("server", "", "server base URL (default $COACH_SERVER_URL or http://localhost:8005)")
	rootCmd.Flags().String("user", "", "user ID whose memory space is used (default anon)")
	rootCmd.Flags().Duration("timeout", 5*time.Minute, "per-request timeout")
	rootCmd.Flags().BoolP("stdin", "s", false, "read commands from stdin and exit when done")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// runScript processes one command per line; lines starting with # are skipped.
func runScript(ctx context.Context, s *session, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" || strings.HasPrefix(input, "#") {
			continue
		}
		fmt.Fprintf(s.out, "%s%s\n", s.prompt(), input)
		if !s.handle(ctx, input) {
			return nil
		}
	}
	return scanner.Err()
}

func runInteractive(ctx context.Context, s *session, serverURL string) error {
	line := liner.NewLiner()
	defer line.Close()

	line.SetCtrlCAborts(true)
	line.SetMultiLineMode(false)
	line.SetCompleter(func(input string) (c []string) {
		for _, cmd := range commands {
			if strings.HasPrefix(cmd, input) {
				c = append(c, cmd)
			}
		}
		return
	})

	histPath := historyPath()
	if f, err := os.Open(histPath); err == nil {
		line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintln(s.out, "\n=== Career Coach Client ===")
	fmt.Fprintf(s.out, "Server: %s | User: %s\n", serverURL, s.userID)
	fmt.Fprintln(s.out, "Type !help for available commands.")

	for {
		input, err := line.Prompt(s.prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				fmt.Fprintln(s.out, "\nGoodbye!")
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		if strings.TrimSpace(input) == "" {
			continue
		}
		line.AppendHistory(input)

		if !s.handle(ctx, input) {
			return nil
		}
	}
}

func historyPath() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, historyFile)
	}
	return historyFile
}
