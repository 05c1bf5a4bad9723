package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"smartnotes/internal/client"
	"smartnotes/internal/obs"
)

// app carries what every subcommand needs.
type app struct {
	fs  afero.Fs
	in  *bufio.Reader
	out io.Writer
	log *slog.Logger

	profilePath string
	server      string
	token       string
	verbose     bool
}

func newRootCmd(fs afero.Fs, in io.Reader, out io.Writer) *cobra.Command {
	a := &app{fs: fs, in: bufio.NewReader(in), out: out}

	rootCmd := &cobra.Command{
		Use:   "notesctl",
		Short: "Command-line client for the smart notes service",
		Long: `notesctl lists, writes and deletes notes on a smart notes server.
Drafts can be summarized, rewritten and tagged by the server's AI before saving.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := "info"
			if a.verbose {
				level = "debug"
			}
			a.log = obs.NewLogger(os.Stderr, obs.FormatText, level)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.profilePath, "profile", defaultProfilePath(), "Path to the connection profile")
	rootCmd.PersistentFlags().StringVar(&a.server, "server", "", "Server URL (overrides the profile)")
	rootCmd.PersistentFlags().StringVar(&a.token, "token", "", "Bearer token (overrides the profile)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(
		newLoginCmd(a),
		newTokenCmd(a),
		newListCmd(a),
		newSearchCmd(a),
		newNewCmd(a),
		newEditCmd(a),
		newDeleteCmd(a),
	)
	return rootCmd
}

// client builds a note service client from flags and the saved profile.
func (a *app) client() (*client.Client, error) {
	p, err := loadProfile(a.fs, a.profilePath)
	if err != nil {
		return nil, err
	}
	server, token := p.Server, p.Token
	if a.server != "" {
		server = a.server
	}
	if a.token != "" {
		token = a.token
	}
	if server == "" {
		return nil, errors.New("no server configured: run 'notesctl login --server URL' or pass --server")
	}
	return client.New(server, client.WithToken(token)), nil
}

// confirm asks a yes/no question on the terminal.
func (a *app) confirm(_ context.Context, question string) bool {
	fmt.Fprintf(a.out, "%s [y/N]: ", question)
	line, err := a.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
