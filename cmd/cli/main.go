// Command comfy is a CLI client for the comfy stress-assessment API.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/and161185/comfy/internal/client"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// ---- config dir ----

func cfgDir() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return filepath.Join(v, "comfy")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "comfy")
}

// ---- global options ----

type globals struct {
	addr      string
	configDir string
	timeout   time.Duration
	verbose   bool
}

func (g *globals) logger() *zap.Logger {
	if !g.verbose {
		return zap.NewNop()
	}
	l, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return l
}

func (g *globals) newSession() *client.Session {
	return client.New(g.addr,
		client.WithCookieStore(client.NewFileStore(g.configDir)),
		client.WithLogger(g.logger()),
	)
}

// signedIn restores the session from the stored cookie and requires it to be authenticated.
func (g *globals) signedIn(ctx context.Context) (*client.Session, error) {
	s := g.newSession()
	if err := s.Bootstrap(ctx); err != nil {
		return nil, err
	}
	if s.State() != client.Authenticated {
		return nil, fmt.Errorf("%w (run: comfy login)", client.ErrNotAuthenticated)
	}
	return s, nil
}

func (g *globals) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), g.timeout)
}

// ---- utils ----

func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// prompt reads one trimmed line from r after printing label to w.
func prompt(r *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ---- commands ----

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:   "comfy",
		Short: "Stress assessment from the command line",
		Long: `comfy talks to the comfy API: sign in, take an AI-generated
stress questionnaire, and review your history and trends.

The refresh cookie is kept in --config-dir; the access token never
leaves memory.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&g.addr, "addr", "http://localhost:5000", "API base URL")
	root.PersistentFlags().StringVar(&g.configDir, "config-dir", cfgDir(), "directory holding the session cookie")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 2*time.Minute, "per-command timeout")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log HTTP session activity")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Print the CLI version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "comfy %s (%s)\n", version, buildDate)
			},
		},
		newRegisterCmd(g),
		newLoginCmd(g),
		newLogoutCmd(g),
		newWhoamiCmd(g),
		newDeleteAccountCmd(g),
		newQuestionsCmd(g),
		newAnalyzeCmd(g),
		newHistoryCmd(g),
		newTrendsCmd(g),
		newAdminStatsCmd(g),
	)
	return root
}

func newRegisterCmd(g *globals) *cobra.Command {
	var name, email, password string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := askPassword(cmd, &password); err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			u, err := g.newSession().Register(ctx, name, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %s <%s>\n", u.Name, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newLoginCmd(g *globals) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session cookie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := askPassword(cmd, &password); err != nil {
				return err
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			u, err := g.newSession().Login(ctx, email, password)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "logged in as %s <%s>\n", u.Name, u.Email)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&password, "password", "", "password (prompted when empty)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func askPassword(cmd *cobra.Command, password *string) error {
	if *password != "" {
		return nil
	}
	p, err := prompt(bufio.NewReader(cmd.InOrStdin()), cmd.ErrOrStderr(), "Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	*password = p
	return nil
}

func newLogoutCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the cookie",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			s := g.newSession()
			if err := s.Bootstrap(ctx); err != nil {
				return err
			}
			s.Logout(ctx)
			fmt.Fprintln(cmd.OutOrStdout(), "logged out")
			return nil
		},
	}
}

func newWhoamiCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			u, err := s.Me(ctx)
			if err != nil {
				return err
			}
			printJSON(cmd.OutOrStdout(), u)
			return nil
		},
	}
}

func newDeleteAccountCmd(g *globals) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete-account",
		Short: "Permanently delete the account and every assessment",
		Long: `Delete the signed-in account together with all of its assessments.
This action cannot be undone.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to delete without --yes")
			}
			ctx, cancel := g.context(cmd)
			defer cancel()
			s, err := g.signedIn(ctx)
			if err != nil {
				return err
			}
			if err := s.DeleteAccount(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "account and all data deleted")
			return nil
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func describe(err error) string {
	var ae *client.APIError
	if errors.As(err, &ae) {
		if len(ae.Fields) > 0 {
			var b strings.Builder
			b.WriteString(ae.Error())
			for k, v := range ae.Fields {
				fmt.Fprintf(&b, "\n  %s: %s", k, v)
			}
			return b.String()
		}
		return ae.Error()
	}
	return err.Error()
}

// main runs the root command and exits non-zero on failure.
func main() {
	root := newRootCmd()
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}
