package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"instanon/pkg/config"
	"instanon/pkg/logger"
	"instanon/pkg/scraper"
	"instanon/pkg/storage"
	"instanon/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const (
	exitOK          = 0
	exitFailure     = 1
	exitInterrupted = 130
)

type rootOptions struct {
	users      []string
	stories    bool
	highlights bool
	output     string
	chaos      bool

	configFile    string
	variant       string
	baseURL       string
	insecure      bool
	originCheck   bool
	timeout       time.Duration
	keepGoing     bool
	maxAttempts   int
	rateLimit     int
	notifications bool
	logLevel      string
	quiet         bool
	verbose       bool
}

// Execute runs the command line and returns the process exit code
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, os.Args[1:], os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := newRootCmd(&rootOptions{})
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	switch {
	case err == nil:
		return exitOK
	case ctx.Err() != nil || errors.Is(err, context.Canceled):
		return exitInterrupted
	default:
		ui.NewTerminal(stderr, false).Error("[!] %v", err)
		return exitFailure
	}
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instanon -u USERNAME [-u USERNAME...] [-s] [-h] [-o DIR] [-c]",
		Short: "Download Instagram stories or highlights anonymously",
		Long: `instanon downloads the current stories and the highlight groups of public
Instagram profiles through a mirror site, without logging in.

Files are stored as:
  users/<username>/stories/<DD-Month-YYYY>/<file>
  users/<username>/highlights/<name>_<id>/<file>

Files that are already present are not downloaded again.`,
		Example: `  # Download the stories of one profile
  instanon -u alice -s

  # Stories and highlights of two profiles into ./archive, without date directories
  instanon -u alice -u bob -s -h -o ./archive -c

  # Use the storiesig mirror and keep going after a failed profile
  instanon -u alice -s --variant storiesig --keep-going`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          opts.runDownload,
	}

	flags := cmd.Flags()
	flags.StringArrayVarP(&opts.users, "users", "u", nil, "Instagram username (repeatable)")
	flags.BoolVarP(&opts.stories, "stories", "s", false, "download stories")
	flags.BoolVarP(&opts.highlights, "highlights", "h", false, "download highlights")
	flags.StringVarP(&opts.output, "output", "o", "", "directory for data storage (default \"users\")")
	flags.BoolVarP(&opts.chaos, "chaos", "c", false, "save all stories in one directory")
	flags.StringVar(&opts.variant, "variant", "", "mirror site variant (insta-stories, storiesig)")
	flags.StringVar(&opts.baseURL, "base-url", "", "override the mirror base URL")
	flags.BoolVar(&opts.insecure, "insecure", true, "skip TLS certificate verification for the mirror and media hosts")
	flags.BoolVar(&opts.originCheck, "origin-check", false, "confirm missing profiles against instagram.com")
	flags.DurationVar(&opts.timeout, "timeout", 0, "per request timeout, e.g. 30s (0 disables)")
	flags.BoolVar(&opts.keepGoing, "keep-going", false, "continue with the next username after a failure")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 1, "attempts per request, including the first")
	flags.IntVar(&opts.rateLimit, "rate-limit", 0, "maximum requests per minute (0 disables)")
	flags.BoolVar(&opts.notifications, "notifications", false, "send a desktop notification when done")
	// -h belongs to --highlights, so help is long-form only
	flags.Bool("help", false, "help for instanon")
	_ = cmd.MarkFlagRequired("users")

	persistent := cmd.PersistentFlags()
	persistent.StringVar(&opts.configFile, "config", "", "config file (default is ./.instanon.yaml or ~/.config/instanon/config.yaml)")
	persistent.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	persistent.BoolVarP(&opts.quiet, "quiet", "q", false, "print only errors and warnings")
	persistent.BoolVarP(&opts.verbose, "verbose", "v", false, "enable debug logging")

	cmd.SetVersionTemplate(`instanon {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)
	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// flagOverrides collects the flags set on the command line for
// config.MergeCommandLineFlags
func (o *rootOptions) flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("variant") {
		flags["variant"] = o.variant
	}
	if changed("base-url") {
		flags["base-url"] = o.baseURL
	}
	if changed("insecure") {
		flags["insecure"] = o.insecure
	}
	if changed("origin-check") {
		flags["origin-check"] = o.originCheck
	}
	if changed("output") {
		flags["output"] = o.output
	}
	if changed("chaos") {
		flags["chaos"] = o.chaos
	}
	if changed("timeout") {
		flags["timeout"] = o.timeout
	}
	if changed("keep-going") {
		flags["keep-going"] = o.keepGoing
	}
	if changed("max-attempts") {
		flags["max-attempts"] = o.maxAttempts
	}
	if changed("rate-limit") {
		flags["rate-limit"] = o.rateLimit
	}
	if changed("notifications") {
		flags["notifications"] = o.notifications
	}

	switch {
	case changed("log-level"):
		flags["log-level"] = o.logLevel
	case o.verbose:
		flags["log-level"] = "debug"
	}

	return flags
}

func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(o.configFile, o.flagOverrides(cmd))
}

func (o *rootOptions) runDownload(cmd *cobra.Command, args []string) error {
	usernames := normalizeUsernames(o.users)
	if len(usernames) == 0 {
		return errors.New("at least one username is required")
	}
	for _, u := range usernames {
		if err := storage.ValidateUsername(u); err != nil {
			return err
		}
	}

	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.InfoWithFields("instanon starting", map[string]interface{}{
		"version":    version,
		"variant":    cfg.Mirror.Variant,
		"users":      usernames,
		"stories":    o.stories,
		"highlights": o.highlights,
	})

	term := ui.NewTerminal(cmd.OutOrStdout(), o.quiet)
	s, err := scraper.New(cfg, term, log)
	if err != nil {
		return err
	}

	report, err := s.Run(cmd.Context(), usernames, scraper.Options{
		Stories:    o.stories,
		Highlights: o.highlights,
		KeepGoing:  cfg.Download.KeepGoing,
	})
	if err != nil {
		return err
	}

	term.Blank()
	term.Success("[*] All tasks have been completed")
	term.Blank()

	notifier := ui.NewNotifier(cfg.Notifications.Enabled)
	message := fmt.Sprintf("Downloaded %d files for %d profiles", report.Downloaded(), len(report.Profiles))
	if failed := report.Failed(); failed > 0 {
		message += fmt.Sprintf(", %d failed", failed)
	}
	if err := notifier.Notify("instanon", message); err != nil {
		log.WithError(err).Warn("desktop notification failed")
	}

	return nil
}

func normalizeUsernames(raw []string) []string {
	var out []string
	for _, u := range raw {
		u = strings.TrimPrefix(strings.TrimSpace(u), "@")
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}
