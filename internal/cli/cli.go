// Package cli implements the cryptick command line: the overlay itself plus
// subcommands that edit the saved profiles. A running overlay picks up those
// edits through its file watcher.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"cryptick/internal/config"
	"cryptick/internal/gecko"
	"cryptick/internal/logging"
	"cryptick/internal/paths"
	"cryptick/internal/profile"
	"cryptick/internal/settings"
)

const lookupTimeout = 20 * time.Second

// RunFunc starts the overlay and blocks until it exits.
type RunFunc func(ctx context.Context, s *settings.Settings) error

// CLI holds the process level dependencies of the commands.
type CLI struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Run    RunFunc
	// Fatal reports an error that stopped the overlay. When nil the error is
	// written to Stderr.
	Fatal func(err error)
}

type command struct {
	usage string
	help  string
	run   func(ctx context.Context, ses *session, args []string) error
}

var commands = map[string]command{
	"status":   {"status", "show data locations, the active profile and settings", cmdStatus},
	"profile":  {"profile list|add|rm|rename|use|monitor|export|import ...", "manage profiles", cmdProfile},
	"token":    {"token list|add|rm|move|rename|set ...", "manage the tokens of a profile", cmdToken},
	"set":      {"set [--profile REF|--all] key=value ...", "change style settings or hotkeys", cmdSet},
	"prices":   {"prices [--profile REF]", "fetch and print current prices once", cmdPrices},
	"networks": {"networks [--page N]", "list GeckoTerminal network ids", cmdNetworks},
}

// session is the state shared by one subcommand invocation.
type session struct {
	in    io.Reader
	out   io.Writer
	s     *settings.Settings
	store *config.Store
	mgr   *profile.Manager
	log   *zap.SugaredLogger
	api   *gecko.Client
}

// Main parses args and runs the selected command, returning the exit code.
func (c *CLI) Main(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet(paths.AppName, pflag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	fs.SetInterspersed(false)
	settings.RegisterFlags(fs)
	fs.Usage = func() { c.usage(fs) }

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	s, err := settings.Load(fs)
	if err != nil {
		fmt.Fprintf(c.Stderr, "cryptick: %v\n", err)
		return 2
	}

	rest := fs.Args()
	name := "run"
	if len(rest) > 0 {
		name, rest = rest[0], rest[1:]
	}

	if name == "run" {
		if c.Run == nil {
			fmt.Fprintln(c.Stderr, "cryptick: overlay is not available in this build")
			return 1
		}
		if err := c.Run(ctx, s); err != nil {
			if c.Fatal != nil {
				c.Fatal(err)
			} else {
				fmt.Fprintf(c.Stderr, "cryptick: %v\n", err)
			}
			return 1
		}
		return 0
	}
	if name == "help" {
		c.usage(fs)
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(c.Stderr, "cryptick: unknown command %q\n", name)
		c.usage(fs)
		return 2
	}

	ses, closeSession, err := c.open(s)
	if err != nil {
		fmt.Fprintf(c.Stderr, "cryptick: %v\n", err)
		return 1
	}
	defer closeSession()

	if err := cmd.run(ctx, ses, rest); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		ses.log.Warnw("Command failed", "command", name, "error", err)
		fmt.Fprintf(c.Stderr, "cryptick %s: %v\n", name, err)
		return 1
	}
	return 0
}

func (c *CLI) open(s *settings.Settings) (*session, func(), error) {
	layout := s.Layout()
	if err := layout.Ensure(); err != nil {
		return nil, nil, err
	}
	log, closeLog, err := logging.New(logging.Options{File: layout.LogFile(), Level: s.LogLevel})
	if err != nil {
		return nil, nil, err
	}

	store := config.NewStore(layout.StateFile(), log)
	st, err := store.Load()
	if err != nil {
		closeLog()
		return nil, nil, fmt.Errorf("%w; fix or remove the file before editing", err)
	}

	ses := &session{
		in:    c.Stdin,
		out:   c.Stdout,
		s:     s,
		store: store,
		mgr:   profile.NewManager(st, store, profile.WithLogger(log)),
		log:   log,
		api: gecko.NewClient(s.APIBaseURL, s.APITimeout,
			gecko.WithRetries(s.APIRetries),
			gecko.WithLogger(log),
		),
	}
	if ses.in == nil {
		ses.in = os.Stdin
	}
	return ses, closeLog, nil
}

func (c *CLI) usage(fs *pflag.FlagSet) {
	fmt.Fprintf(c.Stderr, "Usage: cryptick [flags] [command]\n\nCommands:\n")
	fmt.Fprintf(c.Stderr, "  %-58s %s\n", "run", "start the overlay (default)")

	names := make([]string, 0, len(commands))
	for n := range commands {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(c.Stderr, "  %-58s %s\n", commands[n].usage, commands[n].help)
	}
	fmt.Fprintf(c.Stderr, "\nFlags:\n%s", fs.FlagUsages())
}

// subFlags returns a flag set for a subcommand that reports errors instead of
// exiting.
func (ses *session) subFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(ses.out)
	return fs
}

// target resolves --profile, defaulting to the active profile.
func (ses *session) target(ref string) (*config.Profile, error) {
	if strings.TrimSpace(ref) == "" {
		return ses.mgr.Active(), nil
	}
	return ses.mgr.Find(ref)
}

func wantArgs(args []string, n int, usage string) error {
	if len(args) != n {
		return fmt.Errorf("usage: cryptick %s", usage)
	}
	return nil
}
