package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/fatih/color"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/hoistjs/hoist/build"
	"github.com/hoistjs/hoist/build/cache"
	"github.com/hoistjs/hoist/compiler/concat"
	"github.com/hoistjs/hoist/compiler/srcmap"
	"github.com/hoistjs/hoist/internal/errorList"
	"github.com/hoistjs/hoist/internal/version"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	posColor   = color.New(color.Bold)
)

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		os.Exit(handleError(cmd.ErrOrStderr(), err))
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "hoist",
		Short:         "Hoist is a scope-hoisting JavaScript bundler",
		Long:          "Hoist concatenates JavaScript modules into a single scope and merges their source maps.",
		Version:       version.Colored(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	colorMode := flags.String("color", "auto", "colorize output (auto|on|off)")
	verbose := flags.BoolP("verbose", "v", false, "print debug output")
	quiet := flags.BoolP("quiet", "q", false, "print warnings and errors only")
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		switch *colorMode {
		case "auto":
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		default:
			return fmt.Errorf("invalid --color value %q, expected auto, on or off", *colorMode)
		}
		log.SetOutput(cmd.ErrOrStderr())
		log.SetFormatter(&log.TextFormatter{DisableTimestamp: true, ForceColors: !color.NoColor})
		switch {
		case *verbose:
			log.SetLevel(log.DebugLevel)
		case *quiet:
			log.SetLevel(log.WarnLevel)
		default:
			log.SetLevel(log.InfoLevel)
		}
		return nil
	}

	rootCmd.AddCommand(newBundleCommand(verbose))
	rootCmd.AddCommand(newMapCommand())
	rootCmd.AddCommand(newCleanCommand())
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func newBundleCommand(verbose *bool) *cobra.Command {
	options := &build.Options{}
	cmd := &cobra.Command{
		Use:   "bundle [manifest]",
		Short: "Build the bundle described by a hoist.toml manifest",
		Long: "Build the bundle described by a hoist.toml manifest. Without an argument the " +
			"manifest is looked up in the current directory and its parents.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Verbose = *verbose
			options.Version = version.Version
			manifest, err := manifestPath(args)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runBundle(ctx, cmd.ErrOrStderr(), manifest, options)
		},
	}
	addBundleFlags(cmd.Flags(), options)
	return cmd
}

func addBundleFlags(flags *pflag.FlagSet, options *build.Options) {
	flags.BoolVarP(&options.Watch, "watch", "w", false, "rebuild whenever a module, source map or the manifest changes")
	flags.BoolVar(&options.NoCache, "no-cache", false, "don't read or write the build cache")
}

func manifestPath(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return build.FindManifest(wd)
}

// runBundle builds and writes the bundle once or, in watch mode, once per
// change until ctx is canceled. Build errors are fatal only outside of watch
// mode.
func runBundle(ctx context.Context, stderr io.Writer, manifest string, options *build.Options) error {
	for {
		s, err := build.NewSession(manifest, options)
		if err != nil {
			return err
		}
		err = bundleOnce(ctx, s)
		if !options.Watch {
			return err
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			handleError(stderr, err)
		}

		changed := make(chan struct{})
		go func() {
			s.WaitForChange()
			close(changed)
		}()
		select {
		case <-changed:
		case <-ctx.Done():
			s.Watcher.Close()
			return nil
		}
	}
}

func bundleOnce(ctx context.Context, s *build.Session) error {
	res, err := s.Bundle(ctx)
	if err != nil {
		return err
	}
	return s.Write(res)
}

func newMapCommand() *cobra.Command {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Query source maps",
	}
	mapCmd.AddCommand(&cobra.Command{
		Use:   "lookup <map> <line:column>",
		Short: "Print the original position of a generated position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			store, err := loadMap(args[0])
			if err != nil {
				return err
			}
			l, err := store.OriginalPositionFor(pos)
			if err != nil {
				return err
			}
			printLookup(cmd.OutOrStdout(), l)
			return nil
		},
	})
	mapCmd.AddCommand(&cobra.Command{
		Use:   "generated <map> <line:column>",
		Short: "Print the generated position of an original position",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := parsePosition(args[1])
			if err != nil {
				return err
			}
			store, err := loadMap(args[0])
			if err != nil {
				return err
			}
			l, err := store.GeneratedPositionFor(pos)
			if err != nil {
				return err
			}
			printLookup(cmd.OutOrStdout(), l)
			return nil
		},
	})
	return mapCmd
}

// parsePosition parses "line:column" with a 1-based line and a 0-based
// column.
func parsePosition(s string) (srcmap.Position, error) {
	line, column, ok := strings.Cut(s, ":")
	if !ok {
		return srcmap.Position{}, fmt.Errorf("invalid position %q, expected line:column", s)
	}
	l, err := strconv.Atoi(line)
	if err != nil {
		return srcmap.Position{}, fmt.Errorf("invalid line in position %q: %w", s, err)
	}
	c, err := strconv.Atoi(column)
	if err != nil {
		return srcmap.Position{}, fmt.Errorf("invalid column in position %q: %w", s, err)
	}
	pos := srcmap.Position{Line: l, Column: c}
	if !pos.Valid() {
		return srcmap.Position{}, fmt.Errorf("invalid position %q, lines start at 1 and columns at 0", s)
	}
	return pos, nil
}

func loadMap(path string) (*srcmap.Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	store := srcmap.NewEmpty()
	if err := store.AddMap(srcmap.EncodedText(data), 0, 0); err != nil {
		return nil, err
	}
	return store, nil
}

func printLookup(w io.Writer, l *srcmap.Lookup) {
	if l == nil || l.Position == nil {
		fmt.Fprintln(w, "no mapping")
		return
	}
	out := posColor.Sprintf("%s:%s", l.Source, l.Position)
	if l.Name != "" {
		out += " " + l.Name
	}
	fmt.Fprintln(w, out)
}

func newCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the build cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cache.Clear(); err != nil {
				return fmt.Errorf("failed to clear the build cache: %w", err)
			}
			log.Info("Build cache removed.")
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the hoist version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "hoist %s\n", version.Colored())
		},
	}
}

// handleError prints err and returns the exit code for it.
func handleError(w io.Writer, err error) int {
	var list errorList.ErrorList
	var inv *concat.InvariantError
	switch {
	case errors.As(err, &list):
		for _, entry := range list {
			printError(w, entry)
		}
	case errors.As(err, &inv):
		errorColor.Fprint(w, "invariant violated: ")
		fmt.Fprintln(w, err)
		return 2
	case errors.Is(err, context.Canceled):
		return 130
	default:
		printError(w, err)
	}
	return 1
}

func printError(w io.Writer, err error) {
	errorColor.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}
