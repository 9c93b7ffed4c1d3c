package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"
	"github.com/thiagokokada/gitview-go/internal/buildinfo"
	"github.com/thiagokokada/gitview-go/internal/config"
	"github.com/thiagokokada/gitview-go/internal/web"
)

func Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, ok, err := parse(os.Args[1:], os.Getenv, os.Stdout)
	if err != nil || !ok {
		return err
	}
	return web.Run(ctx, cfg, buildinfo.VersionWithTags())
}

// parse builds the configuration from defaults, an optional config file, the
// environment and finally the command line. ok is false when the program
// should exit without serving (help or version output).
func parse(args []string, getenv func(string) string, stdout io.Writer) (config.Config, bool, error) {
	fs := flag.NewFlagSet("gitview", flag.ContinueOnError)
	fs.SetOutput(stdout)
	configPath := fs.String("config", "", "read settings from a .toml or .yaml file")
	listen := fs.StringP("listen", "l", config.DefaultListen, "address to serve the UI on")
	revision := fs.StringP("revision", "r", config.DefaultRevision, "revision loaded when none is typed")
	mode := fs.String("mode", web.ThemeAuto.String(), "color mode: auto, light, or dark")
	noWatch := fs.Bool("nowatch", false, "disable automatic reload when repository changes")
	noSyntax := fs.Bool("nosyntax", false, "disable syntax highlighting in the source view")
	maxBlob := fs.Int64("max-blob-size", config.DefaultMaxBlobSize, "bytes of a file shown before truncating")
	verbose := fs.BoolP("verbose", "v", false, "enable verbose logging")
	showVersion := fs.Bool("version", false, "print version information and exit")
	fs.Usage = func() {
		fmt.Fprintln(stdout, "Usage: gitview [flags] [repository]")
		fmt.Fprintln(stdout)
		fmt.Fprintf(stdout, "The repository defaults to $%s.\n\n", config.EnvRepositoryPath)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.Config{}, false, nil
		}
		return config.Config{}, false, err
	}
	if *showVersion {
		fmt.Fprintln(stdout, buildinfo.VersionWithTags())
		return config.Config{}, false, nil
	}

	cfg := config.Default()
	if *configPath != "" {
		if err := config.LoadFile(*configPath, &cfg); err != nil {
			return config.Config{}, false, err
		}
	}
	config.ApplyEnv(&cfg, getenv)
	if fs.Changed("listen") {
		cfg.Listen = *listen
	}
	if fs.Changed("revision") {
		cfg.Revision = *revision
	}
	if fs.Changed("mode") {
		cfg.Theme = *mode
	}
	if fs.Changed("max-blob-size") {
		cfg.MaxBlobSize = *maxBlob
	}
	if *noWatch {
		cfg.AutoReload = false
	}
	if *noSyntax {
		cfg.SyntaxHighlight = false
	}
	if *verbose {
		cfg.Verbose = true
	}
	if remaining := fs.Args(); len(remaining) > 0 {
		cfg.RepoPath = remaining[len(remaining)-1]
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, false, err
	}
	return cfg, true, nil
}
