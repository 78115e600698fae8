package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"rubberduck/internal/appinfo"
	"rubberduck/internal/config"
	"rubberduck/internal/duck"
	"rubberduck/internal/gitctx"
	"rubberduck/internal/history"
	"rubberduck/internal/llm"
	"rubberduck/internal/shellrun"
	"rubberduck/internal/sysinfo"
)

func main() {
	code, err := run(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	os.Exit(code)
}

func run(args []string) (int, error) {
	fs := flag.NewFlagSet("duck", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: duck [flags] [command ...]\n\n")
		fmt.Fprintf(fs.Output(), "Replays the last failed shell command (or the one given) and streams\na model explanation of what went wrong next to the live output.\n\n")
		fs.PrintDefaults()
	}
	cmdFlag := fs.String("cmd", "", "command to replay (default: last command from shell history)")
	configPath := fs.String("config", "", "config file path (default: "+config.DefaultPath()+")")
	plain := fs.Bool("plain", false, "stream to stdout without the terminal UI")
	noModel := fs.Bool("no-model", false, "replay the command only, skip the model")
	version := fs.Bool("version", false, "print version and exit")
	fs.Parse(args)

	if *version {
		fmt.Println(appinfo.Display())
		return 0, nil
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return 0, err
	}

	command := strings.TrimSpace(*cmdFlag)
	if command == "" && fs.NArg() > 0 {
		command = strings.TrimSpace(strings.Join(fs.Args(), " "))
	}
	if command == "" {
		command, err = history.LastCommand(os.Getenv("SHELL"))
		if err != nil {
			return 0, fmt.Errorf("%w (pass one with -cmd)", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := duck.Options{
		Command:  command,
		Runner:   &shellrun.Runner{},
		GitDiff:  gitctx.RecentDiff(ctx, "."),
		Platform: sysinfo.Describe(),
	}
	if !*noModel && cfg.ModelConfigured() {
		client, err := llm.New(cfg)
		if err != nil {
			return 0, err
		}
		opts.Client = client
	}

	var res duck.Result
	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		res, err = duck.RunPlain(ctx, opts, os.Stdout)
	} else {
		res, err = duck.Run(ctx, opts, os.Stdin, os.Stdout)
		if err == nil && res.FixCommand != "" {
			// The alt screen is gone by now; leave the fix in the scrollback.
			fmt.Printf("suggested fix:\n  %s\n", res.FixCommand)
		}
	}
	if err != nil {
		return 0, err
	}
	return res.ExitCode(), nil
}
