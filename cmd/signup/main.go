// Command signup issues a signup invitation for one email address and prints
// the invite URL.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hackers-pub/hackerspub-sub003/internal/auth/signup"
	"github.com/hackers-pub/hackerspub-sub003/internal/config"
	sl "github.com/hackers-pub/hackerspub-sub003/internal/lib/logger"
	"github.com/hackers-pub/hackerspub-sub003/internal/lib/verification"
	"github.com/hackers-pub/hackerspub-sub003/internal/models"
	"github.com/hackers-pub/hackerspub-sub003/internal/storage/redis"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const usage = "usage: signup [-config path] [-copy] <email>"

var errUsage = errors.New(usage)

type options struct {
	configPath string
	copy       bool
	email      string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts, err := parseArgs(os.Args[1:], os.Stderr)
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(ctx, opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func parseArgs(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("signup", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.BoolVar(&opts.copy, "copy", false, "copy the invite URL to the clipboard")

	path, err := config.ParsePath(fs, args)
	if err != nil {
		return options{}, errUsage
	}
	opts.configPath = path

	if fs.NArg() != 1 || fs.Arg(0) == "" {
		return options{}, errUsage
	}
	opts.email = fs.Arg(0)

	return opts, nil
}

func run(ctx context.Context, opts options, stdout, stderr io.Writer) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := sl.Setup(cfg.Env, stderr, sl.Options{MaskSecrets: cfg.Log.MaskSecrets})

	kv, err := redis.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}
	defer kv.Close()

	token, err := signup.Create(ctx, log, kv, opts.email)
	if err != nil {
		return err
	}

	link := verification.BuildURL(cfg.Signup.VerifyURL, token.Token.String(), token.Code)

	fmt.Fprintln(stderr, banner(token, isTerminal(stderr)))
	fmt.Fprintln(stdout, link)

	if opts.copy {
		if err := clipboard.WriteAll(link); err != nil {
			log.Warn("failed to copy the invite URL to the clipboard", sl.Err(err))
		}
	}

	return nil
}

func banner(token models.SignupToken, styled bool) string {
	text := fmt.Sprintf("Invitation for %s created; it expires at %s.\nSend them the following URL:",
		token.Email,
		token.Created.Add(signup.Expiration).Format("2006-01-02 15:04 MST"),
	)

	if !styled {
		return text
	}

	return lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("212")).
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		Render(text)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
