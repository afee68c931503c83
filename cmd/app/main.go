package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/notedash/internal"
	"github.com/starford/notedash/internal/account"
	"github.com/starford/notedash/internal/apperr"
	pkgconfig "github.com/starford/notedash/pkg/config"
)

var version = "dev"

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if _, err := pkgconfig.LoadOptional(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp run error: %w", err)
	}
	return nil
}

// withAccounts opens the shared session storage for a one-shot command.
func withAccounts(cmd *cli.Command, fn func(*internal.Components) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	if cmd.Bool("verbose") {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
	comps, err := internal.Open(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer comps.Close()
	return fn(comps)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// userError reduces err to the text a person at the terminal should see.
func userError(err error) error {
	return cli.Exit(apperr.Message(err), 1)
}

func signup(ctx context.Context, cmd *cli.Command) error {
	return withAccounts(cmd, func(c *internal.Components) error {
		user, err := c.Accounts.Signup(ctx, account.SignupForm{
			Username:        cmd.String("username"),
			Email:           cmd.String("email"),
			Password:        cmd.String("password"),
			ConfirmPassword: cmd.String("confirm-password"),
		})
		if err != nil {
			return userError(err)
		}
		fmt.Fprintf(cmd.Root().Writer, "Account %s created. Log in to continue.\n", user.Username)
		return nil
	})
}

func login(ctx context.Context, cmd *cli.Command) error {
	return withAccounts(cmd, func(c *internal.Components) error {
		user, err := c.Accounts.Login(ctx, account.LoginForm{
			Username: cmd.String("username"),
			Password: cmd.String("password"),
		})
		if err != nil {
			return userError(err)
		}
		fmt.Fprintf(cmd.Root().Writer, "Logged in as %s.\n", user.Username)
		return nil
	})
}

func logout(_ context.Context, cmd *cli.Command) error {
	return withAccounts(cmd, func(c *internal.Components) error {
		if err := c.Accounts.Logout(); err != nil {
			return userError(err)
		}
		fmt.Fprintln(cmd.Root().Writer, "Logged out.")
		return nil
	})
}

func whoami(_ context.Context, cmd *cli.Command) error {
	return withAccounts(cmd, func(c *internal.Components) error {
		user, ok := c.Session.Current()
		if !ok {
			return userError(apperr.ErrUnauthenticated)
		}
		return printJSON(cmd.Root().Writer, user)
	})
}

func newCommand() *cli.Command {
	credentials := []cli.Flag{
		&cli.StringFlag{Name: "username", Aliases: []string{"u"}, Usage: "Account username", Sources: cli.EnvVars("NOTEDASH_USERNAME")},
		&cli.StringFlag{Name: "password", Aliases: []string{"p"}, Usage: "Account password", Sources: cli.EnvVars("NOTEDASH_PASSWORD")},
	}

	return &cli.Command{
		Name:    "notedash",
		Usage:   "Local dashboard gateway for a remote notes API: HTTP/SSE, MCP and account commands",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log remote calls of one-shot commands to stderr",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP gateway (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve dashboard tools over MCP stdio",
				Action: serveMCP,
			},
			{
				Name:  "signup",
				Usage: "Register a new account",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "email", Aliases: []string{"e"}, Usage: "Account email"},
					&cli.StringFlag{Name: "confirm-password", Usage: "Repeat the password"},
				}, credentials...),
				Action: signup,
			},
			{
				Name:   "login",
				Usage:  "Log in and persist the session",
				Flags:  credentials,
				Action: login,
			},
			{
				Name:   "logout",
				Usage:  "Forget the persisted session",
				Action: logout,
			},
			{
				Name:   "whoami",
				Usage:  "Print the logged-in user",
				Action: whoami,
			},
		},
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
