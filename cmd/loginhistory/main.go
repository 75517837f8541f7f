package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

var (
	app       *cli.App
	gitCommit string
)

var (
	confirmFlag = &cli.BoolFlag{
		Name:  "yes",
		Usage: "Confirm a destructive operation",
	}
	tokenUserFlag = &cli.StringFlag{
		Name:  "user-id",
		Usage: "Subject user id of the token",
		Value: "operator",
	}
	tokenUsernameFlag = &cli.StringFlag{
		Name:  "username",
		Usage: "Username claim of the token",
	}
	tokenExpiryFlag = &cli.DurationFlag{
		Name:  "expiry",
		Usage: "Token lifetime (defaults to ACCESS_TOKEN_EXPIRY)",
	}
)

func init() {
	app = cli.NewApp()
	app.Name = "loginhistory"
	app.Usage = "Login history recorder and admin API"
	app.EnableBashCompletion = true
	app.Commands = []*cli.Command{
		{
			Name:   "serve",
			Usage:  "Run migrations, the retention scheduler and the HTTP API",
			Action: serve,
		},
		{
			Name:   "migrate",
			Usage:  "Apply database migrations",
			Action: migrate,
		},
		{
			Name:   "sweep",
			Usage:  "Run one retention sweep and exit",
			Action: sweep,
		},
		{
			Name:   "uninstall",
			Usage:  "Drop the auth log, settings and every stored last-login marker",
			Flags:  []cli.Flag{confirmFlag},
			Action: uninstall,
		},
		{
			Name:   "token",
			Usage:  "Mint an admin API token",
			Flags:  []cli.Flag{tokenUserFlag, tokenUsernameFlag, tokenExpiryFlag},
			Action: mintToken,
		},
		{
			Name:      "hash-hook-secret",
			Usage:     "Print the HOOK_SECRET_HASH value for a shared hook secret, generating one when omitted",
			ArgsUsage: "[secret]",
			Action:    hashHookSecret,
		},
		{
			Name: "version",
			Action: func(ctx *cli.Context) error {
				fmt.Println("loginhistory", gitCommit)
				return nil
			},
		},
	}
	app.DefaultCommand = "serve"
}

func newLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		slog.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}
