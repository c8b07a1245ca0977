// Command ledger runs the Closet By Era gift card ledger.
//
// Usage:
//
//	ledger [-config path] [serve]
//	ledger [-config path] migrate
//	ledger [-config path] create-admin -email ops@example.com -password secret [-name Ops] [-super]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/closetbyera/giftledger/internal/app"
	"github.com/closetbyera/giftledger/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (defaults to LEDGER_CONFIG or ./config.yaml)")
	flag.Usage = usage
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appCfg := config.AppConfig{ConfigPath: *configPath}
	if err := run(ctx, appCfg, flag.Args()); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.WithError(err).Error("ledger exited")
		os.Exit(1)
	}
}

func run(ctx context.Context, appCfg config.AppConfig, args []string) error {
	command := "serve"
	if len(args) > 0 {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		return app.RunServer(ctx, appCfg)
	case "migrate":
		if err := app.Migrate(ctx, appCfg); err != nil {
			return err
		}
		log.Info("migrations applied")
		return nil
	case "create-admin":
		fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
		email := fs.String("email", "", "admin email")
		name := fs.String("name", "", "display name")
		password := fs.String("password", "", "admin password")
		super := fs.Bool("super", false, "grant super_admin")
		if err := fs.Parse(args); err != nil {
			return err
		}
		return app.CreateAdmin(ctx, appCfg, app.CreateAdminParams{
			Email:      *email,
			Name:       *name,
			Password:   *password,
			SuperAdmin: *super,
		})
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [-config path] [serve|migrate|create-admin]\n", os.Args[0])
	flag.PrintDefaults()
}
