package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	botpanel "github.com/botpanel/go-botpanel"
	"github.com/botpanel/go-botpanel/auth"
	"github.com/botpanel/go-botpanel/internal/config"
	errs "github.com/botpanel/go-botpanel/internal/errors"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error running client: %s\n", err)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c := config.New()
	displayAppname(c.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	panel, err := botpanel.New(c, botpanel.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if !panel.Session.IsAuthenticated() {
		username := config.GetEnv("PANEL_USERNAME", "")
		password := config.GetEnv("PANEL_PASSWORD", "")
		if username == "" || password == "" {
			return errors.Wrap(errs.ErrNotAuthenticated, "no persisted session; set PANEL_USERNAME and PANEL_PASSWORD")
		}
		if _, err := panel.Auth.Login(ctx, auth.LoginRequest{Username: username, Password: password}); err != nil {
			return errors.Wrap(err, "login")
		}
	}
	snapshot := panel.Session.Snapshot()
	fmt.Printf("Logged in as %s\n\n", snapshot.User.Username)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		list, err := panel.Clients.List(groupCtx)
		if err != nil {
			return errors.Wrap(err, "list clients")
		}
		fmt.Printf("Clients (%d):\n", len(list))
		for _, client := range list {
			fmt.Printf("  #%d %s\n", client.ID, client.FullName)
		}
		return nil
	})
	group.Go(func() error {
		account, err := panel.Portfolio.GetBalance(groupCtx)
		if err != nil {
			return errors.Wrap(err, "portfolio balance")
		}
		fmt.Printf("Portfolio: %d assets, %.2f USD total\n", len(account.Balances), account.TotalUSDValue)
		return nil
	})
	group.Go(func() error {
		configs, err := panel.Bots.List(groupCtx)
		if err != nil {
			return errors.Wrap(err, "list bot configs")
		}
		for _, cfg := range configs {
			state := "stopped"
			if cfg.IsActive {
				state = "active"
			}
			fmt.Printf("Bot #%d %s (%s)\n", cfg.ID, cfg.SelectedCoin, state)
		}
		return nil
	})
	return group.Wait()
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
