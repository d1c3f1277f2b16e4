// Copyright 2026 The backersbot authors
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/crowdward/backersbot/internal/app"
	"github.com/crowdward/backersbot/internal/config"
)

func main() {
	cmd := &cli.Command{
		Name:   "backersbot",
		Usage:  "Verify crowdfunding backers and grant their Discord tier role",
		Flags:  config.Flags(),
		Action: app.Run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
