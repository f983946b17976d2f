// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"codeberg.org/oliverandrich/byteblogger/internal/config"
	"codeberg.org/oliverandrich/byteblogger/internal/server"
	"codeberg.org/oliverandrich/byteblogger/internal/services/otp"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "byteblogger",
		Usage:   "ByteBlogger account service",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server",
				Flags:  config.Flags(),
				Action: server.Run,
			},
			{
				Name:  "purge",
				Usage: "Delete old OTP history and expired revoked tokens",
				Flags: append(config.Flags(), &cli.DurationFlag{
					Name:  "older-than",
					Value: server.DefaultRetention,
					Usage: fmt.Sprintf("Delete OTP requests issued before this age (at least %s)", otp.Window),
				}),
				Action: server.RunPurge,
			},
			{
				Name:   "migrate",
				Usage:  "Apply database migrations and exit",
				Flags:  config.Flags(),
				Action: server.RunMigrate,
			},
		},
	}
}
