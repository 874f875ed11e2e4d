package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/chmdznr/course-state-sync/pkg/version"
)

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	profileFlag := &cli.StringFlag{
		Name:     "profile",
		Aliases:  []string{"p"},
		Usage:    "Profile name",
		Required: true,
	}

	app := &cli.App{
		Name:                 "csync",
		Usage:                "Keep a local registry of course files in sync with the learning platform",
		Version:              version.Version,
		EnableBashCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db-dir",
				Usage: "Directory holding the profile registries",
				Value: ".",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
			&cli.BoolFlag{
				Name:  "log-json",
				Usage: "Log as JSON",
			},
		},
		Before: func(c *cli.Context) error {
			return setupLogging(c.String("log-level"), c.Bool("log-json"))
		},
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("Version:    %s\n", version.Version)
					fmt.Printf("Git commit: %s\n", version.GitCommit)
					fmt.Printf("Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create or update a sync profile",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Profile name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Usage:    "Directory course files are saved below",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "listing",
						Usage:    "Course listing written by the platform fetcher (YAML or JSON)",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Shortcut style: linux, windows or darwin (default: this host)",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Number of parallel downloads",
						Value: 16,
					},
					&cli.StringFlag{
						Name:    "token",
						Usage:   "Platform access token appended to file URLs",
						EnvVars: []string{"CSYNC_TOKEN"},
					},
					&cli.StringFlag{
						Name:  "endpoint",
						Usage: "MinIO endpoint to mirror files into",
					},
					&cli.StringFlag{
						Name:  "bucket",
						Usage: "MinIO bucket name",
					},
					&cli.StringFlag{
						Name:  "folder",
						Usage: "Folder inside the bucket",
					},
					&cli.StringFlag{
						Name:  "access-key",
						Usage: "MinIO access key",
					},
					&cli.StringFlag{
						Name:    "secret-key",
						Usage:   "MinIO secret key",
						EnvVars: []string{"CSYNC_SECRET_KEY"},
					},
					&cli.BoolFlag{
						Name:  "secure",
						Usage: "Use TLS for MinIO",
						Value: true,
					},
				},
				Action: createProfile,
			},
			{
				Name:  "sync",
				Usage: "Reconcile the registry with the listing and fetch what changed",
				Flags: []cli.Flag{
					profileFlag,
					&cli.StringFlag{
						Name:  "listing",
						Usage: "Override the profile's listing path",
					},
					&cli.BoolFlag{
						Name:  "fake",
						Usage: "Only record the listing in the registry, download nothing",
					},
					&cli.BoolFlag{
						Name:  "prune",
						Usage: "Also drop entries the listing no longer mentions",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Override the number of parallel downloads",
					},
					&cli.StringFlag{
						Name:  "platform",
						Usage: "Override the shortcut style",
					},
					&cli.BoolFlag{
						Name:  "interactive",
						Usage: "Press q or Esc to stop downloading",
					},
				},
				Action: startSync,
			},
			{
				Name:  "status",
				Usage: "Show profile status",
				Flags: []cli.Flag{
					profileFlag,
				},
				Action: showStatus,
			},
			{
				Name:  "files",
				Usage: "List registry entries",
				Flags: []cli.Flag{
					profileFlag,
					&cli.IntFlag{
						Name:  "course",
						Usage: "Only list this course",
					},
				},
				Action: listFiles,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogging(level string, json bool) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return err
	}
	log.SetLevel(lvl)
	if json {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true, TimestampFormat: "15:04:05"})
	}
	return nil
}
