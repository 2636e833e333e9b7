// Command ghrepos lists the public repositories of a GitHub organization.
package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"messaging-service/cmd/internal/cli"
	"messaging-service/internal/adapter/github"
)

func main() {
	var (
		license string
		level   string
	)
	flag.StringVarP(&license, "license", "l", "", "only repositories with this license key, e.g. apache-2.0")
	flag.StringVar(&level, "log-level", "", "log level override")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: ghrepos [flags] <org>\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	org := flag.Arg(0)

	env, err := cli.Load(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := env.Logger

	ctx, cancel := cli.SignalContext()
	defer cancel()

	client := github.NewOrgClient(org,
		github.WithBaseURL(env.Config.GitHub.BaseURL),
		github.WithHTTPClient(&http.Client{Timeout: time.Duration(env.Config.GitHub.TimeoutSeconds) * time.Second}),
		github.WithLogger(log),
	)

	names, err := client.PublicRepos(ctx, license)
	if err != nil {
		cli.Fatal(log, "failed to list repositories", err)
	}

	log.Debug("repositories listed", zap.String("org", org), zap.Int("count", len(names)))
	for _, name := range names {
		fmt.Println(name)
	}
}
