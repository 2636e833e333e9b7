// Command seed loads user_data rows from a CSV file with a name,email,age header.
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"messaging-service/cmd/internal/cli"
	"messaging-service/internal/adapter/db/userdata"
	usecase "messaging-service/internal/usecase/userdata"
)

func main() {
	var (
		file  string
		level string
	)
	flag.StringVarP(&file, "file", "f", "", "CSV file to import (default STREAM_SEED_FILE)")
	flag.StringVar(&level, "log-level", "", "log level override")
	flag.Parse()

	env, err := cli.Load(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := env.Logger
	if file == "" {
		file = env.Config.Stream.SeedFile
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	db, closeDB, err := env.OpenDB()
	if err != nil {
		cli.Fatal(log, "failed to open database", err)
	}
	defer closeDB()

	f, err := os.Open(file)
	if err != nil {
		cli.Fatal(log, "failed to open seed file", err)
	}
	defer f.Close()

	uc := usecase.New(userdata.NewStore(db, log), nil, log)
	report, err := uc.Seed(ctx, f)
	if err != nil {
		cli.Fatal(log, "seed failed", err)
	}

	log.Info("seed finished",
		zap.String("file", file),
		zap.Int("inserted", report.Inserted),
		zap.Int("skipped", report.Skipped),
		zap.Int("invalid", report.Invalid),
	)
	fmt.Printf("inserted=%d skipped=%d invalid=%d\n", report.Inserted, report.Skipped, report.Invalid)
}
