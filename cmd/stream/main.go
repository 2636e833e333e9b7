// Command stream reads user_data through the streaming, batching and paging generators.
//
// Modes:
//
//	users       every row, one at a time
//	batches     users older than 25, read in batches
//	pages       every page of --page-size rows
//	average     average age over the age stream
//	concurrent  all users and users older than 40, fetched concurrently
//	query       an ad-hoc read query (--sql, --arg), served from the query cache when Redis is on
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"messaging-service/cmd/api/infrastructure"
	"messaging-service/cmd/internal/cli"
	"messaging-service/internal/adapter/cache"
	"messaging-service/internal/adapter/db/sqlexec"
	"messaging-service/internal/adapter/db/userdata"
	usecase "messaging-service/internal/usecase/userdata"
)

type options struct {
	mode      string
	limit     int
	batchSize int
	pageSize  int
	sql       string
	args      []string
	level     string
}

func main() {
	var opts options
	flag.StringVarP(&opts.mode, "mode", "m", "users", "users|batches|pages|average|concurrent|query")
	flag.IntVarP(&opts.limit, "limit", "n", 0, "stop after n items (0 = no limit)")
	flag.IntVar(&opts.batchSize, "batch-size", 0, "batch size (default STREAM_BATCH_SIZE)")
	flag.IntVar(&opts.pageSize, "page-size", 0, "page size (default STREAM_PAGE_SIZE)")
	flag.StringVar(&opts.sql, "sql", "", "query for --mode query")
	flag.StringSliceVar(&opts.args, "arg", nil, "query argument, repeatable")
	flag.StringVar(&opts.level, "log-level", "", "log level override")
	flag.Parse()

	env, err := cli.Load(opts.level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log := env.Logger
	if opts.batchSize == 0 {
		opts.batchSize = env.Config.Stream.BatchSize
	}
	if opts.pageSize == 0 {
		opts.pageSize = env.Config.Stream.PageSize
	}

	ctx, cancel := cli.SignalContext()
	defer cancel()

	db, closeDB, err := env.OpenDB()
	if err != nil {
		cli.Fatal(log, "failed to open database", err)
	}
	defer closeDB()

	var queryCache sqlexec.QueryCache
	if opts.mode == "query" || opts.mode == "concurrent" {
		rdb, err := infrastructure.NewRedisClient(env.Config, log)
		if err != nil {
			log.Warn("query cache unavailable", zap.Error(err))
		} else if rdb != nil {
			defer rdb.Close()
			queryCache = cache.NewRedisQueryCache(rdb.Client, time.Duration(env.Config.Redis.QueryCacheTTL)*time.Second, log)
		}
	}

	store := userdata.NewStore(db, log)
	exec := sqlexec.NewExecutor(db, queryCache, log)
	uc := usecase.New(store, exec, log)
	out := json.NewEncoder(os.Stdout)

	if err := run(ctx, opts, store, uc, exec, out); err != nil {
		cli.Fatal(log, "stream failed", err)
	}
}

func run(ctx context.Context, opts options, store *userdata.Store, uc *usecase.Usecase, exec *sqlexec.Executor, out *json.Encoder) error {
	switch opts.mode {
	case "users":
		return emit(out, store.StreamUsers(ctx), opts.limit)
	case "batches":
		return emit(out, uc.BatchProcessing(ctx, opts.batchSize), opts.limit)
	case "pages":
		return emit(out, store.LazyPaginate(ctx, opts.pageSize), opts.limit)
	case "average":
		avg, err := uc.AverageAge(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("Average age of users: %.2f\n", avg)
		return nil
	case "concurrent":
		res, err := uc.FetchConcurrently(ctx)
		if encErr := out.Encode(map[string]any{
			"all_users":   res.AllUsers,
			"older_users": res.OlderUsers,
		}); encErr != nil {
			return encErr
		}
		return err
	case "query":
		if opts.sql == "" {
			return fmt.Errorf("--sql is required in query mode")
		}
		args := make([]any, len(opts.args))
		for i, a := range opts.args {
			args[i] = a
		}
		rows, err := exec.Query(ctx, opts.sql, args...)
		if err != nil {
			return err
		}
		return out.Encode(rows)
	default:
		return fmt.Errorf("unknown mode %q", opts.mode)
	}
}

func emit[T any](out *json.Encoder, seq iter.Seq2[T, error], limit int) error {
	n := 0
	for v, err := range seq {
		if err != nil {
			return err
		}
		if err := out.Encode(v); err != nil {
			return err
		}
		n++
		if limit > 0 && n >= limit {
			break
		}
	}
	return nil
}
