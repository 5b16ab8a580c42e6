package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/docopt/docopt-go"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/vedran77/huddle/internal/app"
	"github.com/vedran77/huddle/internal/config"
	"github.com/vedran77/huddle/internal/database"
	"github.com/vedran77/huddle/internal/domain"
	"github.com/vedran77/huddle/internal/policy"
	"github.com/vedran77/huddle/internal/service"
)

const HuddlectlVersion = "0.1.0"

const usage = `Huddle operator tool.

Configuration comes from the environment (and .env), as for the server.

Usage:
    huddlectl migrate (up|down)
    huddlectl reconcile <user-id>
    huddlectl prune-requests --older-than=<days>
    huddlectl -h | --help
    huddlectl --version

Options:
    -h --help                 Show this screen.
    --version                 Show version.
    --older-than=<days>       Delete accepted and declined requests answered
                              more than this many days ago.`

func main() {
	flag.Set("logtostderr", "true")
	defer glog.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "huddlectl: %v\n", err)
		glog.Flush()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	parser := &docopt.Parser{HelpHandler: docopt.PrintHelpOnly}
	opts, err := parser.ParseArgs(usage, args, HuddlectlVersion)
	if err != nil {
		return err
	}
	cfg := config.Load()

	if migrate_, _ := opts.Bool("migrate"); migrate_ {
		return migrate(cfg, opts, out)
	} else if reconcile_, _ := opts.Bool("reconcile"); reconcile_ {
		return reconcile(ctx, cfg, opts, out)
	} else if prune_, _ := opts.Bool("prune-requests"); prune_ {
		return pruneRequests(ctx, cfg, opts, out)
	}
	return nil
}

func migrate(cfg *config.Config, opts docopt.Opts, out io.Writer) error {
	if cfg.Store.Driver != "postgres" {
		return fmt.Errorf("migrations apply to the postgres store, STORE_DRIVER is %q", cfg.Store.Driver)
	}

	direction := database.MigrateUp
	if down, _ := opts.Bool("down"); down {
		direction = database.MigrateDown
	}
	if err := database.Migrate(cfg.Database.MigrateURL(), direction); err != nil {
		return err
	}
	fmt.Fprintf(out, "migrate %s: done\n", direction)
	return nil
}

// reconcile runs one outgoing-acceptance cycle for a user, the same work a
// signed-in session does on every snapshot.
func reconcile(ctx context.Context, cfg *config.Config, opts docopt.Opts, out io.Writer) error {
	raw, _ := opts.String("<user-id>")
	userID, err := uuid.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", raw, err)
	}

	friends, closeFn, err := openFriendService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	added, err := friends.ReconcileNow(ctx, domain.Session{UserID: userID})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "reconciled %s: %d friend(s) added\n", userID, len(added))
	for _, id := range added {
		fmt.Fprintf(out, "  + %s\n", id)
	}
	return nil
}

func pruneRequests(ctx context.Context, cfg *config.Config, opts docopt.Opts, out io.Writer) error {
	raw, _ := opts.String("--older-than")
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 {
		return fmt.Errorf("--older-than must be a positive number of days, got %q", raw)
	}

	friends, closeFn, err := openFriendService(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeFn()

	n, err := friends.PruneResolved(ctx, time.Duration(days)*24*time.Hour)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "pruned %d resolved request(s) older than %d day(s)\n", n, days)
	return nil
}

func openFriendService(ctx context.Context, cfg *config.Config) (*service.FriendService, func(), error) {
	store, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	closeStore := func() {
		if err := store.Close(context.Background()); err != nil {
			glog.Warningf("closing store: %v", err)
		}
	}

	feed, redisClient, err := app.OpenFeed(cfg)
	if err != nil {
		closeStore()
		return nil, nil, err
	}
	closeAll := func() {
		if redisClient != nil {
			redisClient.Close()
		}
		closeStore()
	}

	engine, err := policy.New(ctx)
	if err != nil {
		closeAll()
		return nil, nil, fmt.Errorf("preparing policy: %w", err)
	}

	observed := app.Observe(store, feed)
	return service.NewFriendService(observed.Users, observed.Requests, feed, engine), closeAll, nil
}
