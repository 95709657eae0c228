// Package main composes one school dashboard and prints it as JSON.
//
// Seed data comes from PostgreSQL when DATABASE_URL is set and from the
// embedded fixtures otherwise. Both are loaded once into the in-memory store;
// composed dashboards are cached in Redis when REDIS_ENABLED is true.
//
//	dashboard -viewer usr-parent-1
//	dashboard -viewer usr-teacher-2 -month 2024-04 -day 2024-04-12
//	dashboard -viewer usr-owner -mark-paid pay-001 -reference KASPI-2001
//
// -mark-paid settles a payment as the viewer before composing; only school
// owners may do so.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kidsacademy/school-hub/config"
	"github.com/kidsacademy/school-hub/internal/application/command"
	"github.com/kidsacademy/school-hub/internal/application/query"
	"github.com/kidsacademy/school-hub/internal/domain/school"
	"github.com/kidsacademy/school-hub/internal/infrastructure/fixtures"
	"github.com/kidsacademy/school-hub/internal/infrastructure/persistence/memory"
	"github.com/kidsacademy/school-hub/internal/infrastructure/persistence/postgres"
	"github.com/kidsacademy/school-hub/internal/infrastructure/persistence/redis"
	"github.com/kidsacademy/school-hub/pkg/circuitbreaker"
	"github.com/kidsacademy/school-hub/pkg/retry"
	"github.com/kidsacademy/school-hub/pkg/timeutil"
)

// options are the command-line flags.
type options struct {
	viewerID string
	today    string
	month    string
	day      string

	markPaid  string
	reference string
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("dashboard", flag.ContinueOnError)
	fs.StringVar(&opts.viewerID, "viewer", "", "user id of the viewer (required)")
	fs.StringVar(&opts.today, "today", "", "reference date YYYY-MM-DD (default: now)")
	fs.StringVar(&opts.month, "month", "", "month to show YYYY-MM (default: month of today)")
	fs.StringVar(&opts.day, "day", "", "selected day YYYY-MM-DD (default: today)")
	fs.StringVar(&opts.markPaid, "mark-paid", "", "payment id to settle before composing (school owners only)")
	fs.StringVar(&opts.reference, "reference", "", "receipt reference for -mark-paid")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if opts.viewerID == "" {
		return opts, errors.New("-viewer is required")
	}
	if opts.reference != "" && opts.markPaid == "" {
		return opts, errors.New("-reference needs -mark-paid")
	}
	return opts, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	opts, err := parseFlags(args)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration and logging
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := setupLogger(cfg)
	loc := cfg.App.Location
	log.Debug("configuration loaded",
		"env", cfg.App.Environment,
		"timezone", loc.String(),
		"database", cfg.UsesDatabase(),
		"redis", cfg.Redis.Enabled,
	)

	q, err := buildQuery(opts, loc)
	if err != nil {
		return err
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Seed data
	// ─────────────────────────────────────────────────────────────────────────
	data, err := loadDataset(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to load dataset: %w", err)
	}
	store := memory.NewStore(data)
	log.Info("dataset loaded",
		"students", len(data.Students),
		"attendance", len(data.Attendance),
		"events", len(data.Events),
		"payments", len(data.Payments),
		"users", len(data.Users),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Optional dashboard cache
	// ─────────────────────────────────────────────────────────────────────────
	var (
		cache       query.DashboardCache
		invalidator command.DashboardInvalidator
	)
	if cfg.Redis.Enabled {
		redisCfg := redis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB

		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			// The dashboard is still correct without a cache.
			log.Warn("redis unavailable, continuing without cache", "addr", redisCfg.Addr(), "error", err)
		} else {
			defer client.Close()
			breaker := circuitbreaker.CacheBreaker(redis.IsConnectionFailure, func(name string, from, to circuitbreaker.State) {
				log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
			})
			dc := redis.NewDashboardCache(client, cfg.Redis.Namespace).WithBreaker(breaker)
			cache, invalidator = dc, dc
		}
	}

	if opts.markPaid != "" {
		if err := markPaid(ctx, store, invalidator, log, opts, q.Now); err != nil {
			return err
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. Compose
	// ─────────────────────────────────────────────────────────────────────────
	composer := query.NewDashboardComposer(query.ComposerConfig{
		HorizonDays:   cfg.Dashboard.HorizonDays,
		DueSoonDays:   cfg.Dashboard.DueSoonDays,
		MaxCellEvents: cfg.Dashboard.MaxCellEvents,
		Location:      loc,
	})
	handler := query.NewGetDashboardHandler(store, composer, cache, cfg.Dashboard.CacheTTL, log)

	result, err := handler.Handle(ctx, q)
	if err != nil {
		return err
	}
	log.Info("dashboard composed",
		"viewer_id", result.Dashboard.ViewerID,
		"role", result.Dashboard.Role,
		"problems", len(result.Problems),
		"from_cache", result.FromCache,
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result.Dashboard)
}

// buildQuery turns the flags into a dashboard query in loc.
func buildQuery(opts options, loc *time.Location) (query.GetDashboardQuery, error) {
	q := query.GetDashboardQuery{ViewerID: opts.viewerID, Now: time.Now().In(loc)}

	if opts.today != "" {
		today, err := timeutil.ParseISO(opts.today, loc)
		if err != nil {
			return q, fmt.Errorf("-today: %w", err)
		}
		// Keep the wall clock so "today" is not shifted to midnight.
		q.Now = time.Date(today.Year(), today.Month(), today.Day(),
			q.Now.Hour(), q.Now.Minute(), q.Now.Second(), 0, loc)
	}
	if opts.month != "" {
		month, err := timeutil.ParseMonth(opts.month, loc)
		if err != nil {
			return q, fmt.Errorf("-month: %w", err)
		}
		q.Month = month
	}
	if opts.day != "" {
		day, err := timeutil.ParseISO(opts.day, loc)
		if err != nil {
			return q, fmt.Errorf("-day: %w", err)
		}
		q.Selected = &day
	}
	return q, nil
}

// markPaid settles opts.markPaid on behalf of the viewer, dated on today.
func markPaid(ctx context.Context, store school.Store, cache command.DashboardInvalidator, log *slog.Logger, opts options, today time.Time) error {
	actor, err := store.UserByID(opts.viewerID)
	if err != nil {
		return fmt.Errorf("-mark-paid: %w", err)
	}

	p, err := command.NewPaymentHandler(store, cache, log).MarkPaid(ctx, command.MarkPaymentPaidCommand{
		Actor:     actor.Viewer(),
		PaymentID: opts.markPaid,
		PaidOn:    today,
		Reference: opts.reference,
	})
	if err != nil {
		return fmt.Errorf("-mark-paid: %w", err)
	}

	log.Info("payment settled", "payment_id", p.ID, "paid_on", p.PaidOn, "actor_id", actor.ID)
	return nil
}

// loadDataset reads the seed from PostgreSQL when configured, retrying
// connection failures, and from the embedded fixtures otherwise.
func loadDataset(ctx context.Context, cfg *config.Config, log *slog.Logger) (school.Dataset, error) {
	if !cfg.UsesDatabase() {
		return fixtures.NewSource(cfg.Fixtures.Latency, log).Load(ctx)
	}

	retrier := retry.DatabaseRetrier(postgres.IsTransient, func(attempt int, err error, delay time.Duration) {
		log.Warn("seed load failed, retrying", "attempt", attempt, "delay", delay, "error", err)
	})

	return retry.DoValue(ctx, retrier, func(ctx context.Context) (school.Dataset, error) {
		loadCtx, cancel := context.WithTimeout(ctx, cfg.Database.QueryTimeout)
		defer cancel()

		poolOpts := postgres.DefaultPoolOptions()
		poolOpts.MaxConns = cfg.Database.MaxConns

		conn, err := postgres.NewConnectionFromURL(loadCtx, cfg.Database.URL, poolOpts)
		if err != nil {
			return school.Dataset{}, err
		}
		defer conn.Close()

		if cfg.Database.Migrate {
			if err := postgres.NewMigrator(conn).Migrate(loadCtx); err != nil {
				return school.Dataset{}, retry.Permanent(err)
			}
		}

		data, err := postgres.NewLoader(conn).Load(loadCtx)
		return data, classifyLoadError(err, cfg.Database.Migrate)
	})
}

// classifyLoadError stops retries for a database without the schema, which
// no amount of waiting fixes.
func classifyLoadError(err error, migrated bool) error {
	if err == nil || !postgres.IsUndefinedTable(err) {
		return err
	}
	if migrated {
		return retry.Permanent(fmt.Errorf("schema missing after migration: %w", err))
	}
	return retry.Permanent(fmt.Errorf("schema missing, run with DB_MIGRATE=true: %w", err))
}

// setupLogger: JSON in production, text elsewhere. Logs go to stderr so
// stdout carries only the dashboard.
func setupLogger(cfg *config.Config) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.App.Debug {
		opts.Level = slog.LevelDebug
	}

	if cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)

	return log
}
