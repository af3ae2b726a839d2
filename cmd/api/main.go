package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/config"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/timesheet"
	appHTTP "github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/repository/postgresql"
	clockService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/clock"
	timesheetService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/timesheet"
	"github.com/go-chi/httplog/v3"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFormat := httplog.SchemaECS.Concise(cfg.App.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       cfg.SlogLevel(),
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "timeclock"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolConfig{
		MaxConns: cfg.Database.MaxConns,
		MinConns: cfg.Database.MinConns,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	locker, closeLocker, err := newLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	defaultPolicy, err := defaultTimesheetPolicy(cfg.Timesheet)
	if err != nil {
		return err
	}

	JWTService, err := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	if err != nil {
		return fmt.Errorf("init jwt: %w", err)
	}

	txManager := postgresql.NewTxManager(db)
	eventRepo := postgresql.NewClockEventRepository(db)
	profileRepo := postgresql.NewUserProfileRepository(db)
	companyRepo := postgresql.NewCompanyRepository(db)

	punchSvc := clockService.NewPunchService(txManager, locker, eventRepo, profileRepo)
	timesheetSvc := timesheetService.NewTimesheetService(eventRepo, profileRepo, companyRepo, defaultPolicy)

	router := appHTTP.NewRouter(
		appHTTP.RouterConfig{
			Logger:         logger,
			AllowedOrigins: cfg.App.AllowedOrigins,
		},
		JWTService,
		appHTTP.NewClockHandler(punchSvc),
		appHTTP.NewTimesheetHandler(timesheetSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server running", "addr", server.Addr, "lock_driver", cfg.Lock.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLocker(ctx context.Context, cfg *config.Config) (lock.Locker, func(), error) {
	switch cfg.Lock.Driver {
	case config.LockDriverRedis:
		client, err := lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect to redis: %w", err)
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Warn("Failed to close redis client", "error", err)
			}
		}
		return lock.NewRedisLocker(client, cfg.Redis.Prefix, cfg.Lock.TTL), closeFn, nil
	default:
		return lock.NewMemoryLocker(), func() {}, nil
	}
}

// defaultTimesheetPolicy applies the configured defaults the same way a
// company's settings are applied.
func defaultTimesheetPolicy(cfg config.TimesheetConfig) (timesheet.Policy, error) {
	policy, err := timesheet.DefaultPolicy().WithSettings(company.Settings{
		DailyScheduleHours:       &cfg.DailyScheduleHours,
		LatenessToleranceMinutes: &cfg.LatenessToleranceMinutes,
		ExpectedStartTime:        &cfg.ExpectedStart,
	})
	if err != nil {
		return timesheet.Policy{}, fmt.Errorf("invalid timesheet defaults: %w", err)
	}
	return policy, nil
}
