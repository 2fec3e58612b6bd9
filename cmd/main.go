package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/tejusbharadwaj/wateruse/internal/api"
	"github.com/tejusbharadwaj/wateruse/internal/batch"
	"github.com/tejusbharadwaj/wateruse/internal/completeness"
	"github.com/tejusbharadwaj/wateruse/internal/config"
	"github.com/tejusbharadwaj/wateruse/internal/consent"
	"github.com/tejusbharadwaj/wateruse/internal/database"
	server "github.com/tejusbharadwaj/wateruse/internal/grpc"
	middleware "github.com/tejusbharadwaj/wateruse/internal/grpc/middlewares"
	"github.com/tejusbharadwaj/wateruse/internal/httpapi"
	"github.com/tejusbharadwaj/wateruse/internal/readings"
	"github.com/tejusbharadwaj/wateruse/internal/report"
	"github.com/tejusbharadwaj/wateruse/internal/reportingmode"
	"github.com/tejusbharadwaj/wateruse/internal/scheduler"
	"github.com/tejusbharadwaj/wateruse/internal/statistics"
)

// Command wateruse assesses water-take telemetry: weekly completeness against
// each point's reporting mode, monthly statistics and consent references.
//
// Usage:
//
//	wateruse [flags]
//
// The flags are:
//
//	-config string
//	      path to config file (default "config.yaml")
//	-run string
//	      run one job (completeness, statistics, mode_refresh) and exit
func main() {
	flags := parseFlags()

	appConfig, err := config.Load(flags.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := newLogger(appConfig.Logging)
	location, err := time.LoadLocation(appConfig.Mode.Location)
	if err != nil {
		logger.Fatalf("Invalid location: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	modes, consents, err := openRepositories(ctx, appConfig.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to open database: %v", err)
	}
	defer modes.Close()

	client := api.NewClient(api.ClientConfig{
		URL:            appConfig.Telemetry.URL,
		Hts:            appConfig.Telemetry.Hts,
		RequestTimeout: appConfig.Telemetry.RequestTimeout,
		MaxRetries:     appConfig.Telemetry.MaxRetries,
		RetryBaseDelay: appConfig.Telemetry.RetryBaseDelay,
		RateLimit:      appConfig.Telemetry.RateLimit,
		RateLimitBurst: appConfig.Telemetry.RateLimitBurst,
	}, logger)
	store := readings.NewStore(client, logger)

	estimator := reportingmode.Estimator{
		MinReadings: appConfig.Mode.MinReadings,
		Location:    location,
	}
	modeCache, err := reportingmode.NewCache(
		appConfig.Mode.CacheSize,
		modes,
		reportingmode.NewService(store, estimator, logger),
		appConfig.Mode.MaxAge,
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to create mode cache: %v", err)
	}

	consentService := consent.NewService(consents, logger)
	engine := statistics.NewEngine(statistics.Config{
		SpikeMinStdDev:   appConfig.Statistics.SpikeMinStdDev,
		SpikeMinReadings: appConfig.Statistics.SpikeMinReadings,
		Location:         location,
		WaterYearPadding: appConfig.Statistics.WaterYearPadding,
	})

	memory := report.NewMemory()
	sink, closeSinks, err := buildSinks(ctx, appConfig, memory, logger)
	if err != nil {
		logger.Fatalf("Failed to set up report sinks: %v", err)
	}
	defer closeSinks()

	runner := batch.NewRunner(batch.RunnerConfig{
		Workers:      appConfig.Batch.Workers,
		PointTimeout: appConfig.Batch.PointTimeout,
		RunDeadline:  appConfig.Batch.RunDeadline,
	}, logger)
	assessor := batch.NewAssessor(runner, batch.Dependencies{
		Modes: modeCache,
		Checker: completeness.NewChecker(store, completeness.Config{
			Lookback:        appConfig.Completeness.Lookback,
			MissingFraction: appConfig.Completeness.MissingFraction,
		}, logger),
		Series:   store,
		Consents: consentService,
		Engine:   engine,
		Sink:     sink,
		Lister:   client,
	}, appConfig.Completeness.Window, appConfig.Batch.PointsFile, logger)

	statsFrom, statsTo, err := statisticsRange(appConfig.Statistics, time.Now(), location)
	if err != nil {
		logger.Fatalf("Invalid statistics period: %v", err)
	}

	if flags.Run != "" {
		if err := runOnce(ctx, assessor, flags.Run, statsFrom, statsTo, logger); err != nil {
			logger.Fatalf("Run %s failed: %v", flags.Run, err)
		}
		return
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	registry.MustRegister(api.Collectors()...)
	registry.MustRegister(batch.Collectors()...)
	registry.MustRegister(middleware.Collectors()...)

	// Create and setup gRPC server
	srv, health, err := server.SetupServer(
		server.NewQualityService(assessor, modeCache, consentService),
		server.ServerConfig{
			CacheSize:      appConfig.Server.CacheSize,
			CacheTTL:       5 * time.Minute,
			RateLimit:      appConfig.Server.RateLimit,
			RateLimitBurst: appConfig.Server.RateLimitBurst,
		},
		logger,
	)
	if err != nil {
		logger.Fatalf("Failed to setup server: %v", err)
	}

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%d", appConfig.Server.Host, appConfig.Server.Port))
	if err != nil {
		logger.Fatalf("Failed to listen: %v", err)
	}

	httpServer := httpapi.NewServer(httpapi.Config{
		Host: appConfig.HTTP.Host,
		Port: appConfig.HTTP.Port,
		Mode: appConfig.HTTP.Mode,
	}, memory, assessor, registry, logger)

	var jobs *scheduler.Scheduler
	if appConfig.Scheduler.Enabled {
		jobs = scheduler.NewScheduler(ctx, assessor, scheduler.Config{
			CompletenessSpec: appConfig.Scheduler.CompletenessSpec,
			ModeRefreshSpec:  appConfig.Scheduler.ModeRefreshSpec,
			StatisticsSpec:   appConfig.Scheduler.StatisticsSpec,
			StatisticsFrom:   statsFrom,
			Location:         location,
		}, logger)
		if err := jobs.Start(); err != nil {
			logger.Fatalf("Failed to start scheduler: %v", err)
		}
	}

	errChan := make(chan error, 2)

	go func() {
		logger.WithField("port", appConfig.Server.Port).Info("Starting gRPC server")
		if err := srv.Serve(lis); err != nil {
			errChan <- fmt.Errorf("grpc server error: %w", err)
		}
	}()

	go func() {
		if err := httpServer.Start(); err != nil {
			errChan <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-errChan:
		logger.Errorf("Service error: %v", err)
	}

	shutdown(srv, health, httpServer, jobs, logger)
}

type Flags struct {
	ConfigPath string
	Run        string
}

func parseFlags() *Flags {
	f := &Flags{}

	flag.StringVar(&f.ConfigPath, "config", "config.yaml", "Path to the config file")
	flag.StringVar(&f.Run, "run", "", "Run one job (completeness, statistics, mode_refresh) and exit")

	flag.Parse()

	return f
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()
	if cfg.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		logger.Warnf("Unknown log level %q, using info", cfg.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}

// openRepositories opens the mode table and the consent source. Consents are
// only available from Postgres.
func openRepositories(ctx context.Context, cfg config.DatabaseConfig, logger *logrus.Logger) (database.ModeRepository, database.ConsentRepository, error) {
	if cfg.Driver == "postgres" {
		repo, err := database.NewPostgresRepo(cfg.DSN(), cfg.MaxConnections)
		if err != nil {
			return nil, nil, err
		}
		if err := repo.Migrate(ctx); err != nil {
			repo.Close()
			return nil, nil, err
		}
		return repo, repo, nil
	}

	repo, err := database.NewSQLiteRepo(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("No consent database configured, statistics will carry no consent references")
	return repo, database.NoConsents{}, nil
}

// buildSinks always keeps the in-memory view and adds InfluxDB and Kafka when
// enabled.
func buildSinks(ctx context.Context, cfg *config.Config, memory *report.Memory, logger *logrus.Logger) (report.Sink, func(), error) {
	sinks := report.Multi{memory}
	var closers []func()
	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}

	if cfg.Influx.Enabled {
		influx, err := report.NewInflux(ctx, cfg.Influx.URL, cfg.Influx.Token, cfg.Influx.Org, cfg.Influx.Bucket)
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, influx)
		closers = append(closers, influx.Close)
		logger.WithField("bucket", cfg.Influx.Bucket).Info("Writing results to InfluxDB")
	}

	if cfg.Kafka.Enabled {
		producer, err := report.NewKafkaProducer(cfg.Kafka.Brokers)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		kafka := report.NewKafka(producer, cfg.Kafka.Topic, logger)
		sinks = append(sinks, kafka)
		closers = append(closers, func() {
			if err := kafka.Close(); err != nil {
				logger.Warnf("Failed to close Kafka producer: %v", err)
			}
		})
		logger.WithField("topic", cfg.Kafka.Topic).Info("Publishing missing-data alerts to Kafka")
	}

	return sinks, closeAll, nil
}

// statisticsRange parses the configured statistics period. An empty from
// defaults to the start of the water year five years back; an empty to means
// today.
func statisticsRange(cfg config.StatisticsConfig, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	now = now.In(loc)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	if cfg.To != "" {
		t, err := time.ParseInLocation("2006-01-02", cfg.To, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
		to = t
	}

	year := to.Year()
	if to.Month() < time.July {
		year--
	}
	from := time.Date(year-5, time.July, 1, 0, 0, 0, 0, loc)
	if cfg.From != "" {
		t, err := time.ParseInLocation("2006-01-02", cfg.From, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
		from = t
	}

	if !from.Before(to) {
		return time.Time{}, time.Time{}, errors.New("from must be before to")
	}
	return from, to, nil
}

func runOnce(ctx context.Context, assessor *batch.Assessor, job string, from, to time.Time, logger *logrus.Logger) error {
	points, err := assessor.Points(ctx)
	if err != nil {
		return err
	}

	var summary batch.RunSummary
	switch job {
	case batch.JobCompleteness:
		summary, _, err = assessor.RunCompleteness(ctx, points, time.Now())
	case batch.JobStatistics:
		summary, _, err = assessor.RunStatistics(ctx, points, from, to, true)
	case batch.JobModeRefresh:
		summary = assessor.RefreshModes(ctx, points)
	default:
		return fmt.Errorf("unknown job %q", job)
	}

	logger.WithFields(logrus.Fields{
		"run_id":     summary.RunID,
		"ok":         summary.Count(batch.OutcomeOK),
		"failed":     summary.Count(batch.OutcomeFailed),
		"incomplete": summary.Count(batch.OutcomeIncomplete),
		"skipped":    summary.Count(batch.OutcomeSkipped),
	}).Info("Run complete")
	return err
}

// shutdown stops accepting work, then waits for running jobs and requests.
func shutdown(srv *grpc.Server, health *server.HealthChecker, httpServer *httpapi.Server, jobs *scheduler.Scheduler, logger *logrus.Logger) {
	health.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warnf("HTTP shutdown: %v", err)
	}

	if jobs != nil {
		jobs.Stop()
	}

	logger.Info("Gracefully stopping server...")
	srv.GracefulStop()
	logger.Info("Server stopped")
}
