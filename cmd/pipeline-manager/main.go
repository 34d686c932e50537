// cmd/pipeline-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"hireflow/internal/ai"
	"hireflow/internal/audit"
	"hireflow/internal/common/auth"
	awsclients "hireflow/internal/common/aws"
	"hireflow/internal/common/config"
	"hireflow/internal/common/database"
	stderrors "hireflow/internal/common/errors"
	"hireflow/internal/common/logger"
	"hireflow/internal/common/observability"
	"hireflow/internal/hrapi"
	dc "hireflow/internal/jobs/derive-criteria"
	da "hireflow/internal/jobs/discover-applications"
	sa "hireflow/internal/jobs/score-application"
	"hireflow/internal/notify"
	"hireflow/internal/orchestrator"
	"hireflow/internal/search"
	"hireflow/internal/statestore"
	"hireflow/internal/taskqueue"
	"hireflow/internal/workflow"
	"hireflow/pkg/registry"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting pipeline manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	obs := observability.New("pipeline-manager")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init AWS Clients ---
	sesClient, err := awsclients.NewSESClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}
	snsClient, err := awsclients.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}
	zapLog.Info("AWS clients initialized")

	// --- Record Store & Task Queue ---
	store := statestore.New(redis.Client, cfg.Store.KeyPrefix, log)
	subjects := statestore.NewSubjects(store)

	queue := taskqueue.New(
		cfg.Queue.Capacity,
		cfg.Queue.Workers,
		config.GetDuration(cfg.Queue.JobTimeout),
		log,
	)
	queue.Start()

	// --- External Service Clients ---
	tokens := auth.NewTokenClient(
		cfg.OAuth.BaseURL,
		cfg.OAuth.ClientID,
		cfg.OAuth.ClientSecret,
		config.GetDuration(cfg.OAuth.Timeout),
	)
	hrClient := hrapi.NewClient(cfg.HRAPI.BaseURL, config.GetDuration(cfg.HRAPI.Timeout), log)
	videos := hrapi.NewVideoFeed(hrClient, cfg.HRAPI.Token)
	aiClient := ai.NewClient(&ai.Config{
		BaseURL:    cfg.AI.BaseURL,
		APIKey:     cfg.AI.APIKey,
		MaxRetries: cfg.AI.MaxRetries,
	}, log)

	notifier := notify.New(&notify.Config{
		EmailEnabled:    cfg.Notifications.Email.Enabled,
		FromEmail:       cfg.Notifications.Email.FromEmail,
		EmailSubject:    cfg.Notifications.Email.Subject,
		OperatorEnabled: cfg.Notifications.Operator.Enabled,
		TopicARN:        cfg.Notifications.Operator.TopicARN,
	}, subjects, sesClient, snsClient, log)

	auditor := audit.NewRecorder(pg.DB, log)
	indexer := search.NewIndexer(esClient.Client, cfg.Database.Elasticsearch.Index, log)

	zapLog.Info("All external service clients initialized")

	// --- Job Handlers ---
	deriveHandler := dc.NewHandler(
		&dc.Config{Timeout: config.GetDuration(cfg.AI.Timeout)},
		subjects, aiClient, log,
	)
	discoverHandler := da.NewHandler(
		&da.Config{Timeout: config.GetDuration(cfg.HRAPI.Timeout)},
		subjects, hrClient, log,
	)
	scoreHandler := sa.NewHandler(
		&sa.Config{
			PassingScore: cfg.AI.PassingScore,
			PassedState:  cfg.HRAPI.PassedState,
			Timeout:      config.GetDuration(cfg.AI.Timeout),
		},
		subjects, aiClient, notifier, hrClient, indexer, log,
	)

	// --- Workflow Engine & Sweep Orchestrator ---
	engine := workflow.NewEngine(
		&workflow.Config{
			AuthPoll:        workflow.NewRetryPolicy(cfg.AuthPoll.MaxAttempts, config.GetDuration(cfg.AuthPoll.Interval)),
			UpdateRetry:     workflow.NewRetryPolicy(cfg.Store.UpdateRetries, time.Second),
			MaxVideoSeconds: cfg.Media.MaxVideoSeconds,
			MaxVideoBytes:   cfg.Media.MaxVideoBytes,
		},
		subjects, queue, tokens, hrClient, notifier, auditor,
		workflow.StageJobs{
			DeriveCriteria:       deriveHandler.NewJob,
			DiscoverApplications: discoverHandler.NewJob,
		},
		log,
	)

	sweeper := orchestrator.New(engine, queue, videos, scoreHandler.NewJob, log)

	// --- Health, Metrics & Admin Server ---
	server := newServer(cfg, engine, sweeper, auditor, obs, log)
	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, draining queue...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		zapLog.Error("Error draining task queue", zap.Error(err))
	}

	zapLog.Info("Pipeline manager stopped gracefully")
}

func newServer(
	cfg *config.Config,
	engine *workflow.Engine,
	sweeper *orchestrator.Orchestrator,
	auditor *audit.Recorder,
	obs *observability.Observability,
	log logger.Logger,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/registry", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, registry.Default())
	})

	mux.HandleFunc("/subjects", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			ID        string `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ID == "" {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		rec, err := engine.Register(r.Context(), body.ID, body.Username, body.FirstName, body.LastName)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
	})

	// /subjects/{id}/status, /subjects/{id}/events, /subjects/{id}/advance
	mux.HandleFunc("/subjects/", func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/subjects/"), "/")
		if len(parts) != 2 || parts[0] == "" {
			http.NotFound(w, r)
			return
		}
		subjectID, action := parts[0], parts[1]

		switch action {
		case "status":
			status, err := engine.Status(r.Context(), subjectID)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, status)

		case "events":
			events, err := auditor.EventsForSubject(r.Context(), subjectID, 0)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]interface{}{"events": events})

		case "advance":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			var body struct {
				Stage        string `json:"stage"`
				TargetID     string `json:"targetId"`
				TargetName   string `json:"targetName"`
				VideoPath    string `json:"videoPath"`
				VideoSeconds int    `json:"videoSeconds"`
				VideoBytes   int64  `json:"videoBytes"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			result, err := engine.Advance(r.Context(), subjectID, workflow.Stage(body.Stage), workflow.AdvanceInput{
				TargetID:     body.TargetID,
				TargetName:   body.TargetName,
				VideoPath:    body.VideoPath,
				VideoSeconds: body.VideoSeconds,
				VideoBytes:   body.VideoBytes,
			})
			if err != nil {
				writeError(w, err)
				return
			}
			obs.RecordAdvance(r.Context(), body.Stage)
			writeJSON(w, http.StatusOK, result)

		case "invite":
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			var body struct {
				ApplicationID string `json:"applicationId"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ApplicationID == "" {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}
			if err := engine.InviteToInterview(r.Context(), subjectID, body.ApplicationID); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]string{"status": "invited"})

		default:
			http.NotFound(w, r)
		}
	})

	// POST /sweeps/{kind}
	mux.HandleFunc("/sweeps/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		kind := strings.TrimPrefix(r.URL.Path, "/sweeps/")
		if !config.IsSweepEnabled(cfg, kind) {
			http.Error(w, fmt.Sprintf("sweep %q is disabled", kind), http.StatusForbidden)
			return
		}
		start := time.Now()
		report, err := sweeper.Sweep(r.Context(), orchestrator.Kind(kind))
		if err != nil {
			writeError(w, err)
			return
		}
		obs.RecordSweep(r.Context(), kind, time.Since(start))
		log.Info("sweep completed", map[string]interface{}{
			"kind":      kind,
			"eligible":  report.Eligible,
			"processed": report.Processed,
			"skipped":   report.Skipped,
		})
		writeJSON(w, http.StatusOK, report)
	})

	return &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: mux,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case stderrors.IsNotFound(err):
		status = http.StatusNotFound
	case stderrors.IsInvalidTransition(err), stderrors.IsCode(err, stderrors.ErrCodeValidationFailed):
		status = http.StatusConflict
	case stderrors.IsQueueFull(err):
		status = http.StatusServiceUnavailable
	case stderrors.IsUnavailable(err):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
