// cmd/regsearch/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"regsearch/internal/common/config"
	"regsearch/internal/common/database"
	"regsearch/internal/common/logger"
	"regsearch/internal/common/observability"
	"regsearch/internal/common/retry"
	"regsearch/internal/regulation/agent"
	"regsearch/internal/regulation/search"
	"regsearch/internal/regulation/structuring"
)

// retryWithBackoff attempts to execute a startup function with
// exponential backoff.
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "json")
	defer zapLog.Sync()

	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting regulation search service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	log = logger.NewZapAdapter(logger.New(cfg.Logging.Level, cfg.Logging.Format))

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	status := config.ValidateConfiguration(cfg)
	if len(status.Missing) > 0 {
		log.Warn("incomplete external service configuration", map[string]interface{}{
			"missing":      status.Missing,
			"fallbackOnly": status.FallbackOnly(),
		})
	}

	// --- Optional Redis result cache ---
	var cache *search.Cache
	if cfg.Cache.Enabled {
		var redisClient *database.RedisClient
		err = retryWithBackoff(func() error {
			var initErr error
			redisClient, initErr = database.NewRedis(cfg.Cache)
			if initErr != nil {
				return initErr
			}
			pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return redisClient.Ping(pingCtx)
		}, 5, 2*time.Second, zapLog, "Redis initialization")
		if err != nil {
			log.Warn("result cache disabled", map[string]interface{}{"error": err.Error()})
		} else {
			defer redisClient.Close()
			cache = search.NewCache(redisClient.Client, cfg.Cache.TTL, log)
		}
	}

	// --- Pipeline assembly ---
	var api agent.ConversationAPI
	if status.AgentConfigured {
		api = agent.NewHTTPConversationAPI(cfg.Agent.Endpoint, cfg.Agent.APIKey)
	}
	agentClient := agent.NewClient(api, cfg.Agent.AgentID, cfg.Search.PollInterval, log)

	structurer := structuring.New(cfg.ChatAPI, log)
	policy := retry.New(log, retry.WithMaxAttempts(cfg.Search.MaxRetries))
	service := search.NewService(agentClient, structurer, policy, cache, cfg.Search.GuidanceDelay, log)

	// --- HTTP surface ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	registerAPI(mux, service, cfg.Server.RequestTimeout, obs, log)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: mux,
	}

	go func() {
		log.Info("http server listening", map[string]interface{}{"address": cfg.Server.Address})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server error", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", map[string]interface{}{"error": err.Error()})
	}
}

type localityRequest struct {
	Address    string `json:"address"`
	Prefecture string `json:"prefecture"`
	City       string `json:"city"`
	Query      string `json:"query"`
}

// registerAPI mounts the five pipeline operations. The per-request
// timeout set here is the pipeline's only cancellation mechanism: the
// run-status poll loop has no internal ceiling.
func registerAPI(mux *http.ServeMux, service *search.Service, timeout time.Duration, obs *observability.Observability, log logger.Logger) {
	handle := func(path, operation string, fn func(ctx context.Context, req localityRequest) (interface{}, error)) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}

			var req localityRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "invalid request body", http.StatusBadRequest)
				return
			}

			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			start := time.Now()
			result, err := fn(ctx, req)
			obs.RecordSearchDuration(ctx, time.Since(start), operation)
			if err != nil {
				obs.RecordSearch(ctx, operation, "error")
				log.Error("request failed", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			obs.RecordSearch(ctx, operation, "success")

			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(result)
		})
	}

	handle("/api/regulation/urban-planning", "urban_planning", func(ctx context.Context, req localityRequest) (interface{}, error) {
		return service.SearchUrbanPlanningInfo(ctx, req.Address, req.Prefecture, req.City), nil
	})
	handle("/api/regulation/sunlight", "sunlight", func(ctx context.Context, req localityRequest) (interface{}, error) {
		return service.SearchSunlightRegulation(ctx, req.Address, req.Prefecture, req.City), nil
	})
	handle("/api/regulation/guidance", "administrative_guidance", func(ctx context.Context, req localityRequest) (interface{}, error) {
		return map[string]interface{}{
			"administrativeGuidance": service.SearchAdministrativeGuidance(ctx, req.Address, req.Prefecture, req.City),
		}, nil
	})
	handle("/api/regulation/municipality", "municipality", func(ctx context.Context, req localityRequest) (interface{}, error) {
		return service.SearchMunicipalityRegulations(ctx, req.Query, req.Prefecture, req.City), nil
	})
	handle("/api/regulation/comprehensive", "comprehensive", func(ctx context.Context, req localityRequest) (interface{}, error) {
		return service.SearchComprehensiveRegionInfo(ctx, req.Address, req.Prefecture, req.City)
	})
}
