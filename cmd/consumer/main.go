package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"

	"github.com/example/trip-search/internal/config"
	"github.com/example/trip-search/internal/ingest"
	"github.com/example/trip-search/internal/logging"
	"github.com/example/trip-search/internal/models"
)

const (
	popularRoutesKey = "popular_routes"
	routeMetaPrefix  = "route:last:"
)

var (
	msgsConsumed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_search_events_consumed_total",
		Help: "Total search events consumed",
	})
	msgsInvalid = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_search_events_invalid_total",
		Help: "Total invalid search events received",
	})
	redisUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_updates_total",
		Help: "Total successful redis updates",
	})
	redisErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "consumer_redis_errors_total",
		Help: "Total redis errors",
	})
)

func init() {
	prometheus.MustRegister(msgsConsumed, msgsInvalid, redisUpdates, redisErrors)
}

func main() {
	cfg, err := config.LoadConsumerConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stdout, cfg.LogLevel, "trip-search-consumer")

	rc := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	radapter := &redisAdapter{c: rc}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		})
		mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			if err := rc.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis not ready", http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
		})
		logger.Info("metrics/health listening", "addr", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := kafka.NewReader(kafka.ReaderConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic, GroupID: cfg.KafkaGroup, MinBytes: 1, MaxBytes: 10e6})
	defer func() {
		_ = r.Close()
		_ = rc.Close()
	}()

	logger.Info("consumer listening", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers, "group", cfg.KafkaGroup)

	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				logger.Info("shutting down consumer")
				return
			}
			logger.Warn("kafka read error", "error", err, "backoff", backoff.String())
			if !sleepCtx(ctx, backoff) {
				return
			}
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}
		backoff = time.Second

		msgsConsumed.Inc()

		var ev models.SearchEvent
		if err := json.Unmarshal(m.Value, &ev); err != nil {
			msgsInvalid.Inc()
			logger.Warn("invalid search event", "offset", m.Offset, "error", err)
			continue
		}

		if err := updateRedisWithRetry(ctx, radapter, &ev, cfg.RetryAttempts, cfg.RetryDelay); err != nil {
			redisErrors.Inc()
			logger.Error("redis update failed", "search_id", ev.SearchID, "error", err)
			continue
		}
		redisUpdates.Inc()
	}
}

// RedisUpdater is the subset of redis used to aggregate search demand.
type RedisUpdater interface {
	ZIncrBy(ctx context.Context, key string, incr float64, member string) error
	HSet(ctx context.Context, key string, values map[string]interface{}) error
}

type redisAdapter struct{ c *redis.Client }

func (r *redisAdapter) ZIncrBy(ctx context.Context, key string, incr float64, member string) error {
	return r.c.ZIncrBy(ctx, key, incr, member).Err()
}

func (r *redisAdapter) HSet(ctx context.Context, key string, values map[string]interface{}) error {
	return r.c.HSet(ctx, key, values).Err()
}

// updateRedisWithRetry bumps the route's search count and records the latest
// search for it, retrying each step with doubling delay.
func updateRedisWithRetry(ctx context.Context, rc RedisUpdater, ev *models.SearchEvent, attempts int, delay time.Duration) error {
	if attempts <= 0 {
		return errors.New("attempts must be positive")
	}
	route := ingest.RouteKey(ev.From, ev.To)
	incremented := false
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2
		}
		// the counter must not be bumped twice when only HSet failed
		if !incremented {
			if lastErr = rc.ZIncrBy(ctx, popularRoutesKey, 1, route); lastErr != nil {
				continue
			}
			incremented = true
		}
		lastErr = rc.HSet(ctx, routeMetaPrefix+route, map[string]interface{}{
			"search_id":    ev.SearchID,
			"result_count": ev.ResultCount,
			"top_trip_id":  ev.TopTripID,
			"at":           ev.At.UTC().Format(time.RFC3339),
		})
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
