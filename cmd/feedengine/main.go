package main

import (
	"context"
	"encoding/binary"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"feedenginev1/config"
	"feedenginev1/internal/broadcast"
	"feedenginev1/internal/bus"
	"feedenginev1/internal/greeks"
	"feedenginev1/internal/logger"
	"feedenginev1/internal/master"
	"feedenginev1/internal/metrics"
	"feedenginev1/internal/model"
	"feedenginev1/internal/ringbuf"
	"feedenginev1/internal/store"
	redisstore "feedenginev1/internal/store/redis"
	sqlitestore "feedenginev1/internal/store/sqlite"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[feedengine] starting...")

	// ---- Load config from env ----
	cfg := config.Load()
	feeds, err := cfg.ParseFeeds()
	if err != nil {
		log.Fatalf("[feedengine] config: %v", err)
	}

	slogger := logger.Init("feedengine", parseLevel(cfg.LogLevel))

	// ---- Setup metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Setup context for graceful shutdown ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// ---- SQLite contract cache (off hot path) ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath}, prom)
	if err != nil {
		log.Fatalf("[feedengine] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	health.SetSQLiteOK(true)
	log.Println("[feedengine] sqlite contract cache ready")

	// ---- Load master contracts: files first, cache fallback ----
	loader := master.NewLoader(prom, slogger)
	contracts, err := loader.LoadDir(cfg.MasterDir)
	if err != nil {
		slogger.Warn("master file load failed, trying sqlite cache",
			slog.String("dir", cfg.MasterDir), slog.Any("err", err))
		reader, rerr := sqlitestore.NewReader(cfg.SQLitePath)
		if rerr != nil {
			log.Fatalf("[feedengine] no master files and cache open failed: %v", rerr)
		}
		contracts, rerr = reader.ReadContracts()
		reader.Close()
		if rerr != nil || len(contracts) == 0 {
			log.Fatalf("[feedengine] no master contracts available (cache err: %v)", rerr)
		}
		slogger.Info("contracts restored from cache", slog.Int("count", len(contracts)))
	} else {
		// Fresh files loaded: refresh the cache off the startup path.
		go func(cs []model.Contract) {
			if err := sqlWriter.ReplaceContracts(cs); err != nil {
				slogger.Warn("contract cache refresh failed", slog.Any("err", err))
			}
		}(contracts)
	}
	stores := loader.BuildStores(contracts)
	health.SetMastersLoaded(true)

	// ---- Redis writer ----
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}, prom)
	if err != nil {
		log.Fatalf("[feedengine] redis init failed: %v", err)
	}
	defer redisWriter.Close()
	health.SetRedisConnected(true)
	log.Println("[feedengine] redis writer ready")

	health.StartLivenessChecker(ctx, redisWriter.Client(), sqlWriter.DB(), 10*time.Second)

	// ---- Feed pipeline: receiver -> demux -> ring -> fanout ----
	busIn := make(chan model.Update, 10000)
	fanout := bus.New(5000)
	fanout.OnDrop = func(subscriber string) {
		if prom.FanoutDropsTotal != nil {
			prom.FanoutDropsTotal.WithLabelValues(subscriber).Inc()
		}
	}
	redisCh := fanout.Subscribe("redis")
	go fanout.Run(ctx, busIn)

	// Circuit-break the Redis path: a broker outage buffers updates
	// locally instead of stalling the pipeline.
	breaker := redisstore.NewCircuitBreaker(5, 10*time.Second)
	breaker.OnStateChange = func(from, to redisstore.State) {
		slogger.Warn("redis circuit state change",
			slog.String("from", from.String()), slog.String("to", to.String()))
	}
	buffered := redisstore.NewBufferedWriter(ctx, redisWriter, breaker, 10000)
	go buffered.Run(redisCh)

	pool := broadcast.NewPool(slogger)
	var rings []*ringbuf.Ring
	for _, fs := range feeds {
		seg := model.SegmentFromName(fs.Name)
		if seg == model.SegmentUnknown {
			log.Fatalf("[feedengine] unknown feed segment %q", fs.Name)
		}
		ps, ok := stores[seg]
		if !ok {
			log.Fatalf("[feedengine] no contracts loaded for feed %s", fs.Name)
		}
		var bo binary.ByteOrder = binary.BigEndian
		if !fs.BigEndian {
			bo = binary.LittleEndian
		}

		ring := ringbuf.New(1 << 14)
		rings = append(rings, ring)
		idx := store.NewIndexStore(seg)
		demux := broadcast.NewDemux(fs.Name, seg, bo, ps, idx, prom, slogger, func(u model.Update) {
			health.SetLastPacketTime(time.UnixMicro(u.RecvTS))
			if !ring.Push(u) && prom.RingBufOverflow != nil {
				prom.RingBufOverflow.Inc()
			}
		})
		pool.Add(broadcast.NewReceiver(fs.Name, fs.Group, fs.Port, demux, prom, slogger))

		go drainRing(ctx, ring, busIn)
	}

	if cfg.AutoStartBroadcast {
		if err := pool.Start(); err != nil {
			log.Fatalf("[feedengine] receiver start failed: %v", err)
		}
		health.SetFeedsRunning(pool.Len())
	} else {
		log.Println("[feedengine] AUTO_START_BROADCAST=false, receivers idle")
	}

	// ---- Greeks sweeper ----
	greeksSvc := greeks.NewService(storeValues(stores), greeks.Config{
		RiskFreeRate: cfg.RiskFreeRate,
		DefaultIV:    cfg.DefaultIV,
		Interval:     cfg.GreeksInterval,
		TradingDays:  cfg.TradingDays,
	}, prom, slogger)
	go greeksSvc.Run(ctx)

	// ---- Periodic pipeline stats ----
	go func() {
		ticker := time.NewTicker(cfg.StatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				var overflow uint64
				for _, r := range rings {
					overflow += r.Overflow()
				}
				slogger.Info("pipeline stats",
					slog.Uint64("ring_overflow", overflow),
					slog.Int("bus_in", len(busIn)),
					slog.Any("subscribers", fanout.ChannelStats()))
			}
		}
	}()

	log.Printf("[feedengine] running with %d feeds", pool.Len())

	// ---- Wait for shutdown ----
	<-sigCh
	log.Println("[feedengine] shutting down...")
	if cfg.AutoStartBroadcast {
		pool.Stop()
	}
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	metricsSrv.Stop(shutdownCtx)
	shutdownCancel()
	log.Println("[feedengine] bye")
}

// drainRing moves updates from a feed's SPSC ring onto the shared fanout
// input. The ring absorbs bursts; this loop is the single consumer.
func drainRing(ctx context.Context, ring *ringbuf.Ring, out chan<- model.Update) {
	for {
		u, ok := ring.Pop()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Millisecond):
			}
			continue
		}
		select {
		case out <- u:
		case <-ctx.Done():
			return
		}
	}
}

func storeValues(m map[model.Segment]*store.PriceStore) []*store.PriceStore {
	out := make([]*store.PriceStore, 0, len(m))
	for _, ps := range m {
		out = append(out, ps)
	}
	return out
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
