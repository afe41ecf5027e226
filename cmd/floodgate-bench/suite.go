package main

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ryswick/floodgate/logger"
	"github.com/ryswick/floodgate/mempool"
	"github.com/ryswick/floodgate/priority"
	"github.com/ryswick/floodgate/queue"
)

// trafficPattern is one entry of the synthetic mix. Weights are relative;
// the distribution leans heavily on status polling and background traffic
// with a thin stream of critical control requests, which is roughly what a
// controller front end sees in the field.
type trafficPattern struct {
	name   string
	uri    string
	method string
	weight int
}

var trafficMix = []trafficPattern{
	{"status_poll", "/api/status", "GET", 30},
	{"dashboard", "/api/dashboard/main", "GET", 15},
	{"io_read", "/api/io/points", "GET", 12},
	{"static_asset", "/assets/app.js", "GET", 12},
	{"log_fetch", "/api/logs/recent", "GET", 10},
	{"statistics", "/api/statistics/daily", "GET", 8},
	{"auth_login", "/api/auth/login", "POST", 5},
	{"zone_activate", "/api/irrigation/zones/3/activate", "POST", 4},
	{"io_write", "/api/io/points/7/set", "POST", 3},
	{"emergency_stop", "/api/emergency/stop", "POST", 1},
}

// benchHandle is the synthetic request handle submitted to the manager.
type benchHandle struct {
	uri    string
	method string
}

func (h *benchHandle) URI() string    { return h.uri }
func (h *benchHandle) Method() string { return h.method }

// Suite owns the manager under test and the submitter pool.
type Suite struct {
	cfg     *Config
	manager *priority.Manager
	limiter *rate.Limiter
	log     logger.Logger

	mixTotal int
}

func newSuite(cfg *Config) (*Suite, error) {
	level := "warn"
	if cfg.Verbose {
		level = "debug"
	}
	log, err := logger.NewZapLogger(level)
	if err != nil {
		return nil, err
	}

	alloc, err := mempool.NewArenaAllocator(mempool.Config{
		ReliableCapacity:  cfg.ReliableCapacity,
		ExpansionCapacity: cfg.ExpansionCapacity,
		Logger:            log,
	})
	if err != nil {
		return nil, err
	}

	mcfg := priority.DefaultConfig()
	mcfg.Queue.Allocator = alloc
	mcfg.Logger = log
	if cfg.ExecutionTime > 0 {
		cost := cfg.ExecutionTime
		mcfg.Executor = priority.ExecutorFunc(func(ctx context.Context, _ *queue.RequestContext) error {
			select {
			case <-time.After(cost):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	manager, err := priority.NewManager(mcfg)
	if err != nil {
		return nil, err
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Rate / 10
		if burst < 1 {
			burst = 1
		}
	}

	total := 0
	for _, p := range trafficMix {
		total += p.weight
	}

	return &Suite{
		cfg:      cfg,
		manager:  manager,
		limiter:  rate.NewLimiter(rate.Limit(cfg.Rate), burst),
		log:      log,
		mixTotal: total,
	}, nil
}

// pick selects a traffic pattern by cumulative weight.
func (s *Suite) pick(rng *rand.Rand) trafficPattern {
	n := rng.Intn(s.mixTotal)
	for _, p := range trafficMix {
		n -= p.weight
		if n < 0 {
			return p
		}
	}
	return trafficMix[len(trafficMix)-1]
}

// run executes the load phase and collects the report.
func (s *Suite) run(ctx context.Context) (*Report, error) {
	if err := s.manager.Start(); err != nil {
		return nil, fmt.Errorf("failed to start manager: %w", err)
	}

	seed := s.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	runCtx, cancel := context.WithTimeout(ctx, s.cfg.Duration)
	defer cancel()

	if s.cfg.EmergencyAfter > 0 {
		go s.scheduleEmergency(runCtx)
	}

	results := make([]workerResult, s.cfg.Workers)
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			results[idx] = s.submitLoop(runCtx, rand.New(rand.NewSource(seed+int64(idx))))
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(start)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Let the workers drain what the load phase left behind, then snapshot.
	flushed := s.manager.Flush(queue.DefaultRequestTimeout)
	stats := s.manager.Statistics()

	return buildReport(s.cfg, elapsed, merge(results), flushed, stats), nil
}

// scheduleEmergency flips the manager into emergency mode partway through the
// run and back out after the hold period.
func (s *Suite) scheduleEmergency(ctx context.Context) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(s.cfg.EmergencyAfter):
	}
	if err := s.manager.EnterEmergencyMode(s.cfg.EmergencyHold); err != nil {
		s.log.Warnw("failed to enter emergency mode", "error", err)
		return
	}
	if s.cfg.EmergencyHold == 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(s.cfg.EmergencyHold):
		// Cooperative expiry may already have exited; a conflict here is fine.
		_ = s.manager.ExitEmergencyMode()
	}
}

// workerResult accumulates one submitter's outcomes locally so the hot loop
// never contends on shared state.
type workerResult struct {
	latencies  []time.Duration
	admitted   int64
	rejections map[string]int64
	failures   int64
}

func (s *Suite) submitLoop(ctx context.Context, rng *rand.Rand) workerResult {
	res := workerResult{rejections: make(map[string]int64)}
	for {
		if err := s.limiter.Wait(ctx); err != nil {
			return res
		}

		p := s.pick(rng)
		handle := &benchHandle{uri: p.uri, method: p.method}

		begin := time.Now()
		err := s.manager.QueueRequest(handle)
		res.latencies = append(res.latencies, time.Since(begin))

		switch {
		case err == nil:
			res.admitted++
		default:
			if reason := priority.RejectionReason(err); reason != "" {
				res.rejections[reason]++
			} else {
				res.failures++
			}
		}
	}
}

func merge(results []workerResult) workerResult {
	out := workerResult{rejections: make(map[string]int64)}
	for _, r := range results {
		out.latencies = append(out.latencies, r.latencies...)
		out.admitted += r.admitted
		out.failures += r.failures
		for reason, n := range r.rejections {
			out.rejections[reason] += n
		}
	}
	return out
}

func (s *Suite) cleanup() {
	if s.manager.Running() {
		if err := s.manager.Stop(); err != nil {
			s.log.Warnw("manager stop failed", "error", err)
		}
	}
}
