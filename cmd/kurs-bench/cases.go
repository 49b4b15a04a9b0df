// README: Bench cases: environment, schema, auth, pickup lifecycle, claim race, payment gate, webhook and throughput.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"kurs/internal/infra"
	"kurs/internal/migrate"
	"kurs/internal/modules/role"
	"kurs/internal/types"
)

type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
	StatusSkip Status = "SKIP"
)

type Result struct {
	Status  Status
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

// state carries ids between the sequential lifecycle cases.
type state struct {
	runID      string
	requester  string
	collectors []string
	pickupID   string
	winner     string
}

type Runner struct {
	cfg    Config
	httpc  *http.Client
	db     *pgxpool.Pool
	redis  *redis.Client
	tokens *infra.JWTVerifier
	grants *role.GrantStore
	st     state
}

func NewRunner(cfg Config) *Runner {
	r := &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
	r.st.runID = uuid.NewString()[:8]
	r.st.requester = "bench-requester-" + r.st.runID
	return r
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			r.grants = role.NewGrantStore(infra.NewSQLDB(db))
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
	}
	if r.cfg.JWTSecret != "" {
		r.tokens = infra.NewJWTVerifier(r.cfg.JWTSecret)
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return fail("db not configured")
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return fail(err.Error())
			}
			return pass("")
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return fail("redis not configured")
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return fail(err.Error())
			}
			return pass("")
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return skip("apply-migration=false")
			}
			if r.db == nil {
				return fail("db not configured")
			}
			if err := migrate.ApplyFile(ctx, r.db, r.cfg.MigrationPath); err != nil {
				return fail(err.Error())
			}
			return pass("")
		}},
		{Name: "Migration: tables exist", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return fail("db not configured")
			}
			content, err := os.ReadFile(r.cfg.MigrationPath)
			if err != nil {
				return fail(err.Error())
			}
			for _, t := range migrate.Tables(string(content)) {
				var exists bool
				err := r.db.QueryRow(ctx,
					"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)", t,
				).Scan(&exists)
				if err != nil {
					return fail(err.Error())
				}
				if !exists {
					return fail("missing table: " + t)
				}
			}
			return pass("")
		}},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/health", "", nil, http.StatusOK)
		}},
		{Name: "Auth: missing bearer -> 401", Run: func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodGet, "/api/pickups", "", nil, http.StatusUnauthorized)
		}},
		{Name: "Pickup: create (valid)", Run: withTokens(func(ctx context.Context, r *Runner) Result {
			var out struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			}
			res := r.expectInto(ctx, http.MethodPost, "/api/pickups", r.st.requester, map[string]any{
				"address":     "Jl. Bench No. 1",
				"lat":         -6.2000,
				"lng":         106.8166,
				"waste_types": []string{"plastic", "paper"},
			}, http.StatusCreated, &out)
			r.st.pickupID = out.ID
			return res
		})},
		{Name: "Pickup: create (no waste types) -> 400", Run: withTokens(func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/pickups", r.st.requester, map[string]any{
				"address": "Jl. Bench No. 1", "lat": -6.2, "lng": 106.8, "waste_types": []string{},
			}, http.StatusBadRequest)
		})},
		{Name: "Role: grant and switch collectors", Run: withTokens(func(ctx context.Context, r *Runner) Result {
			if r.grants == nil {
				return skip("db not configured")
			}
			for i := 0; i < r.cfg.Concurrency; i++ {
				uid := fmt.Sprintf("bench-collector-%s-%d", r.st.runID, i)
				if err := r.grants.Grant(ctx, types.ID(uid), role.Collector); err != nil {
					return fail(err.Error())
				}
				if res := r.expect(ctx, http.MethodPut, "/api/me/role", uid, map[string]string{"role": "collector"}, http.StatusOK); res.Status != StatusPass {
					return res
				}
				r.st.collectors = append(r.st.collectors, uid)
			}
			return pass(fmt.Sprintf("collectors=%d", len(r.st.collectors)))
		})},
		{Name: "Concurrency: many collectors accept one pickup", Run: withPickup(concurrentAccept)},
		{Name: "Lifecycle: skip to completed -> 409", Run: withWinner(func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/collector/jobs/"+r.st.pickupID+"/advance", r.st.winner,
				map[string]string{"status": "completed"}, http.StatusConflict)
		})},
		{Name: "Lifecycle: advance to en_route", Run: withWinner(func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/collector/jobs/"+r.st.pickupID+"/advance", r.st.winner,
				map[string]string{"status": "en_route"}, http.StatusOK)
		})},
		{Name: "Payment gate: complete unpaid -> 402", Run: withWinner(func(ctx context.Context, r *Runner) Result {
			return r.expect(ctx, http.MethodPost, "/api/collector/jobs/"+r.st.pickupID+"/advance", r.st.winner,
				map[string]string{"status": "completed"}, http.StatusPaymentRequired)
		})},
		{Name: "Webhook: unknown reference acknowledged", Run: func(ctx context.Context, r *Runner) Result {
			return r.webhook(ctx, `{"data":{"reference_id":"PICKUP-bench-unknown","status":"SUCCEEDED"}}`, http.StatusOK)
		}},
		{Name: "Webhook: malformed -> 400", Run: func(ctx context.Context, r *Runner) Result {
			return r.webhook(ctx, `{"status":`, http.StatusBadRequest)
		}},
		{Name: "Perf: collector location updates", Run: withWinner(perfLocation)},
	}
}

func pass(note string) Result { return Result{Status: StatusPass, Note: note} }
func fail(note string) Result { return Result{Status: StatusFail, Note: note} }
func skip(note string) Result { return Result{Status: StatusSkip, Note: note} }

func withTokens(fn func(ctx context.Context, r *Runner) Result) func(context.Context, *Runner) Result {
	return func(ctx context.Context, r *Runner) Result {
		if r.tokens == nil {
			return skip("jwt-secret not set")
		}
		return fn(ctx, r)
	}
}

func withPickup(fn func(ctx context.Context, r *Runner) Result) func(context.Context, *Runner) Result {
	return withTokens(func(ctx context.Context, r *Runner) Result {
		if r.st.pickupID == "" || len(r.st.collectors) == 0 {
			return skip("no pickup or collectors from earlier cases")
		}
		return fn(ctx, r)
	})
}

func withWinner(fn func(ctx context.Context, r *Runner) Result) func(context.Context, *Runner) Result {
	return withPickup(func(ctx context.Context, r *Runner) Result {
		if r.st.winner == "" {
			return skip("no collector claimed the pickup")
		}
		return fn(ctx, r)
	})
}

// call sends one request, authenticated as uid when uid is non-empty.
func (r *Runner) call(ctx context.Context, method, path, uid string, body any) (int, []byte, time.Duration, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return 0, nil, 0, err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.cfg.BaseURL+path, reader)
	if err != nil {
		return 0, nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if uid != "" {
		token, err := r.tokens.Issue(uid, time.Hour)
		if err != nil {
			return 0, nil, 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return 0, nil, 0, err
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	return resp.StatusCode, payload, time.Since(start), err
}

func (r *Runner) expect(ctx context.Context, method, path, uid string, body any, want int) Result {
	return r.expectInto(ctx, method, path, uid, body, want, nil)
}

func (r *Runner) expectInto(ctx context.Context, method, path, uid string, body any, want int, out any) Result {
	code, payload, latency, err := r.call(ctx, method, path, uid, body)
	if err != nil {
		return fail(err.Error())
	}
	note := fmt.Sprintf("status=%d", code)
	if code != want {
		return Result{Status: StatusFail, Latency: latency, Note: fmt.Sprintf("%s want=%d body=%s", note, want, truncate(payload))}
	}
	if out != nil {
		if err := json.Unmarshal(payload, out); err != nil {
			return Result{Status: StatusFail, Latency: latency, Note: "decode: " + err.Error()}
		}
	}
	return Result{Status: StatusPass, Latency: latency, Note: note}
}

func (r *Runner) webhook(ctx context.Context, body string, want int) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/webhooks/xendit", bytes.NewReader([]byte(body)))
	if err != nil {
		return fail(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	if r.cfg.CallbackToken != "" {
		req.Header.Set("x-callback-token", r.cfg.CallbackToken)
	}
	start := time.Now()
	resp, err := r.httpc.Do(req)
	if err != nil {
		return fail(err.Error())
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	res := Result{Status: StatusPass, Latency: time.Since(start), Note: fmt.Sprintf("status=%d", resp.StatusCode)}
	if resp.StatusCode != want {
		res.Status = StatusFail
	}
	return res
}

// concurrentAccept releases every collector at once; exactly one claim may win.
func concurrentAccept(ctx context.Context, r *Runner) Result {
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		winners   []string
		conflicts int
		other     []int
	)
	startCh := make(chan struct{})
	for _, uid := range r.st.collectors {
		wg.Add(1)
		go func(uid string) {
			defer wg.Done()
			<-startCh
			code, _, _, err := r.call(ctx, http.MethodPost, "/api/collector/jobs/"+r.st.pickupID+"/accept", uid, nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				other = append(other, 0)
			case code == http.StatusOK:
				winners = append(winners, uid)
			case code == http.StatusConflict:
				conflicts++
			default:
				other = append(other, code)
			}
		}(uid)
	}
	start := time.Now()
	close(startCh)
	wg.Wait()

	note := fmt.Sprintf("success=%d conflict=%d other=%v", len(winners), conflicts, other)
	if len(winners) != 1 || len(other) > 0 {
		return Result{Status: StatusFail, Latency: time.Since(start), Note: note}
	}
	r.st.winner = winners[0]
	return Result{Status: StatusPass, Latency: time.Since(start), Note: note}
}

func perfLocation(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var (
		mu       sync.Mutex
		count    int64
		errCount int64
		wg       sync.WaitGroup
	)
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := map[string]float64{"lat": -6.2 + float64(i)*0.0001, "lng": 106.8}
			for time.Now().Before(end) && ctx.Err() == nil {
				code, _, _, err := r.call(ctx, http.MethodPut, "/api/collector/location", r.st.winner, body)
				mu.Lock()
				if err != nil || code != http.StatusOK {
					errCount++
				} else {
					count++
				}
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	if count == 0 {
		return fail(fmt.Sprintf("no requests completed errors=%d", errCount))
	}
	rps := float64(count) / r.cfg.Duration.Seconds()
	return pass(fmt.Sprintf("rps=%.1f errors=%d", rps, errCount))
}

func truncate(b []byte) string {
	const limit = 200
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
