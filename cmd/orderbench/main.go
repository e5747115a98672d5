package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/d60-Lab/cakeshop/config"
	"github.com/d60-Lab/cakeshop/internal/bootstrap"
	"github.com/d60-Lab/cakeshop/internal/model"
	"github.com/d60-Lab/cakeshop/internal/service"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 并发创建待支付订单，检查当天序号在争用下是否仍然唯一
func main() {
	cfg := must(config.Load())
	app := must(bootstrap.New(cfg))
	defer app.Close()

	ctx := context.Background()
	if err := app.Migrate(ctx); err != nil {
		panic(err)
	}

	N := envInt("N", 1000)
	CONC := envInt("CONC", 8)
	if CONC > N {
		CONC = N
	}

	req := service.CreateOrderRequest{
		Items: []model.LineItem{{CakeID: 1, CakeName: "Vanilla", Weight: "1kg", Quantity: 1, PricePerUnit: 500}},
		Delivery: model.Delivery{
			Name: "bench", Phone: "9000000000", Address: "bench street",
		},
	}

	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	var (
		mu       sync.Mutex
		lat      = make([]time.Duration, 0, N)
		ids      = make(map[string]struct{}, N)
		failures int
		wg       sync.WaitGroup
	)
	t0 := time.Now()
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range feed {
				st := time.Now()
				order, err := app.OrderSvc.CreatePending(ctx, req)
				d := time.Since(st)
				mu.Lock()
				lat = append(lat, d)
				if err != nil {
					failures++
				} else {
					ids[order.ID] = struct{}{}
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	total := time.Since(t0)

	// 回读：按订单号解析
	readLat := make([]time.Duration, 0, len(ids))
	for id := range ids {
		st := time.Now()
		_, _ = app.OrderSvc.Get(ctx, id)
		readLat = append(readLat, time.Since(st))
	}

	fmt.Printf("N=%d, CONC=%d, driver=%s\n", N, CONC, cfg.Database.Driver)
	fmt.Printf("Create total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(N), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Distinct ids: %d, failures: %d\n", len(ids), failures)
	fmt.Printf("Resolve p50: %v, p95: %v, p99: %v\n", pct(readLat, 0.50), pct(readLat, 0.95), pct(readLat, 0.99))
	if len(ids)+failures != N {
		fmt.Println("WARNING: duplicate order ids observed")
		os.Exit(1)
	}
}
