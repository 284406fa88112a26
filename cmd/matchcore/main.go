package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/exchange/matchcore/internal/config"
	"github.com/exchange/matchcore/internal/engine"
	"github.com/exchange/matchcore/internal/metrics"
	"github.com/exchange/matchcore/internal/orderbook"
	"github.com/exchange/matchcore/pkg/logger"
)

func main() {
	cfg := config.Load()

	log.Printf("Starting %s...", cfg.ServiceName)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	logger.SetLevel(cfg.LogLevel)
	appLog := logger.New(cfg.ServiceName, os.Stdout)

	eng := engine.NewEngine(cfg.Symbol, cfg.CmdBufferSize, cfg.EventBufferSize)
	eng.Start()
	log.Printf("Engine started for %s", cfg.Symbol)

	go drainEvents(eng, appLog)

	if cfg.DemoFlow {
		go runDemoFlow(eng, appLog)
	}

	// HTTP 服务（健康检查 + 指标 + 深度查询）
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		select {
		case <-eng.Done():
			status = "down"
			code = http.StatusServiceUnavailable
		default:
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/depth", func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = parsed
		}
		bids, asks := eng.LevelInfos()
		if len(bids) > limit {
			bids = bids[:limit]
		}
		if len(asks) > limit {
			asks = asks[:limit]
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"symbol": eng.Symbol(),
			"bids":   bids,
			"asks":   asks,
		})
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("HTTP server listening on :%d", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// 等待退出信号
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)
	eng.Stop()
	log.Println("Shutdown complete")
}

// drainEvents 把引擎事件落成结构化日志
func drainEvents(eng *engine.Engine, appLog *logger.Logger) {
	for {
		select {
		case ev := <-eng.Events():
			appLog.Infof(eventName(ev.Type), map[string]interface{}{
				"symbol": ev.Symbol,
				"seq":    ev.Seq,
				"data":   ev.Data,
			})
		case <-eng.Done():
			return
		}
	}
}

func eventName(t engine.EventType) string {
	switch t {
	case engine.EventOrderAccepted:
		return "order accepted"
	case engine.EventOrderRejected:
		return "order rejected"
	case engine.EventOrderCanceled:
		return "order canceled"
	case engine.EventTradeCreated:
		return "trade created"
	case engine.EventOrderFilled:
		return "order filled"
	case engine.EventOrderPartiallyFilled:
		return "order partially filled"
	default:
		return "unknown event"
	}
}

// runDemoFlow 驱动一遍公开操作：挂单、FAK 吃单、改单穿越、撤单
func runDemoFlow(eng *engine.Engine, appLog *logger.Logger) {
	commands := []*engine.Command{
		{Type: engine.CmdNewOrder, OrderID: 1, OrderType: orderbook.GoodTillCancel, Side: orderbook.SideBuy, Price: 100, Qty: 10},
		{Type: engine.CmdNewOrder, OrderID: 2, OrderType: orderbook.FillAndKill, Side: orderbook.SideSell, Price: 100, Qty: 5},
		{Type: engine.CmdNewOrder, OrderID: 3, OrderType: orderbook.GoodTillCancel, Side: orderbook.SideSell, Price: 105, Qty: 15},
		{Type: engine.CmdModifyOrder, OrderID: 3, Side: orderbook.SideSell, Price: 100, Qty: 10},
		{Type: engine.CmdCancelOrder, OrderID: 1},
	}

	for _, cmd := range commands {
		if err := eng.Submit(cmd); err != nil {
			appLog.WithError(err).Error("demo submit failed")
			return
		}
	}

	// 命令是异步消费的，稍等片刻再读快照
	time.Sleep(200 * time.Millisecond)

	bids, asks := eng.LevelInfos()
	appLog.Infof("demo flow complete", map[string]interface{}{
		"restingOrders": eng.Size(),
		"bidLevels":     bids,
		"askLevels":     asks,
	})
}
