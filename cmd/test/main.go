package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"market-streamer/src/config"
	"market-streamer/src/logger"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "../../config/default.yaml", "path to config file")
	writeConfig := flag.String("write-config", "", "write the fully-defaulted config to this path and exit")
	symbols := flag.String("symbols", "AAPL,NVDA", "comma separated symbols to subscribe to")
	duration := flag.Duration("duration", 30*time.Second, "how long to stay connected")
	withControl := flag.Bool("control", false, "query the gRPC control plane after the stream closes")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	if *writeConfig != "" {
		if err := conf.Save(*writeConfig); err != nil {
			fmt.Printf("Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Config written to %s\n", *writeConfig)
		return
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf.LogLevel, "probe")
	defer appLogger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Stream
	host := conf.Host
	if host == "0.0.0.0" || host == "" {
		host = "127.0.0.1"
	}
	url := fmt.Sprintf("ws://%s/ws", net.JoinHostPort(host, strconv.Itoa(conf.Port)))
	stats, err := runProbe(ctx, url, splitSymbols(*symbols), appLogger)
	if err != nil {
		appLogger.Error("Probe failed: %v", err)
	}
	appLogger.Info("Probe finished: %d status, %d ticks (%d quotes), %d heartbeats, %d errors",
		stats.Status, stats.Ticks, stats.Quotes, stats.Heartbeats, stats.Errors)

	// 5. Control plane
	if *withControl && conf.GrpcPort != 0 {
		addr := net.JoinHostPort(conf.GrpcHost, strconv.Itoa(conf.GrpcPort))
		if err := queryControl(addr, appLogger); err != nil {
			appLogger.Error("Control query failed: %v", err)
		}
	}

	if err != nil {
		os.Exit(1)
	}
}

func splitSymbols(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
