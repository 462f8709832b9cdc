package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"market-streamer/src/grpc_control"
	"market-streamer/src/logger"
	"market-streamer/src/models"

	"github.com/gorilla/websocket"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type probeStats struct {
	Status     int
	Ticks      int
	Quotes     int
	Heartbeats int
	Errors     int
}

// -----------------------------------------------------------------------------

// runProbe subscribes to symbols on url and logs every frame until ctx ends.
func runProbe(ctx context.Context, url string, symbols []string, log *logger.Logger) (probeStats, error) {
	var stats probeStats

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return stats, fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	if err := conn.WriteJSON(models.SubscribeRequest{Type: models.TypeSubscribe, Symbols: symbols}); err != nil {
		return stats, fmt.Errorf("subscribe: %w", err)
	}

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return stats, nil
			}
			return stats, err
		}

		var env models.MEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return stats, errors.New("server sent a non-JSON frame")
		}

		switch env.Type {
		case models.TypeStatus:
			stats.Status++
			var m models.StatusMessage
			_ = json.Unmarshal(raw, &m)
			log.Info("status=%s symbols=%v", m.Status, m.SubscribedSymbols)
		case models.TypeTicks:
			stats.Ticks++
			var m models.TicksMessage
			_ = json.Unmarshal(raw, &m)
			stats.Quotes += len(m.Ticks)
			for _, t := range m.Ticks {
				log.Info("%-6s %10.2f %+8.2f (%+.2f%%) vol=%d", t.Symbol, t.Price, t.Change, t.ChangePercent, t.Volume)
			}
		case models.TypeHeartbeat:
			stats.Heartbeats++
			log.Debug("heartbeat")
		case models.TypeError:
			stats.Errors++
			var m models.ErrorMessage
			_ = json.Unmarshal(raw, &m)
			log.Warning("error %s: %s", m.Code, m.Message)
		default:
			log.Warning("unexpected frame type %q", env.Type)
		}
	}
}

// -----------------------------------------------------------------------------

// queryControl prints the control plane status
func queryControl(addr string, log *logger.Logger) error {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return err
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := grpc_control.NewControlClient(conn)
	status, err := client.GetStatus(ctx)
	if err != nil {
		return err
	}
	log.Info("control status: %v", status.AsMap())

	active, err := client.ListActiveSymbols(ctx)
	if err != nil {
		return err
	}
	log.Info("control active symbols: %v", active.AsMap())
	return nil
}
