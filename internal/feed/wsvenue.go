package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Devadharshan16/OmniQuant/internal/apperr"
	"github.com/Devadharshan16/OmniQuant/internal/types"
)

// WSVenue is a live-data Source. quick_scan does not route to it:
// internal/api rejects requests with use_real_data set. It models the
// collaborator contract only: a websocket dial/subscribe/decode loop
// shaped like the arb-bot reference code's
// internal/connectors/cex/mexc.WS, but venue-specific frame decoding
// (protobuf book-ticker payloads, MEXC's channel naming) is out of
// core scope — Tick carries a
// plain bid/ask float pair rather than a real venue's wire format.
type WSVenue struct {
	URL    string
	Dialer *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn
}

// Tick is one live quote update from a subscribed venue.
type Tick struct {
	Symbol string
	Bid    float64
	Ask    float64
	TS     time.Time
}

// NewWSVenue constructs a WSVenue targeting url.
func NewWSVenue(url string) *WSVenue {
	return &WSVenue{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
	}
}

func (w *WSVenue) connect(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return nil
	}
	c, _, err := w.Dialer.DialContext(ctx, w.URL, http.Header{})
	if err != nil {
		return apperr.Wrap(apperr.Internal, "websocket dial failed", err)
	}
	w.conn = c
	_ = w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(90 * time.Second))
	})
	return nil
}

func (w *WSVenue) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// Subscribe dials the venue and returns a channel of decoded ticks for
// the given symbols. Decoding here is a
// placeholder JSON echo, not a real venue's wire format.
func (w *WSVenue) Subscribe(ctx context.Context, symbols []string) (<-chan Tick, error) {
	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	sub := struct {
		Method string   `json:"method"`
		Params []string `json:"params"`
	}{Method: "SUBSCRIBE", Params: symbols}
	if err := w.conn.WriteJSON(sub); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "subscribe failed", err)
	}

	out := make(chan Tick, 1024)
	go func() {
		defer close(out)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var t Tick
			if err := w.conn.ReadJSON(&t); err != nil {
				return
			}
			out <- t
		}
	}()
	return out, nil
}

// Symbols is the venue's tradable symbol universe. quick_scan's
// use_real_data path has no natural home for venue symbol discovery
//, so it is supplied
// explicitly rather than fetched.
type Symbols []string

// Load implements Source but always returns an Internal error, since a
// WSVenue carries no symbol universe to subscribe to. LoadSymbols
// subscribes to a given symbol list, drains ticks for a collection
// window, and converts the latest bid/ask per symbol into a pair of
// directed RawEdges.
func (w *WSVenue) Load(ctx context.Context) ([]types.RawEdge, error) {
	return nil, apperr.New(apperr.Internal, fmt.Sprintf("live source %s not wired to a venue's symbol universe", w.URL))
}

// LoadSymbols is the concrete Load a caller with a known symbol
// universe should use in place of Load.
func (w *WSVenue) LoadSymbols(ctx context.Context, symbols Symbols, window time.Duration) ([]types.RawEdge, error) {
	ticks, err := w.Subscribe(ctx, symbols)
	if err != nil {
		return nil, err
	}

	collectCtx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	latest := make(map[string]Tick)
	for {
		select {
		case <-collectCtx.Done():
			return edgesFromTicks(latest), nil
		case t, ok := <-ticks:
			if !ok {
				return edgesFromTicks(latest), nil
			}
			latest[t.Symbol] = t
		}
	}
}

// edgesFromTicks turns each symbol's latest bid/ask into a synthetic
// pair of directed edges against a common quote token, since the raw
// tick stream carries no token-graph topology of its own.
func edgesFromTicks(latest map[string]Tick) []types.RawEdge {
	const quote = "USDT"
	out := make([]types.RawEdge, 0, len(latest)*2)
	for symbol, t := range latest {
		if t.Bid <= 0 || t.Ask <= 0 {
			continue
		}
		mid := (t.Bid + t.Ask) / 2
		spread := t.Ask - t.Bid
		out = append(out,
			types.RawEdge{FromToken: quote, ToToken: symbol, Rate: 1 / t.Ask, Fee: 0.001, Liquidity: 0, Venue: "ws", Spread: spread, MidPrice: mid},
			types.RawEdge{FromToken: symbol, ToToken: quote, Rate: t.Bid, Fee: 0.001, Liquidity: 0, Venue: "ws", Spread: spread, MidPrice: mid},
		)
	}
	return out
}
