package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"golang.org/x/net/proxy"
)

// ErrNoPriceYet поток еще не получил ни одного тикера
var ErrNoPriceYet = errors.New("no price received yet")

// WebSocketPriceStream держит подключение к публичному тикер-стриму Bitget
// и кеширует последнюю цену. Переподключается с экспоненциальной задержкой.
type WebSocketPriceStream struct {
	symbol    string
	wsURL     string
	proxyAddr string

	mu        sync.RWMutex
	conn      *websocket.Conn
	lastPrice float64
	updatedAt time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool
}

func NewWebSocketPriceStream(ctx context.Context, symbol, proxyAddr string) *WebSocketPriceStream {
	streamCtx, cancel := context.WithCancel(ctx)
	return &WebSocketPriceStream{
		symbol:    symbol,
		wsURL:     "wss://ws.bitget.com/mix/v1/stream",
		proxyAddr: proxyAddr,
		ctx:       streamCtx,
		cancel:    cancel,
	}
}

// Start запускает поток в фоне
func (s *WebSocketPriceStream) Start() {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = true
	s.mu.Unlock()

	go s.run()
}

func (s *WebSocketPriceStream) run() {
	b := &backoff.Backoff{
		Min:    time.Second,
		Max:    time.Minute,
		Factor: 2,
		Jitter: true,
	}

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		if err := s.connect(); err != nil {
			d := b.Duration()
			log.Printf("WebSocketPriceStream: Connect failed: %v, retrying in %s", err, d)
			select {
			case <-s.ctx.Done():
				return
			case <-time.After(d):
			}
			continue
		}
		b.Reset()

		keepAliveCtx, stopKeepAlive := context.WithCancel(s.ctx)
		go s.keepAlive(keepAliveCtx)
		s.readMessages()
		stopKeepAlive()

		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.mu.Unlock()
	}
}

// connect подключается и подписывается на тикер инструмента
func (s *WebSocketPriceStream) connect() error {
	dialer := websocket.DefaultDialer

	if s.proxyAddr != "" {
		proxyURL := &url.URL{
			Scheme: "socks5",
			Host:   s.proxyAddr,
		}
		proxyDialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			log.Printf("WebSocketPriceStream: Failed to create proxy dialer: %v", err)
		} else {
			dialer = &websocket.Dialer{
				NetDial:          proxyDialer.Dial,
				HandshakeTimeout: 30 * time.Second,
			}
		}
	}

	conn, _, err := dialer.Dial(s.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Bitget WebSocket: %v", err)
	}

	subMsg := map[string]interface{}{
		"op": "subscribe",
		"args": []map[string]string{
			{
				"instType": "mc",
				"channel":  "ticker",
				"instId":   s.symbol,
			},
		},
	}
	data, _ := json.Marshal(subMsg)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		conn.Close()
		return fmt.Errorf("subscription failed: %v", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	log.Printf("WebSocketPriceStream: Connected, subscribed to %s ticker", s.symbol)
	return nil
}

// tickerMessage сообщение тикер-канала Bitget
type tickerMessage struct {
	Action string `json:"action"`
	Data   []struct {
		Last string `json:"last"`
	} `json:"data"`
}

// readMessages читает сообщения до обрыва соединения
func (s *WebSocketPriceStream) readMessages() {
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
			s.mu.RLock()
			conn := s.conn
			s.mu.RUnlock()
			if conn == nil {
				return
			}

			_, message, err := conn.ReadMessage()
			if err != nil {
				log.Printf("WebSocketPriceStream: Read error: %v", err)
				return
			}

			if string(message) == "pong" {
				continue
			}
			s.processMessage(message)
		}
	}
}

func (s *WebSocketPriceStream) processMessage(message []byte) {
	var msg tickerMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}
	if len(msg.Data) == 0 {
		return
	}

	price, err := strconv.ParseFloat(msg.Data[0].Last, 64)
	if err != nil || price <= 0 {
		return
	}

	s.mu.Lock()
	s.lastPrice = price
	s.updatedAt = time.Now()
	s.mu.Unlock()
}

// keepAlive отправляет ping для поддержания соединения
func (s *WebSocketPriceStream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.conn != nil {
				if err := s.conn.WriteMessage(websocket.TextMessage, []byte("ping")); err != nil {
					log.Printf("WebSocketPriceStream: Failed to send ping: %v", err)
				}
			}
			s.mu.Unlock()
		}
	}
}

// LastPrice последняя полученная цена
func (s *WebSocketPriceStream) LastPrice() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.lastPrice <= 0 {
		return 0, ErrNoPriceYet
	}
	return s.lastPrice, nil
}

// PriceFunc адаптер под интерфейс watcher'а
func (s *WebSocketPriceStream) PriceFunc() PriceFunc {
	return s.LastPrice
}

// Stop закрывает поток
func (s *WebSocketPriceStream) Stop() {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.isRunning = false
	log.Println("WebSocketPriceStream: Stopped")
}
