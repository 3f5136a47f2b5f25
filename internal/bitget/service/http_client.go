package service

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"golang.org/x/net/proxy"

	"signaltrader/internal/bitget/entity"
	"signaltrader/internal/metrics"
)

const (
	DefaultBaseURL = "https://api.bitget.com"
	mixAPIPrefix   = "/api/mix/v1"
)

// BitgetHTTPClient клиент Bitget mix (USDT-M futures) REST API
type BitgetHTTPClient struct {
	APIKey     string
	SecretKey  string
	Passphrase string
	BaseURL    string
	MarginCoin string
	HTTPClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// bitgetResponse общий конверт ответа Bitget
type bitgetResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// NewBitgetHTTPClient создает клиент без прокси
func NewBitgetHTTPClient(apiKey, secretKey, passphrase string) *BitgetHTTPClient {
	return NewBitgetHTTPClientWithProxy(apiKey, secretKey, passphrase, "")
}

// NewBitgetHTTPClientWithProxy создает клиент с поддержкой SOCKS5 прокси
func NewBitgetHTTPClientWithProxy(apiKey, secretKey, passphrase, proxyAddr string) *BitgetHTTPClient {
	client := &BitgetHTTPClient{
		APIKey:     apiKey,
		SecretKey:  secretKey,
		Passphrase: passphrase,
		BaseURL:    DefaultBaseURL,
		MarginCoin: "USDT",
	}

	// Настройка circuit breaker
	client.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "bitget-api",
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker '%s' changed from %s to %s", name, from, to)
		},
	})

	var httpClient *http.Client
	if proxyAddr != "" {
		proxyURL := &url.URL{
			Scheme: "socks5h",
			Host:   proxyAddr,
		}
		dialer, err := proxy.FromURL(proxyURL, proxy.Direct)
		if err != nil {
			log.Printf("BitgetHTTPClient: Failed to create SOCKS5 dialer: %v", err)
			httpClient = &http.Client{Timeout: 30 * time.Second}
		} else {
			transport := &http.Transport{
				DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
					return dialer.Dial(network, addr)
				},
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ExpectContinueTimeout: 1 * time.Second,
			}
			httpClient = &http.Client{
				Transport: transport,
				Timeout:   30 * time.Second,
			}
		}
	} else {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	client.HTTPClient = httpClient
	return client
}

// sign создает HMAC SHA256 подпись Bitget: timestamp + method + path + body
func (c *BitgetHTTPClient) sign(timestamp, method, requestPath, body string) string {
	message := timestamp + method + requestPath + body
	h := hmac.New(sha256.New, []byte(c.SecretKey))
	h.Write([]byte(message))
	return hex.EncodeToString(h.Sum(nil))
}

func (c *BitgetHTTPClient) getTimestamp() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10)
}

// doRequest выполняет запрос к Bitget API через circuit breaker
func (c *BitgetHTTPClient) doRequest(ctx context.Context, method, path string, params map[string]string, payload interface{}) ([]byte, error) {
	start := time.Now()

	result, err := c.cb.Execute(func() (interface{}, error) {
		requestPath := path
		if len(params) > 0 {
			values := url.Values{}
			for k, v := range params {
				values.Add(k, v)
			}
			requestPath = path + "?" + values.Encode()
		}

		var body []byte
		if payload != nil {
			var err error
			body, err = json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal request body: %v", err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+requestPath, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %v", err)
		}

		timestamp := c.getTimestamp()
		signature := c.sign(timestamp, method, requestPath, string(body))

		req.Header.Set("ACCESS-KEY", c.APIKey)
		req.Header.Set("ACCESS-SIGN", signature)
		req.Header.Set("ACCESS-TIMESTAMP", timestamp)
		req.Header.Set("ACCESS-PASSPHRASE", c.Passphrase)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %v", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %v", err)
		}

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(respBody))
		}

		return respBody, nil
	})

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.BitgetAPIRequestsTotal.WithLabelValues(path, status).Inc()
	metrics.BitgetAPIRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, err
	}
	return result.([]byte), nil
}

// unwrap разбирает конверт Bitget и проверяет код ответа
func unwrap(respBody []byte) (json.RawMessage, error) {
	var resp bitgetResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %v", err)
	}
	if resp.Code != "00000" {
		return nil, fmt.Errorf("Bitget API error: %s - %s", resp.Code, resp.Msg)
	}
	return resp.Data, nil
}

// Ping проверяет доступность API
func (c *BitgetHTTPClient) Ping(ctx context.Context) error {
	_, err := c.doRequest(ctx, "GET", "/api/spot/v1/public/time", nil, nil)
	return err
}

// GetLastPrice получает последнюю цену контракта
func (c *BitgetHTTPClient) GetLastPrice(ctx context.Context, symbol string) (float64, error) {
	respBody, err := c.doRequest(ctx, "GET", mixAPIPrefix+"/market/ticker", map[string]string{
		"symbol": symbol,
	}, nil)
	if err != nil {
		return 0, err
	}

	data, err := unwrap(respBody)
	if err != nil {
		return 0, err
	}

	var ticker struct {
		Last string `json:"last"`
	}
	if err := json.Unmarshal(data, &ticker); err != nil {
		return 0, fmt.Errorf("failed to parse ticker: %v", err)
	}

	price, err := strconv.ParseFloat(ticker.Last, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse last price %q: %v", ticker.Last, err)
	}
	return price, nil
}

// SetLeverage устанавливает плечо для символа
func (c *BitgetHTTPClient) SetLeverage(ctx context.Context, symbol string, leverage int, side string) error {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"marginCoin": c.MarginCoin,
		"leverage":   strconv.Itoa(leverage),
	}
	if side != "" {
		payload["holdSide"] = side
	}

	respBody, err := c.doRequest(ctx, "POST", mixAPIPrefix+"/account/setLeverage", nil, payload)
	if err != nil {
		return err
	}
	if _, err := unwrap(respBody); err != nil {
		return err
	}

	log.Printf("BitgetHTTPClient: Leverage set: %dx for %s", leverage, symbol)
	return nil
}

// PlaceOrder размещает заявку. Цена и размер сериализуются через decimal,
// чтобы не ловить артефакты плавающей точки в строках запроса.
func (c *BitgetHTTPClient) PlaceOrder(ctx context.Context, req entity.OrderRequest) (*entity.OrderAck, error) {
	payload := map[string]interface{}{
		"symbol":     req.Symbol,
		"marginCoin": c.MarginCoin,
		"side":       req.Side,
		"orderType":  req.Type,
		"size":       formatQty(req.Size),
		"reduceOnly": req.ReduceOnly,
	}
	if req.ClientOID != "" {
		payload["clientOid"] = req.ClientOID
	}
	if req.Type == entity.TypeLimit {
		payload["price"] = formatPrice(req.Price)
		payload["timeInForceValue"] = "normal"
	}
	if req.Type == entity.TypeStop {
		payload["triggerPrice"] = formatPrice(req.TriggerPrice)
	}

	respBody, err := c.doRequest(ctx, "POST", mixAPIPrefix+"/order/placeOrder", nil, payload)
	if err != nil {
		return nil, err
	}
	data, err := unwrap(respBody)
	if err != nil {
		return nil, err
	}

	var ack struct {
		OrderID   string `json:"orderId"`
		ClientOID string `json:"clientOid"`
	}
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, fmt.Errorf("failed to parse order ack: %v", err)
	}

	log.Printf("BitgetHTTPClient: Order placed: %s %s %s size=%s orderId=%s",
		req.Symbol, req.Side, req.Type, formatQty(req.Size), ack.OrderID)

	return &entity.OrderAck{
		OrderID:   ack.OrderID,
		ClientOID: ack.ClientOID,
		Status:    entity.StatusNew,
	}, nil
}

// CancelOrder отменяет заявку по клиентскому идентификатору
func (c *BitgetHTTPClient) CancelOrder(ctx context.Context, symbol, clientOID string) error {
	payload := map[string]interface{}{
		"symbol":     symbol,
		"marginCoin": c.MarginCoin,
		"clientOid":  clientOID,
	}
	respBody, err := c.doRequest(ctx, "POST", mixAPIPrefix+"/order/cancel-order", nil, payload)
	if err != nil {
		return err
	}
	_, err = unwrap(respBody)
	return err
}

// ModifyStop переносит стоп как cancel+recreate: старый стоп снимается,
// новый размещается с новым clientOid. Отмена несуществующего (уже
// сработавшего) стопа логируется и не прерывает установку нового.
func (c *BitgetHTTPClient) ModifyStop(ctx context.Context, symbol, side string, size, triggerPrice float64, oldClientOID, newClientOID string) error {
	if err := c.CancelOrder(ctx, symbol, oldClientOID); err != nil {
		log.Printf("BitgetHTTPClient: Failed to cancel old stop %s: %v", oldClientOID, err)
	}

	_, err := c.PlaceOrder(ctx, entity.OrderRequest{
		Symbol:       symbol,
		Side:         side,
		Type:         entity.TypeStop,
		Size:         size,
		TriggerPrice: triggerPrice,
		ReduceOnly:   true,
		ClientOID:    newClientOID,
	})
	return err
}

// GetCircuitBreaker возвращает circuit breaker для использования в других компонентах
func (c *BitgetHTTPClient) GetCircuitBreaker() *gobreaker.CircuitBreaker {
	return c.cb
}

func formatQty(v float64) string {
	return decimal.NewFromFloat(v).Round(6).String()
}

func formatPrice(v float64) string {
	return decimal.NewFromFloat(v).Round(2).String()
}
