// internal/signal/transport/http/handler.go
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"signaltrader/internal/api/dto"
	bitget "signaltrader/internal/bitget/service"
	"signaltrader/internal/config"
	"signaltrader/internal/signal/repository"
	signalsvc "signaltrader/internal/signal/service"
	trader "signaltrader/internal/trader/service"
	"signaltrader/pkg/hash"
	"signaltrader/pkg/jwt"
	"signaltrader/pkg/middleware"
)

// Handler обработчик HTTP запросов конвейера сигналов
type Handler struct {
	TraderService *trader.Service
	Journal       repository.JournalRepository
	Watcher       *bitget.PositionWatcher
	Config        *config.Config
}

// NewHandler создает новый обработчик
func NewHandler(
	traderService *trader.Service,
	journal repository.JournalRepository,
	watcher *bitget.PositionWatcher,
	cfg *config.Config,
) *Handler {
	handler := &Handler{
		TraderService: traderService,
		Journal:       journal,
		Watcher:       watcher,
		Config:        cfg,
	}
	log.Println("SignalHandler: Initialized successfully")
	return handler
}

// Login выдает JWT оператору по паролю
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err, "password", "")
		return
	}

	if !hash.CheckPassword(h.Config.Server.OperatorPasswordHash, req.Password) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := jwt.GenerateToken(h.Config.Server.JWTSecret, "operator")
	if err != nil {
		log.Printf("SignalHandler: ERROR: failed to generate token: %v", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ProcessSignal принимает текст алерта и проводит его через конвейер
func (h *Handler) ProcessSignal(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	var req dto.ProcessSignalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err, "text", "")
		return
	}

	result, err := h.TraderService.ProcessAlert(ctx, req.Source, req.MessageID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, signalsvc.ErrNotASignal):
			writeJSON(w, http.StatusOK, map[string]string{
				"status": "rejected",
				"reason": err.Error(),
			})
		case errors.Is(err, signalsvc.ErrParseIncomplete):
			writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
				"status": "incomplete",
				"reason": err.Error(),
			})
		case errors.Is(err, bitget.ErrGatewayUnreachable):
			log.Printf("SignalHandler: ERROR: gateway unreachable: %v", err)
			http.Error(w, "exchange unavailable", http.StatusServiceUnavailable)
		default:
			log.Printf("SignalHandler: ERROR: ProcessAlert failed: %v", err)
			http.Error(w, "processing failed", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "placed",
		"result": result,
	})
}

// ListSignals возвращает последние записи журнала
func (h *Handler) ListSignals(w http.ResponseWriter, r *http.Request) {
	if h.Journal == nil {
		http.Error(w, "signal journal disabled", http.StatusServiceUnavailable)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.Journal.Recent(ctx, limit)
	if err != nil {
		log.Printf("SignalHandler: ERROR: failed to load journal: %v", err)
		http.Error(w, "failed to load signals", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

// ActivePlans возвращает планы под наблюдением watcher'а
func (h *Handler) ActivePlans(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Watcher.ActivePlans())
}

// Health проверка живости сервиса
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("SignalHandler: ERROR: failed to encode response: %v", err)
	}
}
