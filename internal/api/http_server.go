package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"pickpoint/internal/config"
	"pickpoint/internal/domain"
	"pickpoint/internal/models"
	"pickpoint/internal/notifications"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the locker directory and the order lifecycle as a
// JSON API. Every mutation is a server-arbitrated state machine trigger.
// NotificationFeed is the read side of the notifier.
type NotificationFeed interface {
	Feed(userID int64) []notifications.Notification
}

type HTTPServer struct {
	cfg      config.ServerConfig
	orders   domain.OrderService
	lockers  domain.LockerService
	notifier NotificationFeed
	logger   *zerolog.Logger
	server   *http.Server
	auth     *BearerAuth
}

func NewHTTPServer(cfg config.ServerConfig, orders domain.OrderService, lockers domain.LockerService, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:     cfg,
		orders:  orders,
		lockers: lockers,
		logger:  logger,
	}
	srv.auth = NewBearerAuth(cfg)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler builds the routing tree. Exposed separately so tests can mount
// it on httptest.Server.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /lockers", s.handleLockers)
	mux.HandleFunc("GET /lockers/{id}", s.handleLockerByID)

	mux.HandleFunc("POST /orders", s.handleCreateOrder)
	mux.HandleFunc("GET /orders", s.handleBuyerOrders)
	mux.HandleFunc("GET /orders/seller", s.handleSellerOrders)
	mux.HandleFunc("GET /orders/{id}", s.handleOrderByID)
	mux.HandleFunc("POST /orders/{id}/pay", s.handlePay)
	mux.HandleFunc("POST /orders/{id}/schedule", s.handleSchedule)
	mux.HandleFunc("POST /orders/{id}/confirm-pickup", s.handleConfirmPickup)
	mux.HandleFunc("POST /orders/{id}/confirm-delivery", s.handleConfirmDelivery)
	mux.HandleFunc("POST /orders/{id}/verify-pin", s.handleVerifyPin)
	mux.HandleFunc("POST /orders/{id}/cancel", s.handleCancel)

	mux.HandleFunc("GET /notifications", s.handleNotifications)

	return loggingMiddleware(s.logger, s.auth.Wrap(mux))
}

func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleLockers(w http.ResponseWriter, r *http.Request) {
	lockers, err := s.lockers.GetLockers(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, lockers)
}

func (s *HTTPServer) handleLockerByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	locker, err := s.lockers.GetLocker(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, locker)
}

func (s *HTTPServer) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ListingID == 0 || req.LockerID == 0 {
		writeError(w, http.StatusBadRequest, "listing_id and locker_id are required")
		return
	}
	if userID := UserID(r.Context()); userID != 0 {
		req.BuyerID = userID
	}

	order, err := s.orders.CreateOrder(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, order)
}

func (s *HTTPServer) handleBuyerOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUserID(w, r)
	if !ok {
		return
	}
	orders, err := s.orders.GetBuyerOrders(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *HTTPServer) handleSellerOrders(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUserID(w, r)
	if !ok {
		return
	}
	orders, err := s.orders.GetSellerOrders(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *HTTPServer) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := s.orders.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handlePay(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := s.orders.Pay(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleSchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		PickupTime time.Time `json:"pickup_time"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.PickupTime.IsZero() {
		writeError(w, http.StatusBadRequest, "pickup_time is required")
		return
	}

	order, err := s.orders.Schedule(r.Context(), id, req.PickupTime)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleConfirmPickup(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := s.orders.ConfirmRiderPickup(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleConfirmDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	order, err := s.orders.ConfirmDelivery(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (s *HTTPServer) handleVerifyPin(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Pin string `json:"pin"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Pin == "" {
		writeError(w, http.StatusBadRequest, "pin is required")
		return
	}

	order, points, err := s.orders.VerifyPin(r.Context(), id, req.Pin)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, models.VerifyPinResult{Order: order, PointsAwarded: points})
}

func (s *HTTPServer) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	order, err := s.orders.Cancel(r.Context(), id, req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// SetNotifier attaches the notification feed. Without one the endpoint
// serves empty lists.
func (s *HTTPServer) SetNotifier(feed NotificationFeed) {
	s.notifier = feed
}

func (s *HTTPServer) handleNotifications(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.requestUserID(w, r)
	if !ok {
		return
	}
	if s.notifier == nil {
		writeJSON(w, http.StatusOK, []notifications.Notification{})
		return
	}
	feed := s.notifier.Feed(userID)
	if feed == nil {
		feed = []notifications.Notification{}
	}
	writeJSON(w, http.StatusOK, feed)
}

// requestUserID resolves the acting user: the bearer token's binding when
// auth is on, the user_id query parameter otherwise.
func (s *HTTPServer) requestUserID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	if userID := UserID(r.Context()); userID != 0 {
		return userID, true
	}

	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid user_id")
		return 0, false
	}
	return userID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
