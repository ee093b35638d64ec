package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftmarket/observability/metrics"
)

type handlerFunc func(json.RawMessage) (interface{}, *ModuleError)

// Server is the JSON-RPC front of the marketplace. Methods are namespaced
// under "market_" and dispatched off a single POST endpoint; health and
// metrics ride alongside on the same listener.
type Server struct {
	module  *MarketModule
	log     *slog.Logger
	metrics *metrics.MarketMetrics
	methods map[string]handlerFunc
	srv     *http.Server
}

// NewServer constructs the RPC server for the given module.
func NewServer(module *MarketModule, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		module:  module,
		log:     log,
		metrics: metrics.Market(),
	}
	s.methods = map[string]handlerFunc{
		"market_createItem":            wrap(module.CreateItem),
		"market_listItem":              wrap(module.ListItem),
		"market_buyItem":               wrap(module.BuyItem),
		"market_cancel":                wrap(module.Cancel),
		"market_listItemOnAuction":     wrap(module.ListItemOnAuction),
		"market_makeBid":               wrap(module.MakeBid),
		"market_finishAuction":         wrap(module.FinishAuction),
		"market_cancelAuction":         wrap(module.CancelAuction),
		"market_burn":                  wrap(module.Burn),
		"market_getItem":               wrap(module.GetItem),
		"market_listItems":             wrap(module.ListItems),
		"market_getSaleOrder":          wrap(module.GetSaleOrder),
		"market_getAuctionOrder":       wrap(module.GetAuctionOrder),
		"market_getParams":             wrap(module.GetParams),
		"market_updateMintPrice":       wrap(module.UpdateMintPrice),
		"market_updateAuctionDuration": wrap(module.UpdateAuctionDuration),
		"market_updateMinBidAmount":    wrap(module.UpdateMinBidAmount),
		"market_withdrawTokens":        wrap(module.WithdrawTokens),
		"market_getStats":              wrap(module.GetStats),
		"market_totalItems":            wrap(module.TotalItems),
		"market_itemsSold":             wrap(module.ItemsSold),
		"market_listEvents":            wrap(module.ListEvents),
	}
	return s
}

func wrap[T any](fn func(json.RawMessage) (T, *ModuleError)) handlerFunc {
	return func(raw json.RawMessage) (interface{}, *ModuleError) {
		result, err := fn(raw)
		if err != nil {
			return nil, err
		}
		return result, nil
	}
}

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  interface{}     `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

// Router builds the HTTP handler serving the RPC endpoint, health probe, and
// Prometheus metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/rpc", s.handleRPC)
	return r
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, http.StatusBadRequest, rpcResponse{
			JSONRPC: "2.0",
			Error:   &rpcError{Code: -32700, Message: "parse error", Data: err.Error()},
		})
		return
	}
	handler, ok := s.methods[req.Method]
	if !ok {
		writeResponse(w, http.StatusNotFound, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: -32601, Message: "method not found"},
		})
		return
	}

	start := time.Now()
	result, moduleErr := handler(req.Params)
	s.metrics.ObserveRPC(req.Method, moduleErr != nil, time.Since(start))

	if moduleErr != nil {
		s.log.Warn("rpc call failed", "method", req.Method, "status", moduleErr.HTTPStatus, "error", moduleErr.Message)
		writeResponse(w, moduleErr.HTTPStatus, rpcResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error:   &rpcError{Code: moduleErr.Code, Message: moduleErr.Message, Data: moduleErr.Data},
		})
		return
	}
	s.log.Debug("rpc call served", "method", req.Method, "duration", time.Since(start))
	writeResponse(w, http.StatusOK, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
}

func writeResponse(w http.ResponseWriter, status int, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// Serve blocks until the listener fails or the context is cancelled, at
// which point it shuts the server down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
