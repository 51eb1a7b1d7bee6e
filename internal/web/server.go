package web

import (
	"embed"
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/yieldroute/srm/internal/logger"
	"github.com/yieldroute/srm/internal/state"
	"github.com/yieldroute/srm/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var dashboardHTML []byte

// WebServer handles HTTP requests for cycle record visualization
type WebServer struct {
	router *mux.Router
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Static files
	staticHandler := http.FileServer(http.FS(staticFiles))
	ws.router.PathPrefix("/static/").Handler(http.StripPrefix("/", staticHandler))

	// Dashboard routes
	ws.router.HandleFunc("/", ws.handleDashboard).Methods("GET")
	ws.router.HandleFunc("/dashboard", ws.handleDashboard).Methods("GET")

	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints. "latest" is registered before the {id} matcher.
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/reports", ws.handleGetReports).Methods("GET")
	api.HandleFunc("/reports/latest", ws.handleGetLatestReport).Methods("GET")
	api.HandleFunc("/reports/{id}", ws.handleGetReport).Methods("GET")
	api.HandleFunc("/strategies", ws.handleGetStrategies).Methods("GET")
	api.HandleFunc("/strategies/{id}/summary", ws.handleGetStrategySummary).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns comprehensive server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	// Latest cycle information
	latest, cycleErr := state.GetRecentCycleRecords(1)
	var cycleInfo map[string]interface{}
	var hasErrors bool
	var lastCycleTime *time.Time

	if cycleErr == nil && len(latest) > 0 {
		record := latest[0]
		status := "completed"
		if !record.Success {
			status = "failed"
		}
		cycleInfo = map[string]interface{}{
			"current_cycle":     record.CycleNumber,
			"last_cycle_time":   record.Timestamp,
			"last_cycle_status": status,
			"strategy_id":       record.StrategyID,
		}
		hasErrors = !record.Success
		lastCycleTime = &record.Timestamp
	} else {
		cycleInfo = map[string]interface{}{
			"current_cycle":     0,
			"last_cycle_time":   nil,
			"last_cycle_status": "unknown",
			"strategy_id":       "",
		}
		hasErrors = true // No cycle data available indicates an issue
	}

	// Failed cycles over the last hour
	recentFailures := 0
	if failures, err := state.GetFailedCyclesSince(time.Now().Add(-time.Hour)); err == nil {
		recentFailures = len(failures)
		if recentFailures > 0 {
			hasErrors = true
		}
	}

	// Database connection status
	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	// Uptime approximation based on last cycle time
	var uptimeSeconds int64
	if lastCycleTime != nil {
		uptimeSeconds = int64(time.Since(*lastCycleTime).Seconds())
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":            runtime.Version(),
			"goroutines_count":   runtime.NumGoroutine(),
			"total_alloc_bytes":  memStats.TotalAlloc,
			"heap_objects_count": memStats.HeapObjects,
			"alloc_bytes":        memStats.Alloc,
			"sys_bytes":          memStats.Sys,
			"gc_cycles":          memStats.NumGC,
			"uptime_seconds":     uptimeSeconds,
		},
		"component": map[string]interface{}{
			"name":    "srm-strategy-routing-manager",
			"version": "1.0.0",
		},
		"srm_status": map[string]interface{}{
			"database_healthy":  dbHealthy,
			"has_recent_errors": hasErrors,
			"recent_failures":   recentFailures,
			"cycle_info":        cycleInfo,
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleDashboard serves the main dashboard HTML
func (ws *WebServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.WriteHeader(http.StatusOK)
	w.Write(dashboardHTML)
}

// handleGetReports returns recent cycle records
func (ws *WebServer) handleGetReports(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	records, err := state.GetRecentCycleRecords(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent cycle records")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve reports")
		return
	}

	response := map[string]interface{}{
		"reports": records,
		"count":   len(records),
		"limit":   limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetReport returns a specific cycle record by ID
func (ws *WebServer) handleGetReport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	idStr := vars["id"]

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid report ID")
		return
	}

	record, err := state.GetCycleRecordByID(id)
	if err != nil {
		webLogger.Error().Err(err).Int64("reportId", id).Msg("Failed to get cycle record")
		ws.writeErrorResponse(w, http.StatusNotFound, "Report not found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, record)
}

// handleGetLatestReport returns the most recent cycle record
func (ws *WebServer) handleGetLatestReport(w http.ResponseWriter, r *http.Request) {
	records, err := state.GetRecentCycleRecords(1)
	if err != nil || len(records) == 0 {
		webLogger.Error().Err(err).Msg("Failed to get latest cycle record")
		ws.writeErrorResponse(w, http.StatusNotFound, "No reports found")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, records[0])
}

// handleGetStrategies returns the strategies with persisted cycles
func (ws *WebServer) handleGetStrategies(w http.ResponseWriter, r *http.Request) {
	ids, err := state.GetStrategyIDs()
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get strategy ids")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve strategies")
		return
	}

	response := map[string]interface{}{
		"strategies": ids,
		"count":      len(ids),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetStrategySummary returns aggregated outcomes for one strategy
func (ws *WebServer) handleGetStrategySummary(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id := vars["id"]
	if id == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid strategy ID")
		return
	}

	summary, err := state.GetStrategySummary(types.StrategyID(id))
	if err != nil {
		webLogger.Error().Err(err).Str("strategyId", id).Msg("Failed to get strategy summary")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve strategy summary")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, summary)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap the response writer to capture the status code
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
