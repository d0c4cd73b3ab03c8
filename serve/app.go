package serve

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/novadb/udfhost/appconfig"
	"github.com/novadb/udfhost/registry"
)

// Application is the HTTP application a serving instance runs: it exposes
// the registered functions under the configured base path. It holds its own
// view of the registry so the exposed set is fixed for the lifetime of the
// instance serving it.
type Application struct {
	basePath string
	appToken string
	localDev bool
	reg      *registry.Registry
	logger   *slog.Logger
}

// NewApplication builds the application for one serving run.
func NewApplication(cfg appconfig.Config, reg *registry.Registry, logger *slog.Logger) *Application {
	if logger == nil {
		logger = slog.Default()
	}
	return &Application{
		basePath: strings.TrimRight(cfg.BasePath, "/"),
		appToken: cfg.AppToken,
		localDev: cfg.IsLocalDev,
		reg:      reg,
		logger:   logger,
	}
}

// FunctionInfo returns the descriptors for the functions the application
// exposes.
func (a *Application) FunctionInfo() map[string]registry.Descriptor {
	return a.reg.Snapshot()
}

// Handler returns the HTTP handler serving the application's routes.
func (a *Application) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+a.basePath+"/functions", a.authorized(a.handleFunctions))
	mux.HandleFunc("POST "+a.basePath+"/invoke/{name}", a.authorized(a.handleInvoke))
	return mux
}

// authorized enforces the app token on every route. Local dev skips
// enforcement entirely.
func (a *Application) authorized(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !a.localDev {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if token == "" || token != a.appToken {
				writeJSONError(w, http.StatusUnauthorized, "invalid or missing app token")
				return
			}
		}
		next(w, r)
	}
}

func (a *Application) handleFunctions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.FunctionInfo())
}

func (a *Application) handleInvoke(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	fn, err := a.reg.Get(name)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}

	var req struct {
		Args []any `json:"args"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := fn.Call(r.Context(), req.Args)
	if err != nil {
		a.logger.Error("function invocation failed",
			slog.String("function", name),
			slog.String("error", err.Error()),
		)
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
