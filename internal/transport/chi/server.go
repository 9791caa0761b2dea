package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/bimlink/internal/domain"
	domcmd "github.com/kailas-cloud/bimlink/internal/domain/command"
	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
	logpkg "github.com/kailas-cloud/bimlink/internal/logger"
	commanduc "github.com/kailas-cloud/bimlink/internal/usecase/command"
	healthuc "github.com/kailas-cloud/bimlink/internal/usecase/health"
)

// maxBodyBytes caps command parameter bodies.
const maxBodyBytes = 8 << 20

// versionHeader carries the document version a command observed.
const versionHeader = "X-Document-Version"

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Commands is the command registry as seen by the HTTP layer.
type Commands interface {
	List() []domcmd.Info
	Get(name string) (domcmd.Invoker, bool)
	Invoke(ctx context.Context, name string, params json.RawMessage) (domcmd.Result, error)
}

// Planner turns a natural-language query into filter parameters.
type Planner interface {
	Plan(ctx context.Context, query string) (domfilter.Params, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server implements ServerInterface.
type Server struct {
	commands      Commands
	health        HealthChecker
	planner       Planner
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server. planner can be nil.
func NewServer(commands Commands, health HealthChecker, planner Planner, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		commands: commands,
		health:   health,
		planner:  planner,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorResponseCodeCommandNotFound),
		sentinelHandler(domain.ErrMalformedRequest, http.StatusBadRequest, ErrorResponseCodeBadRequest),
		sentinelHandler(domain.ErrValidation, http.StatusUnprocessableEntity, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrTimeout, http.StatusGatewayTimeout, ErrorResponseCodeTimeout),
		sentinelHandler(domain.ErrBridgeBusy, http.StatusServiceUnavailable, ErrorResponseCodeBridgeBusy),
		sentinelHandler(domain.ErrHostStopped, http.StatusServiceUnavailable, ErrorResponseCodeHostStopped),
		sentinelHandler(domain.ErrPlannerFailure, http.StatusBadGateway, ErrorResponseCodePlannerError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorResponseCodeNotImplemented),
	}
	return s
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status:          string(report.Status),
		Checks:          checks,
		DocumentVersion: report.Version,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ListCommands handles GET /api/v1/commands.
func (s *Server) ListCommands(w http.ResponseWriter, _ *http.Request) {
	infos := s.commands.List()
	items := make([]CommandInfo, len(infos))
	for i, info := range infos {
		items[i] = commandInfoToAPI(info)
	}
	writeJSON(w, http.StatusOK, CommandListResponse{Items: items})
}

// GetCommand handles GET /api/v1/commands/{command}.
func (s *Server) GetCommand(w http.ResponseWriter, _ *http.Request, command string) {
	c, ok := s.commands.Get(command)
	if !ok {
		writeError(w, http.StatusNotFound, ErrorResponseCodeCommandNotFound, "command "+strconv.Quote(command)+" not found")
		return
	}
	writeJSON(w, http.StatusOK, commandInfoToAPI(c.Info()))
}

// InvokeCommand handles POST /api/v1/commands/{command}. Any envelope, failed
// or not, is a 200; only transport-level failures map to error statuses.
func (s *Server) InvokeCommand(w http.ResponseWriter, r *http.Request, command string) {
	if _, ok := s.commands.Get(command); !ok {
		writeError(w, http.StatusNotFound, ErrorResponseCodeCommandNotFound, "command "+strconv.Quote(command)+" not found")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(body) > 0 && !json.Valid(body) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: not valid JSON")
		return
	}

	s.invoke(w, r, command, body)
}

// GetElement handles GET /api/v1/elements/{id}. Unlike the command
// endpoint, a failed lookup is reported as 404.
func (s *Server) GetElement(w http.ResponseWriter, r *http.Request, id int64) {
	params, err := json.Marshal(commanduc.ElementInfoParams{ElementIDs: []int64{id}})
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	res, err := s.commands.Invoke(r.Context(), commanduc.NameElementInfo, params)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	if !res.Envelope.Success() {
		writeError(w, http.StatusNotFound, ErrorResponseCodeElementNotFound, res.Envelope.Message())
		return
	}
	setVersionHeader(w, res.Version)
	writeJSON(w, http.StatusOK, res.Envelope)
}

// PlanFilter handles POST /api/v1/plan.
func (s *Server) PlanFilter(w http.ResponseWriter, r *http.Request) {
	if s.planner == nil {
		writeError(w, http.StatusNotImplemented, ErrorResponseCodeNotImplemented, "planner is not configured")
		return
	}

	var req PlanRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params, err := s.planner.Plan(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	resp := PlanResponse{Filter: params}

	if req.Execute {
		raw, err := json.Marshal(params)
		if err != nil {
			s.handleDomainError(r.Context(), w, err)
			return
		}
		res, err := s.commands.Invoke(r.Context(), commanduc.NameFilter, raw)
		if err != nil {
			s.handleDomainError(r.Context(), w, err)
			return
		}
		env, err := json.Marshal(res.Envelope)
		if err != nil {
			s.handleDomainError(r.Context(), w, err)
			return
		}
		resp.Result = env
		setVersionHeader(w, res.Version)
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request, command string, params json.RawMessage) {
	res, err := s.commands.Invoke(r.Context(), command, params)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}
	if !res.Envelope.Success() {
		s.requestLogger(r.Context()).Info("command failed",
			zap.String("command", command), zap.String("message", res.Envelope.Message()))
	}
	setVersionHeader(w, res.Version)
	writeJSON(w, http.StatusOK, res.Envelope)
}

// requestLogger prefers the per-request logger installed by the wide-event middleware.
func (s *Server) requestLogger(ctx context.Context) *zap.Logger {
	if l := logpkg.FromContext(ctx); l != nil && l.Core().Enabled(zap.ErrorLevel) {
		return l
	}
	return s.logger
}

func setVersionHeader(w http.ResponseWriter, v uint64) {
	w.Header().Set(versionHeader, strconv.FormatUint(v, 10))
}

func commandInfoToAPI(info domcmd.Info) CommandInfo {
	return CommandInfo{
		Name:      info.Name,
		TimeoutMs: info.Timeout.Milliseconds(),
		Mutates:   info.Mutates,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// clientMessage returns the error text for known domain failures and a
// generic message for everything else, so internals never leak.
func clientMessage(err error) string {
	sentinels := []error{
		domain.ErrNotFound,
		domain.ErrMalformedRequest,
		domain.ErrValidation,
		domain.ErrTimeout,
		domain.ErrBridgeBusy,
		domain.ErrHostStopped,
		domain.ErrPlannerFailure,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return err.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := s.requestLogger(ctx)
	logger.Warn("domain error", zap.Error(err))
	msg := clientMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	if errors.Is(err, context.Canceled) {
		// client went away; the status is for the access log only
		writeError(w, 499, ErrorResponseCodeBadRequest, "request canceled")
		return
	}
	logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}
