package chi

import (
	"encoding/json"

	domfilter "github.com/kailas-cloud/bimlink/internal/domain/filter"
)

// ErrorResponseCode is the machine-readable error class of a failed request.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest       ErrorResponseCode = "bad_request"
	ErrorResponseCodeUnauthorized     ErrorResponseCode = "unauthorized"
	ErrorResponseCodeValidationFailed ErrorResponseCode = "validation_failed"
	ErrorResponseCodeCommandNotFound  ErrorResponseCode = "command_not_found"
	ErrorResponseCodeElementNotFound  ErrorResponseCode = "element_not_found"
	ErrorResponseCodeTimeout          ErrorResponseCode = "timeout"
	ErrorResponseCodeBridgeBusy       ErrorResponseCode = "bridge_busy"
	ErrorResponseCodeHostStopped      ErrorResponseCode = "host_stopped"
	ErrorResponseCodePlannerError     ErrorResponseCode = "planner_error"
	ErrorResponseCodeNotImplemented   ErrorResponseCode = "not_implemented"
	ErrorResponseCodeInternalError    ErrorResponseCode = "internal_error"
)

// ErrorResponse is the body of every non-envelope error.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// CommandInfo describes a registered command.
type CommandInfo struct {
	Name      string `json:"name"`
	TimeoutMs int64  `json:"timeout_ms"`
	Mutates   bool   `json:"mutates"`
}

// CommandListResponse lists the registered commands in registration order.
type CommandListResponse struct {
	Items []CommandInfo `json:"items"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status          string            `json:"status"`
	Checks          map[string]string `json:"checks"`
	DocumentVersion uint64            `json:"document_version"`
}

// PlanRequest is the body of POST /api/v1/plan.
type PlanRequest struct {
	Query   string `json:"query"`
	Execute bool   `json:"execute"`
}

// PlanResponse carries the planned filter and, when executed, the filter envelope.
type PlanResponse struct {
	Filter domfilter.Params `json:"filter"`
	Result json.RawMessage  `json:"result,omitempty"`
}
