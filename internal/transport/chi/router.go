package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ServerInterface is the set of HTTP operations the API exposes.
type ServerInterface interface {
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/commands)
	ListCommands(w http.ResponseWriter, r *http.Request)
	// (GET /api/v1/commands/{command})
	GetCommand(w http.ResponseWriter, r *http.Request, command string)
	// (POST /api/v1/commands/{command})
	InvokeCommand(w http.ResponseWriter, r *http.Request, command string)
	// (GET /api/v1/elements/{id})
	GetElement(w http.ResponseWriter, r *http.Request, id int64)
	// (POST /api/v1/plan)
	PlanFilter(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a path parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	Middlewares      []func(http.Handler) http.Handler
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si on a fresh chi router.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions mounts si on options.BaseRouter (or a fresh router).
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, err.Error())
		}
	}
	wrapper := serverInterfaceWrapper{
		handler:          si,
		middlewares:      options.Middlewares,
		errorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Get("/health", wrapper.HealthCheck)
	r.Get("/metrics", wrapper.Metrics)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/commands", wrapper.ListCommands)
		r.Get("/commands/{command}", wrapper.GetCommand)
		r.Post("/commands/{command}", wrapper.InvokeCommand)
		r.Get("/elements/{id}", wrapper.GetElement)
		r.Post("/plan", wrapper.PlanFilter)
	})
	return r
}

type serverInterfaceWrapper struct {
	handler          ServerInterface
	middlewares      []func(http.Handler) http.Handler
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, m := range siw.middlewares {
		h = m(h)
	}
	h.ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.HealthCheck))
}

func (siw *serverInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.Metrics))
}

func (siw *serverInterfaceWrapper) ListCommands(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.ListCommands))
}

func (siw *serverInterfaceWrapper) GetCommand(w http.ResponseWriter, r *http.Request) {
	command, ok := siw.bindCommand(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.GetCommand(w, r, command)
	}))
}

func (siw *serverInterfaceWrapper) InvokeCommand(w http.ResponseWriter, r *http.Request) {
	command, ok := siw.bindCommand(w, r)
	if !ok {
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.InvokeCommand(w, r, command)
	}))
}

func (siw *serverInterfaceWrapper) GetElement(w http.ResponseWriter, r *http.Request) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return
	}
	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.GetElement(w, r, id)
	}))
}

func (siw *serverInterfaceWrapper) PlanFilter(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.PlanFilter))
}

func (siw *serverInterfaceWrapper) bindCommand(w http.ResponseWriter, r *http.Request) (string, bool) {
	var command string
	err := runtime.BindStyledParameterWithOptions("simple", "command", chi.URLParam(r, "command"), &command,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "command", Err: err})
		return "", false
	}
	return command, true
}
