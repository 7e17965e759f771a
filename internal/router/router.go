// Package router maps the HTTP surface of the service onto the user service:
// one handler per route, each translating the operation outcome into a status code.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/patric-chuzhbe/userapi/internal/gzippedhttp"
	"github.com/patric-chuzhbe/userapi/internal/logger"
	"github.com/patric-chuzhbe/userapi/internal/models"
	"github.com/patric-chuzhbe/userapi/internal/service"
	"github.com/patric-chuzhbe/userapi/internal/user"
)

// Response bodies the API promises to its clients.
const (
	MsgInvalidUserIDOnGet    = "Invalid User ID"
	MsgInvalidUserIDOnUpdate = "Invalid Id"
	MsgInvalidUserIDOnDelete = "invalid ID"
	MsgUserNotFoundOnUpdate  = "no user found with specified ID"
	MsgUserNotFoundOnDelete  = "User with specified ID not found!"
	MsgUserDeleted           = "user succesfully deleted!"
)

type userService interface {
	CreateUser(ctx context.Context, request models.UserRequest) (*user.User, error)
	GetUser(ctx context.Context, id string) (*user.User, error)
	UpdateUser(ctx context.Context, id string, request models.UserRequest) (*user.User, error)
	DeleteUser(ctx context.Context, id string) error
	GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error)
	Ping(ctx context.Context) error
}

type middlewareProvider interface {
	Middleware(h http.Handler) http.Handler
	Handler() http.Handler
}

type trustedSubnetGuard interface {
	TrustedOnly(h http.Handler) http.Handler
}

// Router holds the dependencies shared by all handlers. It has no mutable
// state, so one instance serves every request concurrently.
type Router struct {
	svc userService
}

// New builds the chi router with all routes and middlewares attached.
func New(
	svc userService,
	ipChecker trustedSubnetGuard,
	httpMetrics middlewareProvider,
) *chi.Mux {
	myRouter := &Router{
		svc: svc,
	}

	router := chi.NewRouter()
	router.Use(
		middleware.Recoverer,
		logger.WithLoggingHTTPMiddleware,
		httpMetrics.Middleware,
		gzippedhttp.UngzipRequest,
		gzippedhttp.GzipResponse,
	)

	router.Post(`/user`, myRouter.PostUser)
	router.Get(`/user/{id}`, myRouter.GetUser)
	router.Put(`/user/{id}`, myRouter.PutUser)
	router.Delete(`/user/{id}`, myRouter.DeleteUser)

	// "/user/" carries an empty identifier; it gets the same handlers so
	// that they can reject it with their own message.
	router.Get(`/user/`, myRouter.GetUser)
	router.Put(`/user/`, myRouter.PutUser)
	router.Delete(`/user/`, myRouter.DeleteUser)

	router.Get(`/ping`, myRouter.GetPing)
	router.With(ipChecker.TrustedOnly).Get(`/api/internal/stats`, myRouter.GetInternalStats)
	router.Method(http.MethodGet, `/metrics`, httpMetrics.Handler())

	return router
}

// PostUser handles POST /user.
func (router *Router) PostUser(response http.ResponseWriter, request *http.Request) {
	userRequest, err := decodeUserRequest(request)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := router.svc.CreateUser(request.Context(), userRequest)
	if err != nil {
		logger.Log.Errorw("creating user", "error", err)
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(response, http.StatusOK, created)
}

// GetUser handles GET /user/{id}.
func (router *Router) GetUser(response http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if id == "" {
		http.Error(response, MsgInvalidUserIDOnGet, http.StatusBadRequest)
		return
	}

	found, err := router.svc.GetUser(request.Context(), id)
	if err != nil {
		writeOutcomeError(response, err, "")
		return
	}

	writeJSON(response, http.StatusOK, found)
}

// PutUser handles PUT /user/{id}.
func (router *Router) PutUser(response http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if id == "" {
		http.Error(response, MsgInvalidUserIDOnUpdate, http.StatusBadRequest)
		return
	}

	userRequest, err := decodeUserRequest(request)
	if err != nil {
		http.Error(response, err.Error(), http.StatusBadRequest)
		return
	}

	updated, err := router.svc.UpdateUser(request.Context(), id, userRequest)
	if err != nil {
		writeOutcomeError(response, err, MsgUserNotFoundOnUpdate)
		return
	}

	writeJSON(response, http.StatusOK, updated)
}

// DeleteUser handles DELETE /user/{id}.
func (router *Router) DeleteUser(response http.ResponseWriter, request *http.Request) {
	id := chi.URLParam(request, "id")
	if id == "" {
		http.Error(response, MsgInvalidUserIDOnDelete, http.StatusBadRequest)
		return
	}

	err := router.svc.DeleteUser(request.Context(), id)
	switch service.Classify(err) {
	case service.OutcomeFound:
		writeJSON(response, http.StatusOK, MsgUserDeleted)
	case service.OutcomeNotFound:
		writeJSON(response, http.StatusNotFound, MsgUserNotFoundOnDelete)
	default:
		writeOutcomeError(response, err, "")
	}
}

// GetPing reports whether the storage is reachable.
func (router *Router) GetPing(response http.ResponseWriter, request *http.Request) {
	if err := router.svc.Ping(request.Context()); err != nil {
		logger.Log.Errorw("storage ping failed", "error", err)
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	response.WriteHeader(http.StatusOK)
}

// GetInternalStats handles GET /api/internal/stats.
func (router *Router) GetInternalStats(response http.ResponseWriter, request *http.Request) {
	stats, err := router.svc.GetInternalStats(request.Context())
	if err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(response, http.StatusOK, stats)
}

func decodeUserRequest(request *http.Request) (models.UserRequest, error) {
	var userRequest models.UserRequest
	if err := json.NewDecoder(request.Body).Decode(&userRequest); err != nil {
		return models.UserRequest{}, fmt.Errorf("json deserialize error: %w", err)
	}

	return userRequest, nil
}

// writeOutcomeError answers with the status matching the error's outcome.
// notFoundBody replaces the error text for not-found outcomes when it is not empty.
func writeOutcomeError(response http.ResponseWriter, err error, notFoundBody string) {
	switch service.Classify(err) {
	case service.OutcomeInvalidID:
		http.Error(response, err.Error(), http.StatusBadRequest)
	case service.OutcomeNotFound:
		if notFoundBody == "" {
			notFoundBody = err.Error()
		}
		http.Error(response, notFoundBody, http.StatusNotFound)
	default:
		logger.Log.Errorw("storage access failed", "error", err)
		http.Error(response, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(response http.ResponseWriter, status int, payload interface{}) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(response, err.Error(), http.StatusInternalServerError)
		return
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(status)
	if _, err := response.Write(body); err != nil {
		logger.Log.Debugw("writing response body", "error", err)
	}
}
