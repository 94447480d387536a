package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fivemdb/fivemdb/internal/config"
	"github.com/fivemdb/fivemdb/internal/db"
	"github.com/fivemdb/fivemdb/internal/logger"
	"github.com/fivemdb/fivemdb/internal/parser"
	"github.com/fivemdb/fivemdb/internal/state"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const MAX_BODY_BYTES = 1 << 20

type APIServer struct {
	Db          db.Repository
	Schema      *db.MetaData
	Events      state.SubscriberStore
	Logger      logger.Logger
	Router      *mux.Router
	config      *config.Config
	wssUpgrader websocket.Upgrader
	httpServer  *http.Server
}

// NewAPIServer connects to the configured database, reflects it and wires
// every route.
func NewAPIServer(cfg *config.Config) (*APIServer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	repo, err := db.SetupDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	schema, err := repo.Schema.Restrict(cfg.Tables)
	if err != nil {
		repo.CloseConnection()
		return nil, err
	}
	s, err := newAPIServer(cfg, repo, schema, state.NewSubscriberStore(logger.New("events")))
	if err != nil {
		repo.CloseConnection()
		return nil, err
	}
	return s, nil
}

func newAPIServer(cfg *config.Config, repo db.Repository, schema *db.MetaData, events state.SubscriberStore) (*APIServer, error) {
	s := &APIServer{
		Db:     repo,
		Schema: schema,
		Events: events,
		Logger: logger.New("api_server"),
		Router: mux.NewRouter(),
		config: cfg,
		wssUpgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if users, exists := schema.Table(cfg.UsersTable); !exists {
		s.Logger.Warn(fmt.Sprintf("Table %s not found, /users will answer 404", cfg.UsersTable))
	} else if !users.HasColumn(cfg.UsersKey) {
		return nil, fmt.Errorf("table %s has no column %s", cfg.UsersTable, cfg.UsersKey)
	}
	s.routes()
	return s, nil
}

func (s *APIServer) routes() {
	accessLog := AccessLog(s.Logger)
	s.Router.Use(RequestID, accessLog)
	// mux skips Use middleware when no route matches
	s.Router.NotFoundHandler = RequestID(accessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendDetail(w, http.StatusNotFound, "Not Found")
	})))
	s.Router.MethodNotAllowedHandler = RequestID(accessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.sendDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})))

	s.Router.HandleFunc("/health", s.Health).Methods(http.MethodGet)
	s.Router.HandleFunc("/events", s.HandleSubscribe).Methods(http.MethodGet)

	s.Router.HandleFunc("/users", s.ListUsers).Methods(http.MethodGet)
	s.Router.HandleFunc("/users", s.CreateUser).Methods(http.MethodPost)
	s.Router.HandleFunc("/users/{identifier}", s.GetUser).Methods(http.MethodGet)
	s.Router.HandleFunc("/users/{identifier}", s.UpdateUser).Methods(http.MethodPatch)
	s.Router.HandleFunc("/users/{identifier}", s.DeleteUser).Methods(http.MethodDelete)

	s.Router.HandleFunc("/tables", s.ListTables).Methods(http.MethodGet)
	s.Router.HandleFunc("/tables/{table}", s.GetTable).Methods(http.MethodGet)
	s.Router.HandleFunc("/tables/{table}/rows", s.ListRows).Methods(http.MethodGet)
	s.Router.HandleFunc("/tables/{table}/rows", s.CreateRow).Methods(http.MethodPost)
	s.Router.HandleFunc("/tables/{table}/rows/{key}", s.GetRow).Methods(http.MethodGet)
	s.Router.HandleFunc("/tables/{table}/rows/{key}", s.UpdateRow).Methods(http.MethodPatch)
	s.Router.HandleFunc("/tables/{table}/rows/{key}", s.DeleteRow).Methods(http.MethodDelete)
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *APIServer) Run() error {
	s.httpServer = &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	sigtermHandler := make(chan os.Signal, 1)
	signal.Notify(sigtermHandler, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigtermHandler)

	serveErr := make(chan error, 1)
	go func() {
		s.Logger.Info(fmt.Sprintf("Starting server on %s", s.config.Addr()))
		serveErr <- s.httpServer.ListenAndServe()
	}()
	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			s.Logger.Error(fmt.Sprintf("Failed to start server on %s", s.config.Addr()), err)
			s.Shutdown()
			return err
		}
	case <-sigtermHandler:
	}
	return s.Shutdown()
}

func (s *APIServer) Shutdown() error {
	s.Logger.Info("Shutting down server....")
	var err error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		if err = s.httpServer.Shutdown(ctx); err != nil {
			s.Logger.Error("Server did not shut down cleanly", err)
		}
	}
	s.Events.CloseAll()
	s.Db.CloseConnection()
	s.Logger.Info("Goodbye !")
	return err
}

func (s *APIServer) ReadRequestBody(writer http.ResponseWriter, request *http.Request) ([]byte, error) {
	bytesRead, err := io.ReadAll(http.MaxBytesReader(writer, request.Body, MAX_BODY_BYTES))
	if err != nil {
		s.Logger.Error("Failed to read request body", err)
		return nil, err
	}
	return bytesRead, nil
}

// sendReadError answers a failed ReadRequestBody.
func (s *APIServer) sendReadError(writer http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.sendDetail(writer, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit))
		return
	}
	s.sendDetail(writer, http.StatusBadRequest, "Failed to read request body")
}

func (s *APIServer) sendResponse(writer http.ResponseWriter, responseBody []byte, status int) {
	if responseBody != nil {
		writer.Header().Set("Content-Type", "application/json")
	}
	writer.WriteHeader(status)
	if responseBody == nil {
		return
	}
	if _, err := writer.Write(responseBody); err != nil {
		s.Logger.Error("Failed to write response body", err)
	}
}

func (s *APIServer) sendJSON(writer http.ResponseWriter, status int, payload any) {
	respBody, err := json.Marshal(payload)
	if err != nil {
		s.Logger.Error("Failed to serialize response", err)
		s.sendResponse(writer, []byte(`{"detail":"Internal Server Error"}`), http.StatusInternalServerError)
		return
	}
	s.sendResponse(writer, respBody, status)
}

func (s *APIServer) sendDetail(writer http.ResponseWriter, status int, detail string) {
	s.sendJSON(writer, status, parser.ErrorResponse{Detail: detail})
}

// sendError maps err onto a status code. label names the addressed thing in
// not found and conflict details, e.g. "User".
func (s *APIServer) sendError(writer http.ResponseWriter, request *http.Request, err error, label string) {
	var validationErr *parser.ValidationError
	switch {
	case errors.As(err, &validationErr):
		s.sendJSON(writer, http.StatusUnprocessableEntity, parser.ErrorResponse{
			Detail: "Validation failed",
			Errors: validationErr.Errors,
		})
	case errors.Is(err, parser.ErrMalformedBody):
		s.sendDetail(writer, http.StatusBadRequest, "Request body must be a JSON object")
	case errors.Is(err, db.ErrRowNotFound):
		s.sendDetail(writer, http.StatusNotFound, label+" not found")
	case errors.Is(err, db.ErrDuplicateRow):
		s.sendDetail(writer, http.StatusConflict, label+" already exists")
	case errors.Is(err, db.ErrConstraint):
		s.sendDetail(writer, http.StatusConflict, "Request violates a database constraint")
	default:
		s.Logger.Error("Request failed", err, "request_id", GetRequestID(request.Context()))
		s.sendDetail(writer, http.StatusInternalServerError, "Internal Server Error")
	}
}
