package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fivemdb/fivemdb/internal/db"
	"github.com/fivemdb/fivemdb/internal/parser"
	"github.com/fivemdb/fivemdb/internal/state"
	"github.com/gorilla/mux"
)

// resource is a table addressed through the API together with the column
// its rows are looked up by and the envelopes its responses use.
type resource struct {
	table     *db.Table
	keyColumn string
	label     string
	many      func(rows []db.Row, total int64, paged bool) any
	one       func(row db.Row) any
}

func (s *APIServer) usersResource(writer http.ResponseWriter) (resource, bool) {
	table, exists := s.Schema.Table(s.config.UsersTable)
	if !exists {
		s.sendDetail(writer, http.StatusNotFound, fmt.Sprintf("Table %s does not exist", s.config.UsersTable))
		return resource{}, false
	}
	return resource{
		table:     table,
		keyColumn: s.config.UsersKey,
		label:     "User",
		many: func(rows []db.Row, total int64, paged bool) any {
			resp := parser.UsersResponse{Users: rows}
			if paged {
				resp.Total = &total
			}
			return resp
		},
		one: func(row db.Row) any { return parser.UserResponse{User: row} },
	}, true
}

func (s *APIServer) tableResource(writer http.ResponseWriter, request *http.Request) (resource, bool) {
	name := mux.Vars(request)["table"]
	table, exists := s.Schema.Table(name)
	if !exists {
		s.sendDetail(writer, http.StatusNotFound, fmt.Sprintf("Table %s does not exist", name))
		return resource{}, false
	}
	return resource{
		table:     table,
		keyColumn: table.PrimaryKey,
		label:     "Row",
		many: func(rows []db.Row, total int64, paged bool) any {
			return parser.RowsResponse{Rows: rows, Total: total}
		},
		one: func(row db.Row) any { return parser.RowResponse{Row: row} },
	}, true
}

// keyedTableResource is tableResource for routes that address a single row.
func (s *APIServer) keyedTableResource(writer http.ResponseWriter, request *http.Request) (resource, bool) {
	res, ok := s.tableResource(writer, request)
	if ok && res.keyColumn == "" {
		s.sendDetail(writer, http.StatusMethodNotAllowed, fmt.Sprintf("Table %s has no single column primary key", res.table.Name))
		return resource{}, false
	}
	return res, ok
}

func (s *APIServer) writable(writer http.ResponseWriter) bool {
	if s.config.ReadOnly {
		s.sendDetail(writer, http.StatusMethodNotAllowed, "API is in read-only mode")
		return false
	}
	return true
}

func (s *APIServer) Health(writer http.ResponseWriter, request *http.Request) {
	ctx, cancel := context.WithTimeout(request.Context(), 2*time.Second)
	defer cancel()
	if err := s.Db.Ping(ctx); err != nil {
		s.Logger.Error("Database ping failed", err)
		s.sendJSON(writer, http.StatusServiceUnavailable, parser.HealthResponse{Status: "unavailable"})
		return
	}
	s.sendJSON(writer, http.StatusOK, parser.HealthResponse{Status: "ok"})
}

func (s *APIServer) ListTables(writer http.ResponseWriter, request *http.Request) {
	tables := s.Schema.Tables()
	resp := parser.TablesResponse{Tables: make([]parser.TableResponse, 0, len(tables))}
	for _, table := range tables {
		resp.Tables = append(resp.Tables, parser.NewTableResponse(table))
	}
	s.sendJSON(writer, http.StatusOK, resp)
}

func (s *APIServer) GetTable(writer http.ResponseWriter, request *http.Request) {
	res, ok := s.tableResource(writer, request)
	if !ok {
		return
	}
	s.sendJSON(writer, http.StatusOK, parser.NewTableResponse(res.table))
}

func (s *APIServer) ListUsers(writer http.ResponseWriter, request *http.Request) {
	if res, ok := s.usersResource(writer); ok {
		s.listRows(writer, request, res)
	}
}

func (s *APIServer) GetUser(writer http.ResponseWriter, request *http.Request) {
	if res, ok := s.usersResource(writer); ok {
		s.getRow(writer, request, res, mux.Vars(request)["identifier"])
	}
}

func (s *APIServer) CreateUser(writer http.ResponseWriter, request *http.Request) {
	if !s.writable(writer) {
		return
	}
	if res, ok := s.usersResource(writer); ok {
		s.createRow(writer, request, res)
	}
}

func (s *APIServer) UpdateUser(writer http.ResponseWriter, request *http.Request) {
	if !s.writable(writer) {
		return
	}
	if res, ok := s.usersResource(writer); ok {
		s.updateRow(writer, request, res, mux.Vars(request)["identifier"])
	}
}

func (s *APIServer) DeleteUser(writer http.ResponseWriter, request *http.Request) {
	if !s.writable(writer) {
		return
	}
	if res, ok := s.usersResource(writer); ok {
		s.deleteRow(writer, request, res, mux.Vars(request)["identifier"])
	}
}

func (s *APIServer) ListRows(writer http.ResponseWriter, request *http.Request) {
	if res, ok := s.tableResource(writer, request); ok {
		s.listRows(writer, request, res)
	}
}

func (s *APIServer) GetRow(writer http.ResponseWriter, request *http.Request) {
	if res, ok := s.keyedTableResource(writer, request); ok {
		s.getRow(writer, request, res, mux.Vars(request)["key"])
	}
}

// CreateRow works on keyless tables too, the inserted values are echoed back.
func (s *APIServer) CreateRow(writer http.ResponseWriter, request *http.Request) {
	if !s.writable(writer) {
		return
	}
	if res, ok := s.tableResource(writer, request); ok {
		s.createRow(writer, request, res)
	}
}

func (s *APIServer) UpdateRow(writer http.ResponseWriter, request *http.Request) {
	if !s.writable(writer) {
		return
	}
	if res, ok := s.keyedTableResource(writer, request); ok {
		s.updateRow(writer, request, res, mux.Vars(request)["key"])
	}
}

func (s *APIServer) DeleteRow(writer http.ResponseWriter, request *http.Request) {
	if !s.writable(writer) {
		return
	}
	if res, ok := s.keyedTableResource(writer, request); ok {
		s.deleteRow(writer, request, res, mux.Vars(request)["key"])
	}
}

func (s *APIServer) listRows(writer http.ResponseWriter, request *http.Request, res resource) {
	ctx := request.Context()
	query, err := parser.ParseListQuery(ctx, request.URL.Query(), res.table, s.config.MaxPageSize)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	rows, err := s.Db.SelectRows(ctx, res.table, query)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	paged := query.Limit > 0 || query.Offset > 0
	total := int64(len(rows))
	if paged {
		if total, err = s.Db.CountRows(ctx, res.table, query.Filters); err != nil {
			s.sendError(writer, request, err, res.label)
			return
		}
	}
	s.sendJSON(writer, http.StatusOK, res.many(rows, total, paged))
}

func (s *APIServer) getRow(writer http.ResponseWriter, request *http.Request, res resource, rawKey string) {
	key, err := parser.ParseKey(rawKey)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	row, err := s.Db.SelectRow(request.Context(), res.table, res.keyColumn, key)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	s.sendJSON(writer, http.StatusOK, res.one(row))
}

func (s *APIServer) createRow(writer http.ResponseWriter, request *http.Request, res resource) {
	s.Logger.Info(fmt.Sprintf("Creating %s row", res.table.Name))
	data, err := s.ReadRequestBody(writer, request)
	if err != nil {
		s.sendReadError(writer, err)
		return
	}
	row, err := parser.ParseRowPayload(request.Context(), data, res.table)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	stored, err := s.Db.InsertRow(request.Context(), res.table, row)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	s.Events.Broadcast(state.NewEvent(state.RowCreated, res.table.Name, stored[res.keyColumn], stored))
	s.sendJSON(writer, http.StatusCreated, res.one(stored))
}

func (s *APIServer) updateRow(writer http.ResponseWriter, request *http.Request, res resource, rawKey string) {
	key, err := parser.ParseKey(rawKey)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	s.Logger.Info(fmt.Sprintf("Updating %s row %s", res.table.Name, key))
	data, err := s.ReadRequestBody(writer, request)
	if err != nil {
		s.sendReadError(writer, err)
		return
	}
	changes, err := parser.ParseRowPayload(request.Context(), data, res.table)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	updated, err := s.Db.UpdateRow(request.Context(), res.table, res.keyColumn, key, changes)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	s.Events.Broadcast(state.NewEvent(state.RowUpdated, res.table.Name, key, updated))
	s.sendJSON(writer, http.StatusOK, res.one(updated))
}

func (s *APIServer) deleteRow(writer http.ResponseWriter, request *http.Request, res resource, rawKey string) {
	key, err := parser.ParseKey(rawKey)
	if err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	s.Logger.Info(fmt.Sprintf("Deleting %s row %s", res.table.Name, key))
	if err := s.Db.DeleteRow(request.Context(), res.table, res.keyColumn, key); err != nil {
		s.sendError(writer, request, err, res.label)
		return
	}
	s.Events.Broadcast(state.NewEvent(state.RowDeleted, res.table.Name, key, nil))
	s.sendResponse(writer, nil, http.StatusNoContent)
}

// HandleSubscribe upgrades to a websocket that receives an event for every
// write made through the API. Incoming messages are discarded.
func (s *APIServer) HandleSubscribe(writer http.ResponseWriter, request *http.Request) {
	conn, err := s.wssUpgrader.Upgrade(writer, request, nil)
	if err != nil {
		s.Logger.Error("Failed to upgrade to WS connection", err)
		return
	}
	id := s.Events.Add(conn)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.Events.Remove(id)
			return
		}
	}
}
