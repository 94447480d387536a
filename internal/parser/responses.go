package parser

import "github.com/fivemdb/fivemdb/internal/db"

type UsersResponse struct {
	Users []db.Row `json:"users"`
	Total *int64   `json:"total,omitempty"`
}

type UserResponse struct {
	User db.Row `json:"user"`
}

type RowsResponse struct {
	Rows  []db.Row `json:"rows"`
	Total int64    `json:"total"`
}

type RowResponse struct {
	Row db.Row `json:"row"`
}

type TableResponse struct {
	Name       string   `json:"name"`
	PrimaryKey *string  `json:"primary_key"`
	Columns    []string `json:"columns"`
}

type TablesResponse struct {
	Tables []TableResponse `json:"tables"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Detail string       `json:"detail"`
	Errors []FieldError `json:"errors,omitempty"`
}

func NewTableResponse(table *db.Table) TableResponse {
	resp := TableResponse{Name: table.Name, Columns: table.Columns}
	if table.PrimaryKey != "" {
		primaryKey := table.PrimaryKey
		resp.PrimaryKey = &primaryKey
	}
	return resp
}
