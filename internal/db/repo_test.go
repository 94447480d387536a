package db

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var testSchema = `CREATE TABLE users (
  identifier varchar(60) PRIMARY KEY,
  firstname varchar(16),
  lastname varchar(16),
  job varchar(20) DEFAULT 'unemployed' NOT NULL,
  accounts longtext
);

CREATE TABLE owned_vehicles (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  owner varchar(60) NOT NULL REFERENCES users(identifier),
  plate varchar(12) NOT NULL UNIQUE,
  stored boolean DEFAULT 1 NOT NULL
);

CREATE TABLE job_grades (
  job_name varchar(50) NOT NULL,
  grade int NOT NULL,
  salary int NOT NULL,
  PRIMARY KEY (job_name, grade)
);`

type SqlStoreTestSuite struct {
	suite.Suite
	store *SqlStore
	ctx   context.Context
}

func TestSqlStoreSuite(t *testing.T) {
	suite.Run(t, new(SqlStoreTestSuite))
}

func (suite *SqlStoreTestSuite) SetupTest() {
	suite.ctx = context.Background()
	path := filepath.Join(suite.T().TempDir(), "fivem.db")
	seed, err := sqlx.Connect("sqlite3", path)
	suite.Require().NoError(err, "Failed to create seed database")
	seed.MustExec(testSchema)
	seed.MustExec(`INSERT INTO users(identifier, firstname, lastname, job) VALUES
  ('license:aaa', 'John', 'Doe', 'police'),
  ('license:bbb', 'Jane', 'Roe', 'ambulance'),
  ('license:ccc', 'Max', 'Payne', 'police');`)
	suite.Require().NoError(seed.Close())

	suite.store, err = SetupDB(suite.ctx, "sqlite:///"+path)
	suite.Require().NoError(err, "Failed to set up store")
}

func (suite *SqlStoreTestSuite) TearDownTest() {
	suite.store.CloseConnection()
}

func (suite *SqlStoreTestSuite) users() *Table {
	table, exists := suite.store.Schema.Table("users")
	suite.Require().True(exists, "users table was not reflected")
	return table
}

func (suite *SqlStoreTestSuite) TestReflectedTables() {
	names := []string{}
	for _, table := range suite.store.Schema.Tables() {
		names = append(names, table.Name)
	}
	suite.Equal([]string{"job_grades", "owned_vehicles", "users"}, names)

	users := suite.users()
	suite.Equal("identifier", users.PrimaryKey)
	suite.Equal([]string{"identifier", "firstname", "lastname", "job", "accounts"}, users.Columns)
	suite.True(users.HasColumn("job"))
	suite.False(users.HasColumn("password"))

	vehicles, _ := suite.store.Schema.Table("owned_vehicles")
	suite.Equal("id", vehicles.PrimaryKey)
	grades, _ := suite.store.Schema.Table("job_grades")
	suite.Empty(grades.PrimaryKey, "Composite keys must not be treated as a row key")
}

func (suite *SqlStoreTestSuite) TestRestrict() {
	restricted, err := suite.store.Schema.Restrict([]string{"users"})
	suite.Require().NoError(err)
	suite.Len(restricted.Tables(), 1)
	_, err = suite.store.Schema.Restrict([]string{"users", "bans"})
	suite.Error(err)
	all, err := suite.store.Schema.Restrict(nil)
	suite.Require().NoError(err)
	suite.Len(all.Tables(), 3)
}

func (suite *SqlStoreTestSuite) TestSelectRows() {
	tests := []struct {
		description string
		query       RowQuery
		expected    []string
	}{
		{"Test without query ordered by key", RowQuery{}, []string{"license:aaa", "license:bbb", "license:ccc"}},
		{"Test with filter", RowQuery{Filters: map[string]any{"job": "police"}}, []string{"license:aaa", "license:ccc"}},
		{"Test with limit", RowQuery{Limit: 2}, []string{"license:aaa", "license:bbb"}},
		{"Test with offset only", RowQuery{Offset: 1}, []string{"license:bbb", "license:ccc"}},
		{"Test with descending order", RowQuery{OrderBy: "firstname", Desc: true}, []string{"license:ccc", "license:aaa", "license:bbb"}},
		{"Test with null filter", RowQuery{Filters: map[string]any{"accounts": nil}, Limit: 1, Offset: 2}, []string{"license:ccc"}},
		{"Test with no match", RowQuery{Filters: map[string]any{"job": "mechanic"}}, []string{}},
	}
	for _, tc := range tests {
		suite.Run(tc.description, func() {
			rows, err := suite.store.SelectRows(suite.ctx, suite.users(), tc.query)
			suite.Require().NoError(err)
			identifiers := []string{}
			for _, row := range rows {
				identifiers = append(identifiers, row["identifier"].(string))
			}
			suite.Equal(tc.expected, identifiers)
		})
	}
}

func (suite *SqlStoreTestSuite) TestCountRows() {
	count, err := suite.store.CountRows(suite.ctx, suite.users(), nil)
	suite.Require().NoError(err)
	suite.EqualValues(3, count)
	count, err = suite.store.CountRows(suite.ctx, suite.users(), map[string]any{"job": "police"})
	suite.Require().NoError(err)
	suite.EqualValues(2, count)
}

func (suite *SqlStoreTestSuite) TestSelectRow() {
	row, err := suite.store.SelectRow(suite.ctx, suite.users(), "identifier", "license:bbb")
	suite.Require().NoError(err)
	suite.Equal("Jane", row["firstname"])
	suite.Nil(row["accounts"])

	_, err = suite.store.SelectRow(suite.ctx, suite.users(), "identifier", "license:zzz")
	suite.ErrorIs(err, ErrRowNotFound)
}

func (suite *SqlStoreTestSuite) TestInsertRow() {
	row, err := suite.store.InsertRow(suite.ctx, suite.users(), Row{
		"identifier": "license:ddd",
		"firstname":  "Niko",
		"accounts":   `{"bank":5000,"money":200}`,
	})
	suite.Require().NoError(err)
	suite.Equal("license:ddd", row["identifier"])
	suite.Equal("unemployed", row["job"], "Stored row should carry column defaults")
	suite.Equal(`{"bank":5000,"money":200}`, row["accounts"])

	_, err = suite.store.InsertRow(suite.ctx, suite.users(), Row{"identifier": "license:aaa"})
	suite.ErrorIs(err, ErrDuplicateRow)
}

func (suite *SqlStoreTestSuite) TestInsertRowWithGeneratedKey() {
	vehicles, _ := suite.store.Schema.Table("owned_vehicles")
	row, err := suite.store.InsertRow(suite.ctx, vehicles, Row{"owner": "license:aaa", "plate": "FIVE 001"})
	suite.Require().NoError(err)
	suite.EqualValues(1, row["id"])
	suite.Equal(true, row["stored"], "sqlite reports boolean columns as bool")

	_, err = suite.store.InsertRow(suite.ctx, vehicles, Row{"owner": "license:bbb", "plate": "FIVE 001"})
	suite.ErrorIs(err, ErrDuplicateRow)

	_, err = suite.store.InsertRow(suite.ctx, vehicles, Row{"plate": "FIVE 002"})
	suite.ErrorIs(err, ErrConstraint)
}

func (suite *SqlStoreTestSuite) TestInsertRowWithoutKey() {
	grades, _ := suite.store.Schema.Table("job_grades")
	input := Row{"job_name": "police", "grade": int64(0), "salary": int64(200)}
	row, err := suite.store.InsertRow(suite.ctx, grades, input)
	suite.Require().NoError(err)
	suite.Equal(input, row)
	count, err := suite.store.CountRows(suite.ctx, grades, nil)
	suite.Require().NoError(err)
	suite.EqualValues(1, count)
}

func (suite *SqlStoreTestSuite) TestUpdateRow() {
	row, err := suite.store.UpdateRow(suite.ctx, suite.users(), "identifier", "license:aaa", Row{"job": "mechanic"})
	suite.Require().NoError(err)
	suite.Equal("mechanic", row["job"])
	suite.Equal("John", row["firstname"])

	row, err = suite.store.UpdateRow(suite.ctx, suite.users(), "identifier", "license:aaa", Row{"job": "mechanic"})
	suite.Require().NoError(err, "Updating a row to identical values must still find it")
	suite.Equal("mechanic", row["job"])

	row, err = suite.store.UpdateRow(suite.ctx, suite.users(), "identifier", "license:aaa", Row{"identifier": "license:abc"})
	suite.Require().NoError(err)
	suite.Equal("license:abc", row["identifier"])
	_, err = suite.store.SelectRow(suite.ctx, suite.users(), "identifier", "license:aaa")
	suite.ErrorIs(err, ErrRowNotFound)

	_, err = suite.store.UpdateRow(suite.ctx, suite.users(), "identifier", "license:zzz", Row{"job": "police"})
	suite.ErrorIs(err, ErrRowNotFound)

	_, err = suite.store.UpdateRow(suite.ctx, suite.users(), "identifier", "license:bbb", Row{"identifier": "license:ccc"})
	suite.ErrorIs(err, ErrDuplicateRow)
}

func (suite *SqlStoreTestSuite) TestDeleteRow() {
	err := suite.store.DeleteRow(suite.ctx, suite.users(), "identifier", "license:ccc")
	suite.Require().NoError(err)
	_, err = suite.store.SelectRow(suite.ctx, suite.users(), "identifier", "license:ccc")
	suite.ErrorIs(err, ErrRowNotFound)

	err = suite.store.DeleteRow(suite.ctx, suite.users(), "identifier", "license:ccc")
	suite.ErrorIs(err, ErrRowNotFound)
}

func (suite *SqlStoreTestSuite) TestPing() {
	suite.NoError(suite.store.Ping(suite.ctx))
}

func (suite *SqlStoreTestSuite) TestRollbackKeepsCause() {
	txn, err := suite.store.Conn.Beginx()
	suite.Require().NoError(err)
	suite.Require().NoError(txn.Rollback())
	// a second rollback fails with sql.ErrTxDone
	err = suite.store.rollback(txn, "InsertRow", ErrDuplicateRow)
	suite.ErrorIs(err, ErrDuplicateRow)
}

func TestSetupDBInMemory(t *testing.T) {
	store, err := SetupDB(context.Background(), "sqlite://:memory:")
	require.NoError(t, err)
	defer store.CloseConnection()
	store.Conn.MustExec(`CREATE TABLE bans (license varchar(60) PRIMARY KEY, reason text);`)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rows, err := store.Conn.QueryxContext(context.Background(), "SELECT * FROM bans;")
			if err != nil {
				errs <- err
				return
			}
			errs <- rows.Close()
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}

func TestSetupDBInvalidURL(t *testing.T) {
	_, err := SetupDB(context.Background(), "postgresql://localhost/esx")
	if err == nil {
		t.Fatal("expected an error for an unsupported database url")
	}
}
