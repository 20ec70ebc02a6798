package importer

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/qpenko/database-importer/internal/dialect"
)

func newMock(t *testing.T) (*sql.Conn, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("pin conn: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn, mock
}

func expectMetadata(mock sqlmock.Sqlmock, pkMarker, schema string) {
	mock.ExpectQuery(pkMarker).
		WithArgs(schema, "groceries").
		WillReturnRows(sqlmock.NewRows([]string{"column_name"}).AddRow("id"))
	cols := sqlmock.NewRows([]string{"column_name"})
	for _, c := range groceriesColumns {
		cols.AddRow(c)
	}
	mock.ExpectQuery(`from information_schema\.columns`).
		WithArgs(schema, "groceries").
		WillReturnRows(cols)
}

// Three rows carry a key, one does not.
func mockData(t *testing.T) [][]any {
	t.Helper()
	return [][]any{
		{"ID000001", "Apple", int64(15), 20.0},
		{"ID000002", "Pear", int64(14), 19.0},
		{nil, "Plum", int64(1), 1.0},
		{"ID000004", "Lemon", int64(16), 17.0},
	}
}

func TestRunMSSQLStatements(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	expectMetadata(mock, `from information_schema\.key_column_usage`, "dbo")

	mock.ExpectExec(regexp.QuoteMeta("if object_id('tempdb.dbo.#dbimport') is not null drop table #dbimport")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("select top 0 [id], [item], [quantity], [price] into #dbimport from [dbo].[groceries] union all select top 0 [id], [item], [quantity], [price] from [dbo].[groceries]")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectBegin()
	bulk := mock.ExpectPrepare("INSERTBULK")
	bulk.ExpectExec().WithArgs("ID000001", "Apple", int64(15), 20.0).WillReturnResult(sqlmock.NewResult(0, 0))
	bulk.ExpectExec().WithArgs("ID000002", "Pear", int64(14), 19.0).WillReturnResult(sqlmock.NewResult(0, 0))
	bulk.ExpectExec().WithArgs("ID000004", "Lemon", int64(16), 17.0).WillReturnResult(sqlmock.NewResult(0, 0))
	bulk.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("update a\nset a.[item] = b.[item], a.[quantity] = b.[quantity], a.[price] = b.[price]\n" +
		"from [dbo].[groceries] as a\ninner join #dbimport as b\non a.[id] = b.[id]")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	mock.ExpectExec(regexp.QuoteMeta("drop table #dbimport")).WillReturnResult(sqlmock.NewResult(0, 0))

	data := mustTable(t, groceriesColumns, mockData(t)...)
	imp, err := New(context.Background(), conn, data, Options{Table: "groceries", Dialect: dialect.MSSQL})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if imp.Schema() != "dbo" {
		t.Fatalf("Schema = %q, want dbo", imp.Schema())
	}
	if err := imp.Run(context.Background(), true, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := imp.RowCountUpdated(); got != 3 {
		t.Fatalf("RowCountUpdated = %d, want 3", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunPostgresStatements(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	expectMetadata(mock, `constraint_type = 'PRIMARY KEY'`, "public")

	mock.ExpectExec(regexp.QuoteMeta("drop table if exists pg_temp.dbimport")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`create temp table dbimport as` + "\n" + `select "id", "price" from "public"."groceries" limit 0`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// Not a pgx session, so batches go through prepared inserts, two rows
	// per commit.
	insert := regexp.QuoteMeta(`insert into dbimport ("id", "price") values ($1, $2)`)
	mock.ExpectBegin()
	p1 := mock.ExpectPrepare(insert)
	p1.ExpectExec().WithArgs("ID000001", 20.0).WillReturnResult(sqlmock.NewResult(0, 1))
	p1.ExpectExec().WithArgs("ID000002", 19.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectBegin()
	p2 := mock.ExpectPrepare(insert)
	p2.ExpectExec().WithArgs("ID000004", 17.0).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("update \"public\".\"groceries\" as a\nset \"price\" = b.\"price\"\nfrom dbimport as b\nwhere a.\"id\" = b.\"id\"")).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	mock.ExpectExec(regexp.QuoteMeta("drop table if exists pg_temp.dbimport")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	data := mustTable(t, groceriesColumns, mockData(t)...)
	imp, err := New(context.Background(), conn, data, Options{
		Table:     "groceries",
		Dialect:   dialect.Postgres,
		Subset:    []string{"price"},
		BatchSize: 2,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := imp.Run(context.Background(), true, false); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := imp.RowCountUpdated(); got != 3 {
		t.Fatalf("RowCountUpdated = %d, want 3", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRunWrapsDatabaseErrors(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	expectMetadata(mock, `constraint_type = 'PRIMARY KEY'`, "sales")

	dbErr := errors.New("relation \"sales.groceries\" is locked")
	mock.ExpectExec("drop table if exists").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("create temp table").WillReturnError(dbErr)

	data := mustTable(t, groceriesColumns, mockData(t)...)
	imp, err := New(context.Background(), conn, data, Options{Table: "groceries", Schema: "sales", Dialect: dialect.Postgres})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	err = imp.Run(context.Background(), true, false)
	if !errors.Is(err, dbErr) {
		t.Fatalf("Run err = %v, want wrapped %v", err, dbErr)
	}
	if want := "importer: stage: " + dbErr.Error(); err.Error() != want {
		t.Fatalf("Run err = %q, want %q", err.Error(), want)
	}
	if imp.RowCountUpdated() != -1 {
		t.Fatalf("RowCountUpdated = %d, want -1", imp.RowCountUpdated())
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestNewMetadataError(t *testing.T) {
	t.Parallel()
	conn, mock := newMock(t)

	mock.ExpectQuery("key_column_usage").WillReturnError(errors.New("login failed"))

	data := mustTable(t, groceriesColumns, mockData(t)...)
	_, err := New(context.Background(), conn, data, Options{Table: "groceries"})
	if err == nil || err.Error() != "importer: primary key of dbo.groceries: login failed" {
		t.Fatalf("New err = %v", err)
	}
}
