package files

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/geocrypt/internal/common"
	"github.com/dmitrijs2005/geocrypt/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQ = `(?s)^\s*INSERT\s+INTO\s+files\s*\(user_id,\s*storage_key,\s*display_name,\s*mime_type,\s*size,\s*geohash\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*RETURNING\s+id,\s*created_at\s*$`

const selectByIDQ = `(?s)^SELECT\s+id,\s*user_id,\s*storage_key,\s*display_name,\s*mime_type,\s*size,\s*geohash,\s*created_at\s+FROM\s+files\s+WHERE\s+id\s*=\s*\$1$`

const listQ = `(?s)^SELECT\s+.+\s+FROM\s+files\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+created_at\s+DESC$`

const deleteQ = `^DELETE\s+FROM\s+files\s+WHERE\s+id\s*=\s*\$1$`

var fileCols = []string{"id", "user_id", "storage_key", "display_name", "mime_type", "size", "geohash", "created_at"}

func strPtr(s string) *string { return &s }

func TestCreate_WithGeohash(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(insertQ).
		WithArgs("u1", "users/u1/k", "a.pdf", "application/pdf", int64(10), sql.NullString{String: "u4pruyd", Valid: true}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("f1", now))

	got, err := repo.Create(context.Background(), &models.File{
		UserID: "u1", StorageKey: "users/u1/k", DisplayName: "a.pdf", MimeType: "application/pdf", Size: 10, Geohash: strPtr("u4pruyd"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "f1" || !got.CreatedAt.Equal(now) {
		t.Fatalf("unexpected file: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_WithoutGeohashStoresNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).
		WithArgs("u1", "k", "a", "text/plain", int64(0), sql.NullString{}).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("f1", time.Now()))

	if _, err := repo.Create(context.Background(), &models.File{UserID: "u1", StorageKey: "k", DisplayName: "a", MimeType: "text/plain"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_Errors(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQ).WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	f := &models.File{UserID: "u1", StorageKey: "k"}
	if _, err := repo.Create(context.Background(), f); !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("want common.ErrAlreadyExists, got %v", err)
	}
	if _, err := repo.Create(context.Background(), f); err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(selectByIDQ).WithArgs("f1").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("f1", "u1", "k1", "a.pdf", "application/pdf", int64(3), "u4pruyd", now))
	mock.ExpectQuery(selectByIDQ).WithArgs("f2").
		WillReturnRows(sqlmock.NewRows(fileCols).AddRow("f2", "u1", "k2", "b.pdf", "application/pdf", int64(3), nil, now))
	mock.ExpectQuery(selectByIDQ).WithArgs("missing").WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery(selectByIDQ).WithArgs("boom").WillReturnError(errors.New("conn reset"))

	f, err := repo.GetByID(context.Background(), "f1")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if f.Geohash == nil || *f.Geohash != "u4pruyd" || f.StorageKey != "k1" || f.Size != 3 {
		t.Fatalf("unexpected file: %+v", f)
	}

	f, err = repo.GetByID(context.Background(), "f2")
	if err != nil {
		t.Fatalf("GetByID error: %v", err)
	}
	if f.Geohash != nil {
		t.Fatalf("expected nil geohash, got %q", *f.Geohash)
	}

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "boom"); err == nil || errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected db error, got %v", err)
	}
}

func TestListByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(listQ).WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(fileCols).
			AddRow("f2", "u1", "k2", "b", "text/plain", int64(1), nil, now).
			AddRow("f1", "u1", "k1", "a", "text/plain", int64(2), "gh", now.Add(-time.Hour)))

	got, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "f2" || got[1].ID != "f1" {
		t.Fatalf("unexpected list: %+v", got)
	}
}

func TestListByUser_EmptyIsNotNil(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs("u1").WillReturnRows(sqlmock.NewRows(fileCols))

	got, err := repo.ListByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestListByUser_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(listQ).WithArgs("u1").WillReturnError(errors.New("db err"))

	if _, err := repo.ListByUser(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestGetByID_MalformedIDIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByIDQ).WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: `invalid input syntax for type uuid: "abc"`})

	if _, err := repo.GetByID(context.Background(), "abc"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete_MalformedIDIsNotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("abc").WillReturnError(&pgconn.PgError{Code: "22P02"})

	if err := repo.Delete(context.Background(), "abc"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("f1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(deleteQ).WithArgs("f2").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(deleteQ).WithArgs("f3").WillReturnError(errors.New("db err"))

	if err := repo.Delete(context.Background(), "f1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if err := repo.Delete(context.Background(), "f2"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := repo.Delete(context.Background(), "f3"); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
