package sessiontokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const (
	upsertQ = `(?s)^\s*INSERT\s+INTO\s+session_tokens\s*\(user_id,\s*purpose,\s*token,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s*\(user_id,\s*purpose\)\s*DO\s+UPDATE\s+SET\s+token\s*=\s*EXCLUDED\.token,\s*expires_at\s*=\s*EXCLUDED\.expires_at\s*RETURNING\s+id\s*$`
	findQ   = `(?s)^\s*SELECT\s+id,\s*user_id,\s*purpose,\s*token,\s*expires_at\s+FROM\s+session_tokens\s+WHERE\s+token\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s*$`
	deleteQ = `(?s)^\s*DELETE\s+FROM\s+session_tokens\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+purpose\s*=\s*\$2\s*$`
	purgeQ  = `^DELETE\s+FROM\s+session_tokens\s+WHERE\s+id\s*=\s*\$1$`
)

var tokenCols = []string{"id", "user_id", "purpose", "token", "expires_at"}

func TestUpsert_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(time.Hour)
	mock.ExpectQuery(upsertQ).
		WithArgs("u1", "refresh", "tok123", expires).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	tok := &models.SessionToken{UserID: "u1", Purpose: models.PurposeRefresh, Token: "tok123", ExpiresAt: expires}
	if err := repo.Upsert(context.Background(), tok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tok.ID != 7 {
		t.Fatalf("expected id 7, got %d", tok.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpsert_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(upsertQ).WillReturnError(errors.New("db down"))

	err := repo.Upsert(context.Background(), &models.SessionToken{UserID: "u1", Purpose: models.PurposeReset, Token: "t"})
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByToken_Live(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(10 * time.Minute)
	mock.ExpectQuery(findQ).
		WithArgs("tok123", "refresh").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), "u1", "refresh", "tok123", expires))

	got, err := repo.FindByToken(context.Background(), models.PurposeRefresh, "tok123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.UserID != "u1" || got.Purpose != models.PurposeRefresh || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected row: %+v", got)
	}
}

func TestFindByToken_ExpiredIsDeleted(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectQuery(findQ).
		WithArgs("tok123", "reset").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(3), "u1", "reset", "tok123", now.Add(-time.Second)))
	mock.ExpectExec(purgeQ).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := repo.FindByToken(context.Background(), models.PurposeReset, "tok123")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFindByToken_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(findQ).WithArgs("nope", "refresh").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByToken(context.Background(), models.PurposeRefresh, "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDeleteByUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(deleteQ).WithArgs("u1", "refresh").WillReturnResult(sqlmock.NewResult(0, 0))
	if err := repo.DeleteByUser(context.Background(), "u1", models.PurposeRefresh); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mock.ExpectExec(deleteQ).WithArgs("u1", "reset").WillReturnError(errors.New("db down"))
	err := repo.DeleteByUser(context.Background(), "u1", models.PurposeReset)
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}
