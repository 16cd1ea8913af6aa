package pg

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"agora.events/internal/identity"
)

func TestUserCacheFindByTokenHit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	user := &identity.UserRecord{ID: 7, Circles: []identity.Circle{}, Special: []string{"press"}}
	userData, _ := json.Marshal(user)
	cachedAt := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectQuery(`select token, foreign_id, user_data, cached_at from user_cache`).
		WithArgs("tok-1").
		WillReturnRows(sqlmock.NewRows([]string{"token", "foreign_id", "user_data", "cached_at"}).
			AddRow("tok-1", int64(7), userData, cachedAt))

	cache := NewUserCache(db)
	entry, err := cache.FindByToken(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if entry.ForeignID != 7 || entry.User.ID != 7 {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.User.Special) != 1 || entry.User.Special[0] != "press" {
		t.Fatalf("user blob not restored: %+v", entry.User)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserCacheFindByTokenMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`select token, foreign_id, user_data, cached_at from user_cache`).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"token", "foreign_id", "user_data", "cached_at"}))

	cache := NewUserCache(db)
	_, err = cache.FindByToken(context.Background(), "unknown")
	if !errors.Is(err, identity.ErrNotFound) {
		t.Fatalf("expected identity.ErrNotFound, got %v", err)
	}
}

func TestUserCacheReplaceByForeignID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`delete from user_cache where foreign_id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`insert into user_cache`).
		WithArgs("tok-2", int64(7), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	cache := NewUserCache(db)
	err = cache.ReplaceByForeignID(context.Background(), 7, &identity.CachedIdentity{
		Token:     "tok-2",
		ForeignID: 7,
		User:      &identity.UserRecord{ID: 7},
		CachedAt:  time.Now(),
	})
	if err != nil {
		t.Fatalf("ReplaceByForeignID: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUserCacheReplaceRollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`delete from user_cache where foreign_id`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`insert into user_cache`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	cache := NewUserCache(db)
	err = cache.ReplaceByForeignID(context.Background(), 7, &identity.CachedIdentity{
		Token: "tok",
		User:  &identity.UserRecord{ID: 7},
	})
	if err == nil {
		t.Fatal("expected insert failure to propagate")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
