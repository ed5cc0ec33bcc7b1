// internal/store/sqlkv_test.go
//
// Unit-tests for SQLKV using sqlmock.
//
// Run: go test ./internal/store -v

package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockKV(t *testing.T) (*SQLKV, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSQLKV(sqlx.NewDb(db, "sqlmock")), mock
}

func TestSQLKVGet(t *testing.T) {
	kv, mock := newMockKV(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT v FROM kv WHERE k = ?`)).
		WithArgs("form_abc").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(`{"title":"T"}`))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT v FROM kv WHERE k = ?`)).
		WithArgs("form_none").
		WillReturnRows(sqlmock.NewRows([]string{"v"}))

	v, ok, err := kv.Get(context.Background(), "form_abc")
	if err != nil || !ok || v != `{"title":"T"}` {
		t.Fatalf("Get = %q, %v, %v", v, ok, err)
	}
	_, ok, err = kv.Get(context.Background(), "form_none")
	if err != nil || ok {
		t.Fatalf("missing key: ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLKVSetRemove(t *testing.T) {
	kv, mock := newMockKV(t)

	mock.ExpectExec(regexp.QuoteMeta(`REPLACE INTO kv (k, v) VALUES (?, ?)`)).
		WithArgs("form_closed_abc", "1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM kv WHERE k = ?`)).
		WithArgs("form_closed_abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := kv.Set(context.Background(), "form_closed_abc", "1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := kv.Remove(context.Background(), "form_closed_abc"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestSQLKVPrefixScan(t *testing.T) {
	kv, mock := newMockKV(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT k FROM kv WHERE SUBSTR(k, 1, ?) = ? ORDER BY k`)).
		WithArgs(int64(5), "form_").
		WillReturnRows(sqlmock.NewRows([]string{"k"}).AddRow("form_a").AddRow("form_closed_a"))

	keys, err := kv.KeysWithPrefix(context.Background(), "form_")
	if err != nil {
		t.Fatalf("KeysWithPrefix: %v", err)
	}
	if len(keys) != 2 || keys[0] != "form_a" {
		t.Fatalf("keys = %v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}

func TestRepositoryOverSQL(t *testing.T) {
	kv, mock := newMockKV(t)
	repo := NewRepository(kv, 4)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT v FROM kv WHERE k = ?`)).
		WithArgs("form_zz").
		WillReturnRows(sqlmock.NewRows([]string{"v"}).AddRow(`{"title":"Z","steps":[{"stepName":"Step 1","fields":[]}],"creator":""}`))

	f, err := repo.LoadForm(context.Background(), "zz")
	if err != nil || f.Title != "Z" || f.ID != "zz" {
		t.Fatalf("LoadForm = %+v, %v", f, err)
	}
	// Second load is served from the cache: no further query expected.
	if _, err := repo.LoadForm(context.Background(), "zz"); err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet SQL expectations: %v", err)
	}
}
