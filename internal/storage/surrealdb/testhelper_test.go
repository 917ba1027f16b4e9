package surrealdb

import (
	"context"
	"testing"

	"github.com/bobmcallan/fleece/internal/common"
	tcommon "github.com/bobmcallan/fleece/tests/common"
	surreal "github.com/surrealdb/surrealdb.go"
)

// testDB starts the shared SurrealDB container and returns a connected *surreal.DB
// using a unique database name per test to ensure isolation.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(sc.Address())
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": tcommon.SurrealUser,
		"pass": tcommon.SurrealPassword,
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	if err := db.Use(ctx, tcommon.SurrealNamespace, sc.DatabaseName(t)); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	return db
}

// testManager returns a Manager with its tables defined on a fresh database.
func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := newManagerFromDB(context.Background(), testDB(t), testLogger())
	if err != nil {
		t.Fatalf("init manager: %v", err)
	}
	return m
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
