package db

import (
	"context"
	"testing"
)

type user struct {
	ID   int64  `db:"id"`
	Name string `db:"name"`
	Age  int64  `db:"age"`
}

func TestSelect(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	batch := [][]any{
		{1, "Alice", 30},
		{2, "Bob", 25},
	}
	if err := cur.ExecuteMany("INSERT INTO users VALUES (?, ?, ?)", batch); err != nil {
		t.Fatalf("ExecuteMany: %v", err)
	}

	// Reads through the pending transaction.
	users, err := Select[user](context.Background(), conn, "SELECT id, name, age FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("Expected 2 users, got %d", len(users))
	}
	if users[0].Name != "Alice" || users[1].Age != 25 {
		t.Errorf("Unexpected users: %+v", users)
	}
}

func TestSelectParamMismatch(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	_ = setupUsers(t, conn)

	_, err := Select[user](context.Background(), conn, "SELECT * FROM users WHERE id = ?")
	if err == nil {
		t.Fatal("Expected parameter count error")
	}
}
