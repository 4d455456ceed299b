package db

import "testing"

func TestEnsureSchemaIdempotent(t *testing.T) {
	d := NewTestDB(t)

	if err := EnsureSchema(d); err != nil {
		t.Fatalf("second EnsureSchema: %v", err)
	}

	if _, err := d.Exec(`INSERT INTO kv (key, value) VALUES ('a', 'b')`); err != nil {
		t.Fatalf("insert: %v", err)
	}

	var n int
	if err := d.QueryRow(`SELECT COUNT(*) FROM kv`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
