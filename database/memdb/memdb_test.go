package memdb

import "testing"

func TestPutGetHasDelete(t *testing.T) {
	db := New()
	bucket := []byte("blocks")
	key := []byte("k1")
	value := []byte("v1")

	if has, _ := db.Has(bucket, key); has {
		t.Fatalf("expected key to be absent before Put")
	}

	if err := db.Put(bucket, key, value); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := db.Get(bucket, key)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatalf("expected key to be found after Put")
	}
	if string(got) != string(value) {
		t.Fatalf("Get = %q, want %q", got, value)
	}

	if err := db.Delete(bucket, key); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if has, _ := db.Has(bucket, key); has {
		t.Fatalf("expected key to be absent after Delete")
	}
}

func TestTransactionCommitPersists(t *testing.T) {
	db := New()
	bucket := []byte("blocks")

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Put(bucket, []byte("k"), []byte("v")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	_, found, err := db.Get(bucket, []byte("k"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatalf("expected committed write to be visible on the database")
	}

	if err := tx.Commit(); err == nil {
		t.Fatalf("expected second Commit on a closed transaction to fail")
	}
}

func TestRollbackUnlessClosedIsIdempotentAfterCommit(t *testing.T) {
	db := New()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := tx.RollbackUnlessClosed(); err != nil {
		t.Fatalf("RollbackUnlessClosed after Commit should be a no-op, got: %v", err)
	}
}

func TestCursorIteratesInKeyOrder(t *testing.T) {
	db := New()
	bucket := []byte("heights")
	keys := []string{"b", "a", "c"}
	for _, k := range keys {
		if err := db.Put(bucket, []byte(k), []byte("v-"+k)); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	cur, err := db.Cursor(bucket)
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}
	defer cur.Close()

	var got []string
	for ok := cur.First(); ok; ok = cur.Next() {
		got = append(got, string(cur.Key()))
	}

	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestCursorSeek(t *testing.T) {
	db := New()
	bucket := []byte("heights")
	for _, k := range []string{"a", "c", "e"} {
		db.Put(bucket, []byte(k), []byte("v"))
	}

	cur, err := db.Cursor(bucket)
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}
	defer cur.Close()

	if ok := cur.Seek([]byte("b")); !ok {
		t.Fatalf("expected Seek(b) to land on c")
	}
	if string(cur.Key()) != "c" {
		t.Fatalf("Seek(b) landed on %q, want c", cur.Key())
	}

	if ok := cur.Seek([]byte("z")); ok {
		t.Fatalf("expected Seek(z) to find nothing past the end")
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	db := New()
	if err := db.Put([]byte("a"), []byte("k"), []byte("va")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := db.Put([]byte("b"), []byte("k"), []byte("vb")); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, _, _ := db.Get([]byte("a"), []byte("k"))
	if string(got) != "va" {
		t.Fatalf("bucket a leaked into bucket b: got %q", got)
	}
}
