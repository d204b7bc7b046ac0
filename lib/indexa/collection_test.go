package indexa

import (
	"reflect"
	"testing"
	"time"

	"github.com/UndeffinedDev/Indexa/lib/engine"
)

func TestCollectionRoundTrip(t *testing.T) {
	d := newTestDB(t)
	users := NewCollection[user](d, "users")

	key, err := users.Add(user{Name: "Alice"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	got, found, err := users.Get(key)
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got != (user{ID: 1, Name: "Alice"}) {
		t.Errorf("Get = %+v, want {1 Alice}", got)
	}

	all, err := users.GetAll()
	if err != nil {
		t.Fatalf("GetAll failed: %v", err)
	}
	if !reflect.DeepEqual(all, []user{{ID: 1, Name: "Alice"}}) {
		t.Errorf("GetAll = %+v", all)
	}
}

func TestCollectionBulkAndIterate(t *testing.T) {
	d := newTestDB(t)
	users := NewCollection[user](d, "users")

	results, err := users.BulkAdd([]user{{Name: "A"}, {Name: "B"}, {Name: "C"}})
	if err != nil {
		t.Fatalf("BulkAdd failed: %v", err)
	}
	for i, res := range results {
		if res.Err != nil {
			t.Errorf("item %d failed: %v", i, res.Err)
		}
	}

	var names []string
	err = users.Iterate(func(key engine.Key, u user) error {
		names = append(names, u.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"A", "B", "C"}) {
		t.Errorf("Iterate visited %v, want [A B C]", names)
	}

	n, err := users.Count()
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Count = %d, want 3", n)
	}
}

func TestCollectionGetByIndex(t *testing.T) {
	d := newTestDB(t)
	people := NewCollection[person](d, "people")

	for _, p := range []person{{Name: "Alice", Age: 30}, {Name: "Bob", Age: 25}} {
		if _, err := people.Add(p); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	got, err := people.GetByIndex("byAge", engine.Only(engine.UintKey(30)))
	if err != nil {
		t.Fatalf("GetByIndex failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Alice" {
		t.Errorf("GetByIndex = %+v, want [Alice]", got)
	}
}

func TestCollectionSubscribeDecodesSnapshots(t *testing.T) {
	d := newTestDB(t)
	users := NewCollection[user](d, "users")

	ch := make(chan []user, 8)
	sub, err := users.Subscribe(func(values []user) { ch <- values })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer users.Unsubscribe(sub)

	recv := func() []user {
		t.Helper()
		select {
		case got := <-ch:
			return got
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for snapshot delivery")
			return nil
		}
	}

	if got := recv(); len(got) != 0 {
		t.Fatalf("initial snapshot has %d values, want 0", len(got))
	}

	if _, err := users.Add(user{Name: "Alice"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := recv(); !reflect.DeepEqual(got, []user{{ID: 1, Name: "Alice"}}) {
		t.Errorf("snapshot = %+v, want [{1 Alice}]", got)
	}

	if err := users.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := recv(); len(got) != 0 {
		t.Errorf("snapshot after Clear has %d values, want 0", len(got))
	}
}
