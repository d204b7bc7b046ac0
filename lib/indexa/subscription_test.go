package indexa

import (
	"testing"
	"time"
)

func TestSubscribeDeliversInitialSnapshot(t *testing.T) {
	d := newTestDB(t)

	for _, name := range []string{"a", "b", "c"} {
		if _, err := d.Add("users", user{Name: name}); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	ch := make(chan []Record, 8)
	sub, err := d.Subscribe("users", func(records []Record) { ch <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub)

	records := waitSnapshot(t, ch)
	if len(records) != 3 {
		t.Errorf("initial snapshot has %d records, want 3", len(records))
	}
}

func TestMutationNotifiesListeners(t *testing.T) {
	d := newTestDB(t)

	ch := make(chan []Record, 8)
	sub, err := d.Subscribe("users", func(records []Record) { ch <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub)

	if got := waitSnapshot(t, ch); len(got) != 0 {
		t.Fatalf("initial snapshot has %d records, want 0", len(got))
	}

	if _, err := d.Add("users", user{Name: "Alice"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := waitSnapshot(t, ch); len(got) != 1 {
		t.Errorf("snapshot after Add has %d records, want 1", len(got))
	}

	if err := d.Clear("users"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := waitSnapshot(t, ch); len(got) != 0 {
		t.Errorf("snapshot after Clear has %d records, want 0", len(got))
	}
}

func TestNotificationsArePerStore(t *testing.T) {
	d := newTestDB(t)

	users := make(chan []Record, 8)
	sub, err := d.Subscribe("users", func(records []Record) { users <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub)
	waitSnapshot(t, users)

	// a mutation on a different store must not reach the users listener
	if _, err := d.Add("items", item{SKU: "a", Price: 1}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	select {
	case <-users:
		t.Errorf("mutation on items notified a users listener")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSubscribeRacingMutationIsNotMissed(t *testing.T) {
	d := newTestDB(t)

	// a mutation committing while Subscribe is setting up must reach the
	// new listener, either in its initial snapshot or in a follow-up cycle
	for i := 0; i < 25; i++ {
		ch := make(chan []Record, 16)
		added := make(chan error, 1)
		go func() {
			_, err := d.Add("users", user{Name: "x"})
			added <- err
		}()
		sub, err := d.Subscribe("users", func(records []Record) { ch <- records })
		if err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		if err := <-added; err != nil {
			t.Fatalf("Add failed: %v", err)
		}

		want := i + 1
		deadline := time.After(2 * time.Second)
	waiting:
		for {
			select {
			case records := <-ch:
				if len(records) == want {
					break waiting
				}
			case <-deadline:
				t.Fatalf("round %d: listener never observed the concurrent mutation (want %d records)", i, want)
			}
		}
		d.Unsubscribe(sub)
	}
}

func TestUnsubscribeStopsExactlyThatListener(t *testing.T) {
	d := newTestDB(t)

	first := make(chan []Record, 8)
	second := make(chan []Record, 8)
	sub1, err := d.Subscribe("users", func(records []Record) { first <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	sub2, err := d.Subscribe("users", func(records []Record) { second <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub2)
	waitSnapshot(t, first)
	waitSnapshot(t, second)

	d.Unsubscribe(sub1)
	// removing twice is a documented no-op
	d.Unsubscribe(sub1)

	if _, err := d.Add("users", user{Name: "Alice"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	// the remaining listener still gets the snapshot
	if got := waitSnapshot(t, second); len(got) != 1 {
		t.Errorf("remaining listener got %d records, want 1", len(got))
	}
	select {
	case <-first:
		t.Errorf("removed listener was still notified")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestListenerPanicIsIsolated(t *testing.T) {
	d := newTestDB(t)

	faulty, err := d.Subscribe("users", func(records []Record) { panic("boom") })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(faulty)

	ch := make(chan []Record, 8)
	sub, err := d.Subscribe("users", func(records []Record) { ch <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub)
	waitSnapshot(t, ch)

	// the panicking listener registered first, the healthy one must still
	// receive every snapshot and the mutation itself must succeed
	if _, err := d.Add("users", user{Name: "Alice"}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if got := waitSnapshot(t, ch); len(got) != 1 {
		t.Errorf("listener after panicking one got %d records, want 1", len(got))
	}
}

func TestBulkAddNotifiesOnce(t *testing.T) {
	d := newTestDB(t)

	ch := make(chan []Record, 8)
	sub, err := d.Subscribe("users", func(records []Record) { ch <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub)
	waitSnapshot(t, ch)

	results, err := d.BulkAdd("users", []any{user{Name: "A"}, user{Name: "B"}})
	if err != nil {
		t.Fatalf("BulkAdd failed: %v", err)
	}
	for i, res := range results {
		if res.Err != nil {
			t.Fatalf("item %d failed: %v", i, res.Err)
		}
	}

	// exactly one cycle for the whole bulk call, carrying the post-bulk truth
	if got := waitSnapshot(t, ch); len(got) != 2 {
		t.Errorf("bulk snapshot has %d records, want 2", len(got))
	}
	select {
	case <-ch:
		t.Errorf("bulk add triggered more than one notification cycle")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestFailedMutationDoesNotNotify(t *testing.T) {
	d := newTestDB(t)

	if _, err := d.Add("items", item{SKU: "a", Price: 1}); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	ch := make(chan []Record, 8)
	sub, err := d.Subscribe("items", func(records []Record) { ch <- records })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer d.Unsubscribe(sub)
	waitSnapshot(t, ch)

	// rolled back write, nothing to announce
	if _, err := d.Add("items", item{SKU: "a", Price: 2}); !IsKind(err, KindRequest) {
		t.Fatalf("duplicate Add: got %v, want KindRequest", err)
	}
	select {
	case <-ch:
		t.Errorf("failed mutation triggered a notification")
	case <-time.After(200 * time.Millisecond):
	}
}
