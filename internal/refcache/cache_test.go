package refcache

import (
	"errors"
	"slices"
	"sync"
	"testing"
	"time"
)

type resource struct{ id int }

func newTestCache() (*Cache[string, *resource], *int, *[]int) {
	created := 0
	var destroyed []int
	c := New(func(key string) (*resource, error) {
		if key == "bad" {
			return nil, errors.New("refcache test: cannot create")
		}
		created++
		return &resource{id: created}, nil
	}, func(_ string, r *resource) {
		destroyed = append(destroyed, r.id)
	})
	return c, &created, &destroyed
}

func TestGetOrCreateIdempotent(t *testing.T) {
	c, created, destroyed := newTestCache()

	a, err := c.GetOrCreate("prog")
	if err != nil {
		t.Fatal(err)
	}
	b, err := c.GetOrCreate("prog")
	if err != nil {
		t.Fatal(err)
	}
	if a.Value() != b.Value() {
		t.Fatal("second GetOrCreate built a new resource while the first was held")
	}
	if *created != 1 {
		t.Fatalf("created %d resources, want 1", *created)
	}

	a.Release()
	if len(*destroyed) != 0 {
		t.Fatal("destroyed while a reference is held")
	}
	b.Release()
	if len(*destroyed) != 1 || (*destroyed)[0] != 1 {
		t.Fatalf("destroyed: %v", *destroyed)
	}
	c.Clean()
	if c.Len() != 0 {
		t.Fatalf("Len after release: %d", c.Len())
	}

	again, err := c.GetOrCreate("prog")
	if err != nil {
		t.Fatal(err)
	}
	if again.Value().id != 2 {
		t.Fatalf("re-creation returned resource %d, want a new one", again.Value().id)
	}
	again.Release()
}

func TestGet(t *testing.T) {
	c, _, _ := newTestCache()
	if _, ok := c.Get("x"); ok {
		t.Fatal("Get on empty cache succeeded")
	}
	r, _ := c.GetOrCreate("x")
	g, ok := c.Get("x")
	if !ok || g.Value() != r.Value() {
		t.Fatal("Get did not return the live resource")
	}
	if !c.Contains("x") || c.Contains("y") {
		t.Fatal("Contains mismatch")
	}
	r.Release()
	if !c.Contains("x") {
		t.Fatal("entry expired while Get reference is held")
	}
	g.Release()
	if c.Contains("x") {
		t.Fatal("expired entry still reported")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	c, _, destroyed := newTestCache()
	a, _ := c.GetOrCreate("k")
	b := a.Clone()
	a.Release()
	a.Release()
	if len(*destroyed) != 0 {
		t.Fatal("double release dropped the clone's reference")
	}
	b.Release()
	if len(*destroyed) != 1 {
		t.Fatalf("destroyed %d times, want 1", len(*destroyed))
	}
	var nilRef *Ref[*resource]
	nilRef.Release()
}

func TestCreateError(t *testing.T) {
	c, _, _ := newTestCache()
	if _, err := c.GetOrCreate("bad"); err == nil {
		t.Fatal("expected create error")
	}
	if c.Len() != 0 {
		t.Fatal("failed create left an entry")
	}
}

func TestDistinctKeys(t *testing.T) {
	type key struct {
		block uint8
		name  string
	}
	created := 0
	c := New(func(key) (int, error) { created++; return created, nil }, nil)
	a, _ := c.GetOrCreate(key{0, "p"})
	b, _ := c.GetOrCreate(key{1, "p"})
	if a.Value() == b.Value() || c.Len() != 2 {
		t.Fatalf("keys shared a resource: %d %d", a.Value(), b.Value())
	}
	a.Release()
	b.Release()
}

func TestRecreateWaitsForDestroy(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(ev string) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	entered := make(chan struct{})
	unblock := make(chan struct{})
	n := 0
	c := New(func(string) (*resource, error) {
		n++
		record("create")
		return &resource{id: n}, nil
	}, func(string, *resource) {
		record("destroy begin")
		if n == 1 {
			close(entered)
			<-unblock
		}
		record("destroy end")
	})

	old, err := c.GetOrCreate("line")
	if err != nil {
		t.Fatal(err)
	}
	go old.Release()
	<-entered

	got := make(chan *Ref[*resource])
	go func() {
		r, err := c.GetOrCreate("line")
		if err != nil {
			t.Error(err)
		}
		got <- r
	}()
	select {
	case <-got:
		t.Fatal("GetOrCreate returned while the old resource was being destroyed")
	case <-time.After(20 * time.Millisecond):
	}
	close(unblock)

	r := <-got
	if r.Value().id != 2 {
		t.Errorf("got resource %d, want a fresh one", r.Value().id)
	}
	mu.Lock()
	defer mu.Unlock()
	want := []string{"create", "destroy begin", "destroy end", "create"}
	if !slices.Equal(events, want) {
		t.Errorf("events %q, want %q", events, want)
	}
}
