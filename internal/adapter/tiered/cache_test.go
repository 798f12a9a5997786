package tiered_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Strob0t/TaskForge/internal/adapter/tiered"
)

// fakeTier is an in-memory cache tier that can be forced to fail and
// records the order of operations.
type fakeTier struct {
	data map[string][]byte
	fail error
	ops  *[]string
	name string
}

func newFakeTier(name string, ops *[]string) *fakeTier {
	return &fakeTier{data: make(map[string][]byte), ops: ops, name: name}
}

func (f *fakeTier) log(op string) {
	if f.ops != nil {
		*f.ops = append(*f.ops, f.name+"."+op)
	}
}

func (f *fakeTier) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.log("get")
	if f.fail != nil {
		return nil, false, f.fail
	}
	v, ok := f.data[key]
	return v, ok, nil
}

func (f *fakeTier) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	f.log("set")
	if f.fail != nil {
		return f.fail
	}
	f.data[key] = value
	return nil
}

func (f *fakeTier) Delete(_ context.Context, key string) error {
	f.log("delete")
	if f.fail != nil {
		return f.fail
	}
	delete(f.data, key)
	return nil
}

func newTiered() (*tiered.Cache, *fakeTier, *fakeTier, *[]string) {
	ops := &[]string{}
	l1 := newFakeTier("l1", ops)
	l2 := newFakeTier("l2", ops)
	return tiered.New(l1, l2, 5*time.Minute), l1, l2, ops
}

func TestGetPrefersL1(t *testing.T) {
	c, l1, l2, _ := newTiered()
	l1.data["settings"] = []byte("fresh")
	l2.data["settings"] = []byte("stale")

	val, found, err := c.Get(context.Background(), "settings")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(val) != "fresh" {
		t.Fatalf("got %q, want the L1 value", val)
	}
}

func TestGetBackfillsL1FromL2(t *testing.T) {
	c, l1, l2, _ := newTiered()
	l2.data["webhook_status"] = []byte("snapshot")

	val, found, err := c.Get(context.Background(), "webhook_status")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if string(val) != "snapshot" {
		t.Fatalf("got %q, want snapshot", val)
	}
	if string(l1.data["webhook_status"]) != "snapshot" {
		t.Fatal("L2 hit was not backfilled into L1")
	}
}

func TestGetMissesThroughBothTiers(t *testing.T) {
	c, _, _, _ := newTiered()

	_, found, err := c.Get(context.Background(), "absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatal("expected a miss")
	}
}

func TestGetDegradesWhenL2Fails(t *testing.T) {
	c, _, l2, _ := newTiered()
	l2.fail = errors.New("nats down")

	_, found, err := c.Get(context.Background(), "settings")
	if err != nil {
		t.Fatalf("L2 failure must not surface from Get, got %v", err)
	}
	if found {
		t.Fatal("expected a miss when only L2 could have answered")
	}
}

func TestSetWritesBothTiers(t *testing.T) {
	c, l1, l2, _ := newTiered()

	if err := c.Set(context.Background(), "settings", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if _, ok := l1.data["settings"]; !ok {
		t.Fatal("missing from L1")
	}
	if _, ok := l2.data["settings"]; !ok {
		t.Fatal("missing from L2")
	}
}

func TestDeleteClearsL2First(t *testing.T) {
	c, l1, l2, ops := newTiered()
	l1.data["settings"] = []byte("v")
	l2.data["settings"] = []byte("v")

	if err := c.Delete(context.Background(), "settings"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(l1.data)+len(l2.data) != 0 {
		t.Fatal("entry survived in a tier")
	}
	if len(*ops) != 2 || (*ops)[0] != "l2.delete" || (*ops)[1] != "l1.delete" {
		t.Fatalf("delete order %v, want l2 before l1", *ops)
	}
}
