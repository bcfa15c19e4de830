package portproxy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mockStore is a test double for Store.
type mockStore struct {
	mu      sync.Mutex
	added   []Entry
	deleted []Key
	listed  []string

	addFunc    func(entry Entry) error
	deleteFunc func(key Key) error
	listFunc   func(family string) ([]Entry, error)
}

func (m *mockStore) Add(_ context.Context, entry Entry) error {
	m.mu.Lock()
	m.added = append(m.added, entry)
	m.mu.Unlock()
	if m.addFunc != nil {
		return m.addFunc(entry)
	}
	return nil
}

func (m *mockStore) Delete(_ context.Context, key Key) error {
	m.mu.Lock()
	m.deleted = append(m.deleted, key)
	m.mu.Unlock()
	if m.deleteFunc != nil {
		return m.deleteFunc(key)
	}
	return nil
}

func (m *mockStore) List(_ context.Context, family string) ([]Entry, error) {
	m.mu.Lock()
	m.listed = append(m.listed, family)
	m.mu.Unlock()
	if m.listFunc != nil {
		return m.listFunc(family)
	}
	return nil, nil
}

func TestManager_RemoveClearsLoopbackAndAnyListeners(t *testing.T) {
	store := &mockStore{}
	m := NewManager(Config{Port: 3000}, store, discardLogger())

	if err := m.Remove(context.Background()); err != nil {
		t.Fatalf("Remove() error = %v, want nil", err)
	}

	want := []Key{
		{Family: FamilyV4, ListenAddress: ListenLoopback4, ListenPort: 3000},
		{Family: FamilyV4, ListenAddress: ListenAny4, ListenPort: 3000},
	}
	if len(store.deleted) != len(want) {
		t.Fatalf("deleted %d keys, want %d", len(store.deleted), len(want))
	}
	for i, key := range want {
		if store.deleted[i] != key {
			t.Errorf("deleted[%d] = %+v, want %+v", i, store.deleted[i], key)
		}
	}
}

func TestManager_RemoveIncludesV6WhenEnabled(t *testing.T) {
	store := &mockStore{}
	m := NewManager(Config{Port: 3000, IPv6: true}, store, discardLogger())

	if err := m.Remove(context.Background()); err != nil {
		t.Fatalf("Remove() error = %v, want nil", err)
	}

	if len(store.deleted) != 3 {
		t.Fatalf("deleted %d keys, want 3", len(store.deleted))
	}
	last := store.deleted[2]
	if last.Family != FamilyV6 || last.ListenAddress != ListenAny6 {
		t.Errorf("deleted[2] = %+v, want v6 any-address key", last)
	}
}

func TestManager_RemoveAbortsOnStoreFailure(t *testing.T) {
	cause := errors.New("netlink closed")
	store := &mockStore{
		deleteFunc: func(key Key) error {
			if key.ListenAddress == ListenAny4 {
				return cause
			}
			return nil
		},
	}
	m := NewManager(Config{Port: 3000, IPv6: true}, store, discardLogger())

	err := m.Remove(context.Background())
	if err == nil {
		t.Fatal("Remove() = nil, want error")
	}

	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OpError", err)
	}
	if opErr.Op != "delete" {
		t.Errorf("OpError.Op = %q, want %q", opErr.Op, "delete")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}
	if len(store.deleted) != 2 {
		t.Errorf("deleted %d keys before abort, want 2", len(store.deleted))
	}
}

func TestManager_AddInstallsV4Listener(t *testing.T) {
	store := &mockStore{}
	m := NewManager(Config{Port: 3000}, store, discardLogger())

	if err := m.Add(context.Background(), "172.20.10.5"); err != nil {
		t.Fatalf("Add() error = %v, want nil", err)
	}

	if len(store.added) != 1 {
		t.Fatalf("added %d entries, want 1", len(store.added))
	}
	got := store.added[0]
	want := Entry{
		Family:         FamilyV4,
		ListenAddress:  ListenAny4,
		ListenPort:     3000,
		ConnectAddress: "172.20.10.5",
		ConnectPort:    3000,
	}
	if got != want {
		t.Errorf("added[0] = %+v, want %+v", got, want)
	}
}

func TestManager_AddInstallsV6ListenerTargetingIPv4(t *testing.T) {
	store := &mockStore{}
	m := NewManager(Config{Port: 3000, IPv6: true}, store, discardLogger())

	if err := m.Add(context.Background(), "172.20.10.5"); err != nil {
		t.Fatalf("Add() error = %v, want nil", err)
	}

	if len(store.added) != 2 {
		t.Fatalf("added %d entries, want 2", len(store.added))
	}
	got := store.added[1]
	if got.Family != FamilyV6 || got.ListenAddress != ListenAny6 {
		t.Errorf("added[1] = %+v, want v6 any-address listener", got)
	}
	if got.ConnectAddress != "172.20.10.5" {
		t.Errorf("added[1].ConnectAddress = %q, want IPv4 target", got.ConnectAddress)
	}
}

func TestManager_AddSurfacesStoreFailure(t *testing.T) {
	cause := errors.New("entry exists")
	store := &mockStore{
		addFunc: func(Entry) error { return cause },
	}
	m := NewManager(Config{Port: 3000}, store, discardLogger())

	err := m.Add(context.Background(), "172.20.10.5")
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OpError", err)
	}
	if opErr.Op != "add" || opErr.Port != 3000 {
		t.Errorf("OpError = %+v, want op add port 3000", opErr)
	}
}

func TestManager_SnapshotConcatenatesFamiliesV4First(t *testing.T) {
	store := &mockStore{
		listFunc: func(family string) ([]Entry, error) {
			if family == FamilyV4 {
				return []Entry{{Family: FamilyV4, ListenPort: 3000}}, nil
			}
			return []Entry{{Family: FamilyV6, ListenPort: 3000}}, nil
		},
	}
	m := NewManager(Config{Port: 3000}, store, discardLogger())

	entries, err := m.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot() error = %v, want nil", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Snapshot() returned %d entries, want 2", len(entries))
	}
	if entries[0].Family != FamilyV4 || entries[1].Family != FamilyV6 {
		t.Errorf("Snapshot() order = [%s %s], want [v4tov4 v6tov4]", entries[0].Family, entries[1].Family)
	}
}

func TestManager_SnapshotReturnsPartialOnListFailure(t *testing.T) {
	cause := errors.New("show failed")
	store := &mockStore{
		listFunc: func(family string) ([]Entry, error) {
			if family == FamilyV6 {
				return nil, cause
			}
			return []Entry{{Family: FamilyV4, ListenPort: 3000}}, nil
		},
	}
	m := NewManager(Config{Port: 3000}, store, discardLogger())

	entries, err := m.Snapshot(context.Background())
	if err == nil {
		t.Fatal("Snapshot() = nil, want error")
	}
	var opErr *OpError
	if !errors.As(err, &opErr) {
		t.Fatalf("error type = %T, want *OpError", err)
	}
	if opErr.Op != "list" || opErr.Family != FamilyV6 {
		t.Errorf("OpError = %+v, want list failure for v6tov4", opErr)
	}
	if len(entries) != 1 {
		t.Errorf("Snapshot() returned %d entries alongside error, want 1", len(entries))
	}
}

func TestOpError_Message(t *testing.T) {
	tests := []struct {
		name string
		err  *OpError
		want string
	}{
		{
			name: "with port",
			err:  &OpError{Op: "add", Family: FamilyV4, Port: 3000, Err: errors.New("exists")},
			want: "portproxy: add v4tov4 port 3000: exists",
		},
		{
			name: "without port",
			err:  &OpError{Op: "list", Family: FamilyV6, Err: errors.New("show failed")},
			want: "portproxy: list v6tov4: show failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}
