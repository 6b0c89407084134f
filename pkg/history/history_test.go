package history

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "nested", dbFileName))
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndList(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	entries := []Entry{
		{ActionID: 1, ActionName: "getApps", Method: "get", Path: "/apps", Username: "dev", Status: StatusSuccess, HTTPStatus: 200, Duration: 120 * time.Millisecond, StartedAt: base},
		{ActionID: 3, ActionName: "downloadAppById", Method: "download", Path: "/apps/4/ios", Status: StatusFailure, Error: "404", StartedAt: base.Add(time.Minute)},
		{ActionID: 3, ActionName: "downloadAppById", Method: "download", Path: "/apps/4/android", Status: StatusSuccess, File: "/tmp/4_android.apk", Bytes: 2048, StartedAt: base.Add(2 * time.Minute)},
	}
	for _, e := range entries {
		if err := s.Record(e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	all, err := s.List(Query{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List() returned %d entries, want 3", len(all))
	}
	if all[0].Path != "/apps/4/android" {
		t.Errorf("newest entry first, got %q", all[0].Path)
	}
	if all[0].ID == "" {
		t.Error("expected generated id")
	}
	if all[0].Bytes != 2048 || all[0].File != "/tmp/4_android.apk" {
		t.Errorf("download fields not stored: %+v", all[0])
	}
	if all[2].Duration != 120*time.Millisecond || all[2].HTTPStatus != 200 || all[2].Username != "dev" {
		t.Errorf("request fields not stored: %+v", all[2])
	}

	downloads, err := s.List(Query{Action: "DOWNLOADAPPBYID", Status: StatusFailure})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(downloads) != 1 || downloads[0].Error != "404" {
		t.Errorf("filtered list = %+v", downloads)
	}

	limited, err := s.List(Query{Limit: 2})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("limit not applied, got %d", len(limited))
	}
}

func TestClear(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 2; i++ {
		if err := s.Record(Entry{ActionName: "me", Method: "get", Path: "/me", Status: StatusSuccess}); err != nil {
			t.Fatal(err)
		}
	}

	n, err := s.Clear()
	if err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if n != 2 {
		t.Errorf("Clear() removed %d, want 2", n)
	}

	left, err := s.List(Query{})
	if err != nil {
		t.Fatal(err)
	}
	if len(left) != 0 {
		t.Errorf("entries left after clear: %d", len(left))
	}
}

func TestNewStoreFromEnv(t *testing.T) {
	t.Setenv("PGBUILD_HISTORY_DB", filepath.Join(t.TempDir(), "env.db"))
	s, err := NewStoreFromEnv()
	if err != nil {
		t.Fatalf("NewStoreFromEnv() error = %v", err)
	}
	defer s.Close()

	if err := s.Record(Entry{ActionName: "me", Method: "get", Path: "/me", Status: StatusSuccess}); err != nil {
		t.Fatalf("Record() error = %v", err)
	}
}
