package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	for _, table := range []string{"sessions", "captures", "settings"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q should exist after migrations: %v", table, err)
		}
	}

	for _, idx := range []string{"idx_captures_session_id", "idx_captures_captured_at"} {
		var name string
		err := s.DB().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?",
			idx,
		).Scan(&name)
		if err != nil {
			t.Errorf("index %q should exist after migrations: %v", idx, err)
		}
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Sessions().Create(&Session{ID: "s1"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	s.Close()

	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("reopening store should rerun migrations safely: %v", err)
	}
	defer s.Close()

	if _, err := s.Sessions().GetByID("s1"); err != nil {
		t.Errorf("session should survive reopen: %v", err)
	}
}

func TestStore_Close(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestStore_ForeignKeysEnabled(t *testing.T) {
	s := newTestStore(t)

	var fkEnabled int
	if err := s.DB().QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("failed to check foreign keys pragma: %v", err)
	}
	if fkEnabled != 1 {
		t.Error("foreign keys should be enabled")
	}
}

func TestSessionRepository(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	t.Run("create and get", func(t *testing.T) {
		if err := repo.Create(&Session{ID: "a", DeviceID: 2, StartedAt: base}); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		got, err := repo.GetByID("a")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if got.DeviceID != 2 || !got.StartedAt.Equal(base) {
			t.Errorf("unexpected session %+v", got)
		}
		if got.EndedAt != nil {
			t.Error("new session should be open")
		}
	})

	t.Run("end", func(t *testing.T) {
		end := base.Add(time.Minute)
		if err := repo.End("a", end); err != nil {
			t.Fatalf("End() error = %v", err)
		}

		got, _ := repo.GetByID("a")
		if got.EndedAt == nil || !got.EndedAt.Equal(end) {
			t.Errorf("EndedAt = %v, want %v", got.EndedAt, end)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := repo.GetByID("nope"); !errors.Is(err, ErrNotFound) {
			t.Errorf("GetByID() error = %v, want ErrNotFound", err)
		}
		if err := repo.End("nope", base); !errors.Is(err, ErrNotFound) {
			t.Errorf("End() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("list newest first", func(t *testing.T) {
		repo.Create(&Session{ID: "b", StartedAt: base.Add(time.Hour)})
		repo.Create(&Session{ID: "c", StartedAt: base.Add(2 * time.Hour)})

		list, err := repo.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 2 || list[0].ID != "c" || list[1].ID != "b" {
			t.Errorf("unexpected list %v", list)
		}

		all, _ := repo.List(0)
		if len(all) != 3 {
			t.Errorf("List(0) returned %d sessions, want 3", len(all))
		}
	})

	t.Run("close open", func(t *testing.T) {
		n, err := repo.CloseOpen(base.Add(3 * time.Hour))
		if err != nil {
			t.Fatalf("CloseOpen() error = %v", err)
		}
		if n != 2 {
			t.Errorf("CloseOpen() closed %d, want 2", n)
		}
	})
}

func TestCaptureRepository(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	if err := s.Sessions().Create(&Session{ID: "sess", StartedAt: base}); err != nil {
		t.Fatalf("Create session error = %v", err)
	}

	repo := s.Captures()
	for i, id := range []string{"p1", "p2", "p3"} {
		c := &Capture{
			ID:         id,
			SessionID:  "sess",
			CapturedAt: base.Add(time.Duration(i) * 4 * time.Second),
			Distance:   float64(50 + i),
			Width:      640,
			Height:     480,
			Mirrored:   i%2 == 0,
		}
		if err := repo.Create(c); err != nil {
			t.Fatalf("Create(%s) error = %v", id, err)
		}
	}

	t.Run("get", func(t *testing.T) {
		c, err := repo.GetByID("p1")
		if err != nil {
			t.Fatalf("GetByID() error = %v", err)
		}
		if c.Distance != 50 || c.Width != 640 || !c.Mirrored {
			t.Errorf("unexpected capture %+v", c)
		}
		if _, err := repo.GetByID("zz"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("session count", func(t *testing.T) {
		sess, _ := s.Sessions().GetByID("sess")
		if sess.Captures != 3 {
			t.Errorf("session captures = %d, want 3", sess.Captures)
		}
	})

	t.Run("list", func(t *testing.T) {
		list, err := repo.List(2)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 2 || list[0].ID != "p3" {
			t.Errorf("unexpected list %v", list)
		}

		bySession, err := repo.ListBySession("sess")
		if err != nil {
			t.Fatalf("ListBySession() error = %v", err)
		}
		if len(bySession) != 3 || bySession[0].ID != "p1" {
			t.Errorf("unexpected session list %v", bySession)
		}

		n, _ := repo.Count()
		if n != 3 {
			t.Errorf("Count() = %d, want 3", n)
		}
	})

	t.Run("unknown session is rejected", func(t *testing.T) {
		err := repo.Create(&Capture{ID: "orphan", SessionID: "missing", CapturedAt: base})
		if err == nil {
			t.Fatal("expected error for capture without session")
		}
		if _, err := repo.GetByID("orphan"); !errors.Is(err, ErrNotFound) {
			t.Error("failed capture must not be stored")
		}
	})
}

func TestSettingsRepository(t *testing.T) {
	repo := newTestStore(t).Settings()

	if _, err := repo.Get("threshold"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}

	if err := repo.Set("threshold", "100"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set("threshold", "80"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	repo.Set("facing_mode", "user")

	v, err := repo.Get("threshold")
	if err != nil || v != "80" {
		t.Errorf("Get() = %q, %v; want 80", v, err)
	}

	all, err := repo.All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(all) != 2 || all["facing_mode"] != "user" {
		t.Errorf("unexpected settings %v", all)
	}
}

func TestSettingsRepository_Tuning(t *testing.T) {
	repo := newTestStore(t).Settings()

	tuning, err := repo.Tuning()
	if err != nil {
		t.Fatalf("Tuning() error = %v", err)
	}
	if tuning.HasThreshold || tuning.HasCooldown {
		t.Errorf("empty table produced overrides %+v", tuning)
	}

	if err := repo.Set(KeyHandshakeThreshold, "72.5"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.Set(KeyCooldownMs, "1500"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	tuning, err = repo.Tuning()
	if err != nil {
		t.Fatalf("Tuning() error = %v", err)
	}
	if !tuning.HasThreshold || tuning.HandshakeThreshold != 72.5 {
		t.Errorf("threshold = %v (set %v), want 72.5", tuning.HandshakeThreshold, tuning.HasThreshold)
	}
	if !tuning.HasCooldown || tuning.Cooldown != 1500*time.Millisecond {
		t.Errorf("cooldown = %v (set %v), want 1.5s", tuning.Cooldown, tuning.HasCooldown)
	}
}

func TestValidateSetting(t *testing.T) {
	tests := []struct {
		key, value string
		wantErr    bool
	}{
		{"title", "anything", false},
		{"", "x", true},
		{KeyHandshakeThreshold, "100", false},
		{KeyHandshakeThreshold, "0", true},
		{KeyHandshakeThreshold, "-5", true},
		{KeyHandshakeThreshold, "NaN", true},
		{KeyHandshakeThreshold, "Inf", true},
		{KeyHandshakeThreshold, "wide", true},
		{KeyCooldownMs, "0", false},
		{KeyCooldownMs, "3000", false},
		{KeyCooldownMs, "-1", true},
		{KeyCooldownMs, "2.5", true},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			err := ValidateSetting(tt.key, tt.value)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSetting() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSetting) {
				t.Errorf("error %v does not wrap ErrInvalidSetting", err)
			}
		})
	}

	repo := newTestStore(t).Settings()
	if err := repo.Set(KeyCooldownMs, "soon"); !errors.Is(err, ErrInvalidSetting) {
		t.Errorf("Set() error = %v, want ErrInvalidSetting", err)
	}
	if _, err := repo.Get(KeyCooldownMs); !errors.Is(err, ErrNotFound) {
		t.Error("invalid value must not be stored")
	}
}
