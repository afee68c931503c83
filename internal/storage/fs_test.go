package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notedash/internal/apperr"
)

func tempFS(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(filepath.Join(t.TempDir(), "local"))
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func tempSQLite(t *testing.T) *SQLite {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "local.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func providers(t *testing.T) map[string]Provider {
	return map[string]Provider{
		DriverFile:   tempFS(t),
		DriverSQLite: tempSQLite(t),
	}
}

func TestSetGetRemove(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := p.Get("notesAppUser"); !errors.Is(err, apperr.ErrNotFound) {
				t.Fatalf("missing key err = %v, want ErrNotFound", err)
			}
			if err := p.Set("notesAppUser", []byte(`{"_id":"u1"}`)); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := p.Get("notesAppUser")
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if string(got) != `{"_id":"u1"}` {
				t.Errorf("value = %q", got)
			}
			if err := p.Set("notesAppUser", []byte(`{"_id":"u2"}`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, _ = p.Get("notesAppUser")
			if string(got) != `{"_id":"u2"}` {
				t.Errorf("overwritten value = %q", got)
			}
			if err := p.Remove("notesAppUser"); err != nil {
				t.Fatalf("Remove: %v", err)
			}
			if _, err := p.Get("notesAppUser"); !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("after remove err = %v", err)
			}
			if err := p.Remove("notesAppUser"); err != nil {
				t.Errorf("second remove should be a no-op: %v", err)
			}
		})
	}
}

func TestInvalidKeysRejected(t *testing.T) {
	for name, p := range providers(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../escape", "/etc/passwd", "a b"} {
				if err := p.Set(key, []byte("x")); err == nil {
					t.Errorf("expected error for key %q", key)
				}
			}
		})
	}
}

func TestFSAtomicWriteNoLeftovers(t *testing.T) {
	s := tempFS(t)
	_ = s.Set("k", []byte("original"))
	if err := s.Set("k", []byte("updated")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	matches, _ := filepath.Glob(filepath.Join(s.Path(), ".notedash-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
	info, err := os.Stat(filepath.Join(s.Path(), "k.json"))
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f, _ := os.CreateTemp(t.TempDir(), "notedash-test-*")
	_ = f.Close()
	if _, err := NewFS(f.Name()); err == nil {
		t.Error("expected error when root is a file")
	}
}

func TestOpen_Drivers(t *testing.T) {
	p, err := Open(DriverFile, t.TempDir())
	if err != nil {
		t.Fatalf("Open file: %v", err)
	}
	if _, ok := p.(*FS); !ok {
		t.Errorf("file driver returned %T", p)
	}
	p, err = Open(DriverSQLite, filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer p.Close()
	if _, ok := p.(*SQLite); !ok {
		t.Errorf("sqlite driver returned %T", p)
	}
	if _, err := Open("redis", "x"); err == nil {
		t.Error("unknown driver should fail")
	}
}
