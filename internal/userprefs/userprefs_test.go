package userprefs

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vexofm/vexo/internal/storage"
)

func newTestStore(t *testing.T) (*Store, storage.Store) {
	t.Helper()
	persist, err := storage.NewFile(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewFile: %v", err)
	}
	return NewStore(persist), persist
}

func TestStore_VoiceSetGetClear(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if v, err := s.Voice(ctx, "u1"); err != nil || v != "" {
		t.Fatalf("fresh voice = %q, %v", v, err)
	}

	if err := s.SetVoice(ctx, "u1", "Alice", "en_us_002"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, _ := s.Voice(ctx, "u1"); v != "en_us_002" {
		t.Fatalf("voice = %q", v)
	}

	if err := s.ClearVoice(ctx, "u1", "Alice"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if v, _ := s.Voice(ctx, "u1"); v != "" {
		t.Fatalf("voice after clear = %q", v)
	}
}

func TestStore_SetterUpsertsDisplayName(t *testing.T) {
	ctx := context.Background()
	s, persist := newTestStore(t)

	if err := s.SetAutoJoin(ctx, "u1", "Alice", true); err != nil {
		t.Fatalf("set: %v", err)
	}
	rec, ok, _ := persist.GetUser(ctx, "u1")
	if !ok || rec.DisplayName != "Alice" || !rec.AutoJoin {
		t.Fatalf("rec = %+v, ok = %v", rec, ok)
	}
}

func TestStore_CacheMissFallsThrough(t *testing.T) {
	ctx := context.Background()
	persist, err := storage.NewFile(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatal(err)
	}
	persist.UpsertUser(ctx, storage.UserRecord{UserID: "u1", Nickname: "Captain"})

	s := NewStore(persist)
	if nick, _ := s.Nickname(ctx, "u1"); nick != "Captain" {
		t.Fatalf("nickname = %q", nick)
	}
}

func TestStore_SpeakName(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	if got := s.SpeakName(ctx, "u1", "Alice"); got != "Alice" {
		t.Fatalf("got %q, want display name", got)
	}
	s.SetNickname(ctx, "u1", "Alice", "Captain")
	if got := s.SpeakName(ctx, "u1", "Alice"); got != "Captain" {
		t.Fatalf("got %q, want nickname", got)
	}
}

func TestStore_NicknameLengthCap(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	if err := s.SetNickname(ctx, "u1", "Alice", strings.Repeat("x", MaxNicknameLen+1)); err == nil {
		t.Fatal("oversized nickname accepted")
	}
}

func TestStore_MigrateDefaultVoice(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	s.SetVoice(ctx, "u1", "A", "voice_c")
	s.SetVoice(ctx, "u2", "B", "voice_b")
	s.SetVoice(ctx, "u3", "C", "voice_c")

	ids, err := s.MigrateDefaultVoice(ctx, "voice_c", "voice_f")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("ids = %v, want 2 users", ids)
	}

	// Cached entries updated too.
	for _, id := range []string{"u1", "u3"} {
		if v, _ := s.Voice(ctx, id); v != "voice_f" {
			t.Errorf("%s voice = %q, want voice_f", id, v)
		}
	}
	if v, _ := s.Voice(ctx, "u2"); v != "voice_b" {
		t.Errorf("u2 voice = %q, want voice_b", v)
	}
}

func TestStore_MigrateNoopWhenSameVoice(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	s.SetVoice(ctx, "u1", "A", "voice_c")

	ids, err := s.MigrateDefaultVoice(ctx, "voice_c", "voice_c")
	if err != nil || ids != nil {
		t.Fatalf("ids = %v, err = %v, want noop", ids, err)
	}
}
