package gcal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/imyu7/calendar-sync/internal/domain"
)

func TestFileTokenCache_SaveAndLoad(t *testing.T) {
	cache := NewFileTokenCache(t.TempDir())

	token := &oauth2.Token{
		AccessToken:  "access-abc",
		RefreshToken: "refresh-xyz",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}

	if err := cache.Save("work", token); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := cache.Load("work")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.AccessToken != token.AccessToken || loaded.RefreshToken != token.RefreshToken {
		t.Errorf("Expected saved token back, got %+v", loaded)
	}
}

func TestFileTokenCache_PerAccountFiles(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileTokenCache(dir)

	cache.Save("work", &oauth2.Token{AccessToken: "work-token"})
	cache.Save("personal", &oauth2.Token{AccessToken: "personal-token"})

	for _, key := range []string{"work", "personal"} {
		path := filepath.Join(dir, "token_"+key+".json")
		if _, err := os.Stat(path); err != nil {
			t.Errorf("Expected token file %s: %v", path, err)
		}
	}

	personal, err := cache.Load("personal")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if personal.AccessToken != "personal-token" {
		t.Errorf("Expected account-scoped token, got %s", personal.AccessToken)
	}
}

func TestFileTokenCache_MissingTokenIsAuthFailure(t *testing.T) {
	cache := NewFileTokenCache(t.TempDir())

	_, err := cache.Load("work")
	if !errors.Is(err, domain.ErrAuthFailure) {
		t.Errorf("Expected ErrAuthFailure for missing token, got %v", err)
	}
}

func TestFileTokenCache_CorruptTokenIsAuthFailure(t *testing.T) {
	dir := t.TempDir()
	cache := NewFileTokenCache(dir)

	if err := os.WriteFile(filepath.Join(dir, "token_work.json"), []byte("{not json"), 0600); err != nil {
		t.Fatalf("Failed to write corrupt token: %v", err)
	}

	_, err := cache.Load("work")
	if !errors.Is(err, domain.ErrAuthFailure) {
		t.Errorf("Expected ErrAuthFailure for corrupt token, got %v", err)
	}
}

func TestFileTokenCache_SaveCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "tokens")
	cache := NewFileTokenCache(dir)

	if err := cache.Save("work", &oauth2.Token{AccessToken: "tok"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected token directory created: %v", err)
	}
}

func TestSavingTokenSource_PersistsOnRefresh(t *testing.T) {
	var saved []*oauth2.Token
	src := &savingTokenSource{
		base: &fakeTokenSource{tokens: []*oauth2.Token{
			{AccessToken: "a1"},
			{AccessToken: "a1"},
			{AccessToken: "a2"},
		}},
		save: func(tok *oauth2.Token) error {
			saved = append(saved, tok)
			return nil
		},
	}

	for i := 0; i < 3; i++ {
		if _, err := src.Token(); err != nil {
			t.Fatalf("Token failed: %v", err)
		}
	}

	if len(saved) != 2 {
		t.Fatalf("Expected saves only on token change, got %d", len(saved))
	}
	if saved[0].AccessToken != "a1" || saved[1].AccessToken != "a2" {
		t.Errorf("Expected a1 then a2 saved, got %+v", saved)
	}
}

func TestSavingTokenSource_BaseFailureIsAuthFailure(t *testing.T) {
	src := &savingTokenSource{
		base: &fakeTokenSource{err: errors.New("refresh token revoked")},
		save: func(*oauth2.Token) error { return nil },
	}

	_, err := src.Token()
	if !errors.Is(err, domain.ErrAuthFailure) {
		t.Errorf("Expected ErrAuthFailure, got %v", err)
	}
}

// fakeTokenSource replays a fixed token sequence
type fakeTokenSource struct {
	tokens []*oauth2.Token
	calls  int
	err    error
}

func (f *fakeTokenSource) Token() (*oauth2.Token, error) {
	if f.err != nil {
		return nil, f.err
	}
	i := f.calls
	if i >= len(f.tokens) {
		i = len(f.tokens) - 1
	}
	f.calls++
	return f.tokens[i], nil
}
