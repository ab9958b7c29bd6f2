package credentials

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestService(t *testing.T, content string, overrides Overrides) (*Service, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cookies.txt")
	if content != "" {
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("WriteFile() failed: %v", err)
		}
	}

	svc, err := New(path, overrides)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	})
	return svc, path
}

func TestNew(t *testing.T) {
	svc, path := newTestService(t, "csrf_token=c; access_token=a", Overrides{})

	got := svc.Current()
	if got.CSRFToken != "c" || got.AccessToken != "a" {
		t.Errorf("Current() = %+v", got)
	}
	if got.Source != path {
		t.Errorf("Source = %q, want %q", got.Source, path)
	}
	if svc.Format() != FormatHeader {
		t.Errorf("Format() = %q", svc.Format())
	}

	select {
	case ev := <-svc.Events():
		if ev.Type != EventLoaded {
			t.Errorf("first event = %v, want EventLoaded", ev.Type)
		}
	default:
		t.Error("expected EventLoaded")
	}
}

func TestNew_MissingFile(t *testing.T) {
	svc, _ := newTestService(t, "", Overrides{})
	got := svc.Current()
	if got.HasCSRFToken() || got.HasAccessToken() {
		t.Errorf("expected empty credentials, got %+v", got)
	}
}

func TestOverrides(t *testing.T) {
	svc, _ := newTestService(t, "csrf_token=file; access_token=file", Overrides{CSRFToken: "env"})
	got := svc.Current()
	if got.CSRFToken != "env" {
		t.Errorf("CSRFToken = %q, want env", got.CSRFToken)
	}
	if got.AccessToken != "file" {
		t.Errorf("AccessToken = %q, want file", got.AccessToken)
	}

	envOnly, _ := newTestService(t, "", Overrides{AccessToken: "a", CSRFToken: "c"})
	if c := envOnly.Current(); c.Source != "environment" || c.CSRFToken != "c" {
		t.Errorf("env-only credentials = %+v", c)
	}
}

func TestCurrentIsCopy(t *testing.T) {
	svc, _ := newTestService(t, "a=1", Overrides{})
	c := svc.Current()
	c.Cookies["a"] = "changed"
	if svc.Current().Cookies["a"] != "1" {
		t.Error("Current() must return an independent copy")
	}
}

func TestReloadKeepsPreviousOnParseError(t *testing.T) {
	svc, path := newTestService(t, "csrf_token=c", Overrides{})
	if err := os.WriteFile(path, []byte(`{"broken"`), 0600); err != nil {
		t.Fatal(err)
	}
	if err := svc.Reload(); err == nil {
		t.Fatal("expected parse error")
	}
	if svc.Current().CSRFToken != "c" {
		t.Error("previous credentials should survive a parse error")
	}
}

func TestWatchFileChange(t *testing.T) {
	svc, path := newTestService(t, "csrf_token=old", Overrides{})
	<-svc.Events()

	if err := os.WriteFile(path, []byte("csrf_token=new"), 0600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	timeout := time.After(2 * time.Second)
	for {
		select {
		case event := <-svc.Events():
			if event.Type == EventChanged {
				if got := svc.Current().CSRFToken; got != "new" {
					t.Errorf("CSRFToken = %q, want new", got)
				}
				return
			}
		case <-timeout:
			t.Fatal("timeout waiting for EventChanged")
		}
	}
}

func TestSendEvent_Full(t *testing.T) {
	svc, _ := newTestService(t, "", Overrides{})

	for i := 0; i < 110; i++ {
		svc.sendEvent(Event{Type: EventChanged})
	}

	if len(svc.Events()) != 100 {
		t.Errorf("expected 100 events, got %d", len(svc.Events()))
	}
}
