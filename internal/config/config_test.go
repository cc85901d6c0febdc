package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		settings, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if settings.ListenAddr != ":8080" || settings.WeeklyDeliveryDay != 1 || settings.LogLevel != "info" {
			t.Errorf("defaults = %+v", settings)
		}
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := strings.Join([]string{
			"client_id: abc.apps.example.com",
			"client_secret: s3cret",
			"weekly_delivery_day: 5",
			"listen_addr: :9999",
			"cache_dir: /tmp/gazette-cache",
		}, "\n")
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}

		settings, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if settings.ClientID != "abc.apps.example.com" || settings.WeeklyDeliveryDay != 5 {
			t.Errorf("settings = %+v", settings)
		}
		if settings.ListenAddr != ":9999" || settings.CacheDir != "/tmp/gazette-cache" {
			t.Errorf("settings = %+v", settings)
		}
		if settings.LogLevel != "info" {
			t.Errorf("log level = %q, want default info", settings.LogLevel)
		}
	})

	t.Run("environment beats file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("client_id: from-file\nlisten_addr: :9999\n"), 0600); err != nil {
			t.Fatal(err)
		}
		t.Setenv("GAZETTE_CLIENT_ID", "from-env")
		t.Setenv("GAZETTE_LISTEN_ADDR", ":7777")

		settings, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if settings.ClientID != "from-env" {
			t.Errorf("client id = %q, want from-env", settings.ClientID)
		}
		if settings.ListenAddr != ":7777" {
			t.Errorf("listen addr = %q, want :7777", settings.ListenAddr)
		}
	})

	t.Run("unparseable file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("{not yaml"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load accepted malformed YAML")
		}
	})

	t.Run("invalid delivery day", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("weekly_delivery_day: 8\n"), 0600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Error("Load accepted weekly_delivery_day 8")
		}
	})
}

func TestValidate(t *testing.T) {
	for name, tc := range map[string]struct {
		settings Settings
		wantErr  bool
	}{
		"valid":        {Settings{WeeklyDeliveryDay: 7, ListenAddr: ":8080"}, false},
		"day too low":  {Settings{WeeklyDeliveryDay: 0, ListenAddr: ":8080"}, true},
		"day too high": {Settings{WeeklyDeliveryDay: 8, ListenAddr: ":8080"}, true},
		"no listen":    {Settings{WeeklyDeliveryDay: 1}, true},
	} {
		t.Run(name, func(t *testing.T) {
			err := tc.settings.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	in := &Settings{
		ClientID:          "abc",
		ClientSecret:      "secret",
		WeeklyDeliveryDay: 3,
		ListenAddr:        ":8080",
		LogLevel:          "debug",
	}

	if err := Save(path, in); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}

	out, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if out.ClientID != in.ClientID || out.WeeklyDeliveryDay != in.WeeklyDeliveryDay || out.LogLevel != in.LogLevel {
		t.Errorf("round trip = %+v, want %+v", out, in)
	}
}
