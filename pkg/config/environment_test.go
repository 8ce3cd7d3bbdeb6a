package config

import (
	"path/filepath"
	"testing"
)

func TestLoadEnvironmentsMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadEnvironmentsFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadEnvironmentsFromFile() error = %v", err)
	}
	if len(cfg.Environments) != 2 {
		t.Fatalf("Expected 2 default environments, got %d", len(cfg.Environments))
	}
	if _, ok := cfg.Find("Embedded"); !ok {
		t.Error("Expected an Embedded default environment")
	}
}

func TestSaveAndLoadEnvironments(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".swarm-sim", "environments.yaml")
	cfg := &Config{
		Environments: []Environment{
			{Name: "Field", NATSURL: "nats://10.0.0.5:4222", SubjectPrefix: "fleet"},
		},
		Selected: "Field",
	}

	if err := SaveEnvironmentsToFile(cfg, path); err != nil {
		t.Fatalf("SaveEnvironmentsToFile() error = %v", err)
	}

	loaded, err := LoadEnvironmentsFromFile(path)
	if err != nil {
		t.Fatalf("LoadEnvironmentsFromFile() error = %v", err)
	}
	env, ok := loaded.Find("Field")
	if !ok || env.NATSURL != "nats://10.0.0.5:4222" || env.SubjectPrefix != "fleet" {
		t.Errorf("Expected Field environment to round trip, got %+v", env)
	}
	if loaded.Selected != "Field" {
		t.Errorf("Expected selected Field, got %s", loaded.Selected)
	}
}

func TestSaveRejectsUnreachableEnvironment(t *testing.T) {
	cfg := &Config{Environments: []Environment{{Name: "Nowhere"}}}
	if err := SaveEnvironmentsToFile(cfg, filepath.Join(t.TempDir(), "env.yaml")); err == nil {
		t.Error("Expected error for environment without url or embedded server")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tests := []struct {
		name string
		env  Environment
		want map[string]interface{}
	}{
		{
			name: "embedded",
			env:  Environment{Name: "e", Embedded: true},
			want: map[string]interface{}{"enable_transport": true, "embedded_nats": true},
		},
		{
			name: "remote with viewer",
			env:  Environment{Name: "r", NATSURL: "nats://host:4222", SubjectPrefix: "fleet", ViewerAddr: ":9000"},
			want: map[string]interface{}{
				"enable_transport": true,
				"embedded_nats":    false,
				"nats_url":         "nats://host:4222",
				"subject_prefix":   "fleet",
				"enable_viewer":    true,
				"viewer_addr":      ":9000",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.env.Overrides()
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %d overrides, got %v", len(tt.want), got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("Expected %s = %v, got %v", k, v, got[k])
				}
			}
		})
	}
}
