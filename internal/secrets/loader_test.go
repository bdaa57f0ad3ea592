package secrets

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSecret(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "secret")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}
	return path
}

func TestLoadPriority(t *testing.T) {
	t.Setenv("GOAL_TRACKER_TEST_SECRET", " from-env \n")

	tests := []struct {
		name string
		src  Source
		want string
	}{
		{name: "inline", src: Source{Value: "  inline  "}, want: "inline"},
		{name: "env over value", src: Source{Value: "inline", Env: "GOAL_TRACKER_TEST_SECRET"}, want: "from-env"},
		{name: "unset env falls back to value", src: Source{Value: "inline", Env: "GOAL_TRACKER_UNSET"}, want: "inline"},
		{
			name: "file over env",
			src:  Source{Value: "inline", Env: "GOAL_TRACKER_TEST_SECRET", File: writeSecret(t, "from-file\n")},
			want: "from-file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.src)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]Source{
		"nothing configured": {Name: "dsn"},
		"missing file":       {Name: "dsn", File: filepath.Join(t.TempDir(), "absent")},
		"empty file":         {Name: "dsn", File: writeSecret(t, "  \n"), Value: "ignored"},
	}

	for name, src := range cases {
		if _, err := Load(src); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestOptional(t *testing.T) {
	got, err := Optional(Source{Name: "api key", Env: "GOAL_TRACKER_UNSET"})
	if err != nil || got != "" {
		t.Fatalf("expected empty secret without error, got %q, %v", got, err)
	}

	if _, err := Optional(Source{File: filepath.Join(t.TempDir(), "absent")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}
