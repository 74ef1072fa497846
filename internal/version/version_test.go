package version

import (
	"strings"
	"testing"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		commit      string
		module      string
		settings    map[string]string
		wantVersion string
		wantCommit  string
	}{
		{
			name:        "ldflags win",
			version:     "v1.0.0",
			commit:      "abc1234",
			settings:    map[string]string{"vcs.revision": "ffffffffffff"},
			wantVersion: "v1.0.0",
			wantCommit:  "abc1234",
		},
		{
			name:        "vcs dirty",
			module:      "(devel)",
			settings:    map[string]string{"vcs.revision": "0123456789ab", "vcs.modified": "true", "vcs.time": "2026-03-01T10:00:00Z"},
			wantVersion: "dev-20260301",
			wantCommit:  "0123456-dirty",
		},
		{
			name:        "module version",
			module:      "v1.2.3",
			settings:    map[string]string{},
			wantVersion: "v1.2.3",
		},
		{
			name:     "nothing known",
			settings: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, c := resolve(tt.version, tt.commit, tt.module, tt.settings)
			if v != tt.wantVersion {
				t.Errorf("version = %q, want %q", v, tt.wantVersion)
			}
			if c != tt.wantCommit {
				t.Errorf("commit = %q, want %q", c, tt.wantCommit)
			}
		})
	}
}

func TestFull(t *testing.T) {
	if !strings.Contains(Full(), "(commit: ") {
		t.Errorf("Full() = %q", Full())
	}
	if !strings.HasPrefix(Detailed(), Full()) {
		t.Errorf("Detailed() = %q", Detailed())
	}
}
