package main

import (
	"bytes"
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestVersionDefaults(t *testing.T) {
	origVersion, origGitCommit, origBuildDate := Version, GitCommit, BuildDate
	defer func() {
		Version, GitCommit, BuildDate = origVersion, origGitCommit, origBuildDate
	}()

	Version = "0.1.0-test"
	GitCommit = "abc123"
	BuildDate = "2026-10-01"

	info := currentVersion()
	if info.Version != "0.1.0-test" || info.GitCommit != "abc123" || info.BuildDate != "2026-10-01" {
		t.Errorf("currentVersion() = %+v", info)
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("Platform = %q", info.Platform)
	}
}

func TestVersionCommandExists(t *testing.T) {
	if versionCmd == nil {
		t.Fatal("versionCmd is nil")
	}
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Short == "" {
		t.Error("versionCmd.Short should not be empty")
	}
	if versionCmd.RunE == nil {
		t.Error("versionCmd.RunE should not be nil")
	}
}

func TestVersionCommandOutput(t *testing.T) {
	defer func() { versionOutput = "text" }()

	tests := []struct {
		format string
		check  func(t *testing.T, out string)
	}{
		{"text", func(t *testing.T, out string) {
			if !strings.HasPrefix(out, "realmd "+Version+"\n") {
				t.Errorf("text output = %q", out)
			}
		}},
		{"json", func(t *testing.T, out string) {
			var info versionInfo
			if err := json.Unmarshal([]byte(out), &info); err != nil {
				t.Fatalf("json output invalid: %v", err)
			}
			if info.Version != Version {
				t.Errorf("version = %q", info.Version)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			buf := &bytes.Buffer{}
			versionCmd.SetOut(buf)
			versionOutput = tt.format

			if err := versionCmd.RunE(versionCmd, nil); err != nil {
				t.Fatalf("RunE() error = %v", err)
			}
			tt.check(t, buf.String())
		})
	}
}

func TestVersionCommandRejectsUnknownFormat(t *testing.T) {
	defer func() { versionOutput = "text" }()
	versionOutput = "xml"

	if err := versionCmd.RunE(versionCmd, nil); err == nil {
		t.Error("expected error for unknown format")
	}
}
