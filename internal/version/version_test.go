package version

import (
	"runtime/debug"
	"testing"
)

func TestResolveUsesBuildInfo(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			Main: debug.Module{Version: "v1.2.3"},
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef0123"},
				{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			},
		}, true
	}
	info := resolve(read)
	if info.Version != "v1.2.3" {
		t.Fatalf("version = %q", info.Version)
	}
	if got, want := info.String(), "v1.2.3 (0123456789ab)"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" {
		t.Fatalf("build time = %q", info.BuildTime)
	}
}

func TestResolveDevelFallsBackToDev(t *testing.T) {
	read := func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{Main: debug.Module{Version: "(devel)"}}, true
	}
	info := resolve(read)
	if info.Version != "dev" || info.Commit != "" {
		t.Fatalf("info = %+v", info)
	}
	if info.String() != "dev" {
		t.Fatalf("String() = %q", info.String())
	}
}
