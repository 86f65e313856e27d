package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunPrintsEveryTopLevelValue(t *testing.T) {
	path := writeFile(t, "stream.bin", "i42e4:spamd3:cow3:mooe")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--log-level", "off", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	want := "42\n\"spam\"\n{\"cow\": \"moo\"}\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunMalformedInput(t *testing.T) {
	path := writeFile(t, "bad.torrent", "5:ab")
	var stdout, stderr bytes.Buffer
	if code := run([]string{path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "truncated string") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunMaxDepthFlag(t *testing.T) {
	path := writeFile(t, "deep.bin", "llleee")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--max-depth", "2", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "nesting too deep") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunSummary(t *testing.T) {
	body := "d8:announce15:http://tracker/4:infod6:lengthi2048e4:name4:test12:piece lengthi16384e6:pieces20:" +
		strings.Repeat("a", 20) + "ee"
	path := writeFile(t, "test.torrent", body)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--summary", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	out := stdout.String()
	for _, want := range []string{"Name: test", "Piece count: 1", "File count: 1", "Total size: 2.0 kB"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestRunExpectFile(t *testing.T) {
	path := writeFile(t, "game.torrent", "d4:infod4:name8:game.zipee")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--expect", "game.zip", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok game.zip") {
		t.Errorf("stdout = %q", stdout.String())
	}

	stdout.Reset()
	if code := run([]string{"--expect", "other.zip", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("mismatch exit %d, want 1", code)
	}
	if !strings.Contains(stdout.String(), "claims filename game.zip instead of other.zip") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunExpectURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("d4:infod4:name8:game.zipee"))
	}))
	defer srv.Close()
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--expect", "game.zip", srv.URL + "/game.torrent"}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "ok game.zip") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunConfigFile(t *testing.T) {
	cfg := writeFile(t, "bdecode.toml", "[decoder]\nmax_string_length = 2\n")
	path := writeFile(t, "s.bin", "3:abc")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--config", cfg, path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "string too long") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunUsage(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run(nil, &stdout, &stderr); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
	if !strings.Contains(stderr.String(), "usage: bdecode") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunSummaryHonorsMaxDepth(t *testing.T) {
	body := "d4:infod5:filesld6:lengthi1e4:pathl1:aeee4:name1:xee"
	path := writeFile(t, "deep.torrent", body)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--summary", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}

	stdout.Reset()
	stderr.Reset()
	if code := run([]string{"--summary", "--max-depth", "1", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if stdout.Len() != 0 {
		t.Errorf("summary printed despite depth limit: %q", stdout.String())
	}
	if !strings.Contains(stderr.String(), "nesting too deep") {
		t.Errorf("stderr = %q", stderr.String())
	}

	cfg := writeFile(t, "bdecode.toml", "[decoder]\nmax_string_length = 3\n")
	stderr.Reset()
	if code := run([]string{"--summary", "--config", cfg, path}, &stdout, &stderr); code != 1 {
		t.Fatalf("config limit: exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "string too long") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunSummaryNegativeLength(t *testing.T) {
	path := writeFile(t, "neg.torrent", "d4:infod6:lengthi-5e4:name1:xee")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--summary", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	if !strings.Contains(stdout.String(), "Total size: 0 B") {
		t.Errorf("stdout = %q", stdout.String())
	}
}

func TestRunTrackerResponses(t *testing.T) {
	capture := "d8:intervali60e5:peers6:\x0a\x00\x00\x01\x1a\xe1e" +
		"d8:completei2e10:incompletei1e8:intervali120e5:peersld2:ip8:10.0.0.24:porti6882eeee"
	path := writeFile(t, "announce.bin", capture)
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--tracker", path}, &stdout, &stderr); code != 0 {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	want := "Response 0: interval 1m0s, 1 peers\n" +
		"  10.0.0.1:6881\n" +
		"Response 1: interval 2m0s, 1 peers, 2 seeders, 1 leechers\n" +
		"  10.0.0.2:6882\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunTrackerFailure(t *testing.T) {
	path := writeFile(t, "fail.bin", "d14:failure reason6:bannede")
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--tracker", path}, &stdout, &stderr); code != 1 {
		t.Fatalf("exit %d, want 1", code)
	}
	if !strings.Contains(stderr.String(), "banned") {
		t.Errorf("stderr = %q", stderr.String())
	}
}

func TestRunExclusiveModes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	if code := run([]string{"--summary", "--tracker", "x"}, &stdout, &stderr); code != 2 {
		t.Fatalf("exit %d, want 2", code)
	}
}
