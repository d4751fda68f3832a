package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/japaniel/biblespeak/pkg/dataset"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeData(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestCLI_Organize(t *testing.T) {
	tmp := t.TempDir()
	writeData(t, tmp, "names_pronunciations.json", `{"Zadok": {"pronunciation": "ZAY-dok"}, "Abel": {"pronunciation": "AY-buhl"}}`)
	writeData(t, tmp, "manual_pronunciations.json", `{"Ur": {"pronunciation": "UHR"}}`)

	code, out, errOut := runCLI(t, "--dir", tmp, "organize")
	if code != 0 {
		t.Fatalf("organize exit %d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if last := lines[len(lines)-1]; last != "BibleSpeak.org: 2; Manual: 1; Total: 3" {
		t.Fatalf("unexpected summary line %q", last)
	}

	f, err := dataset.Load(filepath.Join(tmp, "names_pronunciations.json"))
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got := strings.Join(f.Fields.Names(), ","); got != "Abel,Zadok" {
		t.Errorf("keys = %s; want Abel,Zadok", got)
	}
}

func TestCLI_OrganizeMissingFile(t *testing.T) {
	tmp := t.TempDir()
	writeData(t, tmp, "names_pronunciations.json", `{}`)

	code, out, errOut := runCLI(t, "--dir", tmp, "organize")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "ERROR: File not found:") {
		t.Errorf("stderr = %q", errOut)
	}
	if strings.Contains(out, "BibleSpeak.org:") {
		t.Errorf("summary must not be printed on failure: %q", out)
	}
}

func TestCLI_OrganizeInvalidJSON(t *testing.T) {
	tmp := t.TempDir()
	writeData(t, tmp, "names_pronunciations.json", `{"Abel": `)
	writeData(t, tmp, "manual_pronunciations.json", `{}`)

	code, _, errOut := runCLI(t, "--dir", tmp, "organize")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "ERROR: Invalid JSON in") {
		t.Errorf("stderr = %q", errOut)
	}
}

func TestCLI_ValidateExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		manual   string // empty means no file
		wantCode int
		wantOut  []string
	}{
		{"absent file", "", 0, []string{"[OK]", "not found (optional file)"}},
		{"forbidden link", `{"Enoch": {"pronunciation": "EE-nok", "link": "x"}}`, 1, []string{"[ERROR] Validation failed with 1 error(s):", "Enoch:", "'link'"}},
		{"warning only", `{"Ur": {"pronunciation": "uhr"}}`, 0, []string{"[WARNING] Validation passed with 1 warning(s):", "Ur: Should use mixed case"}},
		{"clean", `{"Abel": {"pronunciation": "AY-buhl"}}`, 0, []string{"[OK] Validation passed: 1 entries validated successfully"}},
		{"invalid json", `{"Abel"`, 1, []string{"[ERROR]"}},
		{"array root", `["Abel"]`, 1, []string{"[ERROR]", "root element must be a JSON object"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmp := t.TempDir()
			if tt.manual != "" {
				writeData(t, tmp, "manual_pronunciations.json", tt.manual)
			}
			code, out, errOut := runCLI(t, "--dir", tmp, "validate")
			if code != tt.wantCode {
				t.Fatalf("exit %d; want %d\nstdout:\n%s\nstderr:\n%s", code, tt.wantCode, out, errOut)
			}
			for _, want := range tt.wantOut {
				if !strings.Contains(out, want) {
					t.Errorf("stdout missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestCLI_ScrapeOfflineServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/a-words/":
			fmt.Fprint(w, `<a aria-label="Abel" href="#"></a><h2 class="title">Aaron</h2>`)
		case "/z-words/":
			fmt.Fprint(w, `<h2 class="title">Zadok</h2>`)
		case "/Abel-pronunciation/":
			fmt.Fprint(w, "<div class=\"col span_6 audioright\">How to say Abel\nAY-buhl</div>")
		case "/Zadok-pronunciation/":
			fmt.Fprint(w, "<div class=\"col span_6 audioright\">How to say Zadok\nZAY-dok</div>")
		case "/Aaron-pronunciation/":
			fmt.Fprint(w, "<p>no audio here</p>")
		default:
			if strings.HasSuffix(r.URL.Path, "-words/") {
				fmt.Fprint(w, "<html><body></body></html>")
				return
			}
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tmp := t.TempDir()
	ledger := filepath.Join(tmp, "ledger.db")
	code, out, errOut := runCLI(t, "--dir", tmp, "--base-url", srv.URL, "--db", ledger, "scrape")
	if code != 0 {
		t.Fatalf("scrape exit %d\nstdout:\n%s\nstderr:\n%s", code, out, errOut)
	}
	if !strings.Contains(out, "Update complete. 2 entries") {
		t.Errorf("unexpected stdout: %s", out)
	}

	f, err := dataset.Load(filepath.Join(tmp, "names_pronunciations.json"))
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	entries := f.Fields.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %+v", entries)
	}
	if entries["Zadok"].Link != srv.URL+"/Zadok-pronunciation/" {
		t.Errorf("Zadok link = %q", entries["Zadok"].Link)
	}

	code, out, _ = runCLI(t, "--db", ledger, "history")
	if code != 0 {
		t.Fatalf("history exit %d", code)
	}
	if !strings.Contains(out, "scrape") || !strings.Contains(out, "ok") {
		t.Errorf("history should list the scrape run:\n%s", out)
	}
	if !strings.Contains(out, "Snapshot: 2 auto, 0 manual entries") {
		t.Errorf("history should report the scraped snapshot:\n%s", out)
	}
}

func TestCLI_ScrapeIndexFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tmp := t.TempDir()
	code, _, errOut := runCLI(t, "--dir", tmp, "--base-url", srv.URL, "scrape")
	if code != 1 {
		t.Fatalf("expected exit 1, got %d", code)
	}
	if !strings.Contains(errOut, "503") {
		t.Errorf("stderr should mention the failing status: %s", errOut)
	}
	if _, err := os.Stat(filepath.Join(tmp, "names_pronunciations.json")); !os.IsNotExist(err) {
		t.Errorf("no output file should be written on failure")
	}
}

func TestCLI_OrganizeRecordsLedger(t *testing.T) {
	tmp := t.TempDir()
	ledger := filepath.Join(tmp, "ledger.db")
	writeData(t, tmp, "names_pronunciations.json", `{"Abel": {"pronunciation": "AY-buhl", "link": "l"}}`)
	writeData(t, tmp, "manual_pronunciations.json", `{"Ur": {"pronunciation": "UHR"}}`)

	if code, out, errOut := runCLI(t, "--dir", tmp, "--db", ledger, "organize"); code != 0 {
		t.Fatalf("organize exit %d\n%s\n%s", code, out, errOut)
	}
	if code, _, _ := runCLI(t, "--dir", tmp, "--db", ledger, "validate"); code != 0 {
		t.Fatalf("validate exit %d", code)
	}

	code, out, _ := runCLI(t, "--db", ledger, "history", "-n", "5")
	if code != 0 {
		t.Fatalf("history exit %d", code)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, 2 runs and the snapshot size, got:\n%s", out)
	}
	if !strings.Contains(lines[1], "validate") || !strings.Contains(lines[2], "organize") {
		t.Errorf("runs should be newest first:\n%s", out)
	}
	if lines[3] != "Snapshot: 1 auto, 1 manual entries" {
		t.Errorf("snapshot line = %q", lines[3])
	}
}

func TestCLI_HistoryWithoutLedger(t *testing.T) {
	code, _, errOut := runCLI(t, "history")
	if code != 1 || !strings.Contains(errOut, "no ledger configured") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestCLI_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	if code != 0 || !strings.Contains(out, version) {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
}
