package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func project(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { configPath = "" })
	root := rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

const shopConfig = `
source:
  dir: .
  template: index.html
  data: data.yaml
log:
  level: error
`

func TestRenderCommand(t *testing.T) {
	dir := project(t, map[string]string{
		"tal.yaml":   shopConfig,
		"index.html": `<ul><li tal:repeat="item items" tal:content="item/name"></li></ul>`,
		"data.yaml":  "items:\n  - name: apple\n  - name: pear\n",
		"other.yaml": "items:\n  - name: fig\n",
	})

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"defaults", []string{"render"}, "<ul><li>apple</li><li>pear</li></ul>"},
		{"data flag", []string{"render", "index.html", "--data", "other.yaml"}, "<ul><li>fig</li></ul>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, append([]string{"--config", dir}, tt.args...)...)
			if err != nil {
				t.Fatalf("render: %v", err)
			}
			if strings.TrimSpace(out) != tt.want {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}
}

func TestRenderPageToFile(t *testing.T) {
	dir := project(t, map[string]string{
		"tal.yaml":   shopConfig,
		"index.html": `<p tal:content="title"></p>`,
		"data.yaml":  "title: Hello\n",
	})
	output := filepath.Join(dir, "out.html")

	if _, err := execute(t, "--config", dir, "render", "--page", "--title", "Shop", "-o", output); err != nil {
		t.Fatalf("render: %v", err)
	}
	got, err := os.ReadFile(output)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"<title>Shop</title>", "<p>Hello</p>"} {
		if !strings.Contains(string(got), want) {
			t.Errorf("page should contain %q:\n%s", want, got)
		}
	}
}

func TestRenderErrors(t *testing.T) {
	dir := project(t, map[string]string{
		"tal.yaml":   shopConfig,
		"index.html": `<p tal:content="script: 1 + 1"></p>`,
		"data.yaml":  "{}\n",
	})

	if _, err := execute(t, "--config", dir, "render", "missing.html"); err == nil {
		t.Error("expected an error for a missing template")
	}
	if _, err := execute(t, "--config", dir, "render"); err == nil {
		t.Error("expected an error for a disabled script")
	}
	if _, err := execute(t, "--config", dir, "render", "--scripts"); err != nil {
		t.Errorf("render --scripts: %v", err)
	}
}

func TestCheckCommand(t *testing.T) {
	dir := project(t, map[string]string{
		"tal.yaml":  shopConfig,
		"good.html": `<p tal:content="title"></p>`,
		"bad.html":  `<p tal:repeat="nope"></p>`,
		"data.yaml": "title: Hello\n",
	})

	if _, err := execute(t, "--config", dir, "check", "good.html"); err != nil {
		t.Errorf("check good.html: %v", err)
	}
	if _, err := execute(t, "--config", dir, "check", "good.html", "bad.html"); err == nil {
		t.Error("check should fail on a malformed statement")
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}

func TestServerConfig(t *testing.T) {
	dir := project(t, map[string]string{
		"tal.yaml": "server:\n  port: 8080\n  maxSessions: 3\nsession:\n  idleTimeout: 1m\nmetrics: false\n",
	})
	configPath = filepath.Join(dir, "tal.yaml")
	t.Cleanup(func() { configPath = "" })

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	sc := serverConfig(cfg)
	if sc.Address != "localhost:8080" || sc.MaxSessions != 3 || sc.Metrics {
		t.Errorf("unexpected server config %+v", sc)
	}
	if sc.SessionConfig.IdleTimeout.String() != "1m0s" {
		t.Errorf("IdleTimeout = %v", sc.SessionConfig.IdleTimeout)
	}
}
