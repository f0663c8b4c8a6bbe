package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/obsedit/obsedit/internal/config"
	"github.com/obsedit/obsedit/internal/script"
	"github.com/obsedit/obsedit/internal/session"
	"github.com/obsedit/obsedit/internal/snapshot"
	"github.com/obsedit/obsedit/pkg/editor"
	"github.com/obsedit/obsedit/pkg/observable"
)

const demoScript = `text: hello world
steps:
  - name: move
    setPosition: {line: 1, column: 2}
  - name: type
    trigger: {source: keyboard, command: type, payload: abc}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Cleanup(func() { observable.SetLogger(nil) })

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestReplayPrintsTrace(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "demo.yaml", demoScript)

	out, err := execute(t, "replay", path, "--log-level", "error")
	if err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"# initial",
		"selection: [1,1 -> 1,1], value: 1",
		"# 1 move",
		"handle selection change, source: api",
		"selection: [1,2 -> 1,2], value: 1",
		"# 2 type",
		"handle change ObservableCodeEditor._versionId: 4 content[v2]",
		"handle selection change, source: none",
		"handle change ObservableCodeEditor._versionId: 4 content[v3]",
		"handle change ObservableCodeEditor._versionId: 4 content[v4]",
		"handle selection change, source: keyboard",
		"handle change ObservableCodeEditor.onDidType abc",
		"selection: [1,5 -> 1,5], value: 4",
		"",
	}, "\n")
	if out != want {
		t.Errorf("output:\n%s\nwant:\n%s", out, want)
	}
}

func TestReplayJSONAndSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "demo.yaml", demoScript)
	snapPath := filepath.Join(dir, "out", "snap.json")

	out, err := execute(t, "replay", path, "--json", "--snapshot", "file://"+filepath.ToSlash(snapPath))
	if err != nil {
		t.Fatal(err)
	}
	var res script.Result
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out)
	}
	if len(res.Steps) != 2 || res.Final.Text != "habcello world" {
		t.Errorf("result = %+v", res)
	}

	snap, err := snapshot.NewFileStore(snapPath).Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.VersionID != 4 || len(snap.Entries) != 10 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestReplayUsesConfigText(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, config.ConfigFileName, `{"text": "xyz"}`)
	path := writeFile(t, dir, "end.yaml", "steps:\n  - trigger: {source: keyboard, command: cursorEnd}\n")

	out, err := execute(t, "--config", cfgPath, "replay", path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "selection: [1,4 -> 1,4], value: 1") {
		t.Errorf("output = %q", out)
	}
}

func TestReplayFailingExpect(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "text: a\nsteps:\n  - focus: true\n    expect: [something]\n")

	_, err := execute(t, "replay", path)
	if err == nil || !strings.Contains(err.Error(), "E203") {
		t.Errorf("err = %v, want E203", err)
	}
}

func TestReplayNeedsOneArg(t *testing.T) {
	if _, err := execute(t, "replay"); err == nil {
		t.Error("replay without a script should fail")
	}
}

func TestVersionShort(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if out != version+"\n" {
		t.Errorf("version output = %q", out)
	}
}

func TestOpenSessionRestores(t *testing.T) {
	dir := t.TempDir()
	store := snapshot.NewFileStore(filepath.Join(dir, "snap.json"))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := config.New()
	cfg.Text = "fallback"

	sess, err := openSession(context.Background(), cfg, store, true, logger, nil)
	if err != nil {
		t.Fatal(err)
	}
	if sess.State().Text != "fallback" {
		t.Errorf("Text = %q, want fallback without a snapshot", sess.State().Text)
	}
	sess.Close()

	saved := snapshot.Snapshot{
		Text:       "restored",
		VersionID:  4,
		Focused:    true,
		Selections: []editor.Selection{editor.SelectionAt(editor.Position{Line: 1, Column: 4})},
	}
	if err := store.Save(context.Background(), saved); err != nil {
		t.Fatal(err)
	}
	sess, err = openSession(context.Background(), cfg, store, true, logger, []session.Option{session.WithLogger(logger)})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.Close()
	st := sess.State()
	if st.Text != "restored" || st.Cursor != (editor.Position{Line: 1, Column: 4}) {
		t.Errorf("State() = %+v", st)
	}
	if st.VersionID != 4 || !st.Focused {
		t.Errorf("restored version=%d focused=%v, want 4 true", st.VersionID, st.Focused)
	}
	want := []string{"selection: [1,4 -> 1,4], value: 4"}
	if got := sess.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %q, want %q", got, want)
	}
}
