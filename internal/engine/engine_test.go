package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mcpswap/internal/model"
	"mcpswap/internal/process"
	"mcpswap/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *process.Fake) {
	t.Helper()
	root := t.TempDir()
	target := filepath.Join(root, "claude_desktop_config.json")
	if err := os.WriteFile(target, []byte(`{"theme":"dark","mcpServers":{}}`), 0o644); err != nil {
		t.Fatal(err)
	}

	fake := &process.Fake{Running: true}
	return &Engine{
		Store:      store.New(root),
		Proc:       fake,
		TargetPath: target,
		AppName:    "Claude",
		Env:        map[string]string{},
		Dotenv:     map[string]string{},
	}, fake
}

func writeServer(t *testing.T, e *Engine, name, body string) {
	t.Helper()
	if err := e.Store.SaveServer(name, json.RawMessage(body)); err != nil {
		t.Fatalf("failed to write server %s: %v", name, err)
	}
}

func writeProfile(t *testing.T, e *Engine, name string, servers ...string) {
	t.Helper()
	if err := e.Store.SaveProfile(name, &model.Profile{Servers: servers}); err != nil {
		t.Fatalf("failed to write profile %s: %v", name, err)
	}
}

func readManagedKey(t *testing.T, e *Engine) map[string]any {
	t.Helper()
	data, err := os.ReadFile(e.TargetPath)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("target config is not valid JSON: %v", err)
	}
	var servers map[string]any
	if raw, ok := doc[model.ManagedKey]; ok {
		if err := json.Unmarshal(raw, &servers); err != nil {
			t.Fatalf("%s is not a JSON object: %v", model.ManagedKey, err)
		}
	}
	return servers
}

func TestActivateMergesServersAndResolvesPlaceholders(t *testing.T) {
	e, fake := newTestEngine(t)
	e.Env["API_KEY"] = "secret123"

	writeServer(t, e, "fs", `{"command":"npx","args":["pkg"],"env":{"KEY":"{{ENV:API_KEY}}"}}`)
	writeServer(t, e, "web", `{"url":"http://localhost:9000"}`)
	writeProfile(t, e, "work", "fs", "web")

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", res.Warnings)
	}

	servers := readManagedKey(t, e)
	if len(servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", servers)
	}
	fs := servers["fs"].(map[string]any)
	env := fs["env"].(map[string]any)
	if env["KEY"] != "secret123" {
		t.Errorf("placeholder not resolved: got %v", env["KEY"])
	}

	if e.Store.LoadedProfile() != "work" {
		t.Errorf("marker not updated: %q", e.Store.LoadedProfile())
	}
	if len(fake.TerminateCalls) != 1 || len(fake.LaunchCalls) != 1 {
		t.Errorf("expected one restart cycle, got %d/%d", len(fake.TerminateCalls), len(fake.LaunchCalls))
	}
}

func TestActivateMissingServerAbortsWithoutMutation(t *testing.T) {
	e, fake := newTestEngine(t)
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "broken", "fs", "ghost")

	before, err := os.ReadFile(e.TargetPath)
	if err != nil {
		t.Fatal(err)
	}

	_, err = e.Activate("broken")
	var missing *MissingServerError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingServerError, got %v", err)
	}
	if missing.Name != "ghost" {
		t.Errorf("expected ghost, got %q", missing.Name)
	}

	after, err := os.ReadFile(e.TargetPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("target config mutated despite aborted activation")
	}
	if e.Store.LoadedProfile() != "" {
		t.Error("marker written despite aborted activation")
	}
	if len(fake.TerminateCalls) != 0 {
		t.Error("app restarted despite aborted activation")
	}
}

func TestActivateUnknownProfileIsNotFound(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Activate("nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActivateTargetMissing(t *testing.T) {
	e, _ := newTestEngine(t)
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")
	os.Remove(e.TargetPath)

	if _, err := e.Activate("work"); !errors.Is(err, ErrTargetMissing) {
		t.Fatalf("expected ErrTargetMissing, got %v", err)
	}
}

func TestActivateToleratesAbsentManagedKey(t *testing.T) {
	e, _ := newTestEngine(t)
	if err := os.WriteFile(e.TargetPath, []byte(`{"theme":"dark"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}

	snap, err := e.Store.LoadSnapshot()
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if !jsonEqual(snap, json.RawMessage(`{}`)) {
		t.Errorf("snapshot of absent key should be empty object, got %s", snap)
	}
}

func TestActivateToleratesNullTarget(t *testing.T) {
	e, _ := newTestEngine(t)
	// Valid JSON, but decodes to a nil map.
	if err := os.WriteFile(e.TargetPath, []byte(`null`), 0o644); err != nil {
		t.Fatal(err)
	}
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}

	servers := readManagedKey(t, e)
	if _, ok := servers["fs"]; !ok {
		t.Errorf("activated server missing: %v", servers)
	}
	snap, err := e.Store.LoadSnapshot()
	if err != nil {
		t.Fatalf("snapshot missing: %v", err)
	}
	if !jsonEqual(snap, json.RawMessage(`{}`)) {
		t.Errorf("snapshot of a null target should be empty object, got %s", snap)
	}
}

func TestActivatePreservesUnmanagedKeys(t *testing.T) {
	e, _ := newTestEngine(t)
	original := `{"theme":"dark","window":{"width":1200,"tabs":["a","b"]},"mcpServers":{"old":{"command":"stale"}}}`
	if err := os.WriteFile(e.TargetPath, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	if _, err := e.Activate("work"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(e.TargetPath)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if !jsonEqual(doc["theme"], json.RawMessage(`"dark"`)) {
		t.Errorf("theme changed: %s", doc["theme"])
	}
	if !jsonEqual(doc["window"], json.RawMessage(`{"width":1200,"tabs":["a","b"]}`)) {
		t.Errorf("window changed: %s", doc["window"])
	}

	servers := readManagedKey(t, e)
	if _, ok := servers["old"]; ok {
		t.Error("stale server survived activation")
	}
	if _, ok := servers["fs"]; !ok {
		t.Error("activated server missing")
	}
}

func TestActivateTwiceIsAlreadyActive(t *testing.T) {
	e, fake := newTestEngine(t)
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	if _, err := e.Activate("work"); err != nil {
		t.Fatalf("first activation failed: %v", err)
	}
	snapBefore, err := e.Store.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}
	targetBefore, err := os.ReadFile(e.TargetPath)
	if err != nil {
		t.Fatal(err)
	}

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("second activation failed: %v", err)
	}
	if res.Outcome != OutcomeAlreadyActive {
		t.Fatalf("expected already-active, got %s", res.Outcome)
	}

	snapAfter, _ := e.Store.LoadSnapshot()
	if !jsonEqual(snapBefore, snapAfter) {
		t.Error("snapshot changed on a no-op activation")
	}
	targetAfter, _ := os.ReadFile(e.TargetPath)
	if string(targetBefore) != string(targetAfter) {
		t.Error("target rewritten on a no-op activation")
	}
	if len(fake.TerminateCalls) != 1 {
		t.Errorf("expected exactly one restart across both activations, got %d", len(fake.TerminateCalls))
	}
}

func TestActivateRefreshedWhenProfileFileNewer(t *testing.T) {
	e, fake := newTestEngine(t)
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	if _, err := e.Activate("work"); err != nil {
		t.Fatalf("first activation failed: %v", err)
	}
	snapBefore, err := e.Store.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}

	// Touch the profile into the future: content identical but newer
	// than the marker.
	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(e.Store.ProfilePath("work"), future, future); err != nil {
		t.Fatal(err)
	}

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("second activation failed: %v", err)
	}
	if res.Outcome != OutcomeRefreshed {
		t.Fatalf("expected refreshed, got %s", res.Outcome)
	}

	snapAfter, _ := e.Store.LoadSnapshot()
	if !jsonEqual(snapBefore, snapAfter) {
		t.Error("refresh must not touch the rollback snapshot")
	}
	if len(fake.TerminateCalls) != 2 {
		t.Errorf("expected a restart on refresh, got %d terminations", len(fake.TerminateCalls))
	}
}

func TestActivateLastRestoresPreviousContent(t *testing.T) {
	e, _ := newTestEngine(t)
	original := `{"mcpServers":{"old":{"command":"previous","args":["x"]}}}`
	if err := os.WriteFile(e.TargetPath, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	if _, err := e.Activate("work"); err != nil {
		t.Fatalf("activation failed: %v", err)
	}

	res, err := e.Activate("last")
	if err != nil {
		t.Fatalf("rollback failed: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}

	servers := readManagedKey(t, e)
	old, ok := servers["old"].(map[string]any)
	if !ok {
		t.Fatalf("previous content not restored: %v", servers)
	}
	if old["command"] != "previous" {
		t.Errorf("restored content differs: %v", old)
	}

	// No stored profile matches the restored content, so the marker
	// falls back to the literal "last".
	if got := e.Store.LoadedProfile(); got != "last" {
		t.Errorf("expected marker last, got %q", got)
	}
}

func TestActivateLastMatchesNamedProfileForMarker(t *testing.T) {
	e, _ := newTestEngine(t)
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeServer(t, e, "db", `{"command":"dbtool"}`)
	writeProfile(t, e, "alpha", "fs")
	writeProfile(t, e, "beta", "db")

	if _, err := e.Activate("alpha"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Activate("beta"); err != nil {
		t.Fatal(err)
	}

	// Snapshot now holds alpha's content; rolling back should label the
	// marker with the matching profile name.
	if _, err := e.Activate("last"); err != nil {
		t.Fatal(err)
	}
	if got := e.Store.LoadedProfile(); got != "alpha" {
		t.Errorf("expected marker alpha, got %q", got)
	}
}

func TestActivateLastWithoutSnapshotFails(t *testing.T) {
	e, _ := newTestEngine(t)
	if _, err := e.Activate("last"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestActivateLastDoesNotOverwriteSnapshot(t *testing.T) {
	e, _ := newTestEngine(t)
	original := `{"mcpServers":{"old":{"command":"previous"}}}`
	if err := os.WriteFile(e.TargetPath, []byte(original), 0o644); err != nil {
		t.Fatal(err)
	}
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	if _, err := e.Activate("work"); err != nil {
		t.Fatal(err)
	}
	snapBefore, err := e.Store.LoadSnapshot()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := e.Activate("last"); err != nil {
		t.Fatal(err)
	}
	snapAfter, _ := e.Store.LoadSnapshot()
	if !jsonEqual(snapBefore, snapAfter) {
		t.Error("activating last must not overwrite the snapshot")
	}
}

func TestActivateUnresolvedPlaceholderIsWarningNotError(t *testing.T) {
	e, _ := newTestEngine(t)
	writeServer(t, e, "fs", `{"env":{"KEY":"{{ENV:UNSET_KEY}}"}}`)
	writeProfile(t, e, "work", "fs")

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("unresolved placeholder should not abort: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the unresolved placeholder")
	}

	servers := readManagedKey(t, e)
	fs := servers["fs"].(map[string]any)
	env := fs["env"].(map[string]any)
	if env["KEY"] != "" {
		t.Errorf("expected empty string, got %v", env["KEY"])
	}
}

func TestActivateProcessFailuresAreWarnings(t *testing.T) {
	e, fake := newTestEngine(t)
	fake.TerminateErr = errors.New("stubborn process")
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs")

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("process failure should not abort activation: %v", err)
	}
	if len(res.Warnings) == 0 {
		t.Error("expected a warning for the failed terminate")
	}
	if len(fake.LaunchCalls) != 1 {
		t.Error("launch must still be attempted after a failed terminate")
	}
}

func TestActivateDuplicateServerNamesLastWriteWins(t *testing.T) {
	e, _ := newTestEngine(t)
	writeServer(t, e, "fs", `{"command":"npx"}`)
	writeProfile(t, e, "work", "fs", "fs")

	res, err := e.Activate("work")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Outcome != OutcomeApplied {
		t.Errorf("expected applied, got %s", res.Outcome)
	}
	servers := readManagedKey(t, e)
	if len(servers) != 1 {
		t.Errorf("duplicates must collapse to one entry, got %v", servers)
	}
}
