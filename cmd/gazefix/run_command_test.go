package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gazefix/internal/testsupport"
)

func TestRunCommandProcessesRecordings(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRecording(t, env.cfg, "P01", "a", testsupport.BinocularHeader, binocularRows(10))
	testsupport.WriteRecording(t, env.cfg, "P02", "b", testsupport.BinocularHeader, binocularRows(10))
	testsupport.WriteRecording(t, env.cfg, "P02", "empty", testsupport.BinocularHeader, nil)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Processed: 2")
	requireContains(t, out, "Fixations: 4")
	requireContains(t, out, "empty=1")

	data, err := os.ReadFile(env.cfg.TablePath())
	if err != nil {
		t.Fatalf("read table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d:\n%s", len(lines), data)
	}
	if !strings.HasSuffix(lines[1], ",01,a") || !strings.HasSuffix(lines[4], ",02,b") {
		t.Fatalf("unexpected row identities:\n%s", data)
	}
	if !strings.Contains(lines[2], ",true,") {
		t.Fatalf("flank flag not carried: %s", lines[2])
	}
}

func TestRunCommandOverrides(t *testing.T) {
	env := setupCLITestEnv(t)
	otherData := filepath.Join(env.baseDir, "elsewhere")
	otherOut := filepath.Join(env.baseDir, "results")
	env.cfg.Paths.DataDir = otherData
	if err := os.MkdirAll(otherData, 0o755); err != nil {
		t.Fatal(err)
	}
	testsupport.WriteRecording(t, env.cfg, "S3", "t1", testsupport.BinocularHeader, binocularRows(5))

	out, _, err := runCLI(t, []string{"run", "--data", otherData, "--output", otherOut, "--workers", "2", "--no-plots"}, env.configPath)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}
	requireContains(t, out, "Processed: 1")
	if _, err := os.Stat(filepath.Join(otherOut, "allfixations.txt")); err != nil {
		t.Fatalf("table not written to overridden output: %v", err)
	}
	if _, err := os.Stat(filepath.Join(otherOut, "S3", "t1.png")); !os.IsNotExist(err) {
		t.Fatalf("figure written despite --no-plots: %v", err)
	}
}

func TestRunCommandStopsOnFailedPreflight(t *testing.T) {
	env := setupCLITestEnv(t)
	env.cfg.Classifier.Command = "clearly-not-present-classifier"
	writeTestConfig(t, env.configPath, env.cfg)

	out, _, err := runCLI(t, []string{"run"}, env.configPath)
	if err == nil {
		t.Fatal("expected preflight failure")
	}
	requireContains(t, out, "Classifier")
	if _, statErr := os.Stat(env.cfg.TablePath()); !os.IsNotExist(statErr) {
		t.Fatalf("table should not exist after a refused run: %v", statErr)
	}
}

func TestRunsAndShowCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.WriteRecording(t, env.cfg, "P05", "trial", testsupport.BinocularHeader, binocularRows(6))

	out, _, err := runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "No runs recorded")

	if out, _, err := runCLI(t, []string{"run"}, env.configPath); err != nil {
		t.Fatalf("run: %v\n%s", err, out)
	}

	out, _, err = runCLI(t, []string{"runs"}, env.configPath)
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	requireContains(t, out, "completed")

	store := testsupport.MustOpenStore(t, env.cfg)
	runs, err := store.ListRuns(context.Background(), 1)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns: %v (%d runs)", err, len(runs))
	}

	out, _, err = runCLI(t, []string{"show", runs[0].ID[:8], "--fixations"}, env.configPath)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	requireContains(t, out, runs[0].ID)
	requireContains(t, out, "processed")
	requireContains(t, out, "binocular")
	requireContains(t, out, "FixStart")

	if _, _, err := runCLI(t, []string{"show", "does-not-exist"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown run")
	}
}
