//go:build integration

package steps

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cucumber/godog"
)

// Cleanup scenarios share the process context for the temp root and router.
func InitializeCleanupScenario(ctx *godog.ScenarioContext) {
	ctx.Step(`^the stale age is (\d+) hours?$`, theStaleAgeIs)
	ctx.Step(`^a session directory "([^"]*)" last modified (\d+) (hours|minutes) ago$`, aDirectoryLastModified)
	ctx.Step(`^an unrelated directory "([^"]*)" last modified (\d+) (hours|minutes) ago$`, aDirectoryLastModified)
	ctx.Step(`^the cleanup should report (\d+) cleaned and (\d+) remaining$`, theCleanupShouldReport)
	ctx.Step(`^the directory "([^"]*)" should still exist$`, theDirectoryShouldStillExist)
}

func theStaleAgeIs(hours int) error {
	getProcessContext().staleMaxAge = time.Duration(hours) * time.Hour
	return nil
}

func aDirectoryLastModified(name string, n int, unit string) error {
	age := time.Duration(n) * time.Minute
	if unit == "hours" {
		age = time.Duration(n) * time.Hour
	}
	dir := filepath.Join(getProcessContext().root, name)
	if err := os.Mkdir(dir, 0o700); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "video.mp4.part"), []byte("partial"), 0o600); err != nil {
		return err
	}
	mtime := time.Now().Add(-age)
	return os.Chtimes(dir, mtime, mtime)
}

func theCleanupShouldReport(cleaned, remaining int) error {
	pc := getProcessContext()
	if err := pc.numberField("cleaned", cleaned); err != nil {
		return err
	}
	return pc.numberField("remaining", remaining)
}

func theDirectoryShouldStillExist(name string) error {
	if _, err := os.Stat(filepath.Join(getProcessContext().root, name)); err != nil {
		return fmt.Errorf("expected %s to survive cleanup: %w", name, err)
	}
	return nil
}
