package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sagebrookliving/sagebrook-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("migrations dir failed validation: %v", err)
	}
}

func TestLeadsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_leads.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no leads migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TABLE IF NOT EXISTS leads",
		"CREATE UNIQUE INDEX IF NOT EXISTS leads_transaction_id_key",
		"FOREIGN KEY (community_id) REFERENCES communities(id) ON DELETE SET NULL",
		"CHECK (value >= 0)",
		"DROP TABLE IF EXISTS leads",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
