package store

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
)

const migrationsDir = "../../db/migrations"

func TestMigrationsHaveMatchingUpAndDownFiles(t *testing.T) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}

	pattern := regexp.MustCompile(`^(\d+)_.*\.(up|down)\.sql$`)
	byVersion := map[string]map[string]bool{}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := pattern.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, direction := match[1], match[2]
		if byVersion[version] == nil {
			byVersion[version] = map[string]bool{}
		}
		if byVersion[version][direction] {
			t.Fatalf("duplicate %s migration file for version %s", direction, version)
		}
		byVersion[version][direction] = true
	}

	if len(byVersion) == 0 {
		t.Fatal("no migrations discovered")
	}
	for version, dirs := range byVersion {
		if !dirs["up"] || !dirs["down"] {
			t.Fatalf("version %s must include both up and down files", version)
		}
	}
}

func TestListMigrationsOrdersByDirection(t *testing.T) {
	up, err := listMigrations(migrationsDir, "up")
	if err != nil {
		t.Fatalf("list up: %v", err)
	}
	down, err := listMigrations(migrationsDir, "down")
	if err != nil {
		t.Fatalf("list down: %v", err)
	}
	if len(up) < 2 || len(up) != len(down) {
		t.Fatalf("unexpected migration counts up=%d down=%d", len(up), len(down))
	}
	if up[0].version != "0001" || down[0].version != up[len(up)-1].version {
		t.Fatalf("unexpected order up=%v down=%v", up, down)
	}
	for _, file := range up {
		if !strings.HasSuffix(file.name, ".up.sql") || filepath.Dir(file.path) != filepath.Clean(migrationsDir) {
			t.Fatalf("unexpected migration file %+v", file)
		}
	}
}

func TestPerformanceTableIsKeyedByNeighborhoodCityState(t *testing.T) {
	contents, err := os.ReadFile(filepath.Join(migrationsDir, "0001_marketing.up.sql"))
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	if !strings.Contains(string(contents), "PRIMARY KEY (neighborhood, city, state)") {
		t.Fatal("neighborhood_performance must be keyed by (neighborhood, city, state)")
	}
	if !strings.Contains(SQLiteSchema, "PRIMARY KEY (neighborhood, city, state)") {
		t.Fatal("sqlite schema must use the same performance key")
	}
}
