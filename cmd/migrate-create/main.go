package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Creates a timestamped up/down migration pair under db/migrations.
func main() {
	name := flag.String("name", "", "migration name")
	flag.Parse()

	if *name == "" {
		log.Fatal("migration name is required")
	}
	if strings.ContainsAny(*name, " ") {
		log.Fatal("migration name must not contain spaces")
	}

	version := time.Now().UTC().Format("20060102150405")
	base := fmt.Sprintf("%s_%s", version, *name)
	dir := filepath.Join("db", "migrations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("create migrations dir: %v", err)
	}

	for _, suffix := range []string{".up.sql", ".down.sql"} {
		path := filepath.Join(dir, base+suffix)
		if _, err := os.Stat(path); err == nil {
			log.Fatalf("file already exists: %s", path)
		}
		kind := strings.TrimSuffix(strings.TrimPrefix(suffix, "."), ".sql")
		header := "-- " + kind + " migration\n"
		if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
			log.Fatalf("create migration file: %v", err)
		}
		log.Printf("created %s", path)
	}
}
