package main

import (
	"log"
	"net/http"
	"os"

	"bingo-live/internal/config"
	"bingo-live/internal/db"
	"bingo-live/internal/server"

	"gorm.io/gorm"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Printf("failed to load .env: %v", err)
	}
	cfg := config.Load()

	conn := openDatabase(cfg)

	addr := ":8080"
	if env := os.Getenv("PORT"); env != "" {
		addr = ":" + env
	}

	srv := server.New(conn, cfg)
	log.Printf("bingo-live server listening on %s", addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		log.Fatal(err)
	}
}

// openDatabase opens Postgres when DATABASE_URL is set. Without it the
// server runs purely in memory, which is fine for local play.
func openDatabase(cfg config.Config) *gorm.DB {
	if os.Getenv("DATABASE_URL") == "" {
		log.Println("DATABASE_URL not set, running without persistence")
		return nil
	}
	conn, err := db.Open()
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	if err := db.Configure(conn, cfg); err != nil {
		log.Fatalf("database pool configuration failed: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}
	return conn
}
