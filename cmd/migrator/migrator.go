package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/NordCoder/Recipebox/internal/config/secrets"
	pg "github.com/NordCoder/Recipebox/internal/repository/postgres"
	"github.com/NordCoder/Recipebox/migrations"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	secrets.LoadDotEnv()
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN is empty")
	}
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	if err := pg.Migrate(ctx, dsn, migrations.FS, command); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Printf("migrations: %s OK", command)
}
