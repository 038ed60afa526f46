package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"participa/internal/config"
	"participa/internal/repository/postgres"
	tagService "participa/internal/service/tag"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before creating the schema (fresh start)")
	seedTags := flag.Bool("seed-tags", false, "Insert the starter tag catalog after the schema is ready")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()

	// SAFETY: never drop tables against a production database.
	if cfg.Environment == "prod" && *dropTables {
		log.Fatalf("blocked: --drop-tables is not allowed in production")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		log.Printf("Dropping all tables (environment: %s, prefix: %s)...", cfg.Environment, cfg.TablePrefix)
		if err := dropAllTables(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	log.Println("Ensuring database schema is up to date...")
	if err := runSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	log.Println("Schema ready")

	if *seedTags {
		log.Println("Seeding starter tags...")
		if err := seedStarterTags(ctx, pool, tables, logger); err != nil {
			log.Fatalf("Failed to seed tags: %v", err)
		}
		log.Println("Tags seeded")
	}
}

// runSchema creates tables and indexes if they don't exist.
func runSchema(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, tablePrefix string) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS ` + tables.Documents + ` (
			id TEXT PRIMARY KEY,
			author TEXT NOT NULL,
			custom_form TEXT NOT NULL,
			current_version TEXT,
			published BOOLEAN NOT NULL DEFAULT FALSE,
			published_mail_sent BOOLEAN NOT NULL DEFAULT FALSE,
			comments_count INTEGER NOT NULL DEFAULT 0,
			revision INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Versions + ` (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			version INTEGER NOT NULL,
			content JSONB NOT NULL,
			contributions TEXT[],
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(document, version)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Comments + ` (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			version TEXT NOT NULL,
			user_id TEXT NOT NULL,
			field TEXT NOT NULL,
			content TEXT NOT NULL,
			decoration JSONB,
			resolved BOOLEAN NOT NULL DEFAULT FALSE,
			reply TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Likes + ` (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			comment TEXT NOT NULL REFERENCES ` + tables.Comments + `(id) ON DELETE CASCADE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(user_id, comment)
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Supports + ` (
			document TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			user_id TEXT,
			email TEXT,
			display_name TEXT,
			date TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.SupportTokens + ` (
			id TEXT PRIMARY KEY,
			document TEXT NOT NULL REFERENCES ` + tables.Documents + `(id) ON DELETE CASCADE,
			email TEXT NOT NULL,
			display_name TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Tags + ` (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			key TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS ` + tables.Users + ` (
			id TEXT PRIMARY KEY,
			fullname TEXT NOT NULL,
			email TEXT,
			avatar TEXT,
			fields JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `documents_author ON ` + tables.Documents + `(author)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `versions_document ON ` + tables.Versions + `(document)`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `comments_document_field ON ` + tables.Comments + `(document, field)`,
		// One authenticated support per (document, user) and one anonymous
		// support per (document, email). Enforced here so AppendSupport can
		// surface duplicates as a conflict.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `supports_user ON ` + tables.Supports + `(document, user_id) WHERE user_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_` + tablePrefix + `supports_email ON ` + tables.Supports + `(document, email) WHERE email IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_` + tablePrefix + `support_tokens_email ON ` + tables.SupportTokens + `(email)`,
	}

	for _, indexSQL := range indexes {
		if _, err := pool.Exec(ctx, indexSQL); err != nil {
			return err
		}
	}

	return nil
}

// dropAllTables drops all tables in reverse dependency order.
func dropAllTables(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	tableNames := []string{
		tables.Likes,
		tables.Comments,
		tables.SupportTokens,
		tables.Supports,
		tables.Versions,
		tables.Documents,
		tables.Tags,
		tables.Users,
	}

	for _, name := range tableNames {
		if _, err := pool.Exec(ctx, "DROP TABLE IF EXISTS "+name+" CASCADE"); err != nil {
			return err
		}
	}
	return nil
}

// seedStarterTags inserts a default tag catalog through the tag service so
// slugs and subscriptions go through the same path the API uses.
func seedStarterTags(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames, logger *slog.Logger) error {
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	tagRepo := postgres.NewTagRepository(repoConfig)
	userRepo := postgres.NewUserRepository(repoConfig)
	versionRepo := postgres.NewVersionRepository(repoConfig)

	svc := tagService.NewService(tagRepo, userRepo, versionRepo, logger)

	names := []string{
		"Medio Ambiente",
		"Educación",
		"Salud",
		"Transporte",
		"Seguridad",
	}

	for _, name := range names {
		if _, err := svc.Create(ctx, name); err != nil {
			log.Printf("skipping tag %q: %v", name, err)
		}
	}
	return nil
}
