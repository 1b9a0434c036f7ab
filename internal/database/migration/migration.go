package migration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"time"
)

type migrationStep struct {
	Name string
	SQL  string
}

var steps = []migrationStep{
	{
		Name: "create_extension_uuid_ossp",
		SQL:  `CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	},
	{
		Name: "create_table_documents",
		SQL: `CREATE TABLE IF NOT EXISTS documents (
  id               UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  secure_id        TEXT        NOT NULL UNIQUE,
  original_name    TEXT        NOT NULL,
  storage_path     TEXT        NOT NULL UNIQUE,
  size             BIGINT      NOT NULL CHECK (size >= 0),
  content_type     TEXT        NOT NULL,
  owner_id         TEXT        NOT NULL,
  owner_email      TEXT        NOT NULL DEFAULT '',
  allowed_action   TEXT        NOT NULL DEFAULT 'PRINT' CHECK (allowed_action IN ('PRINT', 'DOWNLOAD')),
  expires_in       INT         NOT NULL CHECK (expires_in > 0),
  expire_at        TIMESTAMPTZ NOT NULL,
  receiver_shop_id TEXT,
  sender_name      TEXT        NOT NULL DEFAULT 'Anonymous',
  watermark_style  TEXT        NOT NULL DEFAULT 'GHOST' CHECK (watermark_style IN ('GHOST', 'FOOTER')),
  created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_access_logs",
		SQL: `CREATE TABLE IF NOT EXISTS access_logs (
  id          UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  document_id UUID        NOT NULL REFERENCES documents (id) ON DELETE CASCADE,
  accessed_by TEXT        NOT NULL,
  snapshot    TEXT        NOT NULL DEFAULT '',
  accessed_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_table_shops",
		SQL: `CREATE TABLE IF NOT EXISTS shops (
  id         UUID        PRIMARY KEY DEFAULT uuid_generate_v4(),
  owner_id   TEXT        NOT NULL UNIQUE,
  shop_id    TEXT        NOT NULL UNIQUE,
  shop_name  TEXT        NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`,
	},
	{
		Name: "create_index_documents_owner_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_owner_id ON documents (owner_id);`,
	},
	{
		Name: "create_index_documents_receiver_shop_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_receiver_shop_id ON documents (receiver_shop_id);`,
	},
	{
		Name: "create_index_documents_expire_at",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_documents_expire_at ON documents (expire_at);`,
	},
	{
		Name: "create_index_access_logs_document_id",
		SQL:  `CREATE INDEX IF NOT EXISTS idx_access_logs_document_id ON access_logs (document_id, accessed_at);`,
	},
}

// EnsureMigrated checks if the 'documents' table exists and runs migrations if it doesn't.
func EnsureMigrated(ctx context.Context, db *sql.DB, loc *time.Location, dbHost string) error {
	start := time.Now()

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_check",
		"status":    "starting",
		"db_host":   dbHost,
	})

	var exists bool
	query := "SELECT to_regclass('public.documents') IS NOT NULL"
	err := db.QueryRowContext(ctx, query).Scan(&exists)
	if err != nil {
		logJSON(loc, map[string]any{
			"component":     "database",
			"event":         "db_migration_failed",
			"status":        "error",
			"error_message": fmt.Sprintf("failed to check sentinel table: %v", err),
			"db_host":       dbHost,
			"duration_ms":   time.Since(start).Milliseconds(),
		})
		return fmt.Errorf("failed to check sentinel table: %w", err)
	}

	if exists {
		logJSON(loc, map[string]any{
			"component":   "database",
			"event":       "db_migration_skip",
			"status":      "success",
			"msg":         "schema already exists, skipping migration",
			"db_host":     dbHost,
			"duration_ms": time.Since(start).Milliseconds(),
		})
		return nil
	}

	logJSON(loc, map[string]any{
		"component": "database",
		"event":     "db_migration_start",
		"status":    "in_progress",
		"db_host":   dbHost,
	})

	for _, step := range steps {
		stepStart := time.Now()
		_, err := db.ExecContext(ctx, step.SQL)
		if err != nil {
			logJSON(loc, map[string]any{
				"component":        "database",
				"event":            "db_migration_failed",
				"status":           "error",
				"migration_step":   step.Name,
				"error_message":    err.Error(),
				"db_host":          dbHost,
				"duration_ms":      time.Since(start).Milliseconds(),
				"step_duration_ms": time.Since(stepStart).Milliseconds(),
			})
			return fmt.Errorf("migration step %s failed: %w", step.Name, err)
		}

		logJSON(loc, map[string]any{
			"component":        "database",
			"event":            "db_migration_step",
			"status":           "success",
			"migration_step":   step.Name,
			"db_host":          dbHost,
			"step_duration_ms": time.Since(stepStart).Milliseconds(),
		})
	}

	logJSON(loc, map[string]any{
		"component":   "database",
		"event":       "db_migration_success",
		"status":      "success",
		"db_host":     dbHost,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return nil
}

func logJSON(loc *time.Location, data map[string]any) {
	data["ts"] = time.Now().In(loc).Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		if data["status"] == "error" {
			data["level"] = "error"
		} else {
			data["level"] = "info"
		}
	}

	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal migration log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
