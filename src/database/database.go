package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/spendfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateAttributionTable()

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		auth_provider TEXT DEFAULT 'local',
		is_email_verified BOOLEAN DEFAULT FALSE,
		email_verification_token TEXT,
		email_verification_token_expires_at TIMESTAMP,
		password_reset_token TEXT,
		password_reset_token_expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS spend_attributions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TEXT NOT NULL,
		product TEXT NOT NULL,
		country TEXT NOT NULL,
		spend_usd REAL NOT NULL DEFAULT 0,
		spend_local REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		UNIQUE(user_id, date, product, country)
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateAttributionTable backfills columns added after the first release of
// the spend_attributions table. No-op when the table does not exist yet.
func migrateAttributionTable() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='spend_attributions'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'spend_attributions' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'spend_attributions' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'spend_attributions' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'spend_attributions' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(spend_attributions)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'spend_attributions'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'spend_attributions': %v", err)
		}
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'spend_attributions'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'spend_attributions': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'spend_attributions'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'spend_attributions': %v", err)
		}
		return
	}

	if _, ok := columnExists["spend_local"]; !ok {
		_, err := DB.Exec("ALTER TABLE spend_attributions ADD COLUMN spend_local REAL NOT NULL DEFAULT 0")
		if err != nil {
			logger.L.Error("Error adding 'spend_local' column to 'spend_attributions' table", "error", err)
		} else {
			logger.L.Info("Added 'spend_local' column to 'spend_attributions' table")
			// Early rows predate currency conversion; backfill with the USD value.
			if _, errUpdate := DB.Exec("UPDATE spend_attributions SET spend_local = spend_usd WHERE spend_local = 0"); errUpdate != nil {
				logger.L.Error("Error backfilling 'spend_local' values", "error", errUpdate)
			}
		}
	}

	if _, ok := columnExists["updated_at"]; !ok {
		_, err := DB.Exec("ALTER TABLE spend_attributions ADD COLUMN updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'updated_at' column to 'spend_attributions' table", "error", err)
		} else {
			logger.L.Info("Added 'updated_at' column to 'spend_attributions' table")
		}
	}
}
