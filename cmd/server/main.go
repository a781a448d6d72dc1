package main

import (
	"database/sql"
	"flag"
	"log"

	"golang.org/x/sync/errgroup"

	"mailgate/internal/backup"
	"mailgate/internal/conf"
	"mailgate/internal/db"
	"mailgate/internal/imap"
	"mailgate/internal/mailsync"
	"mailgate/internal/server"
)

func main() {
	dbPath := flag.String("db", "", "Path to the cache database (overrides config)")
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	log.Println("Starting mailgate IMAP caching gateway...")

	var cfg *conf.Config
	var err error
	if *configPath != "" {
		cfg, err = conf.LoadConfigFile(*configPath)
	} else {
		cfg, err = conf.LoadConfig()
	}
	if err != nil {
		log.Printf("Warning: failed to load config: %v", err)
		log.Println("Running with default configuration")
		cfg = conf.Default()
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}

	var store *backup.SnapshotStore
	if cfg.Backup.Enabled {
		store, err = backup.NewSnapshotStore(cfg.Backup)
		if err != nil {
			log.Printf("Warning: failed to initialize snapshot store: %v", err)
			log.Println("Snapshot uploads will be disabled")
			store = nil
		} else {
			log.Printf("Snapshot store initialized: bucket %s", cfg.Backup.Bucket)
		}
	}

	snapshotPath := cfg.Database + ".snapshot"
	restored, err := backup.Restore(cfg.Database, snapshotPath, store)
	if err != nil {
		log.Printf("Warning: failed to restore snapshot: %v", err)
	} else if restored {
		log.Printf("Restored cache database from snapshot")
	}

	database, err := db.Open(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open cache database:", err)
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Printf("Error closing cache database: %v", err)
		}
	}()
	log.Printf("Cache database opened: %s", cfg.Database)

	var backups *backup.Runner
	if cfg.Backup.Enabled {
		backups = backup.NewRunner(database, snapshotPath, store)
		defer backups.Close()
	}

	mgr := imap.NewManager(imap.NewDialer(cfg.IMAP.InsecureSkipVerify), database, backups)

	reconnectAccounts(mgr, database)

	syncer := mailsync.NewSyncer(mgr, backups)
	srv := server.NewServer(mgr, syncer, cfg.Auth.Secret)

	if err := srv.ListenAndServe(cfg.Listen); err != nil {
		log.Fatal("HTTP server failed:", err)
	}
}

// reconnectAccounts re-dials every persisted account in parallel.
// Individual failures are logged; the gateway still serves the rest.
func reconnectAccounts(mgr *imap.Manager, database *sql.DB) {
	accounts, err := db.GetConnections(database)
	if err != nil {
		log.Printf("Warning: failed to load persisted accounts: %v", err)
		return
	}

	var g errgroup.Group
	for _, account := range accounts {
		account := account
		g.Go(func() error {
			if _, err := mgr.Connect(account); err != nil {
				log.Printf("Failed to reconnect %s@%s: %v", account.Username, account.Address, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(accounts) > 0 {
		log.Printf("Reconnected %d persisted account(s)", len(accounts))
	}
}
