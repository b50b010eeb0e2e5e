// Package pg provides the PostgreSQL connection pool helper and the
// durable audit store.
//
// Connect establishes a verified pool with automatic retries:
//
//	var cfg pg.Config
//	config.MustLoad(&cfg)
//	pool, err := pg.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer pool.Close()
//
//	store := pg.NewAuditStore(pool)
//	if err := store.Migrate(ctx); err != nil {
//		log.Fatal(err)
//	}
//
// AuditStore is append-only: entries are inserted, never updated or
// deleted. Retention is the database owner's concern.
package pg
