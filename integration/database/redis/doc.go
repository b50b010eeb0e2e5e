// Package redis provides the Redis connection helper and the
// Redis-backed session and lockout stores.
//
// Connect establishes a verified connection with automatic retries:
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sessions := redis.NewSessionStore(client)
//	lockouts := redis.NewLockoutStore(client)
//
// SessionStore gives every gateway instance the same view of active
// sessions, with optimistic concurrency enforced server-side through
// WATCH transactions. LockoutStore shares failure counters across
// instances so spreading attempts over replicas does not reset the
// threshold.
package redis
