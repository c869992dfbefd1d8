// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

The environment is read with cleanenv; flags, when given, win.

# Environment Variables

	PORT            → -p            (default 3318)
	APP_ENV         → -env          (default local)
	AUTH_SECRET     → -auth-secret  (required)
	CORS_ORIGINS    comma-separated (default *)
	RABBITMQ_URL    vote event queue broker (optional)
	RABBITMQ_QUEUE  (default poll-votes)

# Storage Profiles

The selector probes these in order and uses the first that connects:

	kv        KV_URL + KV_REST_API_TOKEN
	upstash   UPSTASH_REDIS_URL + UPSTASH_REDIS_TOKEN
	redis     REDIS_URL (→ -redis) [+ REDIS_PASSWORD]
	postgres  DATABASE_URL (→ -d)
	sqlite    SQLITE_PATH (→ -sqlite)

With none configured, polls live in process memory.
*/
package cliparse
