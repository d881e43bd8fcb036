// Package app composes the character API from its stores and services.
//
// # Package Structure
//
//	internal/app/
//	├── application.go      # Stores, Options and the Application wiring
//	├── domain/
//	│   ├── character/      # Character record and attribute helpers
//	│   └── account/        # Registered user credential
//	├── query/              # Filter, sort, paginate and sample pipeline
//	├── services/
//	│   ├── characters/     # Reads and serialised mutations
//	│   └── accounts/       # Register and login
//	├── storage/            # Store interfaces and backends
//	│   ├── file/           # JSON files (characters.json, users.json)
//	│   ├── memory/         # In-process store for tests and demos
//	│   ├── sqlite/         # modernc.org/sqlite
//	│   ├── postgres/       # sqlx + lib/pq, schema in internal/platform/migrations
//	│   └── redisstore/     # Credentials in Redis
//	├── httpapi/            # gorilla/mux routes and the audit log
//	├── metrics/            # Prometheus collectors
//	├── runtime/            # Config driven assembly and server lifecycle
//	└── system/             # Start/stop ordering for long-lived components
//
// # Request Flow
//
//	HTTP request
//	  → CORS, tracing
//	  → router: metrics, auth gate, rate limit, audit
//	  → httpapi handler
//	  → characters.Service / accounts.Service
//	  → storage backend
//
// Reads operate on snapshot copies and never block each other. Mutations
// hold the characters service mutex from load to persist, so concurrent
// creates receive distinct ids and updates are not lost.
//
// # Usage
//
//	application, err := app.New(app.Stores{}, app.Options{Secret: key}, log)
//	if err != nil {
//	    return err
//	}
//	defer application.Close()
//	handler := httpapi.NewHandler(application, log)
//
// Nil stores fall back to the memory backend.
package app
