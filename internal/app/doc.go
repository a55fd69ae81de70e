// Package app wires configuration, observability, the session store, the
// survey services and the HTTP router into one runnable application.
//
// Initialization order:
//
//	1. Load configuration (defaults, YAML file, SURVEY_* environment)
//	2. Initialize logging and OpenTelemetry
//	3. Load the instrument and create the session store
//	4. Create services, handlers and the chi router
//	5. Start the session sweeper and the HTTP server
//
// Run blocks until SIGINT or SIGTERM, then shuts the server down, stops the
// sweeper and flushes telemetry. Errors are returned to the caller; the
// package never calls os.Exit.
package app
