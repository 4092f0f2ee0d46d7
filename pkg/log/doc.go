/*
Package log provides structured logging for the client process using zerolog.

The log package wraps zerolog to provide JSON-structured logging with
component-specific loggers, configurable log levels, and helper functions for
common logging patterns. All logs include timestamps and support filtering by
severity level.

# Architecture

	┌──────────────────── LOGGING SYSTEM ──────────────────────┐
	│                                                            │
	│  ┌────────────────────────────────────────────┐          │
	│  │            Global Logger                    │          │
	│  │  - Zerolog instance                         │          │
	│  │  - Initialized via log.Init()               │          │
	│  │  - Thread-safe for concurrent use           │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │           Configuration                     │          │
	│  │  - Level: debug/info/warn/error             │          │
	│  │  - Format: JSON or console (human)          │          │
	│  │  - Output: stdout, file, or custom writer   │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │         Component Loggers                   │          │
	│  │  - WithComponent("dispatcher")              │          │
	│  │  - WithJobID("job-42")                      │          │
	│  │  - WithDigest("a3f2...")                    │          │
	│  │  - WithArtifact("layer.tar")                │          │
	│  └──────────────────┬─────────────────────────┘          │
	│                     │                                      │
	│  ┌──────────────────▼─────────────────────────┐          │
	│  │            Log Output                       │          │
	│  │  JSON: {"level":"info","component":        │          │
	│  │  "dispatcher","job_id":"42","message":     │          │
	│  │  "job accepted"}                            │          │
	│  │  Console: 10:30AM INF job accepted         │          │
	│  │  component=dispatcher job_id=42             │          │
	│  └────────────────────────────────────────────┘           │
	└────────────────────────────────────────────────────────┘

# Core Components

Global Logger:
  - Package-level zerolog.Logger instance
  - Initialized once via log.Init()
  - Accessible from all packages without passing
  - Thread-safe concurrent writes

Log Levels:
  - Debug: Detailed debugging information (artifact registered)
  - Info: General informational messages (dispatcher draining, control
    connection closed by broker)
  - Warn: Potential issues (control connection write half failed to close)
  - Error: Operation failures (artifact push failed, dispatcher or wire
    reader terminated)
  - Fatal: Critical errors that end the process (log.Fatal)

Context Loggers:
  - WithComponent: Add component name (dispatcher, artifact_pusher,
    wire_reader, driver, client)
  - WithJobID: Add client job ID context
  - WithDigest: Add artifact digest context
  - WithArtifact: Add artifact path context

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	log.Info("client driver started")

	dispatchLog := log.WithComponent("dispatcher")
	dispatchLog.Info().Uint32("client_job_id", 7).Msg("job accepted")

	pushLog := log.WithArtifact(path).With().Str("digest", digest.String()).Logger()
	pushLog.Error().Err(err).Msg("artifact push failed")

# Design Patterns

Global Logger Pattern:
  - Single package-level Logger instance, initialized once at process start
  - Accessible from all packages without passing a logger through call chains

Context Logger Pattern:
  - Child loggers carry job ID / digest / artifact fields automatically
  - Avoids repeating the same fields at every call site

Error Logging Pattern:
  - Always attach errors with .Err(err), never string-format them into Msg

# Security

  - Never log directive file contents verbatim; they may carry environment
    variables with secrets. Log digests and paths, not payload bytes.

# See Also

  - Zerolog documentation: https://github.com/rs/zerolog
*/
package log
