// Package logx configures qotdbot's infra-level structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// Service-level logging (engine, command surface) goes through log/slog
// instead; logx is for packages below the service line (storage, config).
package logx
