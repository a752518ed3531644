// File: lixenwraith/buildconfig/internal/logging/doc.go

// Package logging builds the zap logger used by the command. Logs go to
// stderr so stdout stays free for the resolved configuration.
package logging
