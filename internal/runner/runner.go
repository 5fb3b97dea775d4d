package runner

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mickamy/planview/internal/model"
)

// Options customises how EXPLAIN is executed.
type Options struct {
	// Analyze executes the statement; without it only the planner estimates
	// are returned.
	Analyze bool
	Buffers bool
	Format  model.Format
	Timeout time.Duration
}

// DefaultOptions mirrors EXPLAIN (ANALYZE, BUFFERS, FORMAT JSON).
func DefaultOptions() Options {
	return Options{Analyze: true, Buffers: true, Format: model.FormatJSON}
}

// Query builds the EXPLAIN statement for sqlStatement.
func Query(sqlStatement string, opts Options) (string, error) {
	query := strings.TrimRight(strings.TrimSpace(sqlStatement), ";")
	if strings.TrimSpace(query) == "" {
		return "", fmt.Errorf("runner: empty sql statement")
	}

	var parts []string
	if opts.Analyze {
		parts = append(parts, "ANALYZE")
	}
	if opts.Buffers {
		parts = append(parts, "BUFFERS")
	}
	switch opts.Format {
	case "", model.FormatJSON:
		parts = append(parts, "FORMAT JSON")
	case model.FormatYAML:
		parts = append(parts, "FORMAT YAML")
	case model.FormatText:
		parts = append(parts, "FORMAT TEXT")
	default:
		return "", fmt.Errorf("runner: unsupported format %q", opts.Format)
	}
	return fmt.Sprintf("EXPLAIN (%s) %s", strings.Join(parts, ", "), query), nil
}

// Run executes EXPLAIN for the provided SQL statement and returns the plan in
// the requested format. Text plans arrive one line per row and are joined.
func Run(ctx context.Context, dsn, sqlStatement string, opts Options) ([]byte, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("runner: empty DSN")
	}
	explainSQL, err := Query(sqlStatement, opts)
	if err != nil {
		return nil, err
	}

	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("runner: connect: %w", err)
	}
	defer conn.Close(ctx)

	if opts.Format == model.FormatText {
		rows, err := conn.Query(ctx, explainSQL)
		if err != nil {
			return nil, fmt.Errorf("runner: query: %w", err)
		}
		lines, err := pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return nil, fmt.Errorf("runner: read rows: %w", err)
		}
		return []byte(strings.Join(lines, "\n") + "\n"), nil
	}

	var payload string
	if err := conn.QueryRow(ctx, explainSQL).Scan(&payload); err != nil {
		return nil, fmt.Errorf("runner: query: %w", err)
	}
	return []byte(payload), nil
}
