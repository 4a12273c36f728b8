// Package sqlite provides a file-backed diagram registry so rendered
// diagrams survive process restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"mermaidview/domain/core/entities"
	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
	"mermaidview/pkg/utils"
)

const schema = `
CREATE TABLE IF NOT EXISTS diagrams (
	id               TEXT PRIMARY KEY,
	code             TEXT NOT NULL,
	width            INTEGER NOT NULL,
	height           INTEGER NOT NULL,
	theme            TEXT NOT NULL,
	format           TEXT NOT NULL,
	scale            REAL NOT NULL,
	transparent      INTEGER NOT NULL,
	background_color TEXT NOT NULL,
	padding          INTEGER NOT NULL,
	name             TEXT NOT NULL DEFAULT '',
	description      TEXT NOT NULL DEFAULT '',
	rendered         BLOB,
	rendered_by      TEXT NOT NULL DEFAULT '',
	created_at       TEXT NOT NULL,
	updated_at       TEXT NOT NULL
);
`

// DiagramRegistry persists diagrams in a sqlite database. Listing follows
// rowid, which matches insertion order.
type DiagramRegistry struct {
	db *sql.DB
}

// NewDiagramRegistry opens (and if needed initializes) the database at path
func NewDiagramRegistry(path string) (*DiagramRegistry, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	// The driver serializes access; a single connection avoids SQLITE_BUSY
	// under concurrent writes.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize diagram schema: %w", err)
	}

	return &DiagramRegistry{db: db}, nil
}

// Put inserts or replaces a diagram by id
func (r *DiagramRegistry) Put(ctx context.Context, diagram *entities.Diagram) error {
	if diagram == nil {
		return pkgerrors.NewValidationError("diagram cannot be nil")
	}

	config := diagram.Config()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO diagrams (
			id, code, width, height, theme, format, scale, transparent,
			background_color, padding, name, description, rendered,
			rendered_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			width = excluded.width,
			height = excluded.height,
			theme = excluded.theme,
			format = excluded.format,
			scale = excluded.scale,
			transparent = excluded.transparent,
			background_color = excluded.background_color,
			padding = excluded.padding,
			name = excluded.name,
			description = excluded.description,
			rendered = excluded.rendered,
			rendered_by = excluded.rendered_by,
			updated_at = excluded.updated_at`,
		diagram.ID(),
		diagram.Code().String(),
		config.Width(),
		config.Height(),
		string(config.Theme()),
		string(config.Format()),
		config.Scale(),
		boolToInt(config.Transparent()),
		config.BackgroundColor(),
		config.Padding(),
		diagram.Name(),
		diagram.Description(),
		diagram.Rendered(),
		diagram.RenderedBy(),
		utils.FormatStoredTime(diagram.CreatedAt()),
		utils.FormatStoredTime(diagram.UpdatedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to store diagram %s: %w", diagram.ID(), err)
	}
	return nil
}

// Get retrieves a diagram by id
func (r *DiagramRegistry) Get(ctx context.Context, id string) (*entities.Diagram, error) {
	row := r.db.QueryRowContext(ctx, selectColumns+" FROM diagrams WHERE id = ?", id)

	diagram, err := scanDiagram(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.NewNotFoundError("diagram").
			WithDetails(map[string]interface{}{"id": id})
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load diagram %s: %w", id, err)
	}
	return diagram, nil
}

// List returns all diagrams in insertion order
func (r *DiagramRegistry) List(ctx context.Context) ([]*entities.Diagram, error) {
	rows, err := r.db.QueryContext(ctx, selectColumns+" FROM diagrams ORDER BY rowid")
	if err != nil {
		return nil, fmt.Errorf("failed to list diagrams: %w", err)
	}
	defer rows.Close()

	var result []*entities.Diagram
	for rows.Next() {
		diagram, err := scanDiagram(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagram row: %w", err)
		}
		result = append(result, diagram)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate diagram rows: %w", err)
	}
	return result, nil
}

// Delete removes a diagram by id
func (r *DiagramRegistry) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM diagrams WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete diagram %s: %w", id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}
	if affected == 0 {
		return pkgerrors.NewNotFoundError("diagram").
			WithDetails(map[string]interface{}{"id": id})
	}
	return nil
}

// Close closes the underlying database
func (r *DiagramRegistry) Close() error {
	return r.db.Close()
}

const selectColumns = `SELECT
	id, code, width, height, theme, format, scale, transparent,
	background_color, padding, name, description, rendered,
	rendered_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDiagram(row rowScanner) (*entities.Diagram, error) {
	var (
		id, rawCode, theme, format string
		width, height, padding     int
		scale                      float64
		transparent                int
		backgroundColor            string
		name, description          string
		rendered                   []byte
		renderedBy                 string
		createdAtRaw, updatedAtRaw string
	)

	if err := row.Scan(
		&id, &rawCode, &width, &height, &theme, &format, &scale,
		&transparent, &backgroundColor, &padding, &name, &description,
		&rendered, &renderedBy, &createdAtRaw, &updatedAtRaw,
	); err != nil {
		return nil, err
	}

	code, err := valueobjects.NewMermaidCode(rawCode)
	if err != nil {
		return nil, fmt.Errorf("stored code is invalid: %w", err)
	}

	pad := padding
	config, err := valueobjects.NewRenderConfig(valueobjects.RenderConfigParams{
		Width:           width,
		Height:          height,
		Theme:           theme,
		Format:          format,
		Scale:           scale,
		Transparent:     transparent != 0,
		BackgroundColor: backgroundColor,
		Padding:         &pad,
	})
	if err != nil {
		return nil, fmt.Errorf("stored config is invalid: %w", err)
	}

	createdAt, err := utils.ParseStoredTime(createdAtRaw)
	if err != nil {
		return nil, fmt.Errorf("stored created_at is invalid: %w", err)
	}
	updatedAt, err := utils.ParseStoredTime(updatedAtRaw)
	if err != nil {
		return nil, fmt.Errorf("stored updated_at is invalid: %w", err)
	}

	return entities.ReconstructDiagram(
		id, code, config, name, description,
		rendered, renderedBy, createdAt, updatedAt,
	)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
