package storage

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"newsassist/internal/domain"
	"newsassist/internal/ports"
)

// PostgresArchive persists refreshed feed items into Postgres for
// history/audit. It is optional: the in-memory cache is the serving store.
type PostgresArchive struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.ItemArchive = (*PostgresArchive)(nil)

// NewPostgresArchive wires a sql.DB implementation.
func NewPostgresArchive(db *sql.DB) *PostgresArchive {
	return &PostgresArchive{
		db:      db,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// SaveItems upserts the refreshed item snapshots for a section.
func (a *PostgresArchive) SaveItems(ctx context.Context, section string, items []domain.Item) error {
	if a.db == nil || len(items) == 0 {
		return nil
	}

	insert := a.builder.
		Insert("feed_items").
		Columns("external_id", "section", "title", "link", "description", "published_at", "categories", "author")

	for _, item := range items {
		insert = insert.Values(
			item.ID,
			section,
			item.Title,
			item.Link,
			item.Description,
			item.PublishedAt,
			pq.StringArray(item.Categories),
			item.Author,
		)
	}

	query, args, err := insert.
		Suffix(`ON CONFLICT (external_id) DO UPDATE
                SET title = EXCLUDED.title,
                    description = EXCLUDED.description,
                    published_at = EXCLUDED.published_at,
                    categories = EXCLUDED.categories,
                    updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	if _, err := a.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("upsert items: %w", err)
	}

	return nil
}

// RecentItems returns the latest archived items for a section.
func (a *PostgresArchive) RecentItems(ctx context.Context, section string, limit int) ([]domain.Item, error) {
	if a.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}

	query, args, err := a.builder.
		Select("external_id", "title", "link", "description", "published_at", "categories", "author").
		From("feed_items").
		Where(sq.Eq{"section": section}).
		OrderBy("updated_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	rows, err := a.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var items []domain.Item
	for rows.Next() {
		var (
			item       domain.Item
			categories pq.StringArray
		)
		if err := rows.Scan(&item.ID, &item.Title, &item.Link, &item.Description,
			&item.PublishedAt, &categories, &item.Author); err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		item.Categories = categories
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return items, nil
}
