package menu

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
)

// Postgres reads the catalog tables owned by the menu service.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (c *Postgres) Lookup(ctx context.Context, itemID id.MenuItemID) (*Item, error) {
	item := &Item{ID: itemID}
	err := c.db.QueryRowContext(ctx,
		`SELECT name, price, available FROM menu_items WHERE id = $1`, string(itemID),
	).Scan(&item.Name, &item.Price, &item.Available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("menu item %s: %w", itemID, sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup menu item: %w", err)
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT id, group_name, name, price_delta
		FROM modifier_options WHERE menu_item_id = $1 ORDER BY group_name, id`, string(itemID))
	if err != nil {
		return nil, fmt.Errorf("list modifier options: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			opt      ModifierOption
			optionID string
		)
		if err := rows.Scan(&optionID, &opt.Group, &opt.Name, &opt.PriceDelta); err != nil {
			return nil, fmt.Errorf("scan modifier option: %w", err)
		}
		opt.ID = id.ModifierOptionID(optionID)
		item.Options = append(item.Options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modifier options: %w", err)
	}
	return item, nil
}

// Seed upserts items. Used for local development and integration tests.
func (c *Postgres) Seed(ctx context.Context, items []Item) error {
	for _, item := range items {
		_, err := c.db.ExecContext(ctx, `
			INSERT INTO menu_items (id, name, price, available) VALUES ($1, $2, $3, $4)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price, available = EXCLUDED.available`,
			string(item.ID), item.Name, item.Price, item.Available)
		if err != nil {
			return fmt.Errorf("seed menu item %s: %w", item.ID, err)
		}
		for _, opt := range item.Options {
			_, err := c.db.ExecContext(ctx, `
				INSERT INTO modifier_options (id, menu_item_id, group_name, name, price_delta) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET group_name = EXCLUDED.group_name, name = EXCLUDED.name, price_delta = EXCLUDED.price_delta`,
				string(opt.ID), string(item.ID), opt.Group, opt.Name, opt.PriceDelta)
			if err != nil {
				return fmt.Errorf("seed modifier option %s: %w", opt.ID, err)
			}
		}
	}
	return nil
}
