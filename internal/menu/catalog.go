// Package menu is the read-only port onto the menu catalog. Orders consult it
// once, at placement, to snapshot names and prices.
package menu

import (
	"context"

	id "dinein/pkg/domain"
)

// Item is a menu entry with its selectable modifier options.
type Item struct {
	ID        id.MenuItemID
	Name      string
	Price     int64
	Available bool
	Options   []ModifierOption
}

// ModifierOption is one choice within a modifier group ("size: large").
type ModifierOption struct {
	ID         id.ModifierOptionID
	Group      string
	Name       string
	PriceDelta int64
}

// Catalog looks up menu items. Implementations return sentinel.ErrNotFound for
// unknown items.
type Catalog interface {
	Lookup(ctx context.Context, itemID id.MenuItemID) (*Item, error)
}

// Option returns the named option, if the item offers it.
func (i *Item) Option(optionID id.ModifierOptionID) (ModifierOption, bool) {
	for _, opt := range i.Options {
		if opt.ID == optionID {
			return opt, true
		}
	}
	return ModifierOption{}, false
}
