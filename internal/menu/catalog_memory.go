package menu

import (
	"context"
	"fmt"
	"slices"
	"sync"

	id "dinein/pkg/domain"
	"dinein/pkg/platform/sentinel"
)

// InMemory is a seeded catalog for tests and local runs.
type InMemory struct {
	mu    sync.RWMutex
	items map[id.MenuItemID]Item
}

func NewInMemory(items ...Item) *InMemory {
	c := &InMemory{items: make(map[id.MenuItemID]Item, len(items))}
	for _, item := range items {
		c.items[item.ID] = item
	}
	return c
}

// Put adds or replaces an item. Existing orders keep their snapshot.
func (c *InMemory) Put(item Item) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[item.ID] = item
}

func (c *InMemory) Lookup(_ context.Context, itemID id.MenuItemID) (*Item, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	item, ok := c.items[itemID]
	if !ok {
		return nil, fmt.Errorf("menu item %s: %w", itemID, sentinel.ErrNotFound)
	}
	item.Options = slices.Clone(item.Options)
	return &item, nil
}

// DemoItems seeds a development catalog.
func DemoItems() []Item {
	return []Item{
		{ID: "nasi-goreng", Name: "Nasi Goreng", Price: 35000, Available: true, Options: []ModifierOption{
			{ID: "extra-egg", Group: "topping", Name: "Extra egg", PriceDelta: 5000},
			{ID: "spicy", Group: "spice", Name: "Spicy", PriceDelta: 0},
		}},
		{ID: "sate-ayam", Name: "Sate Ayam", Price: 40000, Available: true},
		{ID: "es-teh", Name: "Es Teh", Price: 8000, Available: true, Options: []ModifierOption{
			{ID: "large", Group: "size", Name: "Large", PriceDelta: 3000},
			{ID: "less-sugar", Group: "sugar", Name: "Less sugar", PriceDelta: 0},
		}},
		{ID: "rendang", Name: "Rendang", Price: 55000, Available: false},
	}
}
