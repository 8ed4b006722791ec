package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/abgdnv/productmanager/internal/catalog"
	"golang.org/x/sync/errgroup"
)

// ParseSeed reads a db.json document: one array of products per collection name.
// Collections that do not name a page are skipped with a warning.
func ParseSeed(data []byte, logger *slog.Logger) (map[catalog.Page][]catalog.Product, error) {
	var doc map[string][]catalog.Product
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode seed: %w", err)
	}
	seed := make(map[catalog.Page][]catalog.Product, len(doc))
	for resource, products := range doc {
		page, err := catalog.PageFromResource(resource)
		if err != nil {
			logger.Warn("Skipping unknown seed collection", "collection", resource)
			continue
		}
		seed[page] = products
	}
	return seed, nil
}

// Seed loads products into pages that are still empty, one goroutine per page.
// Products without an id are given the next free id of their page.
func Seed(ctx context.Context, s PageStore, seed map[catalog.Page][]catalog.Product, logger *slog.Logger) error {
	g, gCtx := errgroup.WithContext(ctx)
	for page, products := range seed {
		g.Go(func() error {
			n, err := s.Count(gCtx, page)
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Page already populated, seed skipped", "page", int(page), "count", n)
				return nil
			}
			for _, p := range products {
				if p.ID == 0 {
					in := catalog.ProductInput{Title: p.Title, Description: p.Description, Price: p.Price}
					if _, err := s.Create(gCtx, page, in); err != nil {
						return fmt.Errorf("failed to seed page %d: %w", page, err)
					}
					continue
				}
				if err := s.Insert(gCtx, page, p); err != nil {
					return fmt.Errorf("failed to seed page %d: %w", page, err)
				}
			}
			logger.Info("Page seeded", "page", int(page), "count", len(products))
			return nil
		})
	}
	return g.Wait()
}

// SeedFile reads the seed document at path and loads it with Seed.
func SeedFile(ctx context.Context, s PageStore, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}
	seed, err := ParseSeed(data, logger)
	if err != nil {
		return err
	}
	return Seed(ctx, s, seed, logger)
}
