package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shinyyama/chatshop-backend/internal/config"
	"github.com/shinyyama/chatshop-backend/internal/db"
	"github.com/shinyyama/chatshop-backend/internal/model"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type seedPool struct {
	Category  string
	Name      string
	BasePrice string
	Currency  string
	Stock     int
	// Tiers as (minQuantity, unitPrice) pairs; empty means flat base price.
	Tiers [][2]string
}

func main() {
	if err := run(); err != nil {
		log.Fatalf("seed failed: %v", err)
	}
}

func run() error {
	ctx := context.Background()
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	if err := db.Migrate(gdb); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	canSeed, err := shouldSeed(ctx, gdb)
	if err != nil {
		return err
	}
	if !canSeed {
		log.Printf("catalog already populated; skipping seed (set FORCE_SEED=true to override)")
		return nil
	}

	pools := buildSeedPools()
	return gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		categories := map[string]uint64{}
		for _, p := range pools {
			if _, ok := categories[p.Category]; ok {
				continue
			}
			c := model.Category{Name: p.Category}
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("create category %q: %w", p.Category, err)
			}
			categories[p.Category] = c.ID
		}

		for _, p := range pools {
			catID := categories[p.Category]
			sub := model.Subcategory{
				CategoryID: catID,
				Name:       p.Name,
				BasePrice:  decimal.RequireFromString(p.BasePrice),
				Currency:   p.Currency,
			}
			if err := tx.Create(&sub).Error; err != nil {
				return fmt.Errorf("create subcategory %q: %w", p.Name, err)
			}

			items := make([]model.Item, 0, p.Stock)
			for i := 0; i < p.Stock; i++ {
				items = append(items, model.Item{
					CategoryID:    catID,
					SubcategoryID: sub.ID,
					Payload:       fmt.Sprintf("%s unit %d", p.Name, i+1),
				})
			}
			if len(items) > 0 {
				if err := tx.Create(&items).Error; err != nil {
					return fmt.Errorf("create items for %q: %w", p.Name, err)
				}
			}

			tiers := make([]model.PriceTier, 0, len(p.Tiers))
			for _, t := range p.Tiers {
				var minQty int
				if _, err := fmt.Sscanf(t[0], "%d", &minQty); err != nil {
					return fmt.Errorf("tier quantity %q for %q: %w", t[0], p.Name, err)
				}
				tiers = append(tiers, model.PriceTier{
					CategoryID:    catID,
					SubcategoryID: sub.ID,
					MinQuantity:   minQty,
					UnitPrice:     decimal.RequireFromString(t[1]),
				})
			}
			if len(tiers) > 0 {
				if err := tx.Create(&tiers).Error; err != nil {
					return fmt.Errorf("create tiers for %q: %w", p.Name, err)
				}
			}
			log.Printf("seeded pool %s/%s: %d units, %d tiers", p.Category, p.Name, p.Stock, len(tiers))
		}
		return nil
	})
}

func buildSeedPools() []seedPool {
	return []seedPool{
		{Category: "Coffee", Name: "Single Origin Beans 250g", BasePrice: "12.50", Currency: "EUR", Stock: 40,
			Tiers: [][2]string{{"1", "12.50"}, {"5", "11.20"}, {"10", "9.90"}}},
		{Category: "Coffee", Name: "Espresso Blend 1kg", BasePrice: "28.00", Currency: "EUR", Stock: 25,
			Tiers: [][2]string{{"1", "28.00"}, {"3", "25.50"}}},
		{Category: "Tea", Name: "Sencha Loose Leaf 100g", BasePrice: "9.80", Currency: "EUR", Stock: 60,
			Tiers: [][2]string{{"1", "9.80"}, {"5", "8.90"}, {"10", "7.75"}}},
		{Category: "Tea", Name: "Earl Grey Sampler", BasePrice: "6.40", Currency: "EUR", Stock: 80},
		{Category: "Accessories", Name: "Ceramic Pour-Over Dripper", BasePrice: "24.00", Currency: "USD", Stock: 15,
			Tiers: [][2]string{{"1", "24.00"}, {"4", "21.00"}}},
		{Category: "Accessories", Name: "Double-Wall Glass Mug", BasePrice: "14.00", Currency: "USD", Stock: 30},
	}
}

func shouldSeed(ctx context.Context, gdb *gorm.DB) (bool, error) {
	var cnt int64
	if err := gdb.WithContext(ctx).Model(&model.Subcategory{}).Count(&cnt).Error; err != nil {
		return false, fmt.Errorf("count subcategories: %w", err)
	}
	if cnt == 0 {
		return true, nil
	}
	return strings.EqualFold(os.Getenv("FORCE_SEED"), "true"), nil
}
