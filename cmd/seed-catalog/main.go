// seed-catalog inserts a small set of demo products with Amazon sources so the
// sync pipeline has rows to work against in a fresh database.
//
// Usage:
//   DB_USER=... DB_PASSWORD=... DB_HOST=... DB_PORT=... DB_NAME=... go run ./cmd/seed-catalog
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/greenloop/catalog_backend/amazonsync"
	"github.com/greenloop/catalog_backend/config"
	"github.com/greenloop/catalog_backend/models"
	"gorm.io/gorm"
)

type seedEntry struct {
	name string
	slug string
	asin string
	tag  string
}

var seedEntries = []seedEntry{
	{name: "Bamboo Toothbrush 4-Pack", slug: "bamboo-toothbrush-4-pack", asin: "B07QXZ1C4K", tag: "greenloop-20"},
	{name: "Stainless Steel Water Bottle 750ml", slug: "stainless-steel-water-bottle-750ml", asin: "B08KHV2J3M", tag: "greenloop-20"},
	{name: "Beeswax Food Wraps Set", slug: "beeswax-food-wraps-set", asin: "B07Y5D8NQP", tag: "greenloop-20"},
	{name: "Compostable Trash Bags 13gal", slug: "compostable-trash-bags-13gal", asin: "B01N5R7F2X", tag: "greenloop-20"},
}

func main() {
	ctx := context.Background()
	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil). Set DB_* env vars.")
		os.Exit(1)
	}
	models.MigrateTable()

	for _, entry := range seedEntries {
		var product models.Product
		err := db.WithContext(ctx).Where("slug = ?", entry.slug).First(&product).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				fmt.Fprintf(os.Stderr, "failed to lookup product %s: %v\n", entry.slug, err)
				os.Exit(1)
			}
			product = models.Product{Name: entry.name, Slug: entry.slug}
			if err := db.WithContext(ctx).Create(&product).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to create product %s: %v\n", entry.slug, err)
				os.Exit(1)
			}
			fmt.Printf("created product %s (%s)\n", product.Name, product.ID)
		} else {
			fmt.Printf("product %s already exists (%s)\n", product.Name, product.ID)
		}

		var source models.Source
		err = db.WithContext(ctx).
			Where("product_id = ? AND source_name = ?", product.ID, amazonsync.SourceNameAmazon).
			First(&source).Error
		if err != nil {
			if err != gorm.ErrRecordNotFound {
				fmt.Fprintf(os.Stderr, "failed to lookup source for %s: %v\n", entry.slug, err)
				os.Exit(1)
			}
			source = models.Source{
				ProductId:    product.ID,
				SourceName:   amazonsync.SourceNameAmazon,
				SourceUrl:    "https://www.amazon.com/dp/" + entry.asin + "?tag=" + entry.tag,
				AffiliateTag: entry.asin,
			}
			if err := db.WithContext(ctx).Create(&source).Error; err != nil {
				fmt.Fprintf(os.Stderr, "failed to create source for %s: %v\n", entry.slug, err)
				os.Exit(1)
			}
			fmt.Printf("  linked Amazon source %s\n", entry.asin)
		} else {
			fmt.Printf("  Amazon source already linked (%s)\n", source.AffiliateTag)
		}
	}

	fmt.Println("seed complete")
}
