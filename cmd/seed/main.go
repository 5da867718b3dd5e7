package main

import (
	"fmt"
	"os"
	"time"

	"github.com/sylvan-next/internal/config"
	"github.com/sylvan-next/internal/constants"
	"github.com/sylvan-next/internal/logger"
	"github.com/sylvan-next/internal/models"

	"github.com/shopspring/decimal"
)

func main() {
	// 连接数据库
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}

	// 自动迁移
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	// 默认管理员
	adminUsername := os.Getenv("SYLVAN_DEFAULT_ADMIN_USERNAME")
	adminPassword := os.Getenv("SYLVAN_DEFAULT_ADMIN_PASSWORD")
	if err := models.InitDefaultAdmin(adminUsername, adminPassword); err != nil {
		stdLog.Printf("Failed to init default admin: %v", err)
	} else {
		stdLog.Println("Default admin ready")
	}

	// 添加认养树木
	trees := []models.Tree{
		{
			Name:        "Willow of the North Gate",
			Species:     "Salix babylonica",
			Location:    "North Grove, Section A",
			Description: "A mature weeping willow beside the irrigation channel. Adopters receive quarterly growth photos.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(39.00)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(390)),
			AdopterCap:  5,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1502082553048-f009c37129b9?w=800",
			}),
			Status: constants.TreeStatusAvailable,
		},
		{
			Name:        "Old Ginkgo",
			Species:     "Ginkgo biloba",
			Location:    "East Ridge, Section C",
			Description: "Estimated 80 years old. Single-adopter tree with an engraved plaque.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(129.00)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(1290)),
			AdopterCap:  1,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1542273917363-3b1817f69a2d?w=800",
			}),
			Status: constants.TreeStatusAvailable,
		},
		{
			Name:        "Seedling Row 12",
			Species:     "Pinus tabuliformis",
			Location:    "Reforestation Belt, Row 12",
			Description: "Young pine planted last spring. Shared adoption helps cover its first three years of care.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(12.50)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(125)),
			AdopterCap:  20,
			Status:      constants.TreeStatusAvailable,
		},
	}

	for _, tree := range trees {
		var existing models.Tree
		if err := models.DB.Where("name = ?", tree.Name).First(&existing).Error; err != nil {
			// 不存在则创建
			if err := models.DB.Create(&tree).Error; err != nil {
				stdLog.Printf("Failed to create tree %s: %v", tree.Name, err)
			} else {
				stdLog.Printf("Created tree: %s", tree.Name)
			}
		} else {
			existing.Species = tree.Species
			existing.Location = tree.Location
			existing.Description = tree.Description
			existing.PriceAmount = tree.PriceAmount
			existing.TokenPrice = tree.TokenPrice
			existing.AdopterCap = tree.AdopterCap
			existing.Images = tree.Images
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update tree %s: %v", tree.Name, err)
			} else {
				stdLog.Printf("Updated tree: %s", tree.Name)
			}
		}
	}

	// 添加认养地块
	plots := []models.LandPlot{
		{
			Name:        "Riverside Meadow",
			Region:      "West Valley",
			Description: "Ten-square-meter plots along the river bank, restored as wildflower meadow.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(25.00)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(250)),
			TotalSlots:  40,
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1500382017468-9049fed747ef?w=800",
			}),
			Status: constants.PlotStatusAvailable,
		},
		{
			Name:        "Terraced Orchard Slope",
			Region:      "East Ridge",
			Description: "Terraced slope being replanted with native fruit trees. Each slot funds one terrace section.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(60.00)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(600)),
			TotalSlots:  12,
			Status:      constants.PlotStatusAvailable,
		},
	}

	for _, plot := range plots {
		var existing models.LandPlot
		if err := models.DB.Where("name = ?", plot.Name).First(&existing).Error; err != nil {
			if err := models.DB.Create(&plot).Error; err != nil {
				stdLog.Printf("Failed to create plot %s: %v", plot.Name, err)
			} else {
				stdLog.Printf("Created plot: %s", plot.Name)
			}
		} else {
			existing.Region = plot.Region
			existing.Description = plot.Description
			existing.PriceAmount = plot.PriceAmount
			existing.TokenPrice = plot.TokenPrice
			existing.TotalSlots = plot.TotalSlots
			existing.Images = plot.Images
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update plot %s: %v", plot.Name, err)
			} else {
				stdLog.Printf("Updated plot: %s", plot.Name)
			}
		}
	}

	// 添加实体商品
	products := []models.Product{
		{
			Slug:        "forest-honey-500g",
			Name:        "Forest Honey 500g",
			Description: "Raw honey harvested from hives kept at the edge of the adoption grove.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(18.00)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(180)),
			Images: models.StringArray([]string{
				"https://images.unsplash.com/photo-1587049352846-4a222e784d38?w=800",
			}),
			Tags:             models.StringArray([]string{"Food", "Honey"}),
			StockTotal:       200,
			RequiresShipping: true,
			IsActive:         true,
			SortOrder:        10,
		},
		{
			Slug:        "canvas-tote",
			Name:        "Grove Canvas Tote",
			Description: "Organic cotton tote printed with this season's grove map.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(14.50)),
			TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(145)),
			Tags:        models.StringArray([]string{"Merch"}),
			StockTotal:  80,
			RequiresShipping: true,
			IsActive:         true,
			SortOrder:        20,
			Variants: []models.ProductVariant{
				{
					Name:        "Natural",
					PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(14.50)),
					TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(145)),
					IsActive:    true,
					SortOrder:   1,
				},
				{
					Name:        "Forest Green",
					PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(16.00)),
					TokenPrice:  models.NewMoneyFromDecimal(decimal.NewFromFloat(160)),
					IsActive:    true,
					SortOrder:   2,
				},
			},
		},
		{
			Slug:        "seed-kit",
			Name:        "Native Wildflower Seed Kit",
			Description: "A mix of six native wildflower species, enough for two square meters.",
			PriceAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(6.00)),
			// 纯法币商品，不设积分价格
			Tags:             models.StringArray([]string{"Seeds", "Garden"}),
			StockTotal:       0,
			RequiresShipping: true,
			IsActive:         true,
			SortOrder:        30,
		},
		{
			Slug:             "digital-certificate-frame",
			Name:             "Printable Certificate Template",
			Description:      "A high-resolution template for printing your adoption certificate at home.",
			PriceAmount:      models.NewMoneyFromDecimal(decimal.NewFromFloat(2.00)),
			TokenPrice:       models.NewMoneyFromDecimal(decimal.NewFromFloat(20)),
			StockTotal:       0,
			RequiresShipping: false,
			IsActive:         true,
			SortOrder:        40,
		},
	}

	for _, product := range products {
		var existing models.Product
		if err := models.DB.Where("slug = ?", product.Slug).First(&existing).Error; err != nil {
			if err := models.DB.Create(&product).Error; err != nil {
				stdLog.Printf("Failed to create product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Created product: %s", product.Slug)
			}
		} else {
			existing.Name = product.Name
			existing.Description = product.Description
			existing.PriceAmount = product.PriceAmount
			existing.TokenPrice = product.TokenPrice
			existing.Images = product.Images
			existing.Tags = product.Tags
			existing.StockTotal = product.StockTotal
			existing.RequiresShipping = product.RequiresShipping
			existing.IsActive = product.IsActive
			existing.SortOrder = product.SortOrder
			if err := models.DB.Save(&existing).Error; err != nil {
				stdLog.Printf("Failed to update product %s: %v", product.Slug, err)
			} else {
				stdLog.Printf("Updated product: %s", product.Slug)
			}
		}
	}

	// 添加演示优惠码
	welcomeExpiry := time.Now().AddDate(0, 3, 0)
	welcomeCap := models.NewMoneyFromDecimal(decimal.NewFromFloat(10.00))
	discounts := []models.Discount{
		{
			Code:           "WELCOME10",
			Percent:        10,
			MaxUsage:       500,
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(20.00)),
			MaxDiscount:    &welcomeCap,
			ExpiresAt:      &welcomeExpiry,
			Status:         constants.DiscountStatusActive,
		},
		{
			Code:           "GROVE25",
			Percent:        25,
			MaxUsage:       50,
			MinOrderAmount: models.NewMoneyFromDecimal(decimal.NewFromFloat(60.00)),
			Status:         constants.DiscountStatusActive,
		},
	}

	for _, discount := range discounts {
		var existing models.Discount
		if err := models.DB.Where("code = ?", discount.Code).First(&existing).Error; err != nil {
			if err := models.DB.Create(&discount).Error; err != nil {
				stdLog.Printf("Failed to create discount %s: %v", discount.Code, err)
			} else {
				stdLog.Printf("Created discount: %s", discount.Code)
			}
		} else {
			stdLog.Printf("Discount already exists: %s", discount.Code)
		}
	}

	fmt.Println("\n✅ Seed data created successfully!")
	fmt.Println("Summary:")
	fmt.Println("- 3 Trees (含多名额认养演示)")
	fmt.Println("- 2 Land plots")
	fmt.Println("- 4 Products (含规格与无限库存演示商品)")
	fmt.Println("- 2 Discount codes")
	fmt.Println("- Default admin account")
}
