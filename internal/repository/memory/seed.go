package memory

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"marketplace/internal/domain"
)

type seedFile struct {
	Products []seedProduct `yaml:"products"`
}

type seedProduct struct {
	ID       int    `yaml:"id"`
	Name     string `yaml:"name"`
	Price    string `yaml:"price"`
	Stock    int    `yaml:"stock"`
	VendorID int    `yaml:"vendorId"`
}

// LoadCatalog reads products from a YAML file of the form:
//
//	products:
//	  - id: 1
//	    name: Mug
//	    price: "10.00"
//	    stock: 5
//	    vendorId: 9
func LoadCatalog(path string) ([]domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) ([]domain.Product, error) {
	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	products := make([]domain.Product, 0, len(file.Products))
	seen := make(map[int]bool, len(file.Products))
	for i, sp := range file.Products {
		if sp.ID <= 0 {
			return nil, fmt.Errorf("product %d: id must be positive", i)
		}
		if seen[sp.ID] {
			return nil, fmt.Errorf("product %d: duplicate id %d", i, sp.ID)
		}
		seen[sp.ID] = true

		price, err := decimal.NewFromString(sp.Price)
		if err != nil {
			return nil, fmt.Errorf("product %d: invalid price %q: %w", sp.ID, sp.Price, err)
		}
		if price.IsNegative() {
			return nil, fmt.Errorf("product %d: price cannot be negative", sp.ID)
		}
		if sp.Stock < 0 {
			return nil, fmt.Errorf("product %d: stock cannot be negative", sp.ID)
		}
		if sp.VendorID <= 0 {
			return nil, fmt.Errorf("product %d: vendorId must be positive", sp.ID)
		}
		products = append(products, domain.Product{
			ID:       sp.ID,
			Name:     sp.Name,
			Price:    price,
			Stock:    sp.Stock,
			VendorID: sp.VendorID,
		})
	}
	return products, nil
}
