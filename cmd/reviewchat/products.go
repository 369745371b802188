package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/calque-ai/reviewchat/pkg/retrieval"
)

// product is one entry of a products file.
type product struct {
	ProductID   string             `json:"product_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Reviews     []retrieval.Review `json:"reviews"`
}

// loadProducts reads either {"products": [...]} or a bare array.
func loadProducts(path string) ([]product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read products %s: %w", path, err)
	}
	return parseProducts(data)
}

func parseProducts(data []byte) ([]product, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var products []product
		if err := json.Unmarshal(data, &products); err != nil {
			return nil, fmt.Errorf("failed to parse products: %w", err)
		}
		return products, nil
	}

	var wrapper struct {
		Products []product `json:"products"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("failed to parse products: %w", err)
	}
	return wrapper.Products, nil
}
