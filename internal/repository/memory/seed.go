package memory

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/segyhp/credit-engine/internal/domain"
)

// Seed is the JSON document accepted by LoadSeed.
type Seed struct {
	Customers []*domain.Customer `json:"customers"`
	Products  []*domain.Product  `json:"products"`
}

// LoadSeed adds the customers and products of a JSON seed document.
// Missing IDs are generated; a customer without available credit starts with
// its whole limit, since a seed carries no purchases.
func (s *Store) LoadSeed(r io.Reader) (*Seed, error) {
	var seed Seed
	if err := json.NewDecoder(r).Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	for _, c := range seed.Customers {
		if c.CreditLimit.IsNegative() {
			return nil, fmt.Errorf("customer %q: negative credit limit", c.Name)
		}
		if c.PayDay < 1 || c.PayDay > 31 {
			return nil, fmt.Errorf("customer %q: pay_day must be within 1..31", c.Name)
		}
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		if c.AvailableCredit.IsZero() {
			c.AvailableCredit = c.CreditLimit
		}
	}
	for _, p := range seed.Products {
		if !p.Price.IsPositive() {
			return nil, fmt.Errorf("product %q: price must be positive", p.Code)
		}
		if p.ID == uuid.Nil {
			p.ID = uuid.New()
		}
	}

	for _, c := range seed.Customers {
		s.AddCustomer(c)
	}
	for _, p := range seed.Products {
		s.AddProduct(p)
	}
	return &seed, nil
}

// LoadSeedFile is LoadSeed over the file at path.
func (s *Store) LoadSeedFile(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.LoadSeed(f)
}
