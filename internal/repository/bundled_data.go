package repository

import (
	"embed"
	"encoding/json"
	"fmt"

	"QuantDesk/internal/domain/models"
	"QuantDesk/internal/domain/repository"
)

//go:embed data/*.json
var bundledFS embed.FS

// BundledData serves the credential list, strategy catalog and network list
// compiled into the binary.
type BundledData struct {
	users    []models.User
	catalog  models.Catalog
	networks []models.NeuralNetwork
}

var (
	_ repository.CredentialStore = (*BundledData)(nil)
	_ repository.CatalogSource   = (*BundledData)(nil)
)

// LoadBundledData parses the embedded data files.
func LoadBundledData() (*BundledData, error) {
	var dir models.UserDirectory
	if err := readBundled("data/users.json", &dir); err != nil {
		return nil, err
	}
	var catalog models.Catalog
	if err := readBundled("data/strategies.json", &catalog); err != nil {
		return nil, err
	}
	var networks []models.NeuralNetwork
	if err := readBundled("data/neural_networks.json", &networks); err != nil {
		return nil, err
	}
	return NewBundledData(dir.Users, catalog, networks), nil
}

// NewBundledData builds a data set from explicit values.
func NewBundledData(users []models.User, catalog models.Catalog, networks []models.NeuralNetwork) *BundledData {
	return &BundledData{
		users:    append([]models.User(nil), users...),
		catalog:  catalog.Clone(),
		networks: append([]models.NeuralNetwork(nil), networks...),
	}
}

func (d *BundledData) Lookup(email, password string) (models.User, bool) {
	for _, u := range d.users {
		if u.Email == email && u.Password == password {
			return u, true
		}
	}
	return models.User{}, false
}

// Bundled returns a fresh deep copy of the catalog on every call.
func (d *BundledData) Bundled() models.Catalog {
	return d.catalog.Clone()
}

func (d *BundledData) Networks() []models.NeuralNetwork {
	return append([]models.NeuralNetwork(nil), d.networks...)
}

func readBundled(name string, dest any) error {
	b, err := bundledFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(b, dest); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
