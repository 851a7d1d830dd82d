// Package settings loads the back-office data the invoicing core reads but
// never writes: clients, payment methods and the extra-fee catalog.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"courier/internal/logger"
	"courier/internal/reconciliation"
	"courier/pkg/models"
)

// ErrClientNotFound is returned when a client id is not configured.
var ErrClientNotFound = errors.New("client not found")

// Settings is the decoded settings file.
type Settings struct {
	Clients        []models.Client        `json:"clients"`
	PaymentMethods []models.PaymentMethod `json:"paymentMethods"`
	ExtraFees      []models.ExtraFee      `json:"extraFees"`

	clients map[string]models.Client
}

// Load reads and parses the settings file. A missing file yields empty
// settings so the core still runs without payment methods or clients.
func Load(path string) (*Settings, error) {
	const op = "settings.Load"
	log := logger.WithComponent("settings")

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Msg("Settings file not found, using empty settings")
		return Parse(nil)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read %s: %w", op, path, err)
	}

	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	log.Debug().
		Str("path", path).
		Int("clients", len(s.Clients)).
		Int("payment_methods", len(s.PaymentMethods)).
		Int("extra_fees", len(s.ExtraFees)).
		Msg("Settings loaded")
	return s, nil
}

// Parse decodes settings JSON. Entries without an id, and payment methods
// with an unknown billing action, are dropped with a warning.
func Parse(data []byte) (*Settings, error) {
	var raw Settings
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode settings: %w", err)
		}
	}

	log := logger.WithComponent("settings")
	v := validator.New()

	s := &Settings{clients: make(map[string]models.Client, len(raw.Clients))}
	for i, c := range raw.Clients {
		if c.ID == "" {
			log.Warn().Int("index", i).Str("name", c.Name).Msg("Skipping client without id")
			continue
		}
		s.Clients = append(s.Clients, c)
		s.clients[c.ID] = c
	}

	for i, m := range raw.PaymentMethods {
		if m.ID == "" {
			log.Warn().Int("index", i).Str("name", m.Name).Msg("Skipping payment method without id")
			continue
		}
		if err := v.Var(string(m.BillingAction), "required,oneof=GenerateFeeDebit GenerateRepasseCredit None"); err != nil {
			log.Warn().
				Str("payment_method_id", m.ID).
				Str("billing_action", string(m.BillingAction)).
				Msg("Skipping payment method with unknown billing action")
			continue
		}
		s.PaymentMethods = append(s.PaymentMethods, m)
	}

	for i, f := range raw.ExtraFees {
		if f.ID == "" {
			log.Warn().Int("index", i).Str("name", f.Name).Msg("Skipping extra fee without id")
			continue
		}
		s.ExtraFees = append(s.ExtraFees, f)
	}

	return s, nil
}

// Client returns the configured client with the given id.
func (s *Settings) Client(id string) (*models.Client, error) {
	c, ok := s.clients[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrClientNotFound, id)
	}
	return &c, nil
}

// Rules builds the reconciliation engine for the configured payment methods
// and extra fees.
func (s *Settings) Rules() *reconciliation.Engine {
	return reconciliation.NewEngine(
		reconciliation.NewRegistry(s.PaymentMethods),
		reconciliation.NewCatalog(s.ExtraFees),
	)
}
