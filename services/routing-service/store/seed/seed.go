// Package seed loads reference data (shippers, eligibility rules, rate
// cards and zone matrices) from a YAML fixture.
package seed

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/zonematrix"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type File struct {
	Organizations []Organization `yaml:"organizations"`
	ZipZones      []ZipZone      `yaml:"zip_zones"`
	RateCards     []RateCard     `yaml:"rate_cards"`
	ZoneMatrices  []ZoneMatrix   `yaml:"zone_matrices"`
}

type Organization struct {
	ShipperSeqNum         int64    `yaml:"shipper_seq_num"`
	Name                  string   `yaml:"name"`
	Tobacco               bool     `yaml:"tobacco"`
	TobaccoShipToBusiness bool     `yaml:"tobacco_ship_to_business"`
	TerminalProviderOrder []string `yaml:"terminal_provider_order"`
}

// ZipZone leaves Tobacco and ShipperID unset for "no value", matching the
// nullable columns.
type ZipZone struct {
	Carrier   string         `yaml:"carrier"`
	Zipcode   string         `yaml:"zipcode"`
	MaxWeight float64        `yaml:"max_weight"`
	Tobacco   *bool          `yaml:"tobacco"`
	ShipperID *int64         `yaml:"shipper_id"`
	Options   map[string]any `yaml:"options"`
}

type RateCard struct {
	ShipperID int64  `yaml:"shipper_id"`
	Zone      int    `yaml:"zone"`
	Weight    int    `yaml:"weight"`
	Cost      string `yaml:"cost"`
}

// ZoneMatrix is either a full 999 entry Zones list or a DefaultZone with
// Overrides keyed by destination prefix ("100").
type ZoneMatrix struct {
	OriginPrefix string            `yaml:"origin_prefix"`
	Zones        []string          `yaml:"zones"`
	DefaultZone  string            `yaml:"default_zone"`
	Overrides    map[string]string `yaml:"overrides"`
}

// Parse decodes a fixture. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode seed file: %w", err)
	}
	return &f, nil
}

// LoadFile parses path and writes it into w.
func LoadFile(ctx context.Context, path string, w store.ReferenceWriter) (Summary, error) {
	fh, err := os.Open(path)
	if err != nil {
		return Summary{}, err
	}
	defer fh.Close()
	f, err := Parse(fh)
	if err != nil {
		return Summary{}, err
	}
	tx, ok := w.(store.TxRunner)
	if !ok {
		return f.Load(ctx, w)
	}
	// all or nothing
	var sum Summary
	err = tx.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		sum, err = f.Load(ctx, w)
		return err
	})
	if err != nil {
		return Summary{}, err
	}
	return sum, nil
}

// Summary counts what was written.
type Summary struct {
	Organizations int
	ZipZones      int
	RateCards     int
	ZoneMatrices  int
}

// Load converts and writes every record. It stops at the first bad record.
func (f *File) Load(ctx context.Context, w store.ReferenceWriter) (Summary, error) {
	var sum Summary

	for i, o := range f.Organizations {
		org, err := o.model()
		if err != nil {
			return sum, fmt.Errorf("organizations[%d]: %w", i, err)
		}
		if err := w.PutOrganization(ctx, org); err != nil {
			return sum, fmt.Errorf("organizations[%d]: %w", i, err)
		}
		sum.Organizations++
	}

	for i, z := range f.ZipZones {
		zz, err := z.model()
		if err != nil {
			return sum, fmt.Errorf("zip_zones[%d]: %w", i, err)
		}
		if err := w.PutZipZone(ctx, zz); err != nil {
			return sum, fmt.Errorf("zip_zones[%d]: %w", i, err)
		}
		sum.ZipZones++
	}

	for i, rc := range f.RateCards {
		cost, err := decimal.NewFromString(rc.Cost)
		if err != nil {
			return sum, fmt.Errorf("rate_cards[%d]: cost %q: %w", i, rc.Cost, err)
		}
		if rc.Zone < 1 || rc.Zone > 8 || rc.Weight < 1 {
			return sum, fmt.Errorf("rate_cards[%d]: zone %d weight %d out of range", i, rc.Zone, rc.Weight)
		}
		if err := w.PutRateCard(ctx, rc.ShipperID, rc.Zone, rc.Weight, cost); err != nil {
			return sum, fmt.Errorf("rate_cards[%d]: %w", i, err)
		}
		sum.RateCards++
	}

	for i, m := range f.ZoneMatrices {
		zm, err := m.model()
		if err != nil {
			return sum, fmt.Errorf("zone_matrices[%d]: %w", i, err)
		}
		if err := w.PutZoneMatrix(ctx, zm); err != nil {
			return sum, fmt.Errorf("zone_matrices[%d]: %w", i, err)
		}
		sum.ZoneMatrices++
	}
	return sum, nil
}

func (o Organization) model() (models.Organization, error) {
	order := make([]carrier.ID, 0, len(o.TerminalProviderOrder))
	for _, name := range o.TerminalProviderOrder {
		id, err := carrier.Parse(name)
		if err != nil {
			return models.Organization{}, err
		}
		order = append(order, id)
	}
	return models.Organization{
		ShipperSeqNum: o.ShipperSeqNum,
		Name:          o.Name,
		Settings: models.OrganizationSettings{
			Tobacco:               o.Tobacco,
			TobaccoShipToBusiness: o.TobaccoShipToBusiness,
		},
		TerminalProviderOrder: order,
	}, nil
}

func (z ZipZone) model() (models.ZipZone, error) {
	id, err := carrier.Parse(z.Carrier)
	if err != nil {
		return models.ZipZone{}, err
	}
	if z.Zipcode == "" || z.MaxWeight <= 0 {
		return models.ZipZone{}, fmt.Errorf("zipcode and a positive max_weight are required")
	}
	return models.ZipZone{
		Carrier:   id,
		Zipcode:   z.Zipcode,
		MaxWeight: z.MaxWeight,
		Tobacco:   models.TobaccoFlagFromPtr(z.Tobacco),
		ShipperID: z.ShipperID,
		Options:   z.Options,
	}, nil
}

func (m ZoneMatrix) model() (models.ZoneMatrix, error) {
	if _, err := zonematrix.Prefix(m.OriginPrefix); err != nil || len(m.OriginPrefix) != 3 {
		return models.ZoneMatrix{}, fmt.Errorf("origin_prefix %q must be three digits", m.OriginPrefix)
	}

	zones := m.Zones
	if len(zones) == 0 {
		zones = make([]string, models.ZoneMatrixWidth)
		for i := range zones {
			zones[i] = m.DefaultZone
		}
		for prefix, code := range m.Overrides {
			n, err := strconv.Atoi(prefix)
			if err != nil || n < 1 || n > models.ZoneMatrixWidth {
				return models.ZoneMatrix{}, fmt.Errorf("override key %q is not a destination prefix", prefix)
			}
			zones[n-1] = code
		}
	} else if len(m.Overrides) > 0 || m.DefaultZone != "" {
		return models.ZoneMatrix{}, fmt.Errorf("zones cannot be combined with default_zone or overrides")
	}
	if len(zones) != models.ZoneMatrixWidth {
		return models.ZoneMatrix{}, fmt.Errorf("zones has %d entries, want %d", len(zones), models.ZoneMatrixWidth)
	}
	for i, code := range zones {
		if _, err := zonematrix.ParseZoneCode(code); err != nil {
			return models.ZoneMatrix{}, fmt.Errorf("zones[%d]: %w", i, err)
		}
	}
	return models.ZoneMatrix{OriginPrefix: m.OriginPrefix, Zones: zones}, nil
}
