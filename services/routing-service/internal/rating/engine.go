// Package rating prices orders against the shipper's rate card.
package rating

import (
	"context"
	"math"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/ratecard"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/zonematrix"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DimDivisor converts cubic inches to dimensional pounds.
const DimDivisor = 166.0

// ZoneResolver is satisfied by *zonematrix.Session.
type ZoneResolver interface {
	Resolve(ctx context.Context, first, second string) (int, bool, error)
}

// CostLookup is satisfied by *ratecard.Lookup.
type CostLookup interface {
	Cost(ctx context.Context, shipperID int64, weight float64, zone int) (decimal.Decimal, bool, error)
}

type Engine struct {
	zones *zonematrix.Resolver
	cards CostLookup
	log   logrus.FieldLogger
}

func NewEngine(zones *zonematrix.Resolver, cards CostLookup, log logrus.FieldLogger) *Engine {
	return &Engine{zones: zones, cards: cards, log: log}
}

// ComputeRate quotes a single order.
func (e *Engine) ComputeRate(ctx context.Context, org *models.Organization, order models.OrderRequest) (models.Rate, error) {
	return e.compute(ctx, e.zones.NewSession(), org, order)
}

// ComputeRates quotes several orders for one shipper, sharing zone matrix rows.
func (e *Engine) ComputeRates(ctx context.Context, org *models.Organization, orders []models.OrderRequest) ([]models.Rate, error) {
	sess := e.zones.NewSession()
	rates := make([]models.Rate, 0, len(orders))
	for _, o := range orders {
		r, err := e.compute(ctx, sess, org, o)
		if err != nil {
			return nil, err
		}
		rates = append(rates, r)
	}
	return rates, nil
}

func (e *Engine) compute(ctx context.Context, zones ZoneResolver, org *models.Organization, order models.OrderRequest) (models.Rate, error) {
	p := order.Parcel
	if err := p.CheckBounds(); err != nil {
		return models.Rate{}, err
	}
	dimWeight := p.Length.Float64() * p.Width.Float64() * p.Height.Float64() / DimDivisor
	declared := p.Weight.Float64()
	weight := math.Max(dimWeight, declared)

	rate := models.Rate{
		BillableWeight: ratecard.BillableWeight(weight),
		UseDimWeight:   dimWeight > declared,
	}

	// the matrix row is keyed by the destination prefix
	zone, found, err := zones.Resolve(ctx, order.ToAddress.Zip, order.FromAddress.Zip)
	if err != nil {
		return models.Rate{}, err
	}
	if !found {
		e.log.WithFields(logrus.Fields{
			"shipper": org.ShipperSeqNum,
			"to_zip":  order.ToAddress.Zip,
		}).Debug("no zone matrix row, rate unknown")
		return rate, nil
	}
	rate.Zone = &zone

	cost, found, err := e.cards.Cost(ctx, org.ShipperSeqNum, weight, zone)
	if err != nil {
		return models.Rate{}, err
	}
	if !found {
		e.log.WithFields(logrus.Fields{
			"shipper": org.ShipperSeqNum,
			"zone":    zone,
			"weight":  rate.BillableWeight,
		}).Debug("no rate card row, cost unknown")
		return rate, nil
	}

	text := cost.StringFixed(2)
	dollars := "$" + text
	rate.Cost = &text
	rate.DollarCost = &dollars
	return rate, nil
}
