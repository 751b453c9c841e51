// Package selection picks the carrier for an order.
package selection

import (
	"context"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/eligibility"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FactSet holds the eligibility result of every carrier, indexed by carrier.ID.
// A nil entry means ineligible or not checked.
type FactSet [carrier.NumIDs]*models.ZipZone

// Get returns the fact for id, nil when ineligible.
func (f *FactSet) Get(id carrier.ID) *models.ZipZone {
	if int(id) >= len(f) {
		return nil
	}
	return f[id]
}

// Eligible lists the carriers with a fact, in enum order.
func (f *FactSet) Eligible() []carrier.ID {
	var ids []carrier.ID
	for i, zz := range f {
		if zz != nil {
			ids = append(ids, carrier.ID(i))
		}
	}
	return ids
}

// Checker is satisfied by *eligibility.Checker.
type Checker interface {
	Check(ctx context.Context, id carrier.ID, target *eligibility.Target) (*models.ZipZone, error)
}

// CarrierSet is the set of carriers selection fans out over, normally the
// integration registry.
type CarrierSet interface {
	Carriers() []carrier.ID
}

// Policy holds deployment switches that change selection.
type Policy struct {
	// ForceTobaccoViaSettings treats every order of a tobacco-enabled
	// organization as tobacco, even without a declared controlled substance.
	ForceTobaccoViaSettings bool
}

// Decision is the outcome of a successful selection.
type Decision struct {
	Carrier carrier.ID
	ZipZone *models.ZipZone
	Tobacco models.TobaccoPolicy
	Facts   FactSet
}

type Engine struct {
	checker  Checker
	carriers CarrierSet
	policy   Policy
	log      logrus.FieldLogger
}

func NewEngine(checker Checker, carriers CarrierSet, policy Policy, log logrus.FieldLogger) *Engine {
	return &Engine{checker: checker, carriers: carriers, policy: policy, log: log}
}

// TobaccoPolicy resolves the tobacco requirement of an order for org.
func (e *Engine) TobaccoPolicy(org *models.Organization, order models.OrderRequest) models.TobaccoPolicy {
	if order.IsTobacco() || (e.policy.ForceTobaccoViaSettings && org.Settings.Tobacco) {
		return models.TobaccoRequired
	}
	return models.TobaccoNotApplicable
}

// Facts checks every carrier concurrently and returns the joined results.
func (e *Engine) Facts(ctx context.Context, org *models.Organization, order models.OrderRequest) (FactSet, models.TobaccoPolicy, error) {
	var facts FactSet
	tobacco := e.TobaccoPolicy(org, order)
	target := &eligibility.Target{
		Zipcode:   order.ToAddress.Zip,
		Weight:    order.Parcel.Weight.Float64(),
		Tobacco:   tobacco,
		ShipperID: org.ShipperSeqNum,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, id := range e.carriers.Carriers() {
		if !id.Enabled() {
			continue
		}
		g.Go(func() error {
			zz, err := e.checker.Check(gctx, id, target)
			if err != nil {
				return err
			}
			// each goroutine owns one slot
			facts[id] = zz
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return FactSet{}, tobacco, err
	}
	return facts, tobacco, nil
}

// Select walks the organization's priority list and returns the first
// eligible carrier. found is false when nothing is routable, including when
// the priority list is empty.
func (e *Engine) Select(ctx context.Context, org *models.Organization, order models.OrderRequest) (Decision, bool, error) {
	facts, tobacco, err := e.Facts(ctx, org, order)
	if err != nil {
		return Decision{}, false, err
	}

	logger := e.log.WithFields(logrus.Fields{
		"shipper": org.ShipperSeqNum,
		"to_zip":  order.ToAddress.Zip,
		"tobacco": tobacco.String(),
	})
	for _, id := range org.TerminalProviderOrder {
		if zz := facts.Get(id); zz != nil {
			logger.WithField("carrier", id.String()).Debug("carrier selected")
			return Decision{Carrier: id, ZipZone: zz, Tobacco: tobacco, Facts: facts}, true, nil
		}
	}
	logger.WithField("eligible", facts.Eligible()).Info("no carrier in priority list is eligible")
	return Decision{Facts: facts, Tobacco: tobacco}, false, nil
}
