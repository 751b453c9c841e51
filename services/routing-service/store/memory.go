package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/carrier"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type rateKey struct {
	shipperID int64
	zone      int
	weight    int
}

type zipKey struct {
	carrier carrier.ID
	zipcode string
}

// MemoryStore implements every store interface in process. Used for dev and tests.
type MemoryStore struct {
	mu            sync.RWMutex
	organizations map[int64]models.Organization
	zipZones      map[zipKey][]models.ZipZone
	rateCards     map[rateKey]decimal.Decimal
	zoneMatrices  map[string]models.ZoneMatrix
	orders        map[uuid.UUID]models.Order
	byTracking    map[string]uuid.UUID
	usage         map[UsageKey]int64
	usageBatches  map[uuid.UUID]struct{}
	nextZipZoneID int64
	orderSeq      int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		organizations: make(map[int64]models.Organization),
		zipZones:      make(map[zipKey][]models.ZipZone),
		rateCards:     make(map[rateKey]decimal.Decimal),
		zoneMatrices:  make(map[string]models.ZoneMatrix),
		orders:        make(map[uuid.UUID]models.Order),
		byTracking:    make(map[string]uuid.UUID),
		usage:         make(map[UsageKey]int64),
		usageBatches:  make(map[uuid.UUID]struct{}),
	}
}

func (s *MemoryStore) FindZipZone(ctx context.Context, q ZipZoneQuery) (*models.ZipZone, error) {
	// Check if the context is canceled or timed out
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *models.ZipZone
	for _, zz := range s.zipZones[zipKey{q.Carrier, q.Zipcode}] {
		if zz.MaxWeight < q.MinWeight || zz.Tobacco != q.Tobacco || !sameShipper(zz.ShipperID, q.ShipperID) {
			continue
		}
		// rules are kept in insertion order, so ties go to the older rule
		if best == nil || zz.MaxWeight < best.MaxWeight {
			best = &zz
		}
	}
	if best == nil {
		return nil, ErrNotFound
	}
	return best, nil
}

func sameShipper(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *MemoryStore) GetRate(ctx context.Context, shipperID int64, zone int, weight int) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	cost, ok := s.rateCards[rateKey{shipperID, zone, weight}]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return cost, nil
}

func (s *MemoryStore) GetZoneMatrix(ctx context.Context, originPrefix string) (*models.ZoneMatrix, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	zm, ok := s.zoneMatrices[originPrefix]
	if !ok {
		return nil, ErrNotFound
	}
	zm.Zones = append([]string(nil), zm.Zones...)
	return &zm, nil
}

func (s *MemoryStore) GetOrganization(ctx context.Context, shipperSeqNum int64) (*models.Organization, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.organizations[shipperSeqNum]
	if !ok {
		return nil, ErrNotFound
	}
	org.TerminalProviderOrder = append([]carrier.ID(nil), org.TerminalProviderOrder...)
	return &org, nil
}

func (s *MemoryStore) NextOrderSequence(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orderSeq++
	return s.orderSeq, nil
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order models.Order) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.byTracking[order.TrackingNumber]; dup {
		return fmt.Errorf("order with tracking number %s already exists", order.TrackingNumber)
	}
	s.orders[order.ID] = order
	s.byTracking[order.TrackingNumber] = order.ID
	return nil
}

func (s *MemoryStore) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *MemoryStore) GetOrderByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byTracking[trackingNumber]
	if !ok {
		return nil, ErrNotFound
	}
	o := s.orders[id]
	return &o, nil
}

func (s *MemoryStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to models.OrderStatus, at time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return false, ErrNotFound
	}
	if o.Status != from {
		return false, nil
	}
	o.Status = to
	o.UpdatedAt = at
	s.orders[id] = o
	return true, nil
}

func (s *MemoryStore) PutOrganization(ctx context.Context, org models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.organizations[org.ShipperSeqNum] = org
	return nil
}

func (s *MemoryStore) PutZipZone(ctx context.Context, zz models.ZipZone) error {
	if !zz.Carrier.Valid() {
		return fmt.Errorf("zip zone %s: invalid carrier %d", zz.Zipcode, zz.Carrier)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextZipZoneID++
	zz.ID = s.nextZipZoneID
	k := zipKey{zz.Carrier, zz.Zipcode}
	s.zipZones[k] = append(s.zipZones[k], zz)
	return nil
}

func (s *MemoryStore) PutRateCard(ctx context.Context, shipperID int64, zone int, weight int, cost decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rateCards[rateKey{shipperID, zone, weight}] = cost
	return nil
}

func (s *MemoryStore) PutZoneMatrix(ctx context.Context, zm models.ZoneMatrix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zoneMatrices[zm.OriginPrefix] = zm
	return nil
}

func (s *MemoryStore) FlushUsage(ctx context.Context, batch UsageBatch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, done := s.usageBatches[batch.BatchID]; done {
		return nil
	}
	s.usageBatches[batch.BatchID] = struct{}{}
	for _, r := range batch.Records {
		s.usage[r.UsageKey] += r.Labels
	}
	return nil
}

func (s *MemoryStore) GetUsage(ctx context.Context, shipperSeqNum int64, year, month int) ([]UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []UsageRecord
	for k, n := range s.usage {
		if k.ShipperSeqNum == shipperSeqNum && k.Year == year && k.Month == month {
			out = append(out, UsageRecord{UsageKey: k, Labels: n})
		}
	}
	slices.SortFunc(out, func(a, b UsageRecord) int { return cmp.Compare(a.Carrier.String(), b.Carrier.String()) })
	return out, nil
}
