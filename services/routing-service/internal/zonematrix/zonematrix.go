// Package zonematrix resolves the shipping zone between two zip codes.
package zonematrix

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
	"golang.org/x/sync/singleflight"
)

// Resolver looks zones up in a ZoneMatrixStore.
type Resolver struct {
	store store.ZoneMatrixStore
}

func NewResolver(s store.ZoneMatrixStore) *Resolver {
	return &Resolver{store: s}
}

// Resolve is a one-shot lookup. Callers resolving many pairs in one request
// should use a Session instead.
func (r *Resolver) Resolve(ctx context.Context, first, second string) (int, bool, error) {
	return r.NewSession().Resolve(ctx, first, second)
}

// NewSession starts a request-scoped cache of matrix rows.
func (r *Resolver) NewSession() *Session {
	return &Session{store: r.store, rows: make(map[string]*models.ZoneMatrix)}
}

// Session memoizes zone matrix rows for the lifetime of one request.
// Concurrent fetches of the same row collapse into one store call.
type Session struct {
	store store.ZoneMatrixStore
	group singleflight.Group

	mu   sync.Mutex
	rows map[string]*models.ZoneMatrix // nil value: row known to be absent
}

// Resolve returns the zone for the pair. The row is selected by the first zip's
// prefix and the entry by the second zip's prefix. found is false when no row
// exists for the first prefix.
func (s *Session) Resolve(ctx context.Context, first, second string) (int, bool, error) {
	rowPrefix, err := Prefix(first)
	if err != nil {
		return 0, false, err
	}
	colPrefix, err := Prefix(second)
	if err != nil {
		return 0, false, err
	}

	row, err := s.row(ctx, rowPrefix)
	if err != nil {
		return 0, false, err
	}
	if row == nil {
		return 0, false, nil
	}

	n, _ := strconv.Atoi(colPrefix) // Prefix guarantees three digits
	idx := n - 1
	if idx < 0 || idx >= len(row.Zones) {
		return 0, false, fmt.Errorf("%w: origin %s destination %s (index %d, row width %d)",
			domainErr.ErrZoneIndexOutOfRange, rowPrefix, colPrefix, idx, len(row.Zones))
	}
	zone, err := ParseZoneCode(row.Zones[idx])
	if err != nil {
		return 0, false, fmt.Errorf("origin %s destination %s: %w", rowPrefix, colPrefix, err)
	}
	return zone, true, nil
}

func (s *Session) row(ctx context.Context, prefix string) (*models.ZoneMatrix, error) {
	s.mu.Lock()
	row, ok := s.rows[prefix]
	s.mu.Unlock()
	if ok {
		return row, nil
	}

	v, err, _ := s.group.Do(prefix, func() (any, error) {
		zm, err := s.store.GetZoneMatrix(ctx, prefix)
		if errors.Is(err, store.ErrNotFound) {
			return (*models.ZoneMatrix)(nil), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load zone matrix %s: %w", prefix, err)
		}
		return zm, nil
	})
	if err != nil {
		return nil, err
	}
	row = v.(*models.ZoneMatrix)

	s.mu.Lock()
	s.rows[prefix] = row
	s.mu.Unlock()
	return row, nil
}

// Prefix returns the 3-digit zip prefix ("10001" -> "100", "10001-1234" -> "100").
func Prefix(zip string) (string, error) {
	zip = strings.TrimSpace(zip)
	if len(zip) < 3 {
		return "", fmt.Errorf("%w: %q", domainErr.ErrInvalidZip, zip)
	}
	p := zip[:3]
	for _, c := range p {
		if c < '0' || c > '9' {
			return "", fmt.Errorf("%w: %q", domainErr.ErrInvalidZip, zip)
		}
	}
	return p, nil
}

// ParseZoneCode reads the zone from a matrix entry. Only the leading digit
// counts; trailing letters are routing hints ("5*", "8A").
func ParseZoneCode(code string) (int, error) {
	code = strings.TrimSpace(code)
	if code == "" || code[0] < '1' || code[0] > '8' {
		return 0, fmt.Errorf("%w: %q", domainErr.ErrMalformedZoneEntry, code)
	}
	return int(code[0] - '0'), nil
}
