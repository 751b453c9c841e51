package zonematrix

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	domainErr "github.com/Tanmoy095/ShipBroker/services/routing-service/internal/errors"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/internal/models"
	"github.com/Tanmoy095/ShipBroker/services/routing-service/store"
)

// mockZoneStore counts fetches so tests can assert memoization.
type mockZoneStore struct {
	rows  map[string][]string
	calls atomic.Int32
	err   error
}

func (m *mockZoneStore) GetZoneMatrix(ctx context.Context, prefix string) (*models.ZoneMatrix, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	zones, ok := m.rows[prefix]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.ZoneMatrix{OriginPrefix: prefix, Zones: zones}, nil
}

func fullRow(fill string) []string {
	row := make([]string, models.ZoneMatrixWidth)
	for i := range row {
		row[i] = fill
	}
	return row
}

func TestResolve(t *testing.T) {
	row := fullRow("4")
	row[101] = "5*" // destination prefix 102
	row[998] = "8"  // destination prefix 999
	row[0] = "X"    // destination prefix 001
	ms := &mockZoneStore{rows: map[string][]string{
		"100": row,
		"200": {"1", "2"},
	}}
	r := NewResolver(ms)

	tests := []struct {
		name      string
		first     string
		second    string
		wantZone  int
		wantFound bool
		wantErr   error
	}{
		{"plain entry", "10001", "90210", 4, true, nil},
		{"hint letters ignored", "10001", "10245", 5, true, nil},
		{"last column", "100", "99950", 8, true, nil},
		{"zip+4 accepted", "10001-1234", "90210", 4, true, nil},
		{"missing row is not found", "30301", "10001", 0, false, nil},
		{"short row is a hard error", "20001", "00501", 0, false, domainErr.ErrZoneIndexOutOfRange},
		{"index past end", "20001", "90210", 0, false, domainErr.ErrZoneIndexOutOfRange},
		{"malformed entry", "10001", "00111", 0, false, domainErr.ErrMalformedZoneEntry},
		{"bad zip", "1A001", "90210", 0, false, domainErr.ErrInvalidZip},
		{"short zip", "10", "90210", 0, false, domainErr.ErrInvalidZip},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			zone, found, err := r.Resolve(context.Background(), tc.first, tc.second)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if zone != tc.wantZone || found != tc.wantFound {
				t.Errorf("got (%d, %v), want (%d, %v)", zone, found, tc.wantZone, tc.wantFound)
			}
		})
	}
}

func TestSessionMemoizesRows(t *testing.T) {
	ms := &mockZoneStore{rows: map[string][]string{"100": fullRow("3")}}
	sess := NewResolver(ms).NewSession()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := sess.Resolve(ctx, "10001", "60601"); err != nil {
				t.Errorf("resolve: %v", err)
			}
		}()
	}
	wg.Wait()
	// absent rows are cached too
	sess.Resolve(ctx, "30301", "60601")
	sess.Resolve(ctx, "30399", "60601")

	if got := ms.calls.Load(); got < 2 || got > 21 {
		t.Fatalf("unexpected store calls %d", got)
	}
	before := ms.calls.Load()
	sess.Resolve(ctx, "10099", "10001")
	sess.Resolve(ctx, "30301", "10001")
	if ms.calls.Load() != before {
		t.Fatalf("cached rows were fetched again")
	}
}

func TestResolvePropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	r := NewResolver(&mockZoneStore{err: boom})
	if _, _, err := r.Resolve(context.Background(), "10001", "90210"); !errors.Is(err, boom) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestParseZoneCode(t *testing.T) {
	for code, want := range map[string]int{"1": 1, "8": 8, "5*": 5, "7A": 7} {
		got, err := ParseZoneCode(code)
		if err != nil || got != want {
			t.Errorf("ParseZoneCode(%q) = %d, %v", code, got, err)
		}
	}
	for _, code := range []string{"", "0", "9", "*5", "A"} {
		if _, err := ParseZoneCode(code); !errors.Is(err, domainErr.ErrMalformedZoneEntry) {
			t.Errorf("ParseZoneCode(%q) err = %v", code, err)
		}
	}
}
