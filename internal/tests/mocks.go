package tests

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"carva/internal/auth"
	"carva/internal/domain"
	"carva/internal/logging"
	"carva/internal/redis"
	"carva/internal/repository/jsonkv"
	"carva/internal/service"
	"carva/internal/store"
)

// ──────────────────────────────────────────────
// MOCK LOCATION STORE
// ──────────────────────────────────────────────

// MockLocationStore is a mock implementation of LocationStore.
type MockLocationStore struct {
	mu        sync.RWMutex
	locations []redis.DriverLocation

	// Counters
	UpdateLocationCallCount int32
	FindNearbyCallCount     int32

	// Error injection
	UpdateLocationError    error
	GetLocationError       error
	FindNearbyDriversError error
}

// NewMockLocationStore creates a new mock location store.
func NewMockLocationStore() *MockLocationStore {
	return &MockLocationStore{
		locations: make([]redis.DriverLocation, 0),
	}
}

// SetLocations sets all locations (for test setup).
func (m *MockLocationStore) SetLocations(locations []redis.DriverLocation) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations = locations
}

func (m *MockLocationStore) UpdateLocation(ctx context.Context, username string, lat, lng float64) error {
	atomic.AddInt32(&m.UpdateLocationCallCount, 1)
	if m.UpdateLocationError != nil {
		return m.UpdateLocationError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.Username == username {
			m.locations[i].Lat = lat
			m.locations[i].Lng = lng
			return nil
		}
	}
	m.locations = append(m.locations, redis.DriverLocation{
		Username: username,
		Lat:      lat,
		Lng:      lng,
	})
	return nil
}

func (m *MockLocationStore) GetLocation(ctx context.Context, username string) (redis.DriverLocation, bool, error) {
	if m.GetLocationError != nil {
		return redis.DriverLocation{}, false, m.GetLocationError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, loc := range m.locations {
		if loc.Username == username {
			return loc, true, nil
		}
	}
	return redis.DriverLocation{}, false, nil
}

func (m *MockLocationStore) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]redis.DriverLocation, error) {
	atomic.AddInt32(&m.FindNearbyCallCount, 1)
	if m.FindNearbyDriversError != nil {
		return nil, m.FindNearbyDriversError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	// Return all locations (mock doesn't do real geo filtering).
	result := make([]redis.DriverLocation, len(m.locations))
	copy(result, m.locations)
	return result, nil
}

func (m *MockLocationStore) RemoveLocation(ctx context.Context, username string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, loc := range m.locations {
		if loc.Username == username {
			m.locations = append(m.locations[:i], m.locations[i+1:]...)
			return nil
		}
	}
	return nil
}

// HasLocation checks if a driver location exists.
func (m *MockLocationStore) HasLocation(username string) bool {
	_, ok, _ := m.GetLocation(context.Background(), username)
	return ok
}

// ──────────────────────────────────────────────
// MOCK LOCK STORE
// ──────────────────────────────────────────────

// MockLockStore is a mock implementation of LockStore.
type MockLockStore struct {
	mu    sync.Mutex
	locks map[int64]time.Time

	// Counters
	AcquireCallCount int32
	ReleaseCallCount int32

	// Error injection
	AcquireError error

	// Force lock failure
	ForceAcquireFailure bool
}

// NewMockLockStore creates a new mock lock store.
func NewMockLockStore() *MockLockStore {
	return &MockLockStore{
		locks: make(map[int64]time.Time),
	}
}

func (m *MockLockStore) AcquireRequestLock(ctx context.Context, requestID int64, ttl time.Duration) (bool, error) {
	atomic.AddInt32(&m.AcquireCallCount, 1)
	if m.AcquireError != nil {
		return false, m.AcquireError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ForceAcquireFailure {
		return false, nil
	}

	if expiry, exists := m.locks[requestID]; exists && time.Now().Before(expiry) {
		return false, nil // Lock still held.
	}

	m.locks[requestID] = time.Now().Add(ttl)
	return true, nil
}

func (m *MockLockStore) ReleaseRequestLock(ctx context.Context, requestID int64) error {
	atomic.AddInt32(&m.ReleaseCallCount, 1)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.locks, requestID)
	return nil
}

// IsLocked checks if a request is locked (for test assertions).
func (m *MockLockStore) IsLocked(requestID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	expiry, exists := m.locks[requestID]
	return exists && time.Now().Before(expiry)
}

// SetForceFailure makes every acquire report the lock as held.
func (m *MockLockStore) SetForceFailure(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForceAcquireFailure = fail
}

// ──────────────────────────────────────────────
// TEST HARNESS
// ──────────────────────────────────────────────

// Fixed positions used across scenarios.
const (
	ownerLat    = 24.71
	ownerLng    = 46.67
	workshopLat = 24.72
	workshopLng = 46.68
	driverLat   = 24.705
	driverLng   = 46.665

	workshopID   int64 = 10
	workshopName       = "Fast Fix"
)

var (
	ownerActor    = service.Actor{Username: "sara", Role: domain.RoleOwner}
	driverActor   = service.Actor{Username: "driver1", Role: domain.RoleDriver}
	driver2Actor  = service.Actor{Username: "driver2", Role: domain.RoleDriver}
	workshopActor = service.Actor{Username: "fastfix", Role: domain.RoleWorkshop}
)

// harness wires every service over an in-memory store.
type harness struct {
	kv         *store.Memory
	requests   *jsonkv.RequestRepository
	accounts   *jsonkv.AccountRepository
	workshops  *jsonkv.WorkshopRepository
	payments   *jsonkv.PaymentRepository
	rejections *jsonkv.RejectionRepository
	locations  *MockLocationStore
	locks      *MockLockStore

	notifier    *service.NotificationService
	requestSvc  *service.RequestService
	paymentSvc  *service.PaymentService
	accountSvc  *service.AccountService
	driverSvc   *service.DriverService
	workshopSvc *service.WorkshopService
	timeoutJob  *service.WorkshopTimeoutJob
}

// newHarness creates the services and seeds one owner, two drivers and a
// workshop account with its workshop.
func newHarness(t *testing.T) *harness {
	t.Helper()

	logger := logging.Discard()
	kv := store.NewMemory()

	h := &harness{
		kv:         kv,
		requests:   jsonkv.NewRequestRepository(kv, logger),
		accounts:   jsonkv.NewAccountRepository(kv, logger),
		workshops:  jsonkv.NewWorkshopRepository(kv, logger),
		payments:   jsonkv.NewPaymentRepository(kv, logger),
		rejections: jsonkv.NewRejectionRepository(kv, logger),
		locations:  NewMockLocationStore(),
		locks:      NewMockLockStore(),
	}

	h.notifier = service.NewNotificationService(h.accounts, logger)
	h.requestSvc = service.NewRequestService(
		h.requests, h.rejections, h.accounts, h.workshops,
		h.locations, h.locks, h.notifier,
		service.LifecycleSettings{TripRatePerKm: 15, WorkshopTimeout: 300 * time.Second},
		logger,
	)
	h.paymentSvc = service.NewPaymentService(h.requests, h.accounts, h.payments, h.locks, h.notifier, logger)
	h.accountSvc = service.NewAccountService(h.accounts, h.workshops,
		auth.NewTokenIssuer("test-secret", time.Hour), h.notifier, "123456", 500, logger)
	h.driverSvc = service.NewDriverService(h.locations, h.accounts, h.requests, h.rejections, logger)
	h.workshopSvc = service.NewWorkshopService(h.workshops, h.requests, logger)
	h.timeoutJob = service.NewWorkshopTimeoutJob(h.requestSvc, time.Second, logger)

	ctx := context.Background()
	if err := h.workshopSvc.Seed(ctx); err != nil {
		t.Fatalf("seed workshops: %v", err)
	}

	lat, lng := workshopLat, workshopLng
	mustNoErr(t, h.workshops.Create(ctx, &domain.Workshop{
		ID: workshopID, NameEn: workshopName, NameAr: workshopName,
		Lat: &lat, Lng: &lng, Rating: 5, OwnerUsername: workshopActor.Username,
	}))

	h.addAccount(t, &domain.Account{
		Name: "Sara", Username: ownerActor.Username, Email: "sara@example.com",
		Role: domain.RoleOwner, WalletBalance: 500, Owner: &domain.OwnerProfile{},
	})
	h.addAccount(t, &domain.Account{
		Name: "Ali", Username: driverActor.Username, Email: "ali@example.com",
		Role: domain.RoleDriver, WalletBalance: 500,
		Driver: &domain.DriverProfile{FlatbedPlate: "ABC 123"},
	})
	h.addAccount(t, &domain.Account{
		Name: "Omar", Username: driver2Actor.Username, Email: "omar@example.com",
		Role: domain.RoleDriver, WalletBalance: 500, Driver: &domain.DriverProfile{},
	})
	h.addAccount(t, &domain.Account{
		Name: workshopName, Username: workshopActor.Username, Email: "shop@example.com",
		Role: domain.RoleWorkshop, WalletBalance: 500,
		Workshop: &domain.WorkshopProfile{WorkshopPhone: "0500000000", WorkshopLat: lat, WorkshopLng: lng},
	})

	h.locations.SetLocations([]redis.DriverLocation{
		{Username: driverActor.Username, Lat: driverLat, Lng: driverLng},
	})
	return h
}

func (h *harness) addAccount(t *testing.T, acc *domain.Account) {
	t.Helper()
	mustNoErr(t, h.accounts.Create(context.Background(), acc))
}

func (h *harness) balance(t *testing.T, username string) int {
	t.Helper()
	acc, err := h.accounts.GetByUsername(context.Background(), username)
	mustNoErr(t, err)
	return acc.WalletBalance
}

func (h *harness) inbox(t *testing.T, username string) []domain.Notification {
	t.Helper()
	acc, err := h.accounts.GetByUsername(context.Background(), username)
	mustNoErr(t, err)
	return acc.Notifications
}

// submitFlatbed creates a pending request from origin to a custom destination.
func (h *harness) submitFlatbed(t *testing.T, fromLat, fromLng, toLat, toLng float64) *domain.ActiveRequest {
	t.Helper()
	req, err := h.requestSvc.Submit(context.Background(), ownerActor, service.RequestDetails{
		Car: "Camry", Year: 2020,
		UserLat: fromLat, UserLng: fromLng,
		DestLat: &toLat, DestLng: &toLng, DestName: "Home",
	})
	mustNoErr(t, err)
	return req
}

// submitToWorkshop creates a request destined to the test workshop.
func (h *harness) submitToWorkshop(t *testing.T, canDrive bool) *domain.ActiveRequest {
	t.Helper()
	req, err := h.requestSvc.Submit(context.Background(), ownerActor, service.RequestDetails{
		Car: "Camry", Year: 2020,
		UserLat: ownerLat, UserLng: ownerLng,
		WorkshopID: workshopID, CanDrive: canDrive,
		ProblemDescription: "Engine noise",
	})
	mustNoErr(t, err)
	return req
}

// driveToDestination accepts req with driver1 and completes both handshakes.
func (h *harness) driveToDestination(t *testing.T, id int64) *domain.ActiveRequest {
	t.Helper()
	ctx := context.Background()

	_, err := h.requestSvc.Accept(ctx, driverActor, id)
	mustNoErr(t, err)

	var req *domain.ActiveRequest
	for i := 0; i < 2; i++ {
		_, err = h.requestSvc.ConfirmArrival(ctx, ownerActor, id)
		mustNoErr(t, err)
		req, err = h.requestSvc.ConfirmArrival(ctx, driverActor, id)
		mustNoErr(t, err)
	}
	return req
}

func mustNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// ──────────────────────────────────────────────
// HELPER ERRORS
// ──────────────────────────────────────────────

var (
	ErrMockRedisDown = errors.New("mock: redis unavailable")
)
