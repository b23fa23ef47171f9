package application_test

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	"github.com/drip-labs/dripd/internal/core/application"
	"github.com/drip-labs/dripd/internal/core/domain"
	"github.com/drip-labs/dripd/internal/core/ports"
)

// Shared fixtures.
var (
	holdingAddr  = strings.Repeat("aa", 20)
	adminAddr    = strings.Repeat("bb", 20)
	claimantAddr = strings.Repeat("cc", 20)
	otherAddr    = strings.Repeat("dd", 20)

	nativeAsset = strings.Repeat("11", 32)
	tokenAsset  = strings.Repeat("22", 20)
	feeAsset    = strings.Repeat("33", 32)
)

type mockSettingsRepo struct {
	lock     sync.RWMutex
	settings *domain.Settings
	caps     map[string]domain.CapConfig
}

func newMockSettingsRepo() *mockSettingsRepo {
	return &mockSettingsRepo{caps: make(map[string]domain.CapConfig)}
}

func (r *mockSettingsRepo) Get(_ context.Context) (*domain.Settings, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.settings == nil {
		return nil, nil
	}
	settings := *r.settings
	return &settings, nil
}

func (r *mockSettingsRepo) Upsert(_ context.Context, settings domain.Settings) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.settings = &settings
	return nil
}

func (r *mockSettingsRepo) GetCaps(
	_ context.Context, assetID string,
) (*domain.CapConfig, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	caps, ok := r.caps[assetID]
	if !ok {
		return nil, nil
	}
	return &caps, nil
}

func (r *mockSettingsRepo) UpsertCaps(_ context.Context, caps domain.CapConfig) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.caps[caps.AssetID] = caps
	return nil
}

func (r *mockSettingsRepo) Close() {}

type mockRateLimitRepo struct {
	lock       sync.RWMutex
	lastClaims map[string]int64
	totals     map[string]uint64
}

func newMockRateLimitRepo() *mockRateLimitRepo {
	return &mockRateLimitRepo{
		lastClaims: make(map[string]int64),
		totals:     make(map[string]uint64),
	}
}

func (r *mockRateLimitRepo) GetLastClaimTime(
	_ context.Context, address, assetID string,
) (int64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.lastClaims[assetID+":"+address], nil
}

func (r *mockRateLimitRepo) GetTotalClaimed(
	_ context.Context, assetID string,
) (uint64, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.totals[assetID], nil
}

func (r *mockRateLimitRepo) RecordClaim(
	_ context.Context, address, assetID string, amount uint64, now int64,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.lastClaims[assetID+":"+address] = now
	r.totals[assetID] += amount
	return nil
}

func (r *mockRateLimitRepo) Close() {}

type mockReservationRepo struct {
	lock         sync.RWMutex
	reservations map[string]domain.Reservation
}

func newMockReservationRepo() *mockReservationRepo {
	return &mockReservationRepo{reservations: make(map[string]domain.Reservation)}
}

func (r *mockReservationRepo) Get(
	_ context.Context, outpoint domain.Outpoint,
) (*domain.Reservation, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	reservation, ok := r.reservations[outpoint.String()]
	if !ok {
		return nil, nil
	}
	return &reservation, nil
}

func (r *mockReservationRepo) Reserve(
	_ context.Context, reservation domain.Reservation,
) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	key := reservation.Outpoint.String()
	if _, ok := r.reservations[key]; ok {
		return fmt.Errorf("output %s already reserved", key)
	}
	r.reservations[key] = reservation
	return nil
}

func (r *mockReservationRepo) Release(_ context.Context, outpoint domain.Outpoint) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.reservations, outpoint.String())
	return nil
}

func (r *mockReservationRepo) GetByAddress(
	_ context.Context, address string,
) ([]domain.Reservation, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	reservations := make([]domain.Reservation, 0)
	for _, reservation := range r.reservations {
		if reservation.Address == address {
			reservations = append(reservations, reservation)
		}
	}
	return reservations, nil
}

func (r *mockReservationRepo) Close() {}

type mockSubmissionRepo struct {
	lock  sync.RWMutex
	queue []domain.Submission
}

func (r *mockSubmissionRepo) Push(_ context.Context, submission domain.Submission) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, queued := range r.queue {
		if queued.Tx.Txid == submission.Tx.Txid {
			return fmt.Errorf("submission %s already queued", submission.Tx.Txid)
		}
	}
	r.queue = append(r.queue, submission)
	return nil
}

func (r *mockSubmissionRepo) Next(_ context.Context) (*domain.Submission, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if len(r.queue) == 0 {
		return nil, nil
	}
	submission := r.queue[0]
	return &submission, nil
}

func (r *mockSubmissionRepo) Delete(_ context.Context, txid string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	for i, queued := range r.queue {
		if queued.Tx.Txid == txid {
			r.queue = append(r.queue[:i], r.queue[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *mockSubmissionRepo) Close() {}

type mockRepoManager struct {
	settingsRepo    *mockSettingsRepo
	rateLimitRepo   *mockRateLimitRepo
	reservationRepo *mockReservationRepo
	submissionRepo  *mockSubmissionRepo
}

func newMockRepoManager() *mockRepoManager {
	return &mockRepoManager{
		settingsRepo:    newMockSettingsRepo(),
		rateLimitRepo:   newMockRateLimitRepo(),
		reservationRepo: newMockReservationRepo(),
		submissionRepo:  &mockSubmissionRepo{},
	}
}

func (m *mockRepoManager) Settings() domain.SettingsRepository {
	return m.settingsRepo
}

func (m *mockRepoManager) RateLimits() domain.RateLimitRepository {
	return m.rateLimitRepo
}

func (m *mockRepoManager) Reservations() domain.ReservationRepository {
	return m.reservationRepo
}

func (m *mockRepoManager) Submissions() domain.SubmissionRepository {
	return m.submissionRepo
}

func (m *mockRepoManager) Close() {}

// mockLedger resolves prior outputs from a map and reports witnesses from a
// per-transaction allow list.
type mockLedger struct {
	lock      sync.RWMutex
	outputs   map[string]domain.TxOutput
	witnesses map[string]map[string]bool // txid -> address -> witnessed
}

func newMockLedger() *mockLedger {
	return &mockLedger{
		outputs:   make(map[string]domain.TxOutput),
		witnesses: make(map[string]map[string]bool),
	}
}

func (l *mockLedger) ResolveOutput(
	_ context.Context, outpoint domain.Outpoint,
) (*domain.TxOutput, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	out, ok := l.outputs[outpoint.String()]
	if !ok {
		return nil, nil
	}
	return &out, nil
}

func (l *mockLedger) IsWitnessedBy(
	_ context.Context, tx domain.CandidateTx, address string,
) (bool, error) {
	l.lock.RLock()
	defer l.lock.RUnlock()
	return l.witnesses[tx.Txid][address], nil
}

func (l *mockLedger) addOutput(outpoint domain.Outpoint, out domain.TxOutput) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.outputs[outpoint.String()] = out
}

func (l *mockLedger) addWitness(txid, address string) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.witnesses[txid] == nil {
		l.witnesses[txid] = make(map[string]bool)
	}
	l.witnesses[txid][address] = true
}

type mockTokenTransfer struct {
	lock    sync.Mutex
	ok      bool
	err     error
	calls   int
	lastTo  string
	lastAmt uint64
}

func (m *mockTokenTransfer) Transfer(
	_ context.Context, assetID, from, to string, amount uint64,
) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.calls++
	m.lastTo = to
	m.lastAmt = amount
	return m.ok, m.err
}

type mockEventBus struct {
	lock      sync.Mutex
	published []domain.Event
}

func (b *mockEventBus) Publish(_ context.Context, events ...domain.Event) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.published = append(b.published, events...)
	return nil
}

func (b *mockEventBus) Subscribe(
	_ context.Context, _ string,
) (<-chan domain.Event, error) {
	return nil, nil
}

func (b *mockEventBus) Close() error { return nil }

// testEnv wires the whole application layer against mocks.
type testEnv struct {
	repo     *mockRepoManager
	ledger   *mockLedger
	transfer *mockTokenTransfer
	bus      *mockEventBus

	verifier   application.Verifier
	committer  application.Committer
	adminSvc   application.AdminService
	dispatcher application.Dispatcher
}

func newTestEnv() *testEnv {
	repo := newMockRepoManager()
	ledger := newMockLedger()
	transfer := &mockTokenTransfer{ok: true}
	bus := &mockEventBus{}

	verifier := application.NewVerifier(repo, ledger, holdingAddr, adminAddr, feeAsset)
	committer := application.NewCommitter(repo, verifier, transfer, bus, holdingAddr)
	adminSvc := application.NewAdminService(repo, domain.DefaultWindowLength)
	dispatcher := application.NewDispatcher(repo, ledger, adminSvc, adminAddr)

	return &testEnv{
		repo:       repo,
		ledger:     ledger,
		transfer:   transfer,
		bus:        bus,
		verifier:   verifier,
		committer:  committer,
		adminSvc:   adminSvc,
		dispatcher: dispatcher,
	}
}

// activate initializes the faucet at the given window start and configures
// caps for the fixture assets.
func (e *testEnv) activate(windowStart int64) {
	ctx := context.Background()
	// nolint:errcheck
	e.repo.settingsRepo.Upsert(ctx, domain.Settings{
		Phase:        domain.PhaseActive,
		WindowLength: domain.DefaultWindowLength,
		WindowStart:  windowStart,
	})
	// nolint:errcheck
	e.repo.settingsRepo.UpsertCaps(ctx, domain.CapConfig{
		AssetID: nativeAsset, IndividualCap: 100, GlobalCap: 1000,
	})
	// nolint:errcheck
	e.repo.settingsRepo.UpsertCaps(ctx, domain.CapConfig{
		AssetID: tokenAsset, IndividualCap: 500, GlobalCap: 5000,
	})
}

func mustDecode(s string) []byte {
	buf, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return buf
}

func stageAttrs(stage byte, claimant, assetAttr string, assetUsage byte) []domain.Attribute {
	return []domain.Attribute{
		{Usage: domain.AttrUsageStage, Data: []byte{stage}},
		{Usage: domain.AttrUsageClaimant, Data: mustDecode(claimant)},
		{Usage: assetUsage, Data: mustDecode(assetAttr)},
	}
}

// markTx builds a native Mark candidate spending faucet outputs back to the
// faucet, with matching prior outputs registered in the ledger.
func markTx(env *testEnv, txid string, claimant string, amounts ...uint64) domain.CandidateTx {
	tx := domain.CandidateTx{
		Txid:       txid,
		Attributes: stageAttrs(0x50, claimant, nativeAsset, domain.AttrUsageNativeAsset),
	}
	for i, amount := range amounts {
		prev := domain.Outpoint{Txid: "prev" + txid, VOut: uint32(i)}
		env.ledger.addOutput(prev, domain.TxOutput{
			AssetID: nativeAsset, Amount: amount, Recipient: holdingAddr,
		})
		tx.Inputs = append(tx.Inputs, prev)
		tx.Outputs = append(tx.Outputs, domain.TxOutput{
			AssetID: nativeAsset, Amount: amount, Recipient: holdingAddr,
		})
	}
	env.ledger.addWitness(txid, claimant)
	return tx
}

// submissionOf packages a candidate built against the mock ledger into a
// self-contained submission: prior outputs and witnesses travel with it.
func submissionOf(env *testEnv, tx domain.CandidateTx, receivedAt int64) domain.Submission {
	env.ledger.lock.RLock()
	defer env.ledger.lock.RUnlock()

	prevouts := make(map[string]domain.TxOutput)
	for _, input := range tx.Inputs {
		if out, ok := env.ledger.outputs[input.String()]; ok {
			prevouts[input.String()] = out
		}
	}
	witnesses := make([]string, 0)
	for address := range env.ledger.witnesses[tx.Txid] {
		witnesses = append(witnesses, address)
	}
	return domain.Submission{
		Tx:         tx,
		Witnesses:  witnesses,
		Prevouts:   prevouts,
		ReceivedAt: receivedAt,
	}
}

var _ ports.RepoManager = (*mockRepoManager)(nil)
var _ ports.Ledger = (*mockLedger)(nil)
var _ ports.TokenTransfer = (*mockTokenTransfer)(nil)
var _ ports.EventBus = (*mockEventBus)(nil)
