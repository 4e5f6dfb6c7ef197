package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"github.com/curiolabs/wondergate/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// mockWonderStore implements domain.WonderStore for testing. Equivalence
// matching is exact-fingerprint only; embedding similarity is covered by the
// memstore tests.
type mockWonderStore struct {
	wonders map[uuid.UUID]*domain.Wonder
	history map[uuid.UUID][]domain.Occurrence
	byHash  map[string]uuid.UUID
	findErr error
}

func newMockWonderStore() *mockWonderStore {
	return &mockWonderStore{
		wonders: make(map[uuid.UUID]*domain.Wonder),
		history: make(map[uuid.UUID][]domain.Occurrence),
		byHash:  make(map[string]uuid.UUID),
	}
}

func (m *mockWonderStore) Create(ctx context.Context, w *domain.Wonder, first domain.Occurrence) error {
	if _, exists := m.byHash[w.ContentHash]; exists {
		return fmt.Errorf("duplicate content_hash %s", w.ContentHash)
	}
	w.ID = uuid.New()
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	cp := *w
	m.wonders[w.ID] = &cp
	m.history[w.ID] = []domain.Occurrence{first}
	m.byHash[w.ContentHash] = w.ID
	return nil
}

func (m *mockWonderStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Wonder, error) {
	w, ok := m.wonders[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *w
	return &cp, nil
}

func (m *mockWonderStore) FindEquivalent(ctx context.Context, obs domain.Observation, opts domain.MatchOpts) (*domain.WonderWithScore, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	id, ok := m.byHash[obs.Fingerprint()]
	if !ok {
		return nil, nil
	}
	return &domain.WonderWithScore{Wonder: *m.wonders[id], Score: 1}, nil
}

func (m *mockWonderStore) AppendOccurrence(ctx context.Context, id uuid.UUID, occ domain.Occurrence, confidence float32, stage domain.WonderStage) error {
	w, ok := m.wonders[id]
	if !ok {
		return store.ErrNotFound
	}
	m.history[id] = append(m.history[id], occ)
	w.Confidence = confidence
	w.Stage = stage
	w.OccurrenceCount++
	w.LastSeenAt = occ.ObservedAt
	w.UpdatedAt = time.Now()
	return nil
}

func (m *mockWonderStore) GetHistory(ctx context.Context, id uuid.UUID) ([]domain.Occurrence, error) {
	occs := m.history[id]
	out := make([]domain.Occurrence, len(occs))
	copy(out, occs)
	return out, nil
}

func (m *mockWonderStore) ListByStage(ctx context.Context, stage domain.WonderStage, limit int) ([]domain.Wonder, error) {
	var results []domain.Wonder
	for _, w := range m.wonders {
		if stage != "" && w.Stage != stage {
			continue
		}
		results = append(results, *w)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockWonderStore) ListRecentBySource(ctx context.Context, sourceID string, since time.Time, limit int) ([]domain.Wonder, error) {
	var results []domain.Wonder
	for _, w := range m.wonders {
		if w.SourceID != sourceID || w.LastSeenAt.Before(since) {
			continue
		}
		results = append(results, *w)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockWonderStore) ListByTag(ctx context.Context, tag string, limit int) ([]domain.Wonder, error) {
	var results []domain.Wonder
	for _, w := range m.wonders {
		for _, t := range w.Tags {
			if t == tag {
				results = append(results, *w)
				break
			}
		}
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// mockReliabilityStore implements domain.ReliabilityStore for testing.
type mockReliabilityStore struct {
	records map[string]*domain.SourceReliability
}

func newMockReliabilityStore() *mockReliabilityStore {
	return &mockReliabilityStore{records: make(map[string]*domain.SourceReliability)}
}

func (m *mockReliabilityStore) Get(ctx context.Context, sourceID string) (*domain.SourceReliability, error) {
	rec, ok := m.records[sourceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *mockReliabilityStore) Upsert(ctx context.Context, s *domain.SourceReliability) error {
	cp := *s
	m.records[s.SourceID] = &cp
	return nil
}

func (m *mockReliabilityStore) List(ctx context.Context, limit int) ([]domain.SourceReliability, error) {
	var results []domain.SourceReliability
	for _, rec := range m.records {
		results = append(results, *rec)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

func (m *mockReliabilityStore) seed(sourceID string, score float32) {
	m.records[sourceID] = &domain.SourceReliability{SourceID: sourceID, Score: score}
}

// mockAuditStore implements domain.AuditStore for testing.
type mockAuditStore struct {
	events []domain.AuditEvent
}

func newMockAuditStore() *mockAuditStore {
	return &mockAuditStore{}
}

func (m *mockAuditStore) Append(ctx context.Context, e *domain.AuditEvent) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	m.events = append(m.events, *e)
	return nil
}

func (m *mockAuditStore) List(ctx context.Context, f domain.AuditFilter) ([]domain.AuditEvent, error) {
	var results []domain.AuditEvent
	for i := len(m.events) - 1; i >= 0; i-- {
		e := m.events[i]
		if f.SourceID != "" && e.SourceID != f.SourceID {
			continue
		}
		if f.Kind != nil && e.Kind != *f.Kind {
			continue
		}
		if f.Decision != nil && e.Decision != *f.Decision {
			continue
		}
		if !f.Since.IsZero() && e.CreatedAt.Before(f.Since) {
			continue
		}
		results = append(results, e)
		if f.Limit > 0 && len(results) >= f.Limit {
			break
		}
	}
	return results, nil
}

func (m *mockAuditStore) AggregateBySource(ctx context.Context, since, until time.Time) ([]domain.SourceAggregate, error) {
	bySource := make(map[string]*domain.SourceAggregate)
	for _, e := range m.events {
		if e.Kind != domain.AuditAdmission || e.CreatedAt.Before(since) || !e.CreatedAt.Before(until) {
			continue
		}
		agg, ok := bySource[e.SourceID]
		if !ok {
			agg = &domain.SourceAggregate{SourceID: e.SourceID}
			bySource[e.SourceID] = agg
		}
		if e.Decision == domain.DecisionAdmitted {
			agg.Admitted++
		} else {
			agg.Rejected++
		}
	}
	var results []domain.SourceAggregate
	for _, agg := range bySource {
		results = append(results, *agg)
	}
	return results, nil
}

func (m *mockAuditStore) CountFailuresByCheck(ctx context.Context, since time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	for _, e := range m.events {
		if e.Kind != domain.AuditAdmission || e.CreatedAt.Before(since) {
			continue
		}
		for _, name := range e.FailedChecks {
			counts[name]++
		}
	}
	return counts, nil
}

func (m *mockAuditStore) ReinforcementStats(ctx context.Context, since, until time.Time) (int, float64, error) {
	count := 0
	sum := 0.0
	for _, e := range m.events {
		if e.Kind != domain.AuditReinforcement || e.CreatedAt.Before(since) || !e.CreatedAt.Before(until) {
			continue
		}
		count++
		sum += float64(e.Delta)
	}
	if count == 0 {
		return 0, 0, nil
	}
	return count, sum / float64(count), nil
}

func (m *mockAuditStore) countByKind(kind domain.AuditKind) int {
	n := 0
	for _, e := range m.events {
		if e.Kind == kind {
			n++
		}
	}
	return n
}

// staticCheck always returns the same verdict.
type staticCheck struct {
	name string
	fail bool
}

func (c staticCheck) Name() string { return c.name }

func (c staticCheck) Fails(domain.Observation, domain.SourceReliability) bool { return c.fail }

// countingCheck records how often the battery consults it.
type countingCheck struct {
	name  string
	fail  bool
	calls *int
}

func (c countingCheck) Name() string { return c.name }

func (c countingCheck) Fails(domain.Observation, domain.SourceReliability) bool {
	*c.calls++
	return c.fail
}

func passingBattery() []domain.CredibilityCheck {
	return []domain.CredibilityCheck{
		staticCheck{name: "alpha"},
		staticCheck{name: "beta"},
		staticCheck{name: "gamma"},
	}
}

func setupWonderTest(t *testing.T, checks []domain.CredibilityCheck) (*WonderService, *mockWonderStore, *mockReliabilityStore, *mockAuditStore) {
	t.Helper()
	ws := newMockWonderStore()
	rs := newMockReliabilityStore()
	as := newMockAuditStore()
	svc, err := NewWonderService(ws, NewReliabilityService(rs, zap.NewNop()), as, checks, zap.NewNop())
	if err != nil {
		t.Fatalf("NewWonderService failed: %v", err)
	}
	return svc, ws, rs, as
}

func TestObserveAdmitsCleanObservation(t *testing.T) {
	svc, _, rs, as := setupWonderTest(t, passingBattery())
	rs.seed("feed-1", 0.8)
	ctx := context.Background()

	res, err := svc.Observe(ctx, domain.Observation{SourceID: "feed-1", Content: "the river rose two meters"})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	if res.Outcome != OutcomeAdmitted {
		t.Fatalf("outcome = %v, want admitted", res.Outcome)
	}
	if !approxEqual(res.Wonder.Confidence, 0.8) {
		t.Errorf("confidence = %v, want 0.8 (all checks passed at 0.8 reliability)", res.Wonder.Confidence)
	}
	if res.Wonder.Stage != domain.StageAdmitted {
		t.Errorf("stage = %v, want admitted", res.Wonder.Stage)
	}
	if res.Wonder.OccurrenceCount != 1 {
		t.Errorf("occurrence count = %d, want 1", res.Wonder.OccurrenceCount)
	}
	if !approxEqual(res.Delta, res.Wonder.Confidence) {
		t.Errorf("delta = %v, want initial confidence %v", res.Delta, res.Wonder.Confidence)
	}

	history, err := svc.GetHistory(ctx, res.Wonder.ID)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 1 || history[0].Seq != 1 {
		t.Fatalf("history = %+v, want single occurrence with seq 1", history)
	}
	if !approxEqual(history[0].Delta, res.Wonder.Confidence) {
		t.Errorf("admission occurrence delta = %v, want %v", history[0].Delta, res.Wonder.Confidence)
	}

	rec, err := rs.Get(ctx, "feed-1")
	if err != nil {
		t.Fatalf("reliability Get failed: %v", err)
	}
	if !approxEqual(rec.Score, 0.85) {
		t.Errorf("reliability after admission = %v, want 0.85", rec.Score)
	}
	if rec.Admitted != 1 || rec.Samples != 1 {
		t.Errorf("reliability tallies = %d admitted / %d samples, want 1/1", rec.Admitted, rec.Samples)
	}

	if n := as.countByKind(domain.AuditAdmission); n != 1 {
		t.Errorf("admission audit events = %d, want 1", n)
	}
	if as.events[0].Decision != domain.DecisionAdmitted || as.events[0].WonderID == nil {
		t.Errorf("audit event = %+v, want admitted with wonder id", as.events[0])
	}
}

func TestObserveRejectsAtThreshold(t *testing.T) {
	battery := []domain.CredibilityCheck{
		staticCheck{name: "alpha", fail: true},
		staticCheck{name: "beta", fail: true},
		staticCheck{name: "gamma"},
	}
	svc, ws, rs, as := setupWonderTest(t, battery)
	ctx := context.Background()

	res, err := svc.Observe(ctx, domain.Observation{SourceID: "feed-1", Content: "garbled claim"})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	if res.Outcome != OutcomeRejected {
		t.Fatalf("outcome = %v, want rejected", res.Outcome)
	}
	if res.Wonder != nil {
		t.Error("rejected observation must not produce a wonder")
	}
	if len(ws.wonders) != 0 {
		t.Errorf("store holds %d wonders after rejection, want 0", len(ws.wonders))
	}
	if len(res.FailedChecks) != 2 || res.FailedChecks[0] != "alpha" || res.FailedChecks[1] != "beta" {
		t.Errorf("failed checks = %v, want [alpha beta] in battery order", res.FailedChecks)
	}

	rec, err := rs.Get(ctx, "feed-1")
	if err != nil {
		t.Fatalf("reliability Get failed: %v", err)
	}
	if !approxEqual(rec.Score, 0.45) {
		t.Errorf("reliability after rejection = %v, want 0.45", rec.Score)
	}
	if rec.Rejected != 1 {
		t.Errorf("rejected tally = %d, want 1", rec.Rejected)
	}

	if n := as.countByKind(domain.AuditAdmission); n != 1 {
		t.Fatalf("admission audit events = %d, want 1", n)
	}
	e := as.events[0]
	if e.Decision != domain.DecisionRejected || e.WonderID != nil {
		t.Errorf("audit event = %+v, want rejected with no wonder id", e)
	}
	if len(e.FailedChecks) != 2 {
		t.Errorf("audit failed checks = %v, want both names", e.FailedChecks)
	}
}

func TestSingleFailureRejectsWithThresholdOne(t *testing.T) {
	battery := []domain.CredibilityCheck{
		staticCheck{name: "alpha", fail: true},
		staticCheck{name: "beta"},
	}
	svc, _, _, _ := setupWonderTest(t, battery)
	svc.FailureThreshold = 1

	res, err := svc.Observe(context.Background(), domain.Observation{SourceID: "feed-1", Content: "one bad sign"})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if res.Outcome != OutcomeRejected {
		t.Errorf("outcome = %v, want rejected with threshold 1", res.Outcome)
	}
}

func TestRaisingThresholdNeverRejectsAdmitted(t *testing.T) {
	battery := []domain.CredibilityCheck{
		staticCheck{name: "alpha", fail: true},
		staticCheck{name: "beta"},
		staticCheck{name: "gamma"},
	}

	outcomes := make(map[int]ObserveOutcome)
	for _, threshold := range []int{1, 2, 3} {
		svc, _, _, _ := setupWonderTest(t, battery)
		svc.FailureThreshold = threshold
		res, err := svc.Observe(context.Background(), domain.Observation{SourceID: "feed-1", Content: "borderline claim"})
		if err != nil {
			t.Fatalf("Observe at threshold %d failed: %v", threshold, err)
		}
		outcomes[threshold] = res.Outcome
	}

	if outcomes[1] != OutcomeRejected {
		t.Errorf("threshold 1 outcome = %v, want rejected", outcomes[1])
	}
	// One failing check: admitted at threshold 2 must stay admitted at 3.
	if outcomes[2] != OutcomeAdmitted || outcomes[3] != OutcomeAdmitted {
		t.Errorf("outcomes at thresholds 2 and 3 = %v, %v, want admitted at both", outcomes[2], outcomes[3])
	}
}

func TestObserveReinforcesOnRepeat(t *testing.T) {
	svc, _, _, as := setupWonderTest(t, passingBattery())
	ctx := context.Background()
	obs := domain.Observation{SourceID: "feed-1", Content: "the river rose two meters"}

	first, err := svc.Observe(ctx, obs)
	if err != nil {
		t.Fatalf("first Observe failed: %v", err)
	}
	if first.Outcome != OutcomeAdmitted || !approxEqual(first.Wonder.Confidence, 0.5) {
		t.Fatalf("first observation = %v at %v, want admitted at 0.5", first.Outcome, first.Wonder.Confidence)
	}

	second, err := svc.Observe(ctx, obs)
	if err != nil {
		t.Fatalf("second Observe failed: %v", err)
	}

	if second.Outcome != OutcomeReinforced {
		t.Fatalf("second outcome = %v, want reinforced", second.Outcome)
	}
	if !approxEqual(second.Delta, 0.05) {
		t.Errorf("reinforcement delta = %v, want 0.05", second.Delta)
	}
	if !approxEqual(second.Wonder.Confidence, 0.55) {
		t.Errorf("confidence = %v, want 0.55", second.Wonder.Confidence)
	}
	if second.Wonder.Stage != domain.StageReinforced {
		t.Errorf("stage = %v, want reinforced", second.Wonder.Stage)
	}
	if second.Wonder.OccurrenceCount != 2 {
		t.Errorf("occurrence count = %d, want 2", second.Wonder.OccurrenceCount)
	}
	if n := as.countByKind(domain.AuditReinforcement); n != 1 {
		t.Errorf("reinforcement audit events = %d, want 1", n)
	}
}

func TestReinforcementWorkedExample(t *testing.T) {
	svc, ws, _, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()

	obs := domain.Observation{SourceID: "feed-1", Content: "the dam gate opened at dawn"}
	seeded := &domain.Wonder{
		SourceID:        "feed-1",
		Content:         obs.Content,
		ContentHash:     obs.Fingerprint(),
		Confidence:      0.8,
		Stage:           domain.StageAdmitted,
		OccurrenceCount: 1,
	}
	if err := ws.Create(ctx, seeded, domain.Occurrence{Seq: 1, Delta: 0.8}); err != nil {
		t.Fatalf("seeding wonder failed: %v", err)
	}

	res, err := svc.Observe(ctx, obs)
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if res.Outcome != OutcomeReinforced {
		t.Fatalf("outcome = %v, want reinforced", res.Outcome)
	}
	if !approxEqual(res.Delta, 0.02) {
		t.Errorf("delta = %v, want 0.1 * (1 - 0.8) = 0.02", res.Delta)
	}
	if !approxEqual(res.Wonder.Confidence, 0.82) {
		t.Errorf("confidence = %v, want 0.82", res.Wonder.Confidence)
	}
}

func TestReinforcementNeverRunsChecks(t *testing.T) {
	calls := 0
	battery := []domain.CredibilityCheck{countingCheck{name: "counter", calls: &calls}}
	svc, _, _, _ := setupWonderTest(t, battery)
	ctx := context.Background()
	obs := domain.Observation{SourceID: "feed-1", Content: "a claim seen many times"}

	if _, err := svc.Observe(ctx, obs); err != nil {
		t.Fatalf("admission Observe failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("check ran %d times during admission, want 1", calls)
	}

	for i := 0; i < 10; i++ {
		if _, err := svc.Observe(ctx, obs); err != nil {
			t.Fatalf("reinforcement Observe failed: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("check ran %d times total, want 1: reinforcement must not re-run the battery", calls)
	}
}

func TestReinforcementDeltasDiminish(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()
	obs := domain.Observation{SourceID: "feed-1", Content: "repeated claim"}

	if _, err := svc.Observe(ctx, obs); err != nil {
		t.Fatalf("admission failed: %v", err)
	}

	var deltas []float32
	var confidences []float32
	for i := 0; i < 5; i++ {
		res, err := svc.Observe(ctx, obs)
		if err != nil {
			t.Fatalf("reinforcement %d failed: %v", i+1, err)
		}
		deltas = append(deltas, res.Delta)
		confidences = append(confidences, res.Wonder.Confidence)
	}

	for i := 1; i < len(deltas); i++ {
		if deltas[i] >= deltas[i-1] {
			t.Errorf("delta %d (%v) >= delta %d (%v), want strictly diminishing", i, deltas[i], i-1, deltas[i-1])
		}
		if confidences[i] <= confidences[i-1] {
			t.Errorf("confidence %d (%v) <= confidence %d (%v), want strictly increasing", i, confidences[i], i-1, confidences[i-1])
		}
	}
	if last := confidences[len(confidences)-1]; last >= 1.0 {
		t.Errorf("confidence = %v after reinforcement, want < 1.0", last)
	}
}

func TestReinforcementLeavesReliabilityAlone(t *testing.T) {
	svc, _, rs, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()
	obs := domain.Observation{SourceID: "feed-1", Content: "stable claim"}

	if _, err := svc.Observe(ctx, obs); err != nil {
		t.Fatalf("admission failed: %v", err)
	}
	after, err := rs.Get(ctx, "feed-1")
	if err != nil {
		t.Fatalf("reliability Get failed: %v", err)
	}

	for i := 0; i < 10; i++ {
		if _, err := svc.Observe(ctx, obs); err != nil {
			t.Fatalf("reinforcement %d failed: %v", i+1, err)
		}
	}

	final, err := rs.Get(ctx, "feed-1")
	if err != nil {
		t.Fatalf("reliability Get failed: %v", err)
	}
	if final.Score != after.Score || final.Admitted != after.Admitted || final.Samples != after.Samples {
		t.Errorf("reliability changed by reinforcement: %+v -> %+v", after, final)
	}
}

func TestOccurrenceCountMatchesHistory(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()
	obs := domain.Observation{SourceID: "feed-1", Content: "recounted claim"}

	res, err := svc.Observe(ctx, obs)
	if err != nil {
		t.Fatalf("admission failed: %v", err)
	}
	id := res.Wonder.ID

	for i := 0; i < 4; i++ {
		if res, err = svc.Observe(ctx, obs); err != nil {
			t.Fatalf("reinforcement %d failed: %v", i+1, err)
		}
	}

	history, err := svc.GetHistory(ctx, id)
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 5 || res.Wonder.OccurrenceCount != 5 {
		t.Fatalf("history len = %d, occurrence count = %d, want both 5", len(history), res.Wonder.OccurrenceCount)
	}

	var sum float32
	for i, occ := range history {
		if occ.Seq != i+1 {
			t.Errorf("occurrence %d has seq %d, want %d", i, occ.Seq, i+1)
		}
		sum += occ.Delta
	}
	if !approxEqual(sum, res.Wonder.Confidence) {
		t.Errorf("sum of deltas = %v, confidence = %v, want equal", sum, res.Wonder.Confidence)
	}
}

func TestUnseenSourceStartsNeutral(t *testing.T) {
	svc, _, rs, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()

	res, err := svc.Observe(ctx, domain.Observation{SourceID: "brand-new", Content: "first contact"})
	if err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if !approxEqual(res.Wonder.Confidence, 0.5) {
		t.Errorf("confidence = %v, want 0.5 from the neutral score", res.Wonder.Confidence)
	}

	rec, err := rs.Get(ctx, "brand-new")
	if err != nil {
		t.Fatalf("reliability Get failed: %v", err)
	}
	if !approxEqual(rec.Score, 0.55) {
		t.Errorf("reliability = %v, want 0.55 after first admission", rec.Score)
	}
}

func TestRepeatedRejectionAccumulatesAgainstSource(t *testing.T) {
	battery := []domain.CredibilityCheck{
		staticCheck{name: "alpha", fail: true},
		staticCheck{name: "beta", fail: true},
	}
	svc, _, rs, as := setupWonderTest(t, battery)
	ctx := context.Background()
	obs := domain.Observation{SourceID: "noisy", Content: "rejected claim"}

	for i := 0; i < 2; i++ {
		res, err := svc.Observe(ctx, obs)
		if err != nil {
			t.Fatalf("Observe %d failed: %v", i+1, err)
		}
		if res.Outcome != OutcomeRejected {
			t.Fatalf("outcome %d = %v, want rejected: rejection leaves no wonder to reinforce", i+1, res.Outcome)
		}
	}

	rec, err := rs.Get(ctx, "noisy")
	if err != nil {
		t.Fatalf("reliability Get failed: %v", err)
	}
	if rec.Rejected != 2 {
		t.Errorf("rejected tally = %d, want 2", rec.Rejected)
	}
	if !approxEqual(rec.Score, 0.4) {
		t.Errorf("reliability = %v, want 0.4 after two rejections", rec.Score)
	}
	if n := as.countByKind(domain.AuditAdmission); n != 2 {
		t.Errorf("admission audit events = %d, want 2", n)
	}
}

func TestObserveValidation(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()

	_, err := svc.Observe(ctx, domain.Observation{SourceID: "feed-1"})
	if !errors.Is(err, ErrContentEmpty) {
		t.Errorf("empty content error = %v, want ErrContentEmpty", err)
	}

	_, err = svc.Observe(ctx, domain.Observation{SourceID: "feed-1", Content: "   \n\t "})
	if !errors.Is(err, ErrContentEmpty) {
		t.Errorf("blank content error = %v, want ErrContentEmpty", err)
	}

	_, err = svc.Observe(ctx, domain.Observation{Content: "no source"})
	if !errors.Is(err, ErrSourceIDMissing) {
		t.Errorf("missing source error = %v, want ErrSourceIDMissing", err)
	}
}

func TestEvaluateAdmissionRefusesKnownClaim(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()
	obs := domain.Observation{SourceID: "feed-1", Content: "already admitted claim"}

	if _, err := svc.Observe(ctx, obs); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	_, err := svc.EvaluateAdmission(ctx, obs)
	if !errors.Is(err, ErrAlreadyAdmitted) {
		t.Errorf("EvaluateAdmission error = %v, want ErrAlreadyAdmitted", err)
	}
}

func TestReinforceRequiresExistingWonder(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())

	_, err := svc.Reinforce(context.Background(), domain.Observation{SourceID: "feed-1", Content: "never admitted"})
	if !errors.Is(err, ErrWonderNotFound) {
		t.Errorf("Reinforce error = %v, want ErrWonderNotFound", err)
	}
}

func TestAmbiguousMatchPropagates(t *testing.T) {
	svc, ws, _, _ := setupWonderTest(t, passingBattery())
	ws.findErr = store.ErrAmbiguousMatch

	_, err := svc.Observe(context.Background(), domain.Observation{SourceID: "feed-1", Content: "ambiguous claim"})
	if !errors.Is(err, store.ErrAmbiguousMatch) {
		t.Errorf("Observe error = %v, want ErrAmbiguousMatch passthrough", err)
	}
}

func TestNewWonderServiceRequiresChecks(t *testing.T) {
	rs := NewReliabilityService(newMockReliabilityStore(), zap.NewNop())
	_, err := NewWonderService(newMockWonderStore(), rs, newMockAuditStore(), nil, zap.NewNop())
	if !errors.Is(err, ErrNoChecksRegistered) {
		t.Errorf("constructor error = %v, want ErrNoChecksRegistered", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())

	_, err := svc.GetByID(context.Background(), uuid.New())
	if !errors.Is(err, ErrWonderNotFound) {
		t.Errorf("GetByID error = %v, want ErrWonderNotFound", err)
	}
}

func TestListByStage(t *testing.T) {
	svc, _, _, _ := setupWonderTest(t, passingBattery())
	ctx := context.Background()

	if _, err := svc.Observe(ctx, domain.Observation{SourceID: "feed-1", Content: "an admitted claim"}); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	_, err := svc.ListByStage(ctx, "bogus", 10)
	if !errors.Is(err, ErrInvalidStage) {
		t.Errorf("invalid stage error = %v, want ErrInvalidStage", err)
	}

	candidates, err := svc.ListByStage(ctx, "candidate", 10)
	if err != nil {
		t.Fatalf("ListByStage(candidate) failed: %v", err)
	}
	if len(candidates) != 0 {
		t.Errorf("candidate list has %d wonders, want 0: candidates are never persisted", len(candidates))
	}

	admitted, err := svc.ListByStage(ctx, "admitted", 10)
	if err != nil {
		t.Fatalf("ListByStage(admitted) failed: %v", err)
	}
	if len(admitted) != 1 {
		t.Errorf("admitted list has %d wonders, want 1", len(admitted))
	}
}

func TestAuditLogFilters(t *testing.T) {
	battery := []domain.CredibilityCheck{
		staticCheck{name: "alpha", fail: true},
		staticCheck{name: "beta", fail: true},
	}
	svc, _, _, _ := setupWonderTest(t, battery)
	ctx := context.Background()

	if _, err := svc.Observe(ctx, domain.Observation{SourceID: "noisy", Content: "junk one"}); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}
	if _, err := svc.Observe(ctx, domain.Observation{SourceID: "other", Content: "junk two"}); err != nil {
		t.Fatalf("Observe failed: %v", err)
	}

	events, err := svc.AuditLog(ctx, domain.AuditFilter{SourceID: "noisy"})
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	if len(events) != 1 || events[0].SourceID != "noisy" {
		t.Errorf("filtered audit log = %+v, want single event for noisy", events)
	}

	rejected := domain.DecisionRejected
	events, err = svc.AuditLog(ctx, domain.AuditFilter{Decision: &rejected})
	if err != nil {
		t.Fatalf("AuditLog failed: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("rejected audit events = %d, want 2", len(events))
	}
}
