package service

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/curiolabs/wondergate/internal/domain"
	"go.uber.org/zap"
)

const (
	defaultDriftInterval = 1 * time.Hour

	// DefaultDriftWindow is how much audit history a report covers. The
	// window splits into an early and a late half for trend comparison.
	DefaultDriftWindow = 24 * time.Hour
	// DriftRateThreshold is the admission-rate shift between window halves
	// that marks a source as drifting.
	DriftRateThreshold = 0.25
	// minDecisionsForDrift is how many decisions each half needs before a
	// source's shift is trusted.
	minDecisionsForDrift = 5
)

// SourceDrift describes one source whose admission rate shifted between the
// two halves of the report window.
type SourceDrift struct {
	SourceID  string  `json:"source_id"`
	EarlyRate float64 `json:"early_rate"`
	LateRate  float64 `json:"late_rate"`
	Shift     float64 `json:"shift"`
}

// DriftReport summarizes filter behavior over a window: overall admission
// volume, which checks reject the most, how reinforcement deltas trend, and
// which sources changed their admission rate.
type DriftReport struct {
	WindowStart     time.Time      `json:"window_start"`
	WindowEnd       time.Time      `json:"window_end"`
	Admitted        int            `json:"admitted"`
	Rejected        int            `json:"rejected"`
	AdmissionRate   float64        `json:"admission_rate"`
	CheckFailures   map[string]int `json:"check_failures"`
	Reinforcements  int            `json:"reinforcements"`
	MeanDeltaEarly  float64        `json:"mean_delta_early"`
	MeanDeltaLate   float64        `json:"mean_delta_late"`
	DriftingSources []SourceDrift  `json:"drifting_sources"`
}

// DriftService periodically reads the audit log and reports how the filter
// is behaving. It only reads; the filter never changes course based on a
// report.
type DriftService struct {
	audit  domain.AuditStore
	logger *zap.Logger

	interval time.Duration
	window   time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

func NewDriftService(as domain.AuditStore, logger *zap.Logger) *DriftService {
	return &DriftService{
		audit:    as,
		logger:   logger,
		interval: defaultDriftInterval,
		window:   DefaultDriftWindow,
		stopCh:   make(chan struct{}),
	}
}

func (s *DriftService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *DriftService) SetWindow(d time.Duration) {
	s.window = d
}

func (s *DriftService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("drift worker started",
			zap.Duration("interval", s.interval),
			zap.Duration("window", s.window))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
				s.runOnce(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("drift worker stopped")
				return
			}
		}
	}()
}

func (s *DriftService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *DriftService) runOnce(ctx context.Context) {
	report, err := s.Report(ctx, s.window)
	if err != nil {
		s.logger.Error("drift report failed", zap.Error(err))
		return
	}

	s.logger.Info("drift report",
		zap.Int("admitted", report.Admitted),
		zap.Int("rejected", report.Rejected),
		zap.Float64("admission_rate", report.AdmissionRate),
		zap.Int("reinforcements", report.Reinforcements),
		zap.Int("drifting_sources", len(report.DriftingSources)))

	for _, d := range report.DriftingSources {
		s.logger.Warn("source admission rate drifting",
			zap.String("source_id", d.SourceID),
			zap.Float64("early_rate", d.EarlyRate),
			zap.Float64("late_rate", d.LateRate),
			zap.Float64("shift", d.Shift))
	}
}

// Report builds a drift report for the trailing window.
func (s *DriftService) Report(ctx context.Context, window time.Duration) (*DriftReport, error) {
	if window <= 0 {
		window = DefaultDriftWindow
	}
	end := timeNow()
	start := end.Add(-window)
	mid := start.Add(window / 2)

	early, err := s.audit.AggregateBySource(ctx, start, mid)
	if err != nil {
		return nil, err
	}
	late, err := s.audit.AggregateBySource(ctx, mid, end)
	if err != nil {
		return nil, err
	}

	failures, err := s.audit.CountFailuresByCheck(ctx, start)
	if err != nil {
		return nil, err
	}

	earlyCount, earlyMean, err := s.audit.ReinforcementStats(ctx, start, mid)
	if err != nil {
		return nil, err
	}
	lateCount, lateMean, err := s.audit.ReinforcementStats(ctx, mid, end)
	if err != nil {
		return nil, err
	}

	report := &DriftReport{
		WindowStart:    start,
		WindowEnd:      end,
		CheckFailures:  failures,
		Reinforcements: earlyCount + lateCount,
		MeanDeltaEarly: earlyMean,
		MeanDeltaLate:  lateMean,
	}

	lateBySource := make(map[string]domain.SourceAggregate, len(late))
	for _, agg := range late {
		lateBySource[agg.SourceID] = agg
		report.Admitted += agg.Admitted
		report.Rejected += agg.Rejected
	}
	for _, agg := range early {
		report.Admitted += agg.Admitted
		report.Rejected += agg.Rejected
	}
	if total := report.Admitted + report.Rejected; total > 0 {
		report.AdmissionRate = float64(report.Admitted) / float64(total)
	}

	for _, e := range early {
		l, ok := lateBySource[e.SourceID]
		if !ok {
			continue
		}
		if e.Admitted+e.Rejected < minDecisionsForDrift || l.Admitted+l.Rejected < minDecisionsForDrift {
			continue
		}
		shift := l.Rate() - e.Rate()
		if math.Abs(shift) >= DriftRateThreshold {
			report.DriftingSources = append(report.DriftingSources, SourceDrift{
				SourceID:  e.SourceID,
				EarlyRate: e.Rate(),
				LateRate:  l.Rate(),
				Shift:     shift,
			})
		}
	}

	return report, nil
}
