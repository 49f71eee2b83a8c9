package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"auctionhub/internal/config"
	"auctionhub/internal/extractor"
	"auctionhub/internal/lock"
	"auctionhub/internal/models"
	"auctionhub/internal/repository"
)

var (
	ErrUnknownHouse  = errors.New("unknown auction house")
	ErrRunInProgress = errors.New("scrape already running for this house")
)

// ScrapeService runs extractors, reconciles their output into the lot store and
// writes one ScrapeRun per invocation.
type ScrapeService struct {
	Registry *extractor.Registry
	Lots     repository.LotRepository
	Runs     repository.RunRepository
	Locker   lock.Locker
	Logger   *zap.Logger
	Config   config.ScrapeConfig
	Events   *RunEvents

	// BaseCtx parents detached runs started by RunHouseAsync and RunAllAsync.
	BaseCtx context.Context
	Now     func() time.Time

	wg         sync.WaitGroup
	lockerOnce sync.Once
}

type RunAllOptions struct {
	Sync    bool
	Stagger time.Duration
	Trigger string
}

func (s *ScrapeService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *ScrapeService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *ScrapeService) locker() lock.Locker {
	s.lockerOnce.Do(func() {
		if s.Locker == nil {
			s.Locker = lock.NewMemoryLocker()
		}
	})
	return s.Locker
}

func (s *ScrapeService) baseCtx() context.Context {
	if s.BaseCtx != nil {
		return s.BaseCtx
	}
	return context.Background()
}

func houseLockKey(houseID int) string {
	return "scrape:house:" + strconv.Itoa(houseID)
}

// RunHouse scrapes one house now. Extraction failures are recorded on the
// returned run, not returned as errors; err is reserved for unknown houses,
// overlapping runs and audit write failures.
func (s *ScrapeService) RunHouse(ctx context.Context, houseID int, trigger string) (*models.ScrapeRun, error) {
	if s == nil || s.Registry == nil {
		return nil, fmt.Errorf("scrape service not configured")
	}
	ex, ok := s.Registry.Get(houseID)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHouse, houseID)
	}
	unlock, ok, err := s.locker().TryLock(ctx, houseLockKey(houseID), s.Config.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire house lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	defer unlock()

	runCtx := ctx
	if s.Config.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.Config.RunTimeout)
		defer cancel()
	}
	if trigger == "" {
		trigger = models.TriggerCLI
	}

	start := time.Now()
	run := &models.ScrapeRun{
		RunID:          uuid.NewString(),
		AuctionHouseID: houseID,
		HouseName:      ex.Name(),
		Trigger:        trigger,
	}
	log := s.logger().With(zap.Int("house_id", houseID), zap.String("house", ex.Name()), zap.String("run_id", run.RunID))
	log.Info("scrape started", zap.String("trigger", trigger))

	lots, stats, attempts, err := s.fetch(runCtx, ex, log)
	run.Attempts = attempts
	if err == nil {
		run.LotsFound, run.LotsNew, err = s.persist(runCtx, houseID, lots, log)
	}
	switch {
	case err != nil:
		run.Status = models.RunFailed
		msg := truncate(err.Error(), s.Config.ErrorMaxLen)
		run.ErrorMessage = &msg
	case run.LotsFound > 0:
		run.Status = models.RunSuccess
	default:
		run.Status = models.RunPartial
	}
	if len(stats) > 0 {
		if raw, mErr := json.Marshal(stats); mErr == nil {
			run.Stats = datatypes.JSON(raw)
		}
	}
	run.DurationMs = time.Since(start).Milliseconds()
	run.CreatedAt = s.now()

	// The audit row is written even when the run context has expired.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if s.Runs != nil {
		if insErr := s.Runs.InsertScrapeRun(writeCtx, run); insErr != nil {
			log.Error("scrape run audit write failed", zap.Error(insErr))
			s.Events.Publish(*run)
			return run, fmt.Errorf("record scrape run: %w", insErr)
		}
	}
	s.Events.Publish(*run)

	fields := []zap.Field{
		zap.String("outcome", run.Status),
		zap.Int("lots_found", run.LotsFound),
		zap.Int("lots_new", run.LotsNew),
		zap.Int("attempts", run.Attempts),
		zap.Duration("duration", time.Duration(run.DurationMs)*time.Millisecond),
	}
	if run.Status == models.RunFailed {
		log.Warn("scrape failed", append(fields, zap.String("error", *run.ErrorMessage))...)
	} else {
		log.Info("scrape finished", fields...)
	}
	return run, nil
}

// fetch runs the extractor with at most one retry, and only on transport errors.
func (s *ScrapeService) fetch(ctx context.Context, ex extractor.Extractor, log *zap.Logger) ([]extractor.RawLot, map[string]extractor.FacetStats, int, error) {
	maxAttempts := s.Config.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if maxAttempts > 2 {
		maxAttempts = 2
	}
	for attempt := 1; ; attempt++ {
		lots, stats, err := fetchOnce(ctx, ex)
		if err == nil {
			return lots, stats, attempt, nil
		}
		if attempt >= maxAttempts || !extractor.IsRetryable(err) || ctx.Err() != nil {
			return nil, stats, attempt, err
		}
		log.Warn("scrape attempt failed, retrying", zap.Int("attempt", attempt), zap.Duration("backoff", s.Config.RetryBackoff), zap.Error(err))
		if s.Config.RetryBackoff > 0 {
			t := time.NewTimer(s.Config.RetryBackoff)
			select {
			case <-ctx.Done():
				t.Stop()
				return nil, stats, attempt, err
			case <-t.C:
			}
		}
	}
}

func fetchOnce(ctx context.Context, ex extractor.Extractor) (lots []extractor.RawLot, stats map[string]extractor.FacetStats, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()
	if se, ok := ex.(extractor.StatsExtractor); ok {
		return se.FetchWithStats(ctx)
	}
	lots, err = ex.Fetch(ctx)
	return lots, nil, err
}

// persist upserts every record. Records without a title are skipped; any other
// store error fails the run after the remaining records have been attempted.
func (s *ScrapeService) persist(ctx context.Context, houseID int, lots []extractor.RawLot, log *zap.Logger) (found, created int, err error) {
	if s.Lots == nil {
		return len(lots), 0, nil
	}
	var firstErr error
	failed := 0
	for _, raw := range lots {
		target := houseID
		if raw.HouseID != 0 {
			target = raw.HouseID
		}
		isNew, upErr := s.Lots.UpsertLot(ctx, target, raw)
		if errors.Is(upErr, extractor.ErrMissingTitle) {
			continue
		}
		if upErr != nil {
			failed++
			if firstErr == nil {
				firstErr = upErr
			}
			if ctx.Err() != nil {
				break
			}
			continue
		}
		found++
		if isNew {
			created++
		}
	}
	if firstErr != nil {
		log.Warn("lot upserts failed", zap.Int("failed", failed), zap.Int("stored", found))
		return found, created, fmt.Errorf("upsert: %d of %d lots failed: %w", failed, len(lots), firstErr)
	}
	return found, created, nil
}

// RunAll scrapes every registered house. Synchronous runs go one after another in
// id order; otherwise house i starts i*stagger after the first and runs overlap.
// A failing house never stops the rest.
func (s *ScrapeService) RunAll(ctx context.Context, opts RunAllOptions) []models.ScrapeRun {
	if s == nil || s.Registry == nil {
		return nil
	}
	ids := s.Registry.HouseIDs()
	results := make([]*models.ScrapeRun, len(ids))

	if opts.Sync {
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.runLogged(ctx, id, opts.Trigger)
		}
		return collectRuns(results)
	}

	var g errgroup.Group
	for i, id := range ids {
		i, id := i, id
		delay := time.Duration(i) * opts.Stagger
		g.Go(func() error {
			if delay > 0 {
				t := time.NewTimer(delay)
				defer t.Stop()
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
				}
			}
			results[i] = s.runLogged(ctx, id, opts.Trigger)
			return nil
		})
	}
	_ = g.Wait()
	return collectRuns(results)
}

func (s *ScrapeService) runLogged(ctx context.Context, houseID int, trigger string) *models.ScrapeRun {
	run, err := s.RunHouse(ctx, houseID, trigger)
	if err != nil {
		s.logger().Warn("house run not recorded", zap.Int("house_id", houseID), zap.Error(err))
	}
	return run
}

func collectRuns(results []*models.ScrapeRun) []models.ScrapeRun {
	out := make([]models.ScrapeRun, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out
}

// RunHouseAsync validates houseID and scrapes it in the background, outside the
// caller's request lifetime.
func (s *ScrapeService) RunHouseAsync(ctx context.Context, houseID int, trigger string) error {
	if s == nil || s.Registry == nil || !s.Registry.Has(houseID) {
		return fmt.Errorf("%w: %d", ErrUnknownHouse, houseID)
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runLogged(s.baseCtx(), houseID, trigger)
	}()
	return nil
}

// RunAllAsync dispatches a staggered run-all in the background.
func (s *ScrapeService) RunAllAsync(opts RunAllOptions) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.RunAll(s.baseCtx(), opts)
	}()
}

// Wait blocks until background runs have finished.
func (s *ScrapeService) Wait() {
	s.wg.Wait()
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max])
}
