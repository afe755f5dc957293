package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	busyerrors "rendezvous/internal/busy/errors"
	"rendezvous/internal/busy/repository"
	"rendezvous/pkg/calendar"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/flow"
	"rendezvous/pkg/locale"
	"rendezvous/pkg/model"
	"rendezvous/pkg/sanitizer"
	"rendezvous/pkg/validation"

	"github.com/google/uuid"
)

const (
	// Imported busy time covers a day back and a year ahead of the import.
	importLookback  = 24 * time.Hour
	importLookahead = 366 * 24 * time.Hour

	maxConcurrentFeeds = 4
)

type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

type BusyService interface {
	FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error)
	Import(ctx context.Context, imp *model.FeedImport) (*model.ImportResult, error)
	ImportBatch(ctx context.Context, batch *model.FeedBatch) ([]model.ImportResult, error)
}

type busyService struct {
	repo      repository.BusyRepository
	fetcher   Fetcher
	validator *validation.Validator
	limiter   *flow.Limiter
	importer  *flow.Flow[importState]
	clock     clock.Clock
	cfg       *config.Config
}

type importState struct {
	imp    *model.FeedImport
	loc    *time.Location
	now    time.Time
	data   []byte
	blocks []model.BusyBlock
}

func NewBusyService(repo repository.BusyRepository, fetcher Fetcher, clk clock.Clock, cfg *config.Config) BusyService {
	s := &busyService{
		repo:      repo,
		fetcher:   fetcher,
		validator: validation.New(cfg.Log),
		limiter:   flow.NewLimiter(maxConcurrentFeeds),
		clock:     clk,
		cfg:       cfg,
	}
	s.importer = flow.New("import-feed",
		flow.NewStep("resolve", s.resolve),
		flow.NewStep("fetch", s.fetch),
		flow.NewStep("parse", s.parse),
		flow.NewStep("store", s.store),
	)
	return s
}

func (s *busyService) FindInRange(ctx context.Context, ownerID string, from, to time.Time) ([]model.BusyBlock, error) {
	if ownerID == "" {
		return nil, apperrors.InvalidInput("owner_id cannot be empty")
	}
	if !from.Before(to) {
		return nil, apperrors.Validation("Invalid date range", map[string]any{"error": "from must be before to"})
	}
	blocks, err := s.repo.FindInRange(ctx, ownerID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load busy blocks", "owner_id", ownerID, "error", err)
		return nil, apperrors.Internal("Failed to load busy blocks", err)
	}
	return blocks, nil
}

func (s *busyService) Import(ctx context.Context, imp *model.FeedImport) (*model.ImportResult, error) {
	state := importState{imp: imp, now: s.clock.Now()}
	if err := s.importer.Run(ctx, &state); err != nil {
		s.cfg.Log.Warn("Calendar import failed", "owner_id", imp.OwnerID, "source", imp.Source, "error", err)
		return nil, toAppError(err)
	}

	s.cfg.Log.Info("Calendar imported successfully",
		"owner_id", imp.OwnerID,
		"source", imp.Source,
		"blocks", len(state.blocks),
	)
	return &model.ImportResult{OwnerID: imp.OwnerID, Source: imp.Source, Imported: len(state.blocks)}, nil
}

// ImportBatch imports every feed, at most maxConcurrentFeeds at a time. Results keep input order;
// the first failure is returned after all feeds have been attempted.
func (s *busyService) ImportBatch(ctx context.Context, batch *model.FeedBatch) ([]model.ImportResult, error) {
	if err := s.validator.Struct(batch); err != nil {
		return nil, validation.ToAppError("Invalid feed batch", err)
	}

	results := make([]model.ImportResult, len(batch.Imports))
	errs := make([]error, len(batch.Imports))
	var wg sync.WaitGroup

	for i := range batch.Imports {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.limiter.Run(ctx, func(ctx context.Context) error {
				res, err := s.Import(ctx, &batch.Imports[i])
				if err != nil {
					return err
				}
				results[i] = *res
				return nil
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

func (s *busyService) resolve(_ context.Context, st *importState) error {
	imp := st.imp
	imp.OwnerID = sanitizer.TrimAndNormalize(imp.OwnerID)
	imp.Source = sanitizer.NormalizeKey(imp.Source)
	if imp.URL != "" {
		imp.URL = sanitizer.NormalizeFeedURL(imp.URL)
		if imp.URL == "" {
			return apperrors.Validation("Invalid feed", map[string]any{"url": "must be an http, https or webcal URL"})
		}
	}

	if err := s.validator.Struct(imp); err != nil {
		return validation.ToAppError("Invalid feed", err)
	}
	if (imp.URL == "") == (imp.ICS == "") {
		return apperrors.Validation("Invalid feed", map[string]any{"error": "exactly one of url or ics is required"})
	}

	loc, err := locale.Resolve(imp.TimeZone)
	if err != nil {
		return apperrors.Validation("Invalid feed", map[string]any{"time_zone": err.Error()})
	}
	st.loc = loc
	return nil
}

func (s *busyService) fetch(ctx context.Context, st *importState) error {
	if st.imp.ICS != "" {
		st.data = []byte(st.imp.ICS)
		return nil
	}
	if s.fetcher == nil {
		return fmt.Errorf("%w: no fetcher configured", busyerrors.ErrFeedUnreachable)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FeedFetchTimeout)
	defer cancel()
	data, err := s.fetcher.Fetch(fetchCtx, st.imp.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", busyerrors.ErrFeedUnreachable, err)
	}
	st.data = data
	return nil
}

func (s *busyService) parse(_ context.Context, st *importState) error {
	window := model.NewInterval(st.now.Add(-importLookback), st.now.Add(importLookahead))
	parsed, err := calendar.ParseBusy(st.data, window, st.loc)
	if err != nil {
		return fmt.Errorf("%w: %v", busyerrors.ErrInvalidFeed, err)
	}

	st.blocks = make([]model.BusyBlock, 0, len(parsed))
	seen := make(map[string]struct{}, len(parsed))
	for _, ev := range parsed {
		key := ev.UID
		if key == "" {
			key = ev.Start.UTC().Format(time.RFC3339) + "/" + ev.End.UTC().Format(time.RFC3339)
		}
		id := blockID(st.imp.OwnerID, st.imp.Source, key)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		st.blocks = append(st.blocks, model.BusyBlock{
			ID:          id,
			OwnerID:     st.imp.OwnerID,
			Source:      st.imp.Source,
			ExternalUID: ev.UID,
			Summary:     ev.Summary,
			StartTime:   ev.Start.UTC(),
			EndTime:     ev.End.UTC(),
			ImportedAt:  st.now,
		})
	}
	return nil
}

func (s *busyService) store(ctx context.Context, st *importState) error {
	return s.repo.ReplaceForSource(ctx, st.imp.OwnerID, st.imp.Source, st.blocks)
}

// blockID is stable across re-imports so conflict reports keep pointing at the same block.
func blockID(ownerID, source, uid string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(ownerID+"\x00"+source+"\x00"+uid)).String()
}

func toAppError(err error) error {
	if apperrors.IsAppError(err) {
		return err
	}
	switch {
	case errors.Is(err, busyerrors.ErrInvalidFeed):
		return apperrors.Validation("Calendar feed could not be parsed", map[string]any{"error": err.Error()})
	case errors.Is(err, busyerrors.ErrFeedUnreachable):
		return apperrors.Unavailable("Calendar feed")
	}
	return apperrors.Internal("Failed to import calendar", err)
}
