package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rendezvous/internal/busy/repository"
	"rendezvous/pkg/clock"
	"rendezvous/pkg/config"
	apperrors "rendezvous/pkg/errors"
	"rendezvous/pkg/kafka"
	"rendezvous/pkg/logger"
	"rendezvous/pkg/model"
)

var now = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func ics(events ...string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//test//EN"}
	for _, e := range events {
		lines = append(lines, "BEGIN:VEVENT", "DTSTAMP:20250101T000000Z")
		lines = append(lines, strings.Split(e, "|")...)
		lines = append(lines, "END:VEVENT")
	}
	lines = append(lines, "END:VCALENDAR", "")
	return strings.Join(lines, "\r\n")
}

type fakeFetcher struct {
	bodies map[string]string
	calls  atomic.Int32
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	f.calls.Add(1)
	body, ok := f.bodies[url]
	if !ok {
		return nil, errors.New("404")
	}
	return []byte(body), nil
}

func newService(t *testing.T, fetcher Fetcher) (BusyService, repository.BusyRepository) {
	t.Helper()
	cfg := &config.Config{Log: logger.Nop(), FeedFetchTimeout: time.Second}
	repo := repository.NewMemoryBusyRepository()
	return NewBusyService(repo, fetcher, clock.NewManual(now), cfg), repo
}

func TestImport_InlineCalendar(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	res, err := svc.Import(ctx, &model.FeedImport{
		OwnerID: "owner",
		Source:  "Work",
		ICS: ics(
			"UID:a|DTSTART:20250602T090000Z|DTEND:20250602T100000Z",
			"UID:b|DTSTART:20250603T090000Z|DTEND:20250603T100000Z",
		),
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 2 || res.Source != "work" {
		t.Errorf("Import() = %+v", res)
	}

	blocks, err := svc.FindInRange(ctx, "owner", now, now.Add(72*time.Hour))
	if err != nil {
		t.Fatalf("FindInRange() error = %v", err)
	}
	if len(blocks) != 2 || blocks[0].ExternalUID != "a" || blocks[0].Source != "work" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestImport_ReplacesPreviousImportOfSameSource(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()

	first := ics("UID:a|DTSTART:20250602T090000Z|DTEND:20250602T100000Z")
	if _, err := svc.Import(ctx, &model.FeedImport{OwnerID: "owner", Source: "work", ICS: first}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if _, err := svc.Import(ctx, &model.FeedImport{OwnerID: "owner", Source: "home", ICS: first}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	second := ics("UID:z|DTSTART:20250604T090000Z|DTEND:20250604T100000Z")
	if _, err := svc.Import(ctx, &model.FeedImport{OwnerID: "owner", Source: "work", ICS: second}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	blocks, _ := svc.FindInRange(ctx, "owner", now, now.Add(7*24*time.Hour))
	if len(blocks) != 2 {
		t.Fatalf("blocks = %+v", blocks)
	}
	if blocks[0].Source != "home" || blocks[1].ExternalUID != "z" {
		t.Errorf("blocks = %+v", blocks)
	}
}

func TestImport_StableBlockIDs(t *testing.T) {
	svc, _ := newService(t, nil)
	ctx := context.Background()
	feed := ics("UID:a|DTSTART:20250602T090000Z|DTEND:20250602T100000Z")

	var ids []string
	for i := 0; i < 2; i++ {
		if _, err := svc.Import(ctx, &model.FeedImport{OwnerID: "owner", Source: "work", ICS: feed}); err != nil {
			t.Fatalf("Import() error = %v", err)
		}
		blocks, _ := svc.FindInRange(ctx, "owner", now, now.Add(72*time.Hour))
		ids = append(ids, blocks[0].ID)
	}
	if ids[0] != ids[1] {
		t.Errorf("block id changed across imports: %v", ids)
	}
}

func TestImport_FromURL(t *testing.T) {
	fetcher := &fakeFetcher{bodies: map[string]string{
		"https://calendar.example.com/feed.ics": ics("UID:a|DTSTART:20250602T090000Z|DTEND:20250602T100000Z"),
	}}
	svc, _ := newService(t, fetcher)

	res, err := svc.Import(context.Background(), &model.FeedImport{
		OwnerID: "owner",
		Source:  "work",
		URL:     "webcal://Calendar.Example.com/feed.ics",
	})
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if res.Imported != 1 || fetcher.calls.Load() != 1 {
		t.Errorf("Import() = %+v, fetches = %d", res, fetcher.calls.Load())
	}
}

func TestImport_Errors(t *testing.T) {
	svc, _ := newService(t, &fakeFetcher{})

	tests := []struct {
		name string
		imp  model.FeedImport
		code string
	}{
		{"missing owner", model.FeedImport{Source: "work", ICS: ics()}, apperrors.CodeValidation},
		{"neither url nor ics", model.FeedImport{OwnerID: "o", Source: "work"}, apperrors.CodeValidation},
		{"both url and ics", model.FeedImport{OwnerID: "o", Source: "work", URL: "https://x.example/a.ics", ICS: ics()}, apperrors.CodeValidation},
		{"not a calendar", model.FeedImport{OwnerID: "o", Source: "work", ICS: "<html></html>"}, apperrors.CodeValidation},
		{"bad scheme", model.FeedImport{OwnerID: "o", Source: "work", URL: "ftp://x.example/a.ics"}, apperrors.CodeValidation},
		{"unreachable", model.FeedImport{OwnerID: "o", Source: "work", URL: "https://x.example/missing.ics"}, apperrors.CodeUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			imp := tt.imp
			if _, err := svc.Import(context.Background(), &imp); !apperrors.HasCode(err, tt.code) {
				t.Errorf("Import() error = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestImportBatch_KeepsOrder(t *testing.T) {
	svc, _ := newService(t, nil)
	batch := &model.FeedBatch{}
	for _, src := range []string{"a", "b", "c", "d", "e", "f"} {
		batch.Imports = append(batch.Imports, model.FeedImport{
			OwnerID: "owner",
			Source:  src,
			ICS:     ics("UID:" + src + "|DTSTART:20250602T090000Z|DTEND:20250602T100000Z"),
		})
	}

	results, err := svc.ImportBatch(context.Background(), batch)
	if err != nil {
		t.Fatalf("ImportBatch() error = %v", err)
	}
	for i, res := range results {
		if res.Source != batch.Imports[i].Source || res.Imported != 1 {
			t.Errorf("results[%d] = %+v", i, res)
		}
	}
}

func TestMessageHandler(t *testing.T) {
	svc, _ := newService(t, nil)
	handle := NewMessageHandler(svc, logger.Nop())
	ctx := context.Background()

	value, _ := json.Marshal(model.FeedBatch{Imports: []model.FeedImport{
		{Source: "work", ICS: ics("UID:a|DTSTART:20250602T090000Z|DTEND:20250602T100000Z")},
	}})
	if err := handle(ctx, kafka.Message{Key: "owner", Value: value}); err != nil {
		t.Fatalf("handler error = %v", err)
	}
	blocks, _ := svc.FindInRange(ctx, "owner", now, now.Add(72*time.Hour))
	if len(blocks) != 1 {
		t.Errorf("blocks = %+v", blocks)
	}

	err := handle(ctx, kafka.Message{Key: "owner", Value: []byte("not json")})
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("malformed payload classified as %v", kafka.ClassifyError(err))
	}

	empty, _ := json.Marshal(model.FeedBatch{})
	err = handle(ctx, kafka.Message{Key: "owner", Value: empty})
	if kafka.ClassifyError(err) != kafka.ErrorTypePermanent {
		t.Errorf("empty batch classified as %v", kafka.ClassifyError(err))
	}
}
