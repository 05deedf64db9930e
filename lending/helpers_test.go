package lending

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lescriminels/guild/attachment"
	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"
	"github.com/lescriminels/guild/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngProof  = &Upload{Data: []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01"), ContentType: "image/png"}
	jpegProof = &Upload{Data: []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00\x01\x01\x00"), ContentType: "image/jpeg"}
	gifProof  = &Upload{Data: []byte("GIF89a\x01\x00\x01\x00\x80\x00\x00"), ContentType: "image/gif"}
)

var (
	owner    = Actor{UserID: "u1"}
	borrower = Actor{UserID: "u2"}
	other    = Actor{UserID: "u3"}
	admin    = Actor{UserID: "u9", IsAdmin: true}
)

type seqIDs struct{ n atomic.Int64 }

func (s *seqIDs) NewID(prefix string) string { return fmt.Sprintf("%s%d", prefix, s.n.Add(1)) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []notify.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e notify.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []notify.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []notify.EventType
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type countingRecorder struct {
	mu   sync.Mutex
	seen map[string]int
}

func (r *countingRecorder) ObserveOperation(op, outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen[op+"/"+outcome]++
}

type fixture struct {
	svc   *Service
	mem   *db.MemoryBackend
	files *attachment.MemoryStorage
	pub   *recordingPublisher
	rec   *countingRecorder
}

func baseSeed() db.Snapshot {
	return db.Snapshot{
		Users: []models.User{
			{ID: "u1", Username: "ann"},
			{ID: "u2", Username: "bob"},
			{ID: "u3", Username: "cy"},
			{ID: "u9", Username: "root", IsAdmin: true},
		},
		Items: []models.Item{
			{ID: "i1", OwnerID: "u1", Name: "drill", Description: "cordless", Available: true},
			{ID: "i2", OwnerID: "u2", Name: "ladder", Available: true},
		},
	}
}

func newFixture(t *testing.T, seed db.Snapshot) *fixture {
	t.Helper()
	return newFixtureWithBackend(t, seed, nil)
}

func newFixtureWithBackend(t *testing.T, seed db.Snapshot, wrap func(*db.MemoryBackend) db.Backend) *fixture {
	t.Helper()
	f := &fixture{
		mem:   db.NewMemoryBackend(seed),
		files: attachment.NewMemoryStorage(),
		pub:   &recordingPublisher{},
		rec:   &countingRecorder{seen: map[string]int{}},
	}
	var backend db.Backend = f.mem
	if wrap != nil {
		backend = wrap(f.mem)
	}
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := db.NewStore(backend, nil, db.WithLogger(quiet))
	clock := ClockFunc(func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) })
	f.svc = NewService(store, attachment.NewManager(f.files, 1<<20),
		WithClock(clock),
		WithIDGen(&seqIDs{}),
		WithPublisher(f.pub),
		WithRecorder(f.rec),
		WithLogger(quiet),
	)
	return f
}

func (f *fixture) snapshot(t *testing.T) db.Snapshot {
	t.Helper()
	snap, err := f.mem.Load(context.Background())
	require.NoError(t, err)
	return snap
}

func (f *fixture) borrow(t *testing.T, id string) (models.Borrow, bool) {
	t.Helper()
	for _, b := range f.snapshot(t).Borrows {
		if b.ID == id {
			return b, true
		}
	}
	return models.Borrow{}, false
}

func (f *fixture) item(t *testing.T, id string) models.Item {
	t.Helper()
	for _, it := range f.snapshot(t).Items {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("item %s missing", id)
	return models.Item{}
}

func (f *fixture) fileExists(ref *string) bool {
	if ref == nil {
		return false
	}
	return f.files.Has(strings.TrimPrefix(*ref, attachment.Prefix))
}

// assertInventory checks that every item's flag matches its active borrows.
func assertInventory(t *testing.T, f *fixture) {
	t.Helper()
	snap := f.snapshot(t)
	held := ActiveItems(snap.Borrows)
	for _, it := range snap.Items {
		assert.Equal(t, !held[it.ID], it.Available, "availability of %s", it.ID)
	}
}

type failingCommit struct {
	*db.MemoryBackend
}

var errDiskFull = errors.New("disk full")

func (failingCommit) Commit(context.Context, db.Snapshot, []db.Collection) error { return errDiskFull }

func strPtr(s string) *string { return &s }
