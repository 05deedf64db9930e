package lending

import (
	"context"
	"crypto/rand"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lescriminels/guild/attachment"
	"github.com/lescriminels/guild/db"
	"github.com/lescriminels/guild/models"
	"github.com/lescriminels/guild/notify"

	"github.com/oklog/ulid/v2"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// Upload is raw attachment bytes as received from the client.
type Upload struct {
	Data        []byte
	ContentType string
}

func (u *Upload) empty() bool { return u == nil || len(u.Data) == 0 }

type Clock interface{ Now() time.Time }

type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

type IDGen interface{ NewID(prefix string) string }

// ULIDGen produces lexically sortable ids.
type ULIDGen struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewULIDGen() *ULIDGen {
	return &ULIDGen{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *ULIDGen) NewID(prefix string) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy)
	return prefix + strings.ToLower(id.String())
}

// Recorder receives one observation per lifecycle operation.
type Recorder interface {
	ObserveOperation(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string) {}

type Service struct {
	store  *db.Store
	files  *attachment.Manager
	pub    notify.Publisher
	rec    Recorder
	log    *slog.Logger
	clock  Clock
	ids    IDGen
	admins map[string]bool
}

type Option func(*Service)

func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }
func WithIDGen(g IDGen) Option { return func(s *Service) { s.ids = g } }
func WithPublisher(p notify.Publisher) Option { return func(s *Service) { s.pub = p } }
func WithRecorder(r Recorder) Option { return func(s *Service) { s.rec = r } }
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.log = l } }

// WithAdminUsernames marks the named users as administrators regardless of
// their stored flag.
func WithAdminUsernames(names []string) Option {
	return func(s *Service) {
		for _, n := range names {
			s.admins[strings.ToLower(n)] = true
		}
	}
}

func NewService(store *db.Store, files *attachment.Manager, opts ...Option) *Service {
	s := &Service{
		store:  store,
		files:  files,
		rec:    nopRecorder{},
		log:    slog.Default(),
		clock:  ClockFunc(time.Now),
		ids:    NewULIDGen(),
		admins: map[string]bool{},
	}
	for _, o := range opts {
		o(s)
	}
	if s.pub == nil {
		s.pub = notify.NewLogPublisher(s.log)
	}
	return s
}

func (s *Service) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(CodeOf(err)))
	}
	s.rec.ObserveOperation(op, outcome)
	if CodeOf(err) == CodeStorage {
		s.log.Error("lifecycle operation failed", "op", op, "err", err)
	}
}

// storeUpload writes an attachment ahead of the transaction that will
// reference it.
func (s *Service) storeUpload(ctx context.Context, u *Upload) (*string, error) {
	if u.empty() {
		return nil, nil
	}
	ref, err := s.files.Store(ctx, u.Data, u.ContentType)
	if err != nil {
		return nil, attachmentErr(err)
	}
	return &ref, nil
}

// release deletes attachments no committed record references any more.
// Failures are logged; the transition has already happened.
func (s *Service) release(ctx context.Context, refs ...*string) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if ref == nil {
			continue
		}
		if err := s.files.Delete(ctx, ref); err != nil {
			s.log.Warn("delete attachment", "ref", *ref, "err", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, t notify.EventType, b models.Borrow) {
	e := notify.Event{
		Type:       t,
		BorrowID:   b.ID,
		ItemID:     b.ItemID,
		BorrowerID: b.BorrowerID,
		OwnerID:    b.OwnerID,
		Status:     string(b.Status),
		At:         s.clock.Now().UTC(),
	}
	if err := s.pub.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.log.Warn("publish lifecycle event", "type", string(t), "borrow_id", b.ID, "err", err)
	}
}
