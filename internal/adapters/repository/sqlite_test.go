package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/mlgate/internal/domain/model"
)

func openTestStore(t *testing.T, opts ...Option) *SQLiteStore {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "registry.db")
	s, err := OpenSQLite(context.Background(), dsn, opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func record(runID string) model.ModelRecord {
	return model.ModelRecord{
		RunID:     runID,
		Path:      "models/model_" + runID + ".bin",
		Metrics:   map[string]float64{"accuracy": 0.9},
		Signature: "sig-" + runID,
		Metadata:  map[string]string{"metrics": `{"accuracy":0.9}`},
	}
}

func TestSQLiteStore_Register(t *testing.T) {
	Convey("Given an empty registry", t, func() {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
		s := openTestStore(t, WithClock(clock))
		ctx := context.Background()

		Convey("When listing", func() {
			list, err := s.List(ctx)

			Convey("Then it should be empty but not nil", func() {
				So(err, ShouldBeNil)
				So(list, ShouldNotBeNil)
				So(list, ShouldBeEmpty)
			})

			Convey("And Latest and Deployed should be not found", func() {
				_, err := s.Latest(ctx)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
				_, err = s.Deployed(ctx)
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When registering a run", func() {
			So(s.Register(ctx, record("r1")), ShouldBeNil)

			Convey("Then it round-trips with the clock's timestamp", func() {
				got, err := s.Get(ctx, "r1")
				So(err, ShouldBeNil)
				want := record("r1")
				want.CreatedAt = clock.Now()
				So(cmp.Diff(want, got), ShouldBeEmpty)
			})

			Convey("And registering it again is rejected", func() {
				err := s.Register(ctx, record("r1"))
				So(errors.Is(err, ErrDuplicateRun), ShouldBeTrue)
			})

			Convey("And the count is one", func() {
				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When registering without a run id", func() {
			err := s.Register(ctx, model.ModelRecord{})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, ErrInvalidRun), ShouldBeTrue)
			})
		})

		Convey("When registering with nil maps", func() {
			So(s.Register(ctx, model.ModelRecord{RunID: "bare"}), ShouldBeNil)
			got, err := s.Get(ctx, "bare")

			Convey("Then empty maps come back", func() {
				So(err, ShouldBeNil)
				So(got.Metrics, ShouldNotBeNil)
				So(got.Metadata, ShouldNotBeNil)
			})
		})
	})
}

func TestSQLiteStore_Lifecycle(t *testing.T) {
	Convey("Given three registered runs", t, func() {
		s := openTestStore(t)
		ctx := context.Background()
		for _, id := range []string{"r1", "r2", "r3"} {
			So(s.Register(ctx, record(id)), ShouldBeNil)
		}

		Convey("Then List keeps registration order and Latest is the last", func() {
			list, err := s.List(ctx)
			So(err, ShouldBeNil)
			So(len(list), ShouldEqual, 3)
			So(list[0].RunID, ShouldEqual, "r1")
			So(list[2].RunID, ShouldEqual, "r3")

			latest, err := s.Latest(ctx)
			So(err, ShouldBeNil)
			So(latest.RunID, ShouldEqual, "r3")
		})

		Convey("When deploying an unapproved run", func() {
			err := s.MarkDeployed(ctx, "r2")

			Convey("Then ErrNotApproved is returned", func() {
				So(errors.Is(err, ErrNotApproved), ShouldBeTrue)
			})
		})

		Convey("When approving an unknown run", func() {
			err := s.Approve(ctx, "nope")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When approving and deploying runs in turn", func() {
			So(s.Approve(ctx, "r1"), ShouldBeNil)
			So(s.Approve(ctx, "r2"), ShouldBeNil)
			So(s.MarkDeployed(ctx, "r1"), ShouldBeNil)
			So(s.MarkDeployed(ctx, "r2"), ShouldBeNil)

			Convey("Then the last deployment wins", func() {
				dep, err := s.Deployed(ctx)
				So(err, ShouldBeNil)
				So(dep.RunID, ShouldEqual, "r2")
				So(dep.Approved, ShouldBeTrue)
			})
		})

		Convey("When deploying an unknown run", func() {
			err := s.MarkDeployed(ctx, "ghost")

			Convey("Then ErrNotFound is returned", func() {
				So(errors.Is(err, ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestSQLiteStore_Audit(t *testing.T) {
	Convey("Given an audit trail", t, func() {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
		s := openTestStore(t, WithClock(clock))
		ctx := context.Background()

		So(s.AppendAudit(ctx, model.AuditEvent{ID: "a1", Category: "registry", Action: "approved", Details: "run_id=r1"}), ShouldBeNil)
		clock.Advance(time.Second)
		So(s.AppendAudit(ctx, model.AuditEvent{ID: "a2", Category: "deploy", Action: "initiated", Details: "run_id=r1"}), ShouldBeNil)

		Convey("When listing without a limit", func() {
			events, err := s.ListAudit(ctx, 0)

			Convey("Then all events come back newest first", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 2)
				So(events[0].ID, ShouldEqual, "a2")
				So(events[1].At, ShouldEqual, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
			})
		})

		Convey("When listing with a limit", func() {
			events, err := s.ListAudit(ctx, 1)

			Convey("Then only the newest is returned", func() {
				So(err, ShouldBeNil)
				So(len(events), ShouldEqual, 1)
				So(events[0].Category, ShouldEqual, "deploy")
			})
		})
	})
}

func TestEnsureDir(t *testing.T) {
	Convey("Given DSNs of different shapes", t, func() {
		dir := t.TempDir()

		So(ensureDir(":memory:"), ShouldBeNil)
		So(ensureDir("file::memory:?cache=shared"), ShouldBeNil)
		So(ensureDir("file:"+filepath.Join(dir, "nested", "r.db")+"?_pragma=busy_timeout(5000)"), ShouldBeNil)

		s, err := OpenSQLite(context.Background(), "file:"+filepath.Join(dir, "nested", "r.db"))
		So(err, ShouldBeNil)
		So(s.Close(), ShouldBeNil)
	})
}
