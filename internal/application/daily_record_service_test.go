package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/oksasatya/go-water-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-water-tracker/internal/domain/entity"
	"github.com/oksasatya/go-water-tracker/internal/domain/water"
	"github.com/oksasatya/go-water-tracker/internal/infrastructure/memory"
)

func TestNormalizeEntryDate(t *testing.T) {
	day := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

	tests := []struct {
		name   string
		raw    time.Time
		offset int
		want   time.Time
	}{
		{"utc evening", time.Date(2026, 3, 10, 22, 30, 0, 0, time.UTC), 0, day(2026, 3, 10)},
		{"east of utc crosses midnight", time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), -120, day(2026, 3, 11)},
		{"west of utc stays on previous day", time.Date(2026, 3, 11, 3, 0, 0, 0, time.UTC), 300, day(2026, 3, 10)},
		{"non utc location", time.Date(2026, 3, 11, 2, 0, 0, 0, time.FixedZone("CET", 3600)), -60, day(2026, 3, 11)},
		{"day key is returned unchanged", day(2026, 3, 11), -840, day(2026, 3, 11)},
		{"max positive offset", time.Date(2026, 3, 11, 12, 0, 0, 0, time.UTC), 840, day(2026, 3, 10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeEntryDate(tt.raw, tt.offset)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(tt.want) || got.Location() != time.UTC {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			again, err := NormalizeEntryDate(got, tt.offset)
			if err != nil || !again.Equal(got) {
				t.Fatalf("not idempotent: %v -> %v (%v)", got, again, err)
			}
		})
	}
}

func TestNormalizeEntryDate_Invalid(t *testing.T) {
	if _, err := NormalizeEntryDate(time.Time{}, 0); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("zero date: expected validation error, got %v", err)
	}
	for _, off := range []int{-841, 841, 100000} {
		if _, err := NormalizeEntryDate(time.Now(), off); !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("offset %d: expected validation error, got %v", off, err)
		}
	}
}

type recordFixture struct {
	svc   *DailyRecordService
	users *memory.UserRepository
	recs  *memory.DailyRecordRepository
	user  *entity.User
	day   time.Time
}

func newRecordFixture(t *testing.T) recordFixture {
	t.Helper()
	users := memory.NewUserRepository()
	recs := memory.NewDailyRecordRepository()
	u := &entity.User{Email: "a@example.com", Password: "x", Gender: entity.GenderWoman, DailyWaterGoal: 1800}
	if err := users.Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return recordFixture{
		svc:   NewDailyRecordService(recs, users, 2000, nil),
		users: users,
		recs:  recs,
		user:  u,
		day:   time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestGetOrCreateDailyRecord_UsesUserGoal(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	rec, err := f.svc.GetOrCreateDailyRecord(ctx, f.user.ID, f.day, 0)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if rec.DailyWaterGoal != 1800 || rec.ConsumedTimes != 0 || len(rec.WaterIntakes) != 0 {
		t.Fatalf("unexpected new record: %+v", rec)
	}

	again, err := f.svc.GetOrCreateDailyRecord(ctx, f.user.ID, f.day, 5000)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if again.ID != rec.ID || again.DailyWaterGoal != 1800 {
		t.Fatalf("existing record must win over defaults: %+v", again)
	}
}

func TestGetOrCreateDailyRecord_RequiresUser(t *testing.T) {
	f := newRecordFixture(t)
	if _, err := f.svc.GetOrCreateDailyRecord(context.Background(), "", f.day, 0); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddIntake_Aggregates(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	if _, err := f.svc.AddIntake(ctx, f.user.ID, f.day, 300, f.day.Add(8*time.Hour), 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	rec, err := f.svc.AddIntake(ctx, f.user.ID, f.day, 600, f.day.Add(9*time.Hour), 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if rec.ConsumedWater != 900 || rec.ConsumedTimes != 2 || rec.ConsumedWaterPercentage != 50 {
		t.Fatalf("unexpected aggregate: %+v", rec)
	}

	for _, ml := range []int{0, -5, entity.MaxIntakeMl + 1} {
		if _, err := f.svc.AddIntake(ctx, f.user.ID, f.day, ml, f.day, 0); !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("ml=%d: expected validation error, got %v", ml, err)
		}
	}
}

func TestAddIntake_ConcurrentOnEmptyDay(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AddIntake(ctx, f.user.ID, f.day, 100+i, f.day.Add(time.Duration(i)*time.Minute), 0)
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	rec, err := f.svc.GetDailyRecord(ctx, f.user.ID, f.day)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := 0
	for i := 0; i < n; i++ {
		want += 100 + i
	}
	if rec.ConsumedTimes != n || len(rec.WaterIntakes) != n || rec.ConsumedWater != want {
		t.Fatalf("lost updates: times=%d intakes=%d water=%d want=%d", rec.ConsumedTimes, len(rec.WaterIntakes), rec.ConsumedWater, want)
	}

	out, err := f.recs.FindRange(ctx, f.user.ID, f.day, f.day)
	if err != nil || len(out) != 1 {
		t.Fatalf("expected exactly one record for the day, got %d (%v)", len(out), err)
	}
}

func TestUpdateAndRemoveIntake(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	rec, err := f.svc.AddIntake(ctx, f.user.ID, f.day, 250, f.day.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	id := rec.WaterIntakes[0].ID

	rec, err = f.svc.UpdateIntake(ctx, f.user.ID, f.day, id, 450, f.day.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if rec.ConsumedWater != 450 || rec.ConsumedTimes != 1 || rec.WaterIntakes[0].ID != id {
		t.Fatalf("unexpected record after update: %+v", rec)
	}

	rec, err = f.svc.RemoveIntake(ctx, f.user.ID, f.day, id)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if rec.ConsumedWater != 0 || rec.ConsumedTimes != 0 || rec.ConsumedWaterPercentage != 0 {
		t.Fatalf("unexpected record after remove: %+v", rec)
	}
}

func TestUpdateAndRemoveIntake_UnknownIDLeavesRecord(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	before, err := f.svc.AddIntake(ctx, f.user.ID, f.day, 250, f.day.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	unknown := "5b0c1f0e-8f5e-4a55-9f53-5d0e8a3c2b11"

	if _, err := f.svc.UpdateIntake(ctx, f.user.ID, f.day, unknown, 100, f.day); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("update: expected not found, got %v", err)
	}
	if _, err := f.svc.RemoveIntake(ctx, f.user.ID, f.day, unknown); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("remove: expected not found, got %v", err)
	}
	if _, err := f.svc.RemoveIntake(ctx, f.user.ID, f.day, "not-a-uuid"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("remove: expected validation error for malformed id, got %v", err)
	}
	if _, err := f.svc.RemoveIntake(ctx, f.user.ID, f.day.AddDate(0, 0, 1), before.WaterIntakes[0].ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("remove on other day: expected not found, got %v", err)
	}

	after, err := f.svc.GetDailyRecord(ctx, f.user.ID, f.day)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if after.ConsumedWater != before.ConsumedWater || len(after.WaterIntakes) != 1 {
		t.Fatalf("record changed by failed operation: %+v", after)
	}
}

func TestChangeGoal_OnlyTouchesTargetDay(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()
	other := f.day.AddDate(0, 0, -1)

	if _, err := f.svc.AddIntake(ctx, f.user.ID, other, 900, other, 0); err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := f.svc.AddIntake(ctx, f.user.ID, f.day, 900, f.day, 0); err != nil {
		t.Fatalf("add: %v", err)
	}

	u, rec, err := f.svc.ChangeGoal(ctx, f.user.ID, f.day, 3000)
	if err != nil {
		t.Fatalf("change goal: %v", err)
	}
	if u.DailyWaterGoal != 3000 || rec.DailyWaterGoal != 3000 || rec.ConsumedWaterPercentage != 30 {
		t.Fatalf("unexpected result: user=%d rec=%+v", u.DailyWaterGoal, rec)
	}

	prev, err := f.svc.GetDailyRecord(ctx, f.user.ID, other)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if prev.DailyWaterGoal != 1800 || prev.ConsumedWaterPercentage != 50 {
		t.Fatalf("other day must keep its goal: %+v", prev)
	}

	// New days pick up the new goal.
	next, err := f.svc.GetOrCreateDailyRecord(ctx, f.user.ID, f.day.AddDate(0, 0, 1), 0)
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if next.DailyWaterGoal != 3000 {
		t.Fatalf("expected new goal on new day, got %d", next.DailyWaterGoal)
	}
}

func TestChangeGoal_NoRecordAndInvalid(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()

	u, rec, err := f.svc.ChangeGoal(ctx, f.user.ID, f.day, 2500)
	if err != nil {
		t.Fatalf("change goal: %v", err)
	}
	if rec != nil || u.DailyWaterGoal != 2500 {
		t.Fatalf("expected user updated and no record, got %+v %+v", u, rec)
	}
	for _, g := range []int{0, -1, entity.MaxDailyWaterGoal + 1} {
		if _, _, err := f.svc.ChangeGoal(ctx, f.user.ID, f.day, g); !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("goal=%d: expected validation error, got %v", g, err)
		}
	}
}

// renamingUsers renames the stored user right after a read, the way a
// concurrent profile edit would land between a read and a full write.
type renamingUsers struct {
	*memory.UserRepository
	fullUpdates int
}

func (r *renamingUsers) GetByID(ctx context.Context, id string) (*entity.User, error) {
	snapshot, err := r.UserRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	renamed := *snapshot
	renamed.Name = "renamed"
	if err := r.UserRepository.Update(ctx, &renamed); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (r *renamingUsers) Update(ctx context.Context, u *entity.User) error {
	r.fullUpdates++
	return r.UserRepository.Update(ctx, u)
}

func TestChangeGoal_KeepsConcurrentProfileEdit(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()
	users := &renamingUsers{UserRepository: f.users}
	f.svc.Users = users

	if _, err := users.GetByID(ctx, f.user.ID); err != nil {
		t.Fatalf("get: %v", err)
	}
	u, _, err := f.svc.ChangeGoal(ctx, f.user.ID, f.day, 2600)
	if err != nil {
		t.Fatalf("change goal: %v", err)
	}
	if u.Name != "renamed" || u.DailyWaterGoal != 2600 {
		t.Fatalf("unexpected returned user: %+v", u)
	}
	stored, err := f.users.GetByID(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Name != "renamed" || stored.DailyWaterGoal != 2600 {
		t.Fatalf("concurrent edit lost: %+v", stored)
	}
	if users.fullUpdates != 0 {
		t.Fatalf("expected no full user write from ChangeGoal, got %d", users.fullUpdates)
	}
}

type failingRecords struct {
	*memory.DailyRecordRepository
}

func (failingRecords) FindOneAndApplyUpdate(context.Context, string, time.Time, water.Op) (*entity.DailyWaterRecord, error) {
	return nil, apperror.Store("apply update", errors.New("connection reset"))
}

func TestChangeGoal_RecordFailureLeavesUserGoal(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()
	f.svc.Records = failingRecords{f.recs}

	if _, _, err := f.svc.ChangeGoal(ctx, f.user.ID, f.day, 3100); apperror.KindOf(err) != apperror.KindStore {
		t.Fatalf("expected store error, got %v", err)
	}
	stored, err := f.users.GetByID(ctx, f.user.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.DailyWaterGoal != 1800 {
		t.Fatalf("user goal changed despite record failure: %d", stored.DailyWaterGoal)
	}
}

func TestMonthlyReport_GetRange(t *testing.T) {
	f := newRecordFixture(t)
	ctx := context.Background()
	reports := NewMonthlyReportService(f.recs)

	for _, offset := range []int{3, 0, 1} {
		d := f.day.AddDate(0, 0, offset)
		if _, err := f.svc.AddIntake(ctx, f.user.ID, d, 100*(offset+1), d, 0); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	out, err := reports.GetRange(ctx, f.user.ID, f.day, f.day.AddDate(0, 0, 30))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("expected 3 summaries, got %d", len(out))
	}
	for i := 1; i < len(out); i++ {
		if !out[i-1].EntryDate.Before(out[i].EntryDate) {
			t.Fatalf("summaries not ascending: %v", out)
		}
	}

	inclusive, err := reports.GetRange(ctx, f.user.ID, f.day, f.day)
	if err != nil || len(inclusive) != 1 {
		t.Fatalf("expected inclusive bounds, got %d (%v)", len(inclusive), err)
	}

	empty, err := reports.GetRange(ctx, f.user.ID, f.day.AddDate(1, 0, 0), f.day.AddDate(1, 1, 0))
	if err != nil {
		t.Fatalf("range: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	if _, err := reports.GetRange(ctx, f.user.ID, f.day.AddDate(0, 0, 1), f.day); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error for start > end, got %v", err)
	}
}

func ExampleNormalizeEntryDate() {
	// 23:30 UTC is already the next day in UTC+2.
	day, _ := NormalizeEntryDate(time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC), -120)
	fmt.Println(day.Format(time.DateOnly))
	// Output: 2026-03-11
}
