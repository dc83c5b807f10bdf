package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"salonbook/apperr"
	"salonbook/docstore"
	"salonbook/docstore/memstore"
	"salonbook/roster"
	"salonbook/salon"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	ctx := context.Background()
	for _, id := range []string{"s1", "s2"} {
		if err := store.Create(ctx, docstore.Salons, id, docstore.Fields{"businessId": "B" + id, "stylistIds": []string{}}); err != nil {
			t.Fatalf("seed salon: %v", err)
		}
	}
	if err := store.Create(ctx, docstore.Stylists, "st1", docstore.Fields{"salonId": "s1", "name": "Sam"}); err != nil {
		t.Fatalf("seed stylist: %v", err)
	}
	svc := NewService(store, roster.NewManager(store)).WithClock(func() time.Time { return fixedNow })
	return svc, store
}

func validInput() Input {
	return Input{
		ClientID:     "c1",
		StylistID:    "st1",
		ServiceID:    "svc1",
		SalonID:      "s1",
		Date:         time.Date(2024, 3, 12, 15, 30, 0, 0, time.UTC),
		Time:         "15:30",
		ServicePrice: 45,
	}
}

func TestService_Create(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create: unexpected error: %v", err)
	}
	if a.Status != StatusPending {
		t.Fatalf("expected pending got %s", a.Status)
	}
	if !a.Date.Equal(time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date truncated to the day, got %v", a.Date)
	}

	stored, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.ServicePrice != 45 || stored.Time != "15:30" || stored.CancelledAt != nil {
		t.Fatalf("unexpected stored appointment %+v", stored)
	}
}

func TestService_CreateRejects(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	in := validInput()
	in.Time = "3pm"
	if _, err := svc.Create(ctx, in); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for time, got %v", err)
	}

	in = validInput()
	in.ServicePrice = -1
	if _, err := svc.Create(ctx, in); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for price, got %v", err)
	}

	in = validInput()
	in.SalonID = "missing"
	if _, err := svc.Create(ctx, in); !errors.Is(err, salon.ErrNotFound) {
		t.Fatalf("expected salon.ErrNotFound, got %v", err)
	}

	in = validInput()
	in.StylistID = "missing"
	if _, err := svc.Create(ctx, in); !errors.Is(err, roster.ErrStylistNotFound) {
		t.Fatalf("expected roster.ErrStylistNotFound, got %v", err)
	}

	in = validInput()
	in.SalonID = "s2"
	if _, err := svc.Create(ctx, in); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for foreign stylist, got %v", err)
	}

	if n := store.Count(docstore.Appointments); n != 0 {
		t.Fatalf("expected no appointments, got %d", n)
	}
}

func TestService_Lists(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	later := validInput()
	later.Date = later.Date.AddDate(0, 0, 3)
	first, err := svc.Create(ctx, later)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other := validInput()
	other.ClientID = "c2"
	if _, err := svc.Create(ctx, other); err != nil {
		t.Fatalf("create: %v", err)
	}

	mine, err := svc.ListForClient(ctx, "c1")
	if err != nil {
		t.Fatalf("list client: %v", err)
	}
	if len(mine) != 2 || mine[0].ID != second.ID || mine[1].ID != first.ID {
		t.Fatalf("expected client appointments ordered by date, got %+v", mine)
	}

	forStylist, err := svc.ListForStylist(ctx, "st1")
	if err != nil {
		t.Fatalf("list stylist: %v", err)
	}
	if len(forStylist) != 3 {
		t.Fatalf("expected 3 stylist appointments, got %d", len(forStylist))
	}

	forSalon, err := svc.ListForSalon(ctx, "s2")
	if err != nil {
		t.Fatalf("list salon: %v", err)
	}
	if len(forSalon) != 0 {
		t.Fatalf("expected no appointments for s2, got %d", len(forSalon))
	}
}

func TestService_StatusLifecycle(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, validInput())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.UpdateStatus(ctx, a.ID, Status("done")); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, "missing", StatusConfirmed); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	confirmed, err := svc.UpdateStatus(ctx, a.ID, StatusConfirmed)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed {
		t.Fatalf("expected confirmed got %s", confirmed.Status)
	}

	cancelled, err := svc.Cancel(ctx, a.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.CancelledAt == nil || !cancelled.CancelledAt.Equal(fixedNow) {
		t.Fatalf("expected cancelledAt %v, got %v", fixedNow, cancelled.CancelledAt)
	}

	stored, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != StatusCancelled || stored.CancelledAt == nil {
		t.Fatalf("cancel not persisted: %+v", stored)
	}

	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCompleted); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := svc.Cancel(ctx, a.ID); err != nil {
		t.Fatalf("cancelling twice should be a no-op, got %v", err)
	}
}

func TestService_ConfirmSetsPrice(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	in := validInput()
	in.ServicePrice = 0
	a, err := svc.Create(ctx, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := svc.Confirm(ctx, a.ID, -1); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}

	confirmed, err := svc.Confirm(ctx, a.ID, 40)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != StatusConfirmed || confirmed.ServicePrice != 40 {
		t.Fatalf("expected confirmed at 40, got %s at %v", confirmed.Status, confirmed.ServicePrice)
	}

	repriced, err := svc.Confirm(ctx, a.ID, 35)
	if err != nil {
		t.Fatalf("re-price: %v", err)
	}
	stored, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if repriced.ServicePrice != 35 || stored.ServicePrice != 35 {
		t.Fatalf("expected stored price 35, got %v / %v", repriced.ServicePrice, stored.ServicePrice)
	}

	if _, err := svc.UpdateStatus(ctx, a.ID, StatusCompleted); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := svc.Confirm(ctx, a.ID, 99); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed after completion, got %v", err)
	}
}

func TestDay_KeepsCallerCalendarDate(t *testing.T) {
	cases := []time.Time{
		time.Date(2024, 3, 12, 23, 30, 0, 0, time.FixedZone("UTC-4", -4*3600)),
		time.Date(2024, 3, 12, 0, 30, 0, 0, time.FixedZone("UTC+9", 9*3600)),
		time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	}
	want := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	for _, in := range cases {
		if got := Day(in); !got.Equal(want) || got.Location() != time.UTC {
			t.Fatalf("Day(%v) = %v, want %v", in, got, want)
		}
	}
}
