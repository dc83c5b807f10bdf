package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"salonbook/docstore"
	"salonbook/identity"
	"salonbook/review"
	"salonbook/roster"
	"salonbook/salon"
)

// Expected reports whether err is an outcome the workflows are allowed to
// produce under contention or while backends are being killed.
func Expected(err error) bool {
	switch {
	case err == nil,
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, salon.ErrDuplicateBusinessID),
		errors.Is(err, salon.ErrCredentialConflict),
		errors.Is(err, salon.ErrNotFound),
		errors.Is(err, identity.ErrDuplicateEmail),
		errors.Is(err, roster.ErrStylistNotFound),
		errors.Is(err, docstore.ErrTransactionConflict),
		errors.Is(err, docstore.ErrUnavailable):
		return true
	default:
		return false
	}
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

// Registrar registers salons competing for a small pool of business ids.
// Every fourth attempt also reuses a shared owner e-mail.
func Registrar(ctx context.Context, reg *salon.Registrar, worker int, businessIDs []string, stop <-chan struct{}) error {
	for n := 0; !stopped(ctx, stop); n++ {
		email := fmt.Sprintf("owner-%d-%d@stress.test", worker, n)
		if n%4 == 0 {
			email = fmt.Sprintf("shared-%d@stress.test", rand.Intn(3))
		}
		_, err := reg.RegisterSalon(ctx, salon.RegistrationInput{
			BusinessID: businessIDs[rand.Intn(len(businessIDs))],
			Name:       fmt.Sprintf("Stress Salon %d-%d", worker, n),
			Address:    "Teststr. 1",
			City:       "Berlin",
			PostalCode: "10115",
			Phone:      "+4930123456",
			OwnerName:  "Stress Owner",
			Email:      email,
			Password:   "stress-pass",
		})
		if !Expected(err) {
			return fmt.Errorf("registrar %d: %w", worker, err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
	return nil
}

// RosterChurn adds stylists to a salon and deletes random ones again.
func RosterChurn(ctx context.Context, m *roster.Manager, salonID string, stop <-chan struct{}) error {
	for n := 0; !stopped(ctx, stop); n++ {
		if rand.Intn(3) > 0 {
			_, err := m.AddStylist(ctx, roster.StylistInput{
				SalonID: salonID,
				Name:    fmt.Sprintf("Stylist %d", n),
			})
			if !Expected(err) {
				return fmt.Errorf("add stylist: %w", err)
			}
		} else {
			stylists, err := m.ListStylists(ctx, salonID)
			if !Expected(err) {
				return fmt.Errorf("list stylists: %w", err)
			}
			if len(stylists) > 0 {
				victim := stylists[rand.Intn(len(stylists))]
				if err := m.DeleteStylist(ctx, victim.ID); !Expected(err) {
					return fmt.Errorf("delete stylist: %w", err)
				}
			}
		}
		time.Sleep(time.Duration(15+rand.Intn(35)) * time.Millisecond)
	}
	return nil
}

// Reviewer submits reviews for one salon. Concurrent reviewers contend on the
// salon's running rating.
func Reviewer(ctx context.Context, svc *review.Service, salonID, clientID string, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		_, err := svc.Submit(ctx, review.Input{
			SalonID:  salonID,
			ClientID: clientID,
			Rating:   1 + rand.Intn(5),
		})
		if !Expected(err) {
			return fmt.Errorf("review: %w", err)
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
	return nil
}

// Reconciler repairs every salon's stylist cache periodically.
func Reconciler(ctx context.Context, m *roster.Manager, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		if _, err := m.ReconcileAll(ctx); !Expected(err) {
			return fmt.Errorf("reconcile: %w", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
	return nil
}
