package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"salonbook/auth"
	"salonbook/docstore/pgstore"
	"salonbook/identity"
	"salonbook/logging"
	"salonbook/review"
	"salonbook/roster"
	"salonbook/salon"
	"salonbook/test/actors"
	"salonbook/test/chaos"
	"salonbook/test/infra"
	"salonbook/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flChaos       = flag.Bool("chaos", true, "terminate random backends while running")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestRegistrationConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("stress test skipped in short mode")
	}
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.DefaultLocalDatabase().Recreate(ctx)
			if err != nil {
				t.Skipf("no docker and no local postgres: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, int32(4*(*flConcurrency)+8), usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()
	if err := infra.Reset(ctx, pool); err != nil {
		t.Fatalf("reset: %v", err)
	}

	logger, err := logging.New("warn", "text")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	store := pgstore.New(pool)
	creds := auth.NewCredentials(store).WithCost(bcrypt.MinCost)
	sessions := auth.NewSessions(store, "stress-secret", time.Hour)
	registrar := salon.NewRegistrar(store, creds).WithLogger(logger)
	stylists := roster.NewManager(store).WithLogger(logger)
	reviews := review.NewService(store)
	clients := identity.NewService(store, creds, sessions).WithLogger(logger)

	seedData := mustSeed(t, ctx, registrar, clients)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	businessIDs := []string{"CONTEND-0", "CONTEND-1", "CONTEND-2", "CONTEND-3"}
	for i := 0; i < *flConcurrency; i++ {
		worker := i
		g.Go(func() error { return actors.Registrar(ctx2, registrar, worker, businessIDs, stop) })
		g.Go(func() error { return actors.RosterChurn(ctx2, stylists, seedData.salonID, stop) })
	}
	for i := 0; i < 3; i++ {
		g.Go(func() error { return actors.Reviewer(ctx2, reviews, seedData.salonID, seedData.clientID, stop) })
	}
	g.Go(func() error { return actors.Reconciler(ctx2, stylists, stop) })
	var terminator *chaos.Terminator
	if *flChaos {
		terminator = chaos.NewTerminator(pool, infra.AppName, logger)
		go terminator.Run(ctx2, stop)
	}

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx2.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				// A terminated backend can take an oracle query down with it.
				t.Logf("oracle error (retrying): %v", err)
				continue
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if terminator != nil {
		t.Logf("chaos terminated %d connections (seed=%d)", terminator.Kills(), seed)
	}
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v (seed=%d)", err, seed)
		}
	}

	// Once writers are quiet, a full reconcile must leave every cache exact.
	if _, err := stylists.ReconcileAll(ctx); err != nil {
		t.Fatalf("final reconcile: %v", err)
	}
	if name, row, err := oracles.Run(ctx, pool); err != nil || name != "" {
		t.Fatalf("final oracle %s: %s %v (seed=%d)", name, row, err, seed)
	}
	assertSingleSalonPerBusinessID(t, ctx, pool, businessIDs)
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	salonID  string
	clientID string
}

func mustSeed(t *testing.T, ctx context.Context, registrar *salon.Registrar, clients *identity.Service) seedIDs {
	t.Helper()
	reg, err := registrar.RegisterSalon(ctx, salon.RegistrationInput{
		BusinessID: "STRESS-HOME",
		Name:       "Home Salon",
		Address:    "Teststr. 2",
		City:       "Berlin",
		PostalCode: "10115",
		Phone:      "+4930654321",
		Email:      fmt.Sprintf("home-%d@stress.test", rand.Int63()),
		OwnerName:  "Home Owner",
		Password:   "stress-pass",
	})
	if err != nil {
		t.Fatalf("seed salon: %v", err)
	}
	client, err := clients.RegisterClient(ctx, "Stress Client", fmt.Sprintf("client-%d@stress.test", rand.Int63()), "stress-pass")
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	return seedIDs{salonID: reg.SalonID, clientID: client.ID}
}

func assertSingleSalonPerBusinessID(t *testing.T, ctx context.Context, pool *pgxpool.Pool, businessIDs []string) {
	t.Helper()
	for _, id := range businessIDs {
		var n int
		err := pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM documents WHERE collection = 'salons' AND data->>'businessId' = $1`, id).Scan(&n)
		if err != nil {
			t.Fatalf("count salons for %s: %v", id, err)
		}
		if n > 1 {
			t.Fatalf("business id %s owned by %d salons", id, n)
		}
	}
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"salons", `SELECT id, data->>'businessId', data->'stylistIds', data->>'reviewCount' FROM documents WHERE collection = 'salons' ORDER BY updated_at DESC LIMIT 50`},
		{"businessIds", `SELECT id, data->>'salonId' FROM documents WHERE collection = 'businessIds' ORDER BY created_at DESC LIMIT 50`},
		{"stylists", `SELECT id, data->>'salonId', data->>'name' FROM documents WHERE collection = 'stylists' ORDER BY created_at DESC LIMIT 50`},
		{"credentials", `SELECT id, data->>'uid' FROM documents WHERE collection = 'credentials' ORDER BY created_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
