package db

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/susu3304/lotterybot/internal/lottery"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	url := os.Getenv("LOTTERY_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("LOTTERY_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	database, err := New(ctx, url)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(database.Close)
	if err := database.RunMigrations(ctx); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	if _, err := database.pool.Exec(ctx, "DELETE FROM lottery_activities"); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	return database
}

func TestSaveLoad(t *testing.T) {
	ctx := context.Background()
	database := openTestDB(t)

	if _, err := database.Load(ctx); !errors.Is(err, lottery.ErrNoSnapshot) {
		t.Fatalf("Expected ErrNoSnapshot on empty table, got %v", err)
	}

	tmpl := lottery.DefaultTemplate()
	a := lottery.NewActivity("G1", tmpl, time.Now())
	a.Active = true
	a.AddParticipant("U1", "alice")
	b := lottery.NewActivity("G2", tmpl, time.Now())

	snap := &lottery.Snapshot{Activities: map[string]lottery.ActivitySnapshot{
		"G1": a.Snapshot(),
		"G2": b.Snapshot(),
	}}
	if err := database.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := database.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Activities) != 2 {
		t.Fatalf("Expected 2 activities, got %d", len(got.Activities))
	}
	if got.Activities["G1"].Participants["U1"] != "alice" {
		t.Errorf("Unexpected G1 %+v", got.Activities["G1"])
	}

	delete(snap.Activities, "G2")
	if err := database.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err = database.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := got.Activities["G2"]; ok {
		t.Error("Expected G2 to be removed")
	}
}
