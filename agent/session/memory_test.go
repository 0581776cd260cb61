package session

import (
	"errors"
	"testing"

	"github.com/kittipatv/should-i-move/agent/contract"
)

func newRecord(id string) *Record {
	return &Record{
		ID:       id,
		Protocol: contract.ProtocolCoordinate,
		Profile:  contract.Profile{CurrentCity: "Dallas", DesiredCity: "Austin"},
	}
}

func TestLifecycleHappyPath(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	if err := repo.Create(newRecord("a1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec, err := repo.Get("a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != StatusPending {
		t.Fatalf("new record status %q, want pending", rec.Status)
	}

	if err := repo.MarkProcessing("a1"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	decision := &contract.Decision{Recommendation: "go"}
	if err := repo.Complete("a1", decision, "/reports/x.md"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	rec, err = repo.Get("a1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Status != StatusCompleted {
		t.Fatalf("status %q, want completed", rec.Status)
	}
	if rec.Decision == nil || rec.Decision.Recommendation != "go" {
		t.Fatalf("decision not attached: %+v", rec.Decision)
	}
	if rec.ReportPath != "/reports/x.md" {
		t.Fatalf("report path %q", rec.ReportPath)
	}
}

func TestTerminalStatesAbsorb(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	repo.Create(newRecord("done"))
	repo.MarkProcessing("done")
	repo.Complete("done", &contract.Decision{}, "")

	if err := repo.MarkProcessing("done"); err == nil {
		t.Fatal("expected error reprocessing a completed session")
	}
	if err := repo.Fail("done", "late failure"); err == nil {
		t.Fatal("expected error failing a completed session")
	}
	rec, _ := repo.Get("done")
	if rec.Status != StatusCompleted || rec.Error != "" {
		t.Fatalf("terminal record mutated: %+v", rec)
	}

	repo.Create(newRecord("bad"))
	repo.Fail("bad", "model offline")
	if err := repo.MarkProcessing("bad"); err == nil {
		t.Fatal("expected error reprocessing a failed session")
	}
	rec, _ = repo.Get("bad")
	if rec.Status != StatusFailed || rec.Error != "model offline" {
		t.Fatalf("unexpected failed record: %+v", rec)
	}
}

func TestInvalidTransitions(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	repo.Create(newRecord("p1"))

	// Completing without processing first.
	if err := repo.Complete("p1", &contract.Decision{}, ""); err == nil {
		t.Fatal("expected error completing a pending session")
	}
	// Failing from pending is allowed.
	if err := repo.Fail("p1", "rejected"); err != nil {
		t.Fatalf("fail from pending: %v", err)
	}
}

func TestMissingAndDuplicateSessions(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	if _, err := repo.Get("ghost"); !errors.Is(err, contract.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := repo.MarkProcessing("ghost"); !errors.Is(err, contract.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if err := repo.Delete("ghost"); !errors.Is(err, contract.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	repo.Create(newRecord("dup"))
	if err := repo.Create(newRecord("dup")); err == nil {
		t.Fatal("expected error creating a duplicate session")
	}

	if err := repo.Delete("dup"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get("dup"); !errors.Is(err, contract.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound after delete, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	t.Parallel()

	repo := NewMemoryRepository()
	repo.Create(newRecord("c1"))

	rec, _ := repo.Get("c1")
	rec.Status = StatusCompleted

	fresh, _ := repo.Get("c1")
	if fresh.Status != StatusPending {
		t.Fatal("mutating a returned record leaked into the repository")
	}
}
