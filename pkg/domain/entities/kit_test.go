package entities

import (
	"errors"
	"testing"
)

func TestKitTransitionTable(t *testing.T) {
	tests := []struct {
		from    KitStatus
		to      KitStatus
		allowed bool
	}{
		{KitPlanned, KitStaging, true},
		{KitPlanned, KitCancelled, true},
		{KitPlanned, KitStaged, false},
		{KitPlanned, KitIssued, false},
		{KitStaging, KitStaged, true},
		{KitStaging, KitOnHold, true},
		{KitStaging, KitCancelled, true},
		{KitStaging, KitIssued, false},
		{KitStaged, KitIssued, true},
		{KitStaged, KitOnHold, true},
		{KitStaged, KitStaging, false},
		{KitIssued, KitConsumed, true},
		{KitIssued, KitCancelled, true},
		{KitIssued, KitOnHold, false},
		{KitOnHold, KitStaging, true},
		{KitOnHold, KitStaged, true},
		{KitOnHold, KitCancelled, true},
		{KitOnHold, KitIssued, false},
		{KitConsumed, KitCancelled, false},
		{KitCancelled, KitPlanned, false},
		{KitCancelled, KitStaging, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestTransitionRejectsIllegalMoveAndKeepsState(t *testing.T) {
	kit := &Kit{ID: "KIT-000001", Status: KitPlanned}

	err := kit.Transition(KitIssued)

	var invalid *InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if kit.Status != KitPlanned {
		t.Errorf("status must be unchanged after a rejected transition, got %s", kit.Status)
	}
}

func TestHoldRemembersResumeTarget(t *testing.T) {
	kit := &Kit{ID: "KIT-000001", Status: KitStaged}

	if err := kit.Transition(KitOnHold); err != nil {
		t.Fatalf("hold failed: %v", err)
	}
	if kit.ResumeTo != KitStaged {
		t.Errorf("expected resume target Staged, got %s", kit.ResumeTo)
	}
	if err := kit.Transition(kit.ResumeTo); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if kit.Status != KitStaged {
		t.Errorf("expected Staged after resume, got %s", kit.Status)
	}
}

func TestTerminalStatuses(t *testing.T) {
	for _, status := range []KitStatus{KitPlanned, KitStaging, KitStaged, KitIssued, KitOnHold} {
		if status.Terminal() {
			t.Errorf("%s must not be terminal", status)
		}
	}
	for _, status := range []KitStatus{KitConsumed, KitCancelled} {
		if !status.Terminal() {
			t.Errorf("%s must be terminal", status)
		}
	}
}

func TestKitItemShortClampsAtZero(t *testing.T) {
	item := &KitItem{Required: Qty(5), Confirmed: Qty(7)}
	if !item.Short().Equal(Qty(0)) {
		t.Errorf("expected short 0 for over-confirmed item, got %s", item.Short())
	}

	item = &KitItem{Required: Qty(5), Confirmed: Qty(2)}
	if !item.Short().Equal(Qty(3)) {
		t.Errorf("expected short 3, got %s", item.Short())
	}
}

func TestReadyToStageRequiresCleanItems(t *testing.T) {
	kit := &Kit{
		ID:     "KIT-000001",
		Status: KitStaging,
		Items: []KitItem{
			{Part: "P-1", Required: Qty(2), Confirmed: Qty(2), Condition: ConditionGood},
			{Part: "P-2", Required: Qty(1), Confirmed: Qty(1), Condition: ConditionGood},
		},
	}
	if !kit.ReadyToStage() {
		t.Fatal("expected kit to be ready to stage")
	}

	kit.Items[1].Exception = true
	if kit.ReadyToStage() {
		t.Error("an open exception must block staging")
	}

	kit.Items[1].Exception = false
	kit.Items[1].Confirmed = Qty(0)
	if kit.ReadyToStage() {
		t.Error("an unconfirmed item must block staging")
	}
}
