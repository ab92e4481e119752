package flow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateAwaitingReceipt, false},
		{StateGatheringInfo, false},
		{StateComplete, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"awaiting receipt", StateAwaitingReceipt, true},
		{"complete", StateComplete, true},
		{"unknown state", State("INVALID"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_String(t *testing.T) {
	if got := StateAwaitingReceipt.String(); got != "AWAITING_RECEIPT" {
		t.Errorf("State.String() = %v, want %v", got, "AWAITING_RECEIPT")
	}
}

func TestTrigger_String(t *testing.T) {
	if got := TriggerReceiptAccepted.String(); got != "RECEIPT_ACCEPTED" {
		t.Errorf("Trigger.String() = %v, want %v", got, "RECEIPT_ACCEPTED")
	}
}

func TestBuilder_PermitPanicsOnInvalidState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	NewBuilder().Permit(StateAwaitingReceipt, TriggerReceiptAccepted, State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	NewBuilder().Build(State("INVALID"))
}

func TestMachine_Permit(t *testing.T) {
	builder := NewBuilder().
		Permit(StateAwaitingReceipt, TriggerReceiptAccepted, StateGatheringInfo)

	machine := builder.Build(StateAwaitingReceipt)

	if !machine.CanFire(TriggerReceiptAccepted) {
		t.Error("CanFire() should return true for permitted trigger")
	}

	if err := machine.Fire(context.Background(), TriggerReceiptAccepted); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.State() != StateGatheringInfo {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateGatheringInfo)
	}
}

func TestMachine_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder().
		PermitIf(StateGatheringInfo, TriggerInfoComplete, StateComplete, func(ctx context.Context) bool {
			return false
		})

	machine := builder.Build(StateGatheringInfo)

	err := machine.Fire(context.Background(), TriggerInfoComplete)
	if err == nil {
		t.Fatal("Fire() should fail when guard fails")
	}

	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	if machine.State() != StateGatheringInfo {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateGatheringInfo, machine.State())
	}
}

func TestMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder().
		Permit(StateAwaitingReceipt, TriggerReceiptAccepted, StateGatheringInfo)

	machine := builder.Build(StateAwaitingReceipt)

	err := machine.Fire(context.Background(), TriggerInfoComplete)
	if err == nil {
		t.Fatal("Fire() should fail for invalid transition")
	}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	if machine.State() != StateAwaitingReceipt {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateAwaitingReceipt, machine.State())
	}
}

func TestMachine_Fire_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StateComplete)

	err := machine.Fire(context.Background(), TriggerReceiptAccepted)
	if err == nil {
		t.Fatal("Fire() should fail when no configuration exists")
	}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestMachine_Immutability(t *testing.T) {
	builder := NewBuilder().
		Permit(StateAwaitingReceipt, TriggerReceiptAccepted, StateGatheringInfo)

	machine1 := builder.Build(StateAwaitingReceipt)
	machine2 := builder.Build(StateAwaitingReceipt)

	if err := machine1.Fire(context.Background(), TriggerReceiptAccepted); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine2.State() != StateAwaitingReceipt {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateAwaitingReceipt)
	}

	if machine1.State() != StateGatheringInfo {
		t.Errorf("machine1 state = %v, want %v", machine1.State(), StateGatheringInfo)
	}
}

func TestMachine_ConversationLifecycle(t *testing.T) {
	// Full linear path: no backward edges exist for a reimbursement conversation
	builder := NewBuilder().
		Permit(StateAwaitingReceipt, TriggerReceiptAccepted, StateGatheringInfo).
		Permit(StateGatheringInfo, TriggerInfoComplete, StateComplete)

	machine := builder.Build(StateAwaitingReceipt)

	steps := []struct {
		trigger       Trigger
		expectedState State
	}{
		{TriggerReceiptAccepted, StateGatheringInfo},
		{TriggerInfoComplete, StateComplete},
	}

	for i, step := range steps {
		if err := machine.Fire(context.Background(), step.trigger); err != nil {
			t.Errorf("Step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}

		if machine.State() != step.expectedState {
			t.Errorf("Step %d: State after Fire(%v) = %v, want %v", i, step.trigger, machine.State(), step.expectedState)
		}
	}

	if !machine.State().IsTerminal() {
		t.Error("Final state should be terminal")
	}

	if got := machine.PermittedTriggers(); len(got) != 0 {
		t.Errorf("Terminal state should have 0 permitted triggers, got %d", len(got))
	}

	// No transition moves backward out of COMPLETE
	if err := machine.Fire(context.Background(), TriggerReceiptAccepted); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() from terminal state error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder().
		Permit(StateAwaitingReceipt, TriggerReceiptAccepted, StateGatheringInfo)

	machine := builder.Build(StateAwaitingReceipt)

	triggers := machine.PermittedTriggers()
	if len(triggers) != 1 || triggers[0] != TriggerReceiptAccepted {
		t.Errorf("PermittedTriggers() = %v, want [%v]", triggers, TriggerReceiptAccepted)
	}
}
