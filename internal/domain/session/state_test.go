package session

import (
	"errors"
	"reflect"
	"testing"

	"github.com/leagr/leagr/internal/domain/settings"
)

func smallState(limit int) State {
	eff := settings.Resolve(nil, nil)
	eff.PlayerLimit = limit
	return State{Settings: eff}
}

func TestAddPlayerRoutesToWaitingWhenFull(t *testing.T) {
	t.Parallel()

	state := smallState(2)
	var err error
	for _, name := range []string{"Alice", "Bob"} {
		state, err = state.AddPlayer(name, TargetAvailable)
		if err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}

	state, err = state.AddPlayer("Carol", TargetAvailable)
	if err != nil {
		t.Fatalf("add over limit: %v", err)
	}
	if !reflect.DeepEqual(state.Players.WaitingList, []string{"Carol"}) {
		t.Fatalf("expected Carol on waiting list, got %v", state.Players.WaitingList)
	}
	if len(state.Players.Available) != 2 {
		t.Fatalf("available grew past the limit: %v", state.Players.Available)
	}
}

func TestAddPlayerRejectsDuplicates(t *testing.T) {
	t.Parallel()

	state := smallState(10)
	state, _ = state.AddPlayer("Alice", TargetAuto)

	if _, err := state.AddPlayer("Alice", TargetWaitingList); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected ErrDuplicatePlayer, got %v", err)
	}
	// Case-exact comparison: a different casing is a different player.
	if _, err := state.AddPlayer("alice", TargetAuto); err != nil {
		t.Fatalf("different casing must register: %v", err)
	}
}

func TestAddThenRemoveRestoresState(t *testing.T) {
	t.Parallel()

	initial := smallState(10)
	initial, _ = initial.AddPlayer("Alice", TargetAuto)

	added, err := initial.AddPlayer("Bob", TargetAuto)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	restored, err := added.RemovePlayer("Bob")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}

	if !reflect.DeepEqual(restored.Players, initial.Players) {
		t.Fatalf("add+remove must round-trip: %+v != %+v", restored.Players, initial.Players)
	}
}

func TestRemovePlayerClearsTeamSlot(t *testing.T) {
	t.Parallel()

	alice := "Alice"
	state := smallState(10)
	state, _ = state.AddPlayer("Alice", TargetAuto)
	state.Teams = map[string][]*string{"Red Lions": {&alice, nil}}

	state, err := state.RemovePlayer("Alice")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if state.Teams["Red Lions"][0] != nil {
		t.Fatalf("slot must be opened after removal")
	}
}

func TestMovePlayerCapacityCheck(t *testing.T) {
	t.Parallel()

	state := smallState(1)
	state, _ = state.AddPlayer("Alice", TargetAvailable)
	state, _ = state.AddPlayer("Bob", TargetWaitingList)

	if _, err := state.MovePlayer("Bob", TargetWaitingList, TargetAvailable); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	state, err := state.MovePlayer("Alice", TargetAvailable, TargetWaitingList)
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	state, err = state.MovePlayer("Bob", TargetWaitingList, TargetAvailable)
	if err != nil {
		t.Fatalf("promote after space opened: %v", err)
	}
	if !reflect.DeepEqual(state.Players.Available, []string{"Bob"}) {
		t.Fatalf("unexpected available list %v", state.Players.Available)
	}
}

func TestMovePlayerToTeamPromotesFromWaiting(t *testing.T) {
	t.Parallel()

	state := smallState(10)
	state, _ = state.AddPlayer("Alice", TargetWaitingList)
	state.Teams = map[string][]*string{"Blue Sharks": {nil, nil}}

	state, err := state.MovePlayerToTeam("Alice", "Blue Sharks")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if len(state.Players.WaitingList) != 0 {
		t.Fatalf("Alice must leave the waiting list")
	}
	if got := state.Teams["Blue Sharks"][0]; got == nil || *got != "Alice" {
		t.Fatalf("expected Alice in first slot, got %v", got)
	}
	if err := state.Validate(); err != nil {
		t.Fatalf("state must stay valid: %v", err)
	}
}

func TestMovePlayerToTeamFailsWhenFull(t *testing.T) {
	t.Parallel()

	bob := "Bob"
	state := smallState(10)
	state, _ = state.AddPlayer("Alice", TargetAuto)
	state, _ = state.AddPlayer("Bob", TargetAuto)
	state.Teams = map[string][]*string{"Blue Sharks": {&bob}}

	if _, err := state.MovePlayerToTeam("Alice", "Blue Sharks"); !errors.Is(err, ErrTeamFull) {
		t.Fatalf("expected ErrTeamFull, got %v", err)
	}
	if _, err := state.MovePlayerToTeam("Alice", "Nope"); !errors.Is(err, ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}

func TestRenamePlayerRemapsSlots(t *testing.T) {
	t.Parallel()

	alice := "Alice"
	state := smallState(10)
	state, _ = state.AddPlayer("Alice", TargetAuto)
	state, _ = state.AddPlayer("Bob", TargetAuto)
	state.Teams = map[string][]*string{"Red Lions": {&alice, nil}}

	if _, err := state.RenamePlayer("Alice", "Bob"); !errors.Is(err, ErrDuplicatePlayer) {
		t.Fatalf("expected collision error, got %v", err)
	}

	state, err := state.RenamePlayer("Alice", "Alicia")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if got := state.Teams["Red Lions"][0]; got == nil || *got != "Alicia" {
		t.Fatalf("team slot not remapped, got %v", got)
	}
	if !contains(state.Players.Available, "Alicia") || contains(state.Players.Available, "Alice") {
		t.Fatalf("available list not remapped: %v", state.Players.Available)
	}
}

func TestValidateCatchesInvariantViolations(t *testing.T) {
	t.Parallel()

	ghost := "Ghost"
	alice := "Alice"

	cases := []struct {
		name  string
		state State
	}{
		{
			name: "name on both lists",
			state: State{Players: Players{
				Available:   []string{"Alice"},
				WaitingList: []string{"Alice"},
			}},
		},
		{
			name: "team slot holds unavailable name",
			state: State{
				Players: Players{Available: []string{"Alice"}},
				Teams:   map[string][]*string{"Red": {&ghost}},
			},
		},
		{
			name: "name on two teams",
			state: State{
				Players: Players{Available: []string{"Alice"}},
				Teams:   map[string][]*string{"Red": {&alice}, "Blue": {&alice}},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if err := tc.state.Validate(); !errors.Is(err, ErrStateInvalid) {
				t.Fatalf("expected ErrStateInvalid, got %v", err)
			}
		})
	}
}

func TestMutatorsDoNotAliasReceiver(t *testing.T) {
	t.Parallel()

	alice := "Alice"
	original := smallState(10)
	original, _ = original.AddPlayer("Alice", TargetAuto)
	original.Teams = map[string][]*string{"Red": {&alice}}

	mutated, err := original.RenamePlayer("Alice", "Alicia")
	if err != nil {
		t.Fatalf("rename: %v", err)
	}

	if got := original.Teams["Red"][0]; got == nil || *got != "Alice" {
		t.Fatalf("receiver team slot mutated: %v", got)
	}
	if original.Players.Available[0] != "Alice" {
		t.Fatalf("receiver list mutated: %v", original.Players.Available)
	}
	if got := mutated.Teams["Red"][0]; got == nil || *got != "Alicia" {
		t.Fatalf("result missing rename: %v", got)
	}
}
