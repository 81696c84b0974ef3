package hunt

import "testing"

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusQueued, StatusSearching},
		{StatusSearching, StatusSuccess},
		{StatusSearching, StatusFailed},
		{StatusSearching, StatusInvalidURL},
		{StatusFailed, StatusQueued},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("transition %s -> %s should be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to string }{
		{StatusQueued, StatusSuccess},
		{StatusQueued, StatusFailed},
		{StatusSuccess, StatusQueued},
		{StatusSuccess, StatusSearching},
		{StatusInvalidURL, StatusQueued},
		{StatusInvalidURL, StatusSearching},
		{StatusFailed, StatusSearching},
		{StatusSearching, StatusQueued},
		{"bogus", StatusQueued},
		{StatusQueued, "bogus"},
	}
	for _, tc := range rejected {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("transition %s -> %s should be rejected", tc.from, tc.to)
		}
	}
}

func TestIsKnownStatus(t *testing.T) {
	for _, s := range []string{StatusQueued, StatusSearching, StatusSuccess, StatusFailed, StatusInvalidURL} {
		if !IsKnownStatus(s) {
			t.Errorf("%s should be known", s)
		}
	}
	if IsKnownStatus("done") {
		t.Error("unknown status accepted")
	}
}

func TestTransitionRejectsAndLeavesItemUntouched(t *testing.T) {
	it := &Item{ID: "x", Status: StatusSuccess, Reason: ""}
	if err := transition(it, StatusSearching, "again"); err == nil {
		t.Fatal("expected an error for a terminal status")
	}
	if it.Status != StatusSuccess || it.Reason != "" {
		t.Fatalf("rejected transition mutated the item: %+v", it)
	}
}

func TestTransitionSetsReason(t *testing.T) {
	it := &Item{ID: "x", Status: StatusSearching}
	if err := transition(it, StatusFailed, "not found in archive"); err != nil {
		t.Fatal(err)
	}
	if it.Status != StatusFailed || it.Reason != "not found in archive" {
		t.Fatalf("unexpected item after transition: %+v", it)
	}
}
