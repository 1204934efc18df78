package reconcile

import (
	"testing"

	"github.com/goliatone/go-formbridge/core"
)

const canonical = "https://bridge.example/webhook/jotform"

func regs(urls ...string) []core.WebhookRegistration {
	out := make([]core.WebhookRegistration, 0, len(urls))
	for index, url := range urls {
		out = append(out, core.WebhookRegistration{FormID: "f", WebhookID: string(rune('a' + index)), URL: url})
	}
	return out
}

func TestDecideKeepCanonicalDeletesOthersOnly(t *testing.T) {
	plan := Decide("f", core.PolicyKeepCanonical, canonical, regs("https://x.example", canonical, "https://y.example"), false)
	if len(plan.Actions) != 2 {
		t.Fatalf("expected two deletes, got %#v", plan.Actions)
	}
	if plan.Actions[0].Kind != core.ActionDelete || plan.Actions[0].URL != "https://x.example" {
		t.Fatalf("unexpected first action %#v", plan.Actions[0])
	}
	if plan.Actions[1].Kind != core.ActionDelete || plan.Actions[1].URL != "https://y.example" {
		t.Fatalf("unexpected second action %#v", plan.Actions[1])
	}
	if plan.HasAdd() {
		t.Fatalf("expected no add when canonical is present")
	}
}

func TestDecideKeepCanonicalRemovesDuplicates(t *testing.T) {
	plan := Decide("f", core.PolicyKeepCanonical, canonical, regs(canonical, canonical), false)
	if len(plan.Actions) != 1 || plan.Actions[0].WebhookID != "b" {
		t.Fatalf("expected the second canonical registration to be deleted, got %#v", plan.Actions)
	}
}

func TestDecideKeepCanonicalAddsWhenAbsent(t *testing.T) {
	plan := Decide("f", core.PolicyKeepCanonical, canonical, regs("https://x.example"), false)
	if len(plan.Actions) != 2 || plan.Actions[0].Kind != core.ActionDelete || plan.Actions[1].Kind != core.ActionAdd {
		t.Fatalf("expected delete then add, got %#v", plan.Actions)
	}
}

func TestDecideAdditive(t *testing.T) {
	if plan := Decide("f", core.PolicyAdditive, canonical, regs("https://x.example", canonical), false); !plan.Empty() {
		t.Fatalf("expected no action when canonical present, got %#v", plan.Actions)
	}
	plan := Decide("f", core.PolicyAdditive, canonical, regs("https://x.example"), false)
	if len(plan.Actions) != 1 || plan.Actions[0].Kind != core.ActionAdd || plan.Actions[0].URL != canonical {
		t.Fatalf("expected single add, got %#v", plan.Actions)
	}
}

func TestDecideReset(t *testing.T) {
	plan := Decide("f", core.PolicyReset, canonical, regs(canonical, "https://x.example"), false)
	if len(plan.Actions) != 3 {
		t.Fatalf("expected delete all then add, got %#v", plan.Actions)
	}
	if plan.Actions[2].Kind != core.ActionAdd {
		t.Fatalf("expected add last, got %#v", plan.Actions)
	}

	if plan := Decide("f", core.PolicyReset, canonical, regs(canonical), false); !plan.Empty() {
		t.Fatalf("expected converged form to be left alone, got %#v", plan.Actions)
	}
	forced := Decide("f", core.PolicyReset, canonical, regs(canonical), true)
	if len(forced.Actions) != 2 || forced.Actions[0].Kind != core.ActionDelete || forced.Actions[1].Kind != core.ActionAdd {
		t.Fatalf("expected forced rebuild, got %#v", forced.Actions)
	}
	empty := Decide("f", core.PolicyReset, canonical, nil, false)
	if len(empty.Actions) != 1 || empty.Actions[0].Kind != core.ActionAdd {
		t.Fatalf("expected add for empty form, got %#v", empty.Actions)
	}
}

func TestDecideWithoutCanonicalURLPlansNothing(t *testing.T) {
	if plan := Decide("f", core.PolicyReset, " ", regs("https://x.example"), true); !plan.Empty() {
		t.Fatalf("expected empty plan, got %#v", plan.Actions)
	}
}
