package reconcile

import (
	"strings"

	"github.com/goliatone/go-formbridge/core"
)

// Decide computes the corrective plan for one form. DELETE actions always
// precede the ADD. Under RESET a form that already holds exactly the canonical
// registration is left alone unless force is set.
func Decide(
	formID string,
	policy core.Policy,
	canonicalURL string,
	registrations []core.WebhookRegistration,
	force bool,
) core.Plan {
	plan := core.Plan{FormID: formID, Actions: []core.Action{}}
	canonicalURL = strings.TrimSpace(canonicalURL)
	if canonicalURL == "" {
		return plan
	}

	present := false
	for _, registration := range registrations {
		if registration.URL == canonicalURL {
			present = true
			break
		}
	}

	switch policy {
	case core.PolicyKeepCanonical:
		kept := false
		for _, registration := range registrations {
			if registration.URL == canonicalURL && !kept {
				kept = true
				continue
			}
			plan.Actions = append(plan.Actions, deleteAction(registration))
		}
		if !present {
			plan.Actions = append(plan.Actions, addAction(canonicalURL))
		}
	case core.PolicyReset:
		if !force && Converged(canonicalURL, registrations) {
			return plan
		}
		for _, registration := range registrations {
			plan.Actions = append(plan.Actions, deleteAction(registration))
		}
		plan.Actions = append(plan.Actions, addAction(canonicalURL))
	default:
		if !present {
			plan.Actions = append(plan.Actions, addAction(canonicalURL))
		}
	}
	return plan
}

// Converged reports whether the registrations are exactly one canonical URL.
func Converged(canonicalURL string, registrations []core.WebhookRegistration) bool {
	return len(registrations) == 1 && registrations[0].URL == strings.TrimSpace(canonicalURL)
}

func deleteAction(registration core.WebhookRegistration) core.Action {
	return core.Action{
		Kind:      core.ActionDelete,
		WebhookID: registration.WebhookID,
		URL:       registration.URL,
	}
}

func addAction(url string) core.Action {
	return core.Action{Kind: core.ActionAdd, URL: url}
}
