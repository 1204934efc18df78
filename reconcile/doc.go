// Package reconcile drives each form's webhook registrations toward a single
// canonical callback URL.
//
// A sweep observes every active form, decides a plan under one of three
// policies and applies it, deletions first. Forms are independent: a failing
// call abandons the rest of that form's plan and nothing else. Only one sweep
// runs at a time per Reconciler.
package reconcile
