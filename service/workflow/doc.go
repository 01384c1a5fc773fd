// Package workflow drives every two-phase request through one uniform state
// machine: a requester submits, a differently-privileged approver decides,
// and only then is the change committed. Kind-specific behaviour (who may
// act, what mutation applies, what notice goes out) is injected through
// small hook sets, so promotion, demotion, hire, discharge and medal
// requests all share the same engine instead of per-kind copies.
package workflow
