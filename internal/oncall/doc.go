// Package oncall computes the effective on-call responder for a
// schedule at a point in time, per spec.md §3's OnCallSchedule /
// OnCallLayer / OnCallOverride definitions: overrides (newest window
// wins) overlay layer rotation (highest position wins), rotation
// evaluated in the schedule's IANA timezone.
package oncall
