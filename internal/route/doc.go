// Package route implements the notification router: it subscribes to
// the ALERTS subject, matches each lifecycle event against a tenant's
// enabled routing rules, resolves the destination channel (including
// on-call responder resolution for channels that reference a
// schedule), and enqueues an idempotent NotificationJob, publishing it
// on the ROUTES subject for internal/deliver. Grounded on
// internal/alert/dispatcher.go's rule-matching/filter pipeline,
// generalized from cooldown+recipients filters to spec.md §4.4's
// severity/alert_type/site/device-prefix/deliver_on filter set.
package route
