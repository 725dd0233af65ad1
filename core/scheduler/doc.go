// Package scheduler runs periodic trailing-window reconciliation jobs in
// serve mode, driven by a cron expression. New scenes appear in the remote
// store every few minutes; the scheduler keeps the local archive trailing
// them without manual sync commands.
package scheduler
