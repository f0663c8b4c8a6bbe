// Package telemetry instruments the observation dispatcher and editor
// operations with Prometheus metrics and OpenTelemetry spans.
//
// A Recorder implements observable.Hooks. Install it with
// observable.SetHooks and expose Handler on /metrics:
//
//	rec := telemetry.New(telemetry.WithNamespace("obsedit"))
//	prev := observable.SetHooks(rec)
//	defer observable.SetHooks(prev)
//
//	http.Handle("/metrics", rec.Handler())
//
// Metrics collected:
//   - obsedit_transactions_total: committed transactions by name
//   - obsedit_transaction_duration_seconds: time from open to commit
//   - obsedit_transaction_updates: observer updates per transaction
//   - obsedit_handler_calls_total: change handler calls by observable and outcome
//   - obsedit_reader_runs_total: autorun reader runs by autorun
//   - obsedit_reader_duration_seconds: reader run duration
//   - obsedit_live_autoruns: registered, undisposed autoruns
//   - obsedit_operations_total: editor operations by command and status
//
// Every transaction becomes a span named "obsedit.tx <name>", a child of the
// operation span started by StartOperation when one is open.
package telemetry
