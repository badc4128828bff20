// Package firmware implements the remote "apply firmware update" trigger.
//
// A message on the firmware-update control topic moves the Trigger from
// Idle to PendingRestart. The transition persists an update-pending flag,
// clears the retained trigger on the broker and then asks the Restarter to
// restart the node. The restart itself is a boundary collaborator: in
// production ProcessRestarter cancels the application context with
// ErrRestartRequested and main exits so the supervisor starts a fresh
// process, which runs the pending update via ApplyPending.
//
// If the flag cannot be persisted the restart is aborted, an ErrPersistence
// error is returned and the Trigger stays Idle.
package firmware
