// File: utils/constants.go
package utils

// Redis key prefixes shared by the reminder pipeline.
const (
	SnoozeLedgerPrefix = "snoozeprefs:"
	SnoozeTagPrefix    = "snooze:tag:"
	SnoozeTaskPrefix   = "snooze:task:"
	TriggerLeasePrefix = "trigger:lease:"
)

// Queue names used by the asynq client and server.
const (
	QueueAlarms  = "alarms"
	QueueSnooze  = "snooze"
	QueueDefault = "default"
)
