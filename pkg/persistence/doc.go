// Package persistence schedules periodic world saves.
//
// Saves run on a robfig/cron "@every" schedule. Only one save runs at a
// time: a tick that fires during a save is skipped and counted, and RunNow
// waits for the running save before starting its own. On Linux each save
// runs on its own OS thread with a raised nice value so that packet
// handling keeps priority.
package persistence
