// Package journal records agent runs and per-cycle outcomes in the local
// SQLite file so a field engineer can see what the sensor and broker did
// while nobody was watching.
//
// Each process start opens a run (UUID id). Every sampling cycle appends a
// tick row. On shutdown the run is closed with the loop's counters and old
// runs beyond journal.keep_runs are pruned together with their ticks.
//
// The journal implements sampler.Recorder.
package journal
