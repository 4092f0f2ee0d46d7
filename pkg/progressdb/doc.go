/*
Package progressdb persists the per-case timing and outcome history an
artifact producer's previous runs accumulated: up to three most-recent
durations, the last outcome (success, failure, new), and free-form metadata.
Like pkg/digeststore, the table is a versioned bbolt database; loading an
unrecognized schema version yields an empty store instead of an error.
*/
package progressdb
