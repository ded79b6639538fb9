// Package processor contains the sequential batch worker. It drives one
// session's files through the analyzer and classifier, one file at a time,
// applying the outer per-file retry with backoff and writing every outcome
// back into the session store. All analyzer calls and sleeps happen outside
// the store lock, and every write tolerates the session having been deleted
// mid-flight.
package processor
