// Package store holds the shared in-memory session table and the interfaces
// for data persistence. The session store is the only shared mutable state
// in the system; persistence interfaces abstract the underlying storage so
// business rules stay independent of specific database technologies.
package store
