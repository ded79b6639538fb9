// Package task manages background job queuing and processing. It provides
// the mechanism for asynchronous execution of long-running batch analysis
// work, ensuring it never blocks HTTP request handling. Tasks live only in
// memory; there is no persistence or crash recovery, matching the in-memory
// lifetime of the sessions the tasks operate on.
package task
