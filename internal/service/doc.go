// Package service contains the application-specific use cases of the batch
// analysis control surface. It orchestrates the session store, the background
// task runner, and the processor to fulfill the operations exposed over HTTP:
// starting batches, retrying failed files, ingesting externally pushed
// results, and deleting sessions.
//
// Services receive dependencies through constructor injection and translate
// domain-specific conditions into sentinel errors the API layer can map to
// status codes. They never depend on specific infrastructure implementations.
package service
