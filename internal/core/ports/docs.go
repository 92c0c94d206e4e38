// Package ports declares the interfaces through which the core talks to the
// outside world: persistent storage for aggregates and the event publisher
// for lifecycle announcements. Adapters implement them; use cases depend only
// on the contracts.
package ports
