// Package kernel contains shared value objects used across the order domain.
// These are the building blocks that aggregates and entities are composed of:
// immutable, self-validating values with no identity of their own.
package kernel
