// Package memory provides in-memory implementations of the storage ports.
// They back tests and runs where history does not need to survive the process.
package memory
