// Package component defines the lifecycle interface for long-lived eventkit
// parts and a Registry that starts them in order and stops them in reverse.
//
// Dispatchers that own goroutines (pools, dedicated workers) implement
// Component so a dispatch.Set can manage them together.
package component
