// Package ui renders git invocation progress for people watching the console.
//
// Structured logs keep the full command detail; the console narration only says
// which remote is being checked and which configuration key is being written.
package ui
