// Package ui renders console output: colour-coded status lines, a
// download progress bar and an optional desktop notification at the end of
// a run.
package ui
