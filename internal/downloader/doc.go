// Package downloader fetches lists of media links into a directory, one
// link at a time, skipping files that are already on disk.
package downloader
