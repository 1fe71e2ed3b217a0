// Package storage manages the files a crawl produces.
//
// Output is laid out per crawl mode: <base>/<mode>/<name>/ holds the
// rendered text, with json, comments and photo subdirectories next to
// it. Post files follow the "(title by author)" naming convention.
//
// All writes are atomic: data goes to a temporary file that is renamed
// into place, so an interrupted run never leaves a partial file. The
// Manager keeps an in-memory record of written paths for fast duplicate
// detection and double-checks the filesystem for files from previous
// runs.
package storage
