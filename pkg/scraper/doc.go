// Package scraper drives a download run.
//
// For every username, in the order given, the scraper resolves the profile on
// the mirror, then downloads the current stories and the highlight groups as
// requested:
//
//	users/<username>/stories/<DD-Month-YYYY>/<file>
//	users/<username>/highlights/<name>_<id>/<file>
//
// Profiles that do not exist or are private are reported and skipped without
// creating any directory. Files already present are never fetched again, so a
// repeated run only downloads what is new.
//
// The first error ends the run unless Options.KeepGoing is set. Cancelling the
// context always stops the run before the next profile, group or file.
package scraper
