// Package names builds the baby-name counts dataset.
//
// The Social Security Administration publishes national name counts as a
// zip archive of per-year text files, one (name, sex, births) triple per
// line. Build downloads the archive, extracts it into a scratch directory,
// tags every row with the year encoded in its filename and concatenates
// all years into a single gzip-compressed CSV artifact. The archive and
// the scratch directory are always removed afterwards, whether or not the
// build succeeded.
package names
