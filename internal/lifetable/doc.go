// Package lifetable builds the period life table dataset.
//
// The SSA publishes one page per decade with a single HTML table holding
// the male and female life tables side by side. Build fetches the pages
// one at a time in year order, extracts the data table from each, splits
// it into its male and female halves and stacks everything into one CSV
// artifact with age, sex and year columns.
//
// The page layout is positional and undocumented: the data table is the
// second table on the page, column labels sit in the second grid row and
// data starts in the fifth. Cells holding only a no-break space mark
// values the SSA left blank; rows missing any value are dropped per sex.
// A change to the published layout fails the build rather than producing
// a silently wrong dataset.
package lifetable
