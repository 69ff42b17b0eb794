// Package tables stitches table regions that a page boundary split in two,
// and provides helpers for the HTML fragments the perception model returns
// for tables.
//
// # Cross-page merging
//
// [MergeCrossPage] walks adjacent page pairs in page order. When page i ends
// with a table region and page i+1 starts with one, the two contents are
// concatenated into page i's last region, which is marked IsCrossPage, and
// the fragment is removed from page i+1:
//
//	merged, report := tables.MergeCrossPage(pages)
//	for _, m := range report.Merges {
//		log.Printf("table on page %d continues on page %d", m.Page, m.NextPage)
//	}
//
// A region already marked IsCrossPage is never consumed as the trailing
// fragment of a new merge. The fused region keeps leading within the pass:
// when the fragment it absorbed was the only region on its page, it is
// compared with the page after that one, so tables spanning three or more
// pages fuse left to right. Running the merge twice gives the same result as
// running it once.
//
// No structural check is made. Any table that ends a page fuses with any
// table that starts the next one.
//
// # Markup
//
// Table content is an HTML fragment. The markup helpers are optional steps
// the Markdown renderer can apply:
//
//   - [FuseMarkup] collapses the consecutive <table> elements of a fused
//     fragment into one table
//   - [Sanitize] strips everything but table structure
//   - [ToMarkdown] converts a fragment to a GitHub-flavored pipe table
package tables
