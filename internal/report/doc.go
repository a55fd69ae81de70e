// Package report assembles the fixed sequence of chart sections that make up
// the exit survey report.
//
// A Report is a manifest: each Section names its chart kind, title and axis
// titles and carries the aggregate to draw. Rendering the charts and laying
// out the document is left to the caller.
package report
