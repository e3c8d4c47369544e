// Package snap keeps versioned snapshots of a database in a git
// repository. Every snapshot exports each table as a CSV file and
// commits the tree, so the full history of the data can be inspected
// with ordinary git tooling and any snapshot can be loaded back.
package snap
