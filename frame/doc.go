// Package frame moves tables between an EmbedDB connection and Apache
// Arrow records, the in-memory columnar structure used for bulk
// interchange.
//
// Query fetches a result set into a record; Write loads a record into
// a named table under a caller-specified conflict policy (Fail,
// Replace, Append). CSV encode/decode plus local, http(s) and s3 paths
// cover import and export.
//
//	rec, _ := frame.Query(conn, "SELECT * FROM users")
//	defer rec.Release()
//	frame.Write(conn, "users_copy", rec, frame.Replace)
package frame
