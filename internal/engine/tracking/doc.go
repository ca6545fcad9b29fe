// Package tracking keeps the operation log of a document session.
//
// Every operation applied to a document is recorded as a [Record]: the
// operation name, the selection it was applied to as root-relative paths,
// and the markup of any template it used. Records carry increasing revision
// numbers and serialize to compact JSON objects, so a log can be shipped to
// another session and replayed there:
//
//	{"rev":3,"op":"wrap","range":{"start":{"path":[0,0],"offset":1},
//	 "end":{"path":[0,0],"offset":4}},"template":"<strong></strong>"}
//
// The [Tracker] holds a bounded window of recent records and named
// snapshots of the document, which answer "what was applied since X".
// All Tracker operations are safe for concurrent use.
package tracking
