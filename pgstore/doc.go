// Package pgstore implements the stampauth UserStore on PostgreSQL using
// pgx. Optimistic concurrency rides on a version column: updates match the
// caller's version in the WHERE clause and report a conflict when no row
// was touched.
package pgstore
