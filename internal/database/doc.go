// Package database provides connection pool management for the PostgreSQL
// store backing the traffic journal.
package database
