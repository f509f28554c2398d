// Package mssqlx is a managed session layer for SQL Server over a TDS
// transport. It owns connection lifecycle, pooling, the query/parameter
// model, result-stream aggregation, transactions with savepoints, and bulk
// loading. Wire encoding and socket I/O belong to the transport behind the
// tds package boundary.
package mssqlx
