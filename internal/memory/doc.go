// Package memory is the service layer over the tenant-scoped knowledge
// graph. It validates input, sanitizes metadata, shapes storage rows into
// transport-friendly DTOs, and keeps the derived vector index converging
// with the graph after every successful write.
//
// Every operation takes the tenant id explicitly and opens exactly one
// tenant scope; nothing in this package ever reads or writes outside the
// scope's tenant.
package memory
