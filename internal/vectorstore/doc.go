// Package vectorstore maintains the derived vector index for graph records.
//
// Each tenant gets one Qdrant collection per embedding class, named
// {tenant}_{class}. The index is derived state: the graph store is the
// source of truth and every point can be rebuilt from it. Writes carry the
// owning tenant in the payload and reads conjoin a tenant filter, so a
// mis-addressed collection still cannot leak another tenant's points.
package vectorstore
