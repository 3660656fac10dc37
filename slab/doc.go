// Package slab implements a two-level slab allocator for small objects
// (at most MaxAllocSize bytes) intended to back a kernel heap.
//
// The allocator is organized in three layers, leaves first:
//
//   - Page: a fixed PageSize, page-aligned backing region carved into
//     equally-sized slots, with in-band tail metadata (an occupancy
//     bitmap, intrusive prev/next links, and an owning heap id).
//   - SizeClassAllocator: owns every Page for one size class, serving
//     allocations from its partial pages and reclaiming fully-freed
//     pages for reuse.
//   - Zone: the top-level dispatcher across all size classes, able to
//     withdraw an empty page from one class to refill a starved one.
//
// Backing pages themselves come from an external PageProvider; the
// core only ever asks for a fresh page or hands one back. None of the
// types in this package are safe for concurrent use — callers are
// expected to serialize access the way a per-CPU heap would serialize
// access to its own Zone.
package slab
