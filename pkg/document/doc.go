// Package document ties the maps of one plan together.
//
// A [Document] owns drawing groups (imported plan geometry), grid maps,
// shape graphs and data maps, and a partition of the shown drawing lines
// that is built on first use and discarded whenever the shown drawings
// change. Maps are addressed by family and index with [MapRef].
//
// # Display
//
// Each family has at most one displayed member. The view class says which
// family is in front and which, if any, is drawn behind it:
//
//	doc.SetViewClass(document.ShowHideAxial) // axial to the front
//	doc.SetViewClass(document.ShowGridTop)   // grid in front, axial behind
//	doc.SetViewClass(document.ShowHideGrid)  // grid gone, axial in front
//
// Editing, undo, attribute changes and shape analyses act on the displayed
// member of the front family.
//
// # Long operations
//
// Conversions, partition builds and analyses take a [comm.Communicator].
// When one is cancelled the document keeps its previous maps: conversions
// add nothing and a cancelled partition is thrown away.
package document
