// Package content edits a structured site content document.
//
// A Document maps section names to values of three shapes, described by a
// Registry of Section descriptors:
//
//	record  a single record                  (site, hero, about, contact)
//	list    ordered records with stable ids  (navigation, features, products...)
//	keyed   slug -> record, insertion order  (productDetails)
//
// Fields inside one record are addressed with a short dotted path parsed by
// ParseAddress: "name", "nutrition.calories" or "cookingTips.0". The record
// itself is selected with Root, AtIndex or AtSlug.
//
// Documents are values. Read never copies; Write and the collection
// operations return a new Document that shares every untouched section and
// record with the previous one.
//
// Editing flows through three layers:
//
//	Session       one field at a time: Begin, Stage*, Save or Cancel
//	DocumentStore working document plus the baseline it came from
//	Gateway       commits snapshots to a state.Store and loads them back
//
// Editor wires them together with activity emission and logging.
package content
