// Package survey normalizes raw exit-survey exports and extracts the
// aggregates the dashboard and the report are built from.
//
// A raw export goes through ReadWorkbook, then Normalizer.Normalize, and the
// resulting canonical Table is handed to an Extractor. Tables are immutable,
// so an Extractor may be shared by concurrent readers. Column names, code
// tables and labels live in an Instrument; DefaultInstrument returns the
// built-in one.
package survey
