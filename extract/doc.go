// Package extract supplies the per-page text and tables of an uploaded
// report.
//
// A Source opens a Document whose pages are fetched one at a time so a bad
// page fails alone. Two sources are provided: ServiceClient, which talks
// to an HTTP extraction sidecar, and StaticSource, which serves pages that
// were extracted ahead of time and saved as a JSON manifest.
package extract
