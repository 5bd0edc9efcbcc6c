// Package normalisers extracts plain text from the file formats accepted
// for ingestion. Each subpackage handles one format family; the Registry
// picks one by MIME type, detecting the type from the file name and
// content when the caller does not supply it.
package normalisers
