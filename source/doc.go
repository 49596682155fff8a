// Package source reads the files oppmatch works from and writes the files it
// produces.
//
// Inputs are a SAM.gov style opportunities CSV, a boilerplate phrase CSV and
// a newline-delimited capabilities file. CSV inputs are decoded as UTF-8 and
// fall back to ISO-8859-1 when the bytes are not valid UTF-8. Malformed rows
// are skipped and counted rather than failing the load.
package source
