// Package publish delivers rendered schedule documents.
//
// A [Sink] receives an [Artifact]: the encoded document plus a few facts
// about the run. [File] writes it to a directory, [S3] uploads it to an
// S3-compatible bucket and [NATS] announces it on a subject. [Multi] fans
// one artifact out to several sinks.
package publish
