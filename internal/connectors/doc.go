// Package connectors holds sources that feed documents into the pipeline
// from outside the command line, such as a watched directory.
package connectors
