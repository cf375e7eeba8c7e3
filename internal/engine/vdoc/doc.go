// Package vdoc holds the virtual document: search output loaded as editable
// text, with every line that refers to a source file tagged as a ResultLine.
//
// Each result line consists of a header ("path:12:" or "path-12-") followed
// by editable text. While the document is protected, headers and
// decoration lines are read-only and an edit may only change the editable
// text of a single line. Unprotected, the document accepts any edit and
// re-associates lines with their result lines by header afterwards.
//
// Apply reports which result lines a mutation touched and which ones it
// removed so that edit tracking can follow along.
package vdoc
