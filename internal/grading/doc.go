// Package grading computes weighted course grades and the class analytics derived from them.
//
// Every function is pure: inputs are grade sheet rows and a course weight map, and nothing
// is read from or written to storage. Scores are kept at full precision; callers round
// with Round2 only when presenting values.
package grading
