package main

import "errors"

// The two structural diagnostics this compiler can produce.
var (
	errUnmatchedOpen  = errors.New("']' corresponding to '[' is not found.")
	errUnmatchedClose = errors.New("'[' corresponding to ']' is not found.")
)
