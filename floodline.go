// Package floodline answers natural-language questions about Philippine
// flood control project data.
//
// Usage:
//
//	import (
//	    "github.com/floodline/floodline/dataset"
//	    "github.com/floodline/floodline/engine"
//	)
//
//	tbl, err := dataset.LoadFile("projects.csv")
//	e := engine.New(tbl)
//	answer := e.Resolve("How many projects are there in Region II?", engine.NewSession())
//
// The engine normalizes the question (typo correction against the
// dataset vocabulary), classifies it into an action, applies location
// and time filters, and renders a plain-text answer. All computation is
// local — no external service is ever called. Multi-turn conversation
// memory (follow-up questions, pagination) is layered on top by the
// session package, and the server package exposes it over HTTP.
package floodline
