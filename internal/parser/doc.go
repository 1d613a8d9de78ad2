// Package parser extracts structured company fields from report issues.
//
// An issue body arrives in one of two dialects: the markdown produced by
// the issue form, or an HTML rendering of it. Each dialect has its own
// tokenizer that splits the body into headed sections. Fields are then read
// from those sections by an ordered list of label rules, so both dialects
// share the same extraction logic.
package parser
