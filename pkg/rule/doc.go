// Package rule implements user-defined profiler checks written as CEL
// (Common Expression Language) expressions.
//
// Each expression is evaluated once per profiler rule and must return a
// boolean. The check fails for a rule when its expression returns false.
package rule
