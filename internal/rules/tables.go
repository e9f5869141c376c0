package rules

import "sort"

// arrayMethods is the vocabulary of Array instance methods and properties
// that have no meaning on the arguments object, per
// https://developer.mozilla.org/en-US/docs/Web/JavaScript/Reference/Global_Objects/Array#instance_methods
//
// The table must stay sorted: membership is a binary search, and sortedness
// is verified by its own test. It is not deduplicated by construction.
// Inherited Object methods (toString, toLocaleString) and later additions
// with permissive polyfills (findLast, group, toReversed, with, ...) are
// deliberately absent.
var arrayMethods = []string{
	"@@iterator",
	"at",
	"concat", "copyWithin",
	"entries", "every",
	"fill", "filter", "find", "findIndex", "flat", "flatMap", "forEach",
	"includes", "indexOf",
	"join",
	"keys",
	"lastIndexOf",
	"map",
	"pop", "push", "push",
	"reduce", "reduceRight", "reverse",
	"shift", "slice", "some", "sort", "splice",
	"unshift",
	"values",
}

// isArrayMethod reports whether name is in the array-method vocabulary.
func isArrayMethod(name string) bool {
	i := sort.SearchStrings(arrayMethods, name)
	return i < len(arrayMethods) && arrayMethods[i] == name
}

// ArrayMethods returns a copy of the vocabulary. Exposed for cache
// fingerprinting: a vocabulary change must invalidate stored results.
func ArrayMethods() []string {
	out := make([]string, len(arrayMethods))
	copy(out, arrayMethods)
	return out
}
