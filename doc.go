/*
Package satgo implements a memory stress and data-integrity verification
harness: it fills a large arena with self-checking patterns, cycles it
through fill/copy/invert/check worker pools, and reports any miscompare,
block-level re-pattern, or cache/frequency probe failure it finds.
*/
package satgo
