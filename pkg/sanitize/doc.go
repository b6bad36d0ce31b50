// Package sanitize implements the untrusted-text boundary of the Lancet
// pipeline: input sanitization before text enters a prompt, and output
// validation after the model has generated text.
//
// All entry points are pure, synchronous, and allocation-local, safe for
// unrestricted concurrent use. Every pattern is an RE2 expression, so scan
// time stays linear in the input size even for adversarial content.
package sanitize
