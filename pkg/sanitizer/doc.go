// Package sanitizer normalizes guest and host supplied identity data before validation and storage.
//
// All normalization functions are idempotent. Invalid input yields an empty string rather than an
// error so callers can run the result through the validator and report a field error.
//
// Normalization includes:
//   - Names and titles: collapse whitespace, trim
//   - Emails: trim, lowercase
//   - Phone numbers: E.164 via libphonenumber
//   - Feed URLs: enforce https for http(s) sources, lowercase host
//   - Slices: remove duplicates and empty values after normalization
package sanitizer
