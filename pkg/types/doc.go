// Package types defines the key-value Store interface, the category and link
// entities, backup records, and the standard errors shared by every linkshelf
// package.
package types
