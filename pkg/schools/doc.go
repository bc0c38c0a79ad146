// Package schools implements school listing, lookup, creation and updates.
// Creating a school also makes its creator the school's first admin.
package schools
