// Package customer provides the customer record store for Customer Core.
//
// Records are plain CRUD entities with a unique, immutable customer code
// assigned at creation. Keyword search covers name, email, and code;
// advanced search filters on individual fields. The package has no
// dependency on internal/auth; access control is the transport layer's
// concern.
package customer
