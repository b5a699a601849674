// Package lead implements lead pipeline management.
//
// The service layer contains the business rules for capturing, qualifying,
// and converting leads. It depends on the repository interface defined in
// this package and should never import from api/.
//
// Repository implementations live in repository/postgres/.
package lead
