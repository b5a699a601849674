// Package task implements back-office task management.
//
// Tasks track the operational work around a portfolio of rank-and-rent
// sites: content updates, citation building, client follow-ups. The service
// layer owns status rules and due-date queries; persistence lives behind the
// Repository interface, implemented in repository/postgres/.
package task
