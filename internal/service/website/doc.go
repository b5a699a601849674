// Package website implements rank-and-rent site portfolio management.
//
// A website moves through draft -> ranking -> rented -> archived. Renting a
// site binds it to a client and a monthly rate; the service owns those rules
// while persistence lives behind the Repository interface, implemented in
// repository/postgres/.
package website
