package website

import "errors"

// Sentinel errors for the website service layer.
var (
	ErrNotFound      = errors.New("website not found")
	ErrAlreadyRented = errors.New("website is already rented")
	ErrNotRented     = errors.New("website is not rented")
	ErrDomainTaken   = errors.New("domain already registered")
)
