// Package keywords manages tracked search terms and their rank history.
// A background cycle submits SERP checks through the seoapi credential pool
// and stores one snapshot per keyword per run.
package keywords
