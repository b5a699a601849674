// Package telephony provisions call-tracking numbers through the phone
// provider and records inbound call events delivered by its webhooks. Each
// number forwards to the renting client's real line so calls generated by a
// site can be attributed to it.
package telephony
